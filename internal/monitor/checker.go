// Package monitor runs the periodic integrity check against an established
// baseline and decides when monitoring halts.
package monitor

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/starford/algiz/internal/apperr"
	"github.com/starford/algiz/internal/baseline"
	"github.com/starford/algiz/internal/eventlog"
	"github.com/starford/algiz/internal/models"
)

// Report is the result of one check cycle.
type Report struct {
	Intrusion bool                 `json:"intrusion"`
	Results   []models.CheckResult `json:"results"`
}

// Checker compares current file digests with a baseline.
type Checker struct {
	digest   baseline.Digester
	events   eventlog.Emitter
	interval time.Duration
	trigger  <-chan struct{}
	status   *tracker
}

// Option configures a Checker.
type Option func(*Checker)

// WithTrigger makes the checker start its next cycle as soon as a value
// arrives on ch instead of waiting out the full interval.
func WithTrigger(ch <-chan struct{}) Option {
	return func(c *Checker) {
		c.trigger = ch
	}
}

// New returns a Checker that waits interval between cycles.
func New(digest baseline.Digester, events eventlog.Emitter, interval time.Duration, opts ...Option) *Checker {
	c := &Checker{
		digest:   digest,
		events:   events,
		interval: interval,
		status:   newTracker(interval),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status returns a snapshot of the monitor state.
func (c *Checker) Status() Status {
	return c.status.snapshot()
}

// CheckOnce runs one cycle over b and reports whether an intrusion was
// detected.
func (c *Checker) CheckOnce(b baseline.Baseline) bool {
	return c.Check(b).Intrusion
}

// Check runs one cycle over b in baseline order. The first path that is
// unreadable or whose digest differs raises an alert and ends the cycle;
// paths after it are not examined. Report.Results lists every path that was
// evaluated.
func (c *Checker) Check(b baseline.Baseline) Report {
	c.events.Event(models.LevelInfo, "Running integrity check...")

	var report Report
	for _, e := range b.Entries() {
		res := c.evaluate(e)
		report.Results = append(report.Results, res)

		if res.Outcome != models.OutcomeOK {
			c.events.Alert(e.Path, e.Digest, res.CurrentDigest)
			report.Intrusion = true
			break
		}
		c.events.Emit(models.Event{
			Level:          models.LevelDebug,
			Message:        fmt.Sprintf("File %s is OK.", filepath.Base(e.Path)),
			Path:           e.Path,
			Outcome:        models.OutcomeOK,
			BaselineDigest: e.Digest,
			CurrentDigest:  res.CurrentDigest,
		})
	}

	c.status.cycleDone(report)
	return report
}

func (c *Checker) evaluate(e baseline.Entry) models.CheckResult {
	res := models.CheckResult{Path: e.Path, BaselineDigest: e.Digest}
	current, ok := c.digest.Digest(e.Path)
	switch {
	case !ok:
		res.Outcome = models.OutcomeMissing
		res.CurrentDigest = models.MissingDigest
	case current != e.Digest:
		res.Outcome = models.OutcomeModified
		res.CurrentDigest = current
	default:
		res.Outcome = models.OutcomeOK
		res.CurrentDigest = current
	}
	return res
}

// Run drives the MONITORING → HALTED state machine over b.
//
// An empty baseline halts immediately with apperr.ErrNothingToMonitor and no
// cycle is run. Otherwise cycles repeat, separated by the interval, until one
// detects an intrusion (apperr.ErrIntrusionDetected) or ctx is cancelled by
// the operator (nil). HALTED is terminal.
func (c *Checker) Run(ctx context.Context, b baseline.Baseline) error {
	state := c.enter(b)

	var err error
	if state == models.StateHalted {
		err = apperr.ErrNothingToMonitor
	}

	for state == models.StateMonitoring {
		switch {
		case c.CheckOnce(b):
			state, err = models.StateHalted, apperr.ErrIntrusionDetected
		case !c.wait(ctx):
			c.events.Event(models.LevelInfo, "Monitoring stopped by operator.")
			state = models.StateHalted
		}
	}

	c.status.setState(state)
	return err
}

func (c *Checker) enter(b baseline.Baseline) models.State {
	c.status.setBaseline(b.Len())
	if b.Len() == 0 {
		c.events.Event(models.LevelError, "No files were successfully baselined. Exiting monitor.")
		return models.StateHalted
	}
	c.status.setState(models.StateMonitoring)
	c.events.Event(models.LevelInfo,
		fmt.Sprintf("Monitoring started. Interval: %ds.", int(c.interval/time.Second)))
	return models.StateMonitoring
}

// wait blocks for the interval and reports whether monitoring should go on.
func (c *Checker) wait(ctx context.Context) bool {
	timer := time.NewTimer(c.interval)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-c.trigger:
		c.events.Event(models.LevelDebug, "Change detected on a monitored path, checking early.")
		return true
	case <-ctx.Done():
		return false
	}
}
