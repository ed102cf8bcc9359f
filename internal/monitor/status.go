package monitor

import (
	"sync"
	"time"

	"github.com/starford/algiz/internal/models"
)

// Status is a point-in-time view of the monitor for the status API.
type Status struct {
	State           models.State        `json:"state"`
	BaselineSize    int                 `json:"baseline_size"`
	IntervalSeconds int                 `json:"interval_seconds"`
	Cycles          int                 `json:"cycles"`
	LastCheck       time.Time           `json:"last_check,omitempty"`
	LastAlert       *models.CheckResult `json:"last_alert,omitempty"`
}

// tracker guards Status; the loop writes it and the HTTP handlers read it.
type tracker struct {
	mu sync.RWMutex
	s  Status
}

func newTracker(interval time.Duration) *tracker {
	return &tracker{s: Status{
		State:           models.StateStarting,
		IntervalSeconds: int(interval / time.Second),
	}}
}

func (t *tracker) snapshot() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.s
	if s.LastAlert != nil {
		alert := *s.LastAlert
		s.LastAlert = &alert
	}
	return s
}

func (t *tracker) setState(state models.State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.State = state
}

func (t *tracker) setBaseline(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.BaselineSize = n
}

func (t *tracker) cycleDone(r Report) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.Cycles++
	t.s.LastCheck = time.Now()
	if r.Intrusion && len(r.Results) > 0 {
		last := r.Results[len(r.Results)-1]
		t.s.LastAlert = &last
	}
}
