// Package baseline owns the trusted path → digest snapshot: its in-memory
// representation, its persisted JSON form and the load-or-create bootstrap.
package baseline

import (
	"bytes"
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/starford/algiz/internal/apperr"
	"github.com/starford/algiz/internal/checksum"
)

// Entry is one monitored path and its trusted digest.
type Entry struct {
	Path   string `json:"path"`
	Digest string `json:"digest"`
}

// Baseline is an ordered, read-only mapping from path to trusted digest.
// Iteration follows insertion order, which is the monitored path order for a
// freshly computed baseline and the file order for a loaded one. The zero
// value is an empty baseline.
type Baseline struct {
	m *orderedmap.OrderedMap[string, string]
}

// FromEntries builds a baseline. A repeated path keeps its first position and
// its last digest.
func FromEntries(entries ...Entry) Baseline {
	m := orderedmap.New[string, string]()
	for _, e := range entries {
		m.Set(e.Path, e.Digest)
	}
	return Baseline{m: m}
}

// Len returns the number of entries.
func (b Baseline) Len() int {
	if b.m == nil {
		return 0
	}
	return b.m.Len()
}

// Digest returns the trusted digest for path.
func (b Baseline) Digest(path string) (string, bool) {
	if b.m == nil {
		return "", false
	}
	return b.m.Get(path)
}

// Entries returns a copy of the entries in iteration order.
func (b Baseline) Entries() []Entry {
	out := make([]Entry, 0, b.Len())
	if b.m == nil {
		return out
	}
	for pair := b.m.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, Entry{Path: pair.Key, Digest: pair.Value})
	}
	return out
}

// Paths returns the baseline paths in iteration order.
func (b Baseline) Paths() []string {
	entries := b.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

// Equal reports whether b and o hold the same entries in the same order.
func (b Baseline) Equal(o Baseline) bool {
	be, oe := b.Entries(), o.Entries()
	if len(be) != len(oe) {
		return false
	}
	for i := range be {
		if be[i] != oe[i] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the baseline as a compact JSON object, keys in
// iteration order.
func (b Baseline) MarshalJSON() ([]byte, error) {
	if b.m == nil {
		return []byte("{}"), nil
	}
	return b.m.MarshalJSON()
}

// Fingerprint is the SHA-256 digest of the compact JSON form. Two baselines
// with the same entries in the same order share a fingerprint.
func (b Baseline) Fingerprint() string {
	raw, err := b.MarshalJSON()
	if err != nil {
		return ""
	}
	return checksum.Sum(raw)
}

// Encode renders the on-disk form: the JSON object indented by 4 spaces.
// json.Marshal compacts the output of MarshalJSON, so persistence goes
// through Encode.
func (b Baseline) Encode() ([]byte, error) {
	raw, err := b.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "    "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of path → digest, keeping key order.
// Anything other than an object of 64-character lowercase hex strings is
// rejected with apperr.ErrCorruptBaseline.
func (b *Baseline) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return fmt.Errorf("baseline: not a JSON object: %w", apperr.ErrCorruptBaseline)
	}
	m := orderedmap.New[string, string]()
	if err := m.UnmarshalJSON(trimmed); err != nil {
		return fmt.Errorf("baseline: decode: %v: %w", err, apperr.ErrCorruptBaseline)
	}
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key == "" {
			return fmt.Errorf("baseline: empty path: %w", apperr.ErrCorruptBaseline)
		}
		if !checksum.Valid(pair.Value) {
			return fmt.Errorf("baseline: invalid digest for %s: %w", pair.Key, apperr.ErrCorruptBaseline)
		}
	}
	b.m = m
	return nil
}
