package report

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"dht11lab/internal/dht11"
)

// Tally counts successes and failures by kind. It is safe for concurrent use.
type Tally struct {
	mu       sync.Mutex
	ok       int
	failures map[string]int
}

// NewTally returns an empty tally.
func NewTally() *Tally {
	return &Tally{failures: make(map[string]int)}
}

// Name returns the type name of the reporter.
func (*Tally) Name() string { return "tally" }

// Report counts r.
func (t *Tally) Report(r Result) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r.Err == nil {
		t.ok++
		return nil
	}
	t.failures[dht11.Kind(r.Err)]++
	return nil
}

// Summary is a point-in-time copy of a Tally.
type Summary struct {
	Reads    int
	OK       int
	Failures map[string]int
}

// FailureRate is the fraction of failed reads, 0 when nothing was read.
func (s Summary) FailureRate() float64 {
	if s.Reads == 0 {
		return 0
	}
	return float64(s.Reads-s.OK) / float64(s.Reads)
}

func (s Summary) String() string {
	kinds := make([]string, 0, len(s.Failures))
	for k := range s.Failures {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	var b strings.Builder
	fmt.Fprintf(&b, "%d reads, %d ok, failure rate %.1f%%", s.Reads, s.OK, 100*s.FailureRate())
	for _, k := range kinds {
		fmt.Fprintf(&b, ", %s %d", k, s.Failures[k])
	}
	return b.String()
}

// Summary returns the counts so far.
func (t *Tally) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := Summary{OK: t.ok, Reads: t.ok, Failures: make(map[string]int, len(t.failures))}
	for k, n := range t.failures {
		s.Failures[k] = n
		s.Reads += n
	}
	return s
}
