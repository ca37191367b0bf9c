package worker

import (
	"iter"
	"strings"
)

// Candidates is an ordered, immutable list of executables that may be able
// to launch the worker. Availability is never checked up front; it is only
// discovered by attempting a launch.
type Candidates struct {
	names []string
}

// NewCandidates copies names, dropping blanks.
func NewCandidates(names ...string) Candidates {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return Candidates{names: out}
}

// All yields the candidates in declared order. Every call starts a fresh cursor.
func (c Candidates) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, n := range c.names {
			if !yield(n) {
				return
			}
		}
	}
}

// Names returns a copy of the candidate list.
func (c Candidates) Names() []string {
	return append([]string(nil), c.names...)
}

func (c Candidates) Len() int { return len(c.names) }
