package fetch

import (
	"fmt"
	"io"
	"sort"

	log "github.com/sirupsen/logrus"
)

// Summary counts the outcomes of a run.
type Summary struct {
	Submitted int
	Succeeded int
	ByState   map[State]int
}

// NewSummary returns an empty summary for a run of submitted tasks.
func NewSummary(submitted int) Summary {
	return Summary{Submitted: submitted, ByState: make(map[State]int)}
}

// Add counts the outcome o.
func (s *Summary) Add(o Outcome) {
	if s.ByState == nil {
		s.ByState = make(map[State]int)
	}
	s.ByState[o.State]++
	if o.Succeeded() {
		s.Succeeded++
	}
}

// Failed returns the number of tasks that did not succeed.
func (s Summary) Failed() int {
	return s.Submitted - s.Succeeded
}

// Write prints the totals.
func (s Summary) Write(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Submitted %d downloads\nCompleted %d of %d\n", s.Submitted, s.Succeeded, s.Submitted)
	return err
}

// Log logs the number of tasks per final state.
func (s Summary) Log() {
	states := make([]State, 0, len(s.ByState))
	for st := range s.ByState {
		states = append(states, st)
	}
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })

	fields := log.Fields{}
	for _, st := range states {
		fields[st.String()] = s.ByState[st]
	}
	log.WithFields(fields).Infof("%d of %d tasks succeeded", s.Succeeded, s.Submitted)
}
