package pipeline

import (
	"fmt"

	"github.com/joseph-ayodele/invoice-scanner/constants"
	"github.com/joseph-ayodele/invoice-scanner/internal/llm"
)

// Outcome is the terminal record of one document. Successful outcomes carry
// the resolved name and fields; failed ones carry Error and leave the source
// document in the input directory.
type Outcome struct {
	Index         int // 1-based position in the run
	Status        constants.OutcomeStatus
	OriginalName  string
	CandidateName string
	ResolvedName  string
	WasRenamed    bool
	Fields        *llm.InvoiceFields
	Method        string
	ContentHash   string
	Error         string
}

func (o Outcome) Succeeded() bool {
	return o.Status == constants.OutcomeSucceeded
}

func failed(idx int, name, msg string) Outcome {
	return Outcome{Index: idx, Status: constants.OutcomeFailed, OriginalName: name, Error: msg}
}

// Result is everything a run produced, in input order.
type Result struct {
	RunID     string
	Outcomes  []Outcome
	Total     int
	Succeeded int
	// LedgerErr is set when the ledger could not be written; the outcomes
	// are still complete.
	LedgerErr error
}

// Tally renders the success count as "n/m".
func (r Result) Tally() string {
	return fmt.Sprintf("%d/%d", r.Succeeded, r.Total)
}

// Failed returns the outcomes that did not relocate their document.
func (r Result) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if !o.Succeeded() {
			out = append(out, o)
		}
	}
	return out
}
