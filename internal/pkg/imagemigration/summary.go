package imagemigration

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// Tally counts the outcome of one or more migration steps
type Tally struct {
	Processed int
	Skipped   int
	Errors    int
}

// Add returns the sum of both tallies
func (t Tally) Add(o Tally) Tally {
	return Tally{
		Processed: t.Processed + o.Processed,
		Skipped:   t.Skipped + o.Skipped,
		Errors:    t.Errors + o.Errors,
	}
}

var (
	processed = Tally{Processed: 1}
	skipped   = Tally{Skipped: 1}
	failed    = Tally{Errors: 1}
)

// ModelSummary is the tally of one record model
type ModelSummary struct {
	Model string
	Tally
}

// Summary is the result of a migration run
type Summary struct {
	DryRun bool
	Models []ModelSummary
}

// Total folds the per-model tallies
func (s Summary) Total() Tally {
	var total Tally
	for _, m := range s.Models {
		total = total.Add(m.Tally)
	}
	return total
}

// Errors returns the global error count
func (s Summary) Errors() int {
	return s.Total().Errors
}

// Failed reports whether the run should exit non-zero
func (s Summary) Failed() bool {
	return s.Errors() > 0
}

// WriteTable prints the summary as an aligned table
func (s Summary) WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "MODEL\tPROCESSED\tSKIPPED\tERRORS\t")
	for _, m := range s.Models {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t\n", m.Model, m.Processed, m.Skipped, m.Errors)
	}
	total := s.Total()
	fmt.Fprintf(tw, "TOTAL\t%d\t%d\t%d\t\n", total.Processed, total.Skipped, total.Errors)
	if err := tw.Flush(); err != nil {
		return err
	}
	if s.DryRun {
		_, err := fmt.Fprintln(w, "dry run: no files or records were changed")
		return err
	}
	return nil
}
