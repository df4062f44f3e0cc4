package services

import (
	"fmt"
	"io"
	"strings"

	"card-pricer/models"
)

// PrintSummary writes a human-readable batch summary.
func PrintSummary(w io.Writer, r models.BatchResult, output string) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  CARD PRICER BATCH SUMMARY\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Run          : %s\n", r.RunID)
	fmt.Fprintf(w, "  Total cards  : \033[1m%d\033[0m\n", r.Total)
	fmt.Fprintf(w, "  Successful   : \033[1;32m%d\033[0m\n", r.Successful)
	fmt.Fprintf(w, "  Failed       : \033[1;31m%d\033[0m\n", r.Failed)
	fmt.Fprintln(w)

	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "\033[1;33m  Errors\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  %-30s %s\n", truncate(e.Card, 28), truncate(e.Error, 60))
		}
		fmt.Fprintln(w)
	}

	if output != "" {
		fmt.Fprintf(w, "  Results have been written to %s\n", output)
	}
	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}
