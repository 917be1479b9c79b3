package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/sells-group/bidintake/internal/model"
)

func formatRunSummary(w io.Writer, summary *model.RunSummary) {
	fmt.Fprintf(w, "Run:       %s\n", summary.RunID)
	fmt.Fprintf(w, "Project:   %s\n", summary.ProjectID)
	fmt.Fprintf(w, "Status:    %s\n", summary.Status)
	fmt.Fprintf(w, "Files:     %d total, %d pending, %d parsed, %d failed\n",
		summary.Total, summary.Pending, summary.Parsed, summary.Failed)
	fmt.Fprintf(w, "Started:   %s\n", summary.StartedAt.Format(time.RFC3339))
	if summary.CompletedAt != nil {
		fmt.Fprintf(w, "Completed: %s\n", summary.CompletedAt.Format(time.RFC3339))
	}

	if len(summary.Items) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PATH\tSTATUS\tSIZE\tERROR")
		for _, item := range summary.Items {
			errMsg := item.Error
			if len(errMsg) > 40 {
				errMsg = errMsg[:37] + "..."
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", item.RelPath, item.ParsedStatus, item.Size, errMsg)
		}
		tw.Flush() //nolint:errcheck
	}

	if len(summary.RiskFlags) > 0 {
		fmt.Fprintf(w, "\nRisk flags (%d):\n", len(summary.RiskFlags))
		for _, flag := range summary.RiskFlags {
			fmt.Fprintf(w, "  [%s] %s — %s:%d\n", flag.Code, flag.Message, flag.RelPath, flag.Line)
		}
	}

	if len(summary.SummaryHighlights) > 0 {
		fmt.Fprintf(w, "\nHighlights (%d):\n", len(summary.SummaryHighlights))
		for _, h := range summary.SummaryHighlights {
			fmt.Fprintf(w, "  %d. %s (%s)\n", h.Rank, h.Snippet, h.RelPath)
		}
	}
}

func formatRunsList(w io.Writer, runs []model.IntakeRun) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tPROJECT\tSTATUS\tFILES\tFAILED\tCREATED")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			run.RunID, run.ProjectID, run.Status, run.TotalFiles, run.FailedFiles,
			run.CreatedAt.Format(time.RFC3339))
	}
	tw.Flush() //nolint:errcheck
}
