package snapshot

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/baiirun/tracker/internal/model"
)

// Count is a label with the number of tasks carrying it.
type Count struct {
	Label string
	N     int
}

// Summary is the project summary report.
type Summary struct {
	GeneratedOn time.Time
	Total       int
	Unscheduled int
	ByBucket    []Count
	ByProgress  []Count
	Overdue     []model.Task
}

// Summarize builds the summary report for tasks as of today.
func Summarize(tasks []model.Task, today time.Time) Summary {
	s := Summary{GeneratedOn: today, Total: len(tasks)}
	buckets := make(map[string]int)
	progress := make(map[string]int)
	for _, t := range tasks {
		if t.IsPlaceholder() {
			s.Unscheduled++
		}
		bucket := t.Bucket
		if bucket == "" {
			bucket = "(none)"
		}
		buckets[bucket]++
		progress[string(t.Progress)]++
	}
	s.ByBucket = sortedCounts(buckets)
	s.ByProgress = sortedCounts(progress)
	s.Overdue = Overdue(tasks, today)
	return s
}

// sortedCounts orders by count descending, then label.
func sortedCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Label: k, N: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].N != out[j].N {
			return out[i].N > out[j].N
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// WriteText renders the summary as plain text.
func (s Summary) WriteText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Project Summary Report\n")
	fmt.Fprintf(&b, "Generated on: %s\n\n", s.GeneratedOn.Format("2006-01-02"))
	fmt.Fprintf(&b, "Total tasks: %d (unscheduled: %d)\n\n", s.Total, s.Unscheduled)

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BUCKET\tTASKS")
	for _, c := range s.ByBucket {
		fmt.Fprintf(tw, "%s\t%d\n", c.Label, c.N)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "PROGRESS\tTASKS")
	for _, c := range s.ByProgress {
		fmt.Fprintf(tw, "%s\t%d\n", c.Label, c.N)
	}
	_ = tw.Flush()

	fmt.Fprintf(&b, "\nOverdue Tasks (%d total)\n", len(s.Overdue))
	if len(s.Overdue) == 0 {
		b.WriteString("No overdue tasks found.\n")
	} else {
		tw = tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tTASK\tPLANNER BUCKET\tEND\tPROGRESS")
		for _, t := range s.Overdue {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", t.Key, t.Title, t.Bucket, t.End.Format("2006-01-02"), t.Progress)
		}
		_ = tw.Flush()
	}

	_, err := io.WriteString(w, b.String())
	return err
}
