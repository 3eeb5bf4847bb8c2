package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/fpang/photo-backup/internal/backup"
	"github.com/fpang/photo-backup/internal/store"
)

// FormatDurationShort formats a duration in a short format (M:SS or H:MM:SS).
func FormatDurationShort(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// PrintRecords writes uploaded files as a table.
func PrintRecords(w io.Writer, records []backup.UploadRecord) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"File", "Size", "URL"})
	for _, r := range records {
		tw.AppendRow(table.Row{r.FileName, r.Size, r.URL})
	}
	tw.Render()
}

// PrintRuns writes run history as a table, newest first as given.
func PrintRuns(w io.Writer, runs []*store.Run) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Run", "Started", "Duration", "Status", "Uploaded", "Error"})
	for _, r := range runs {
		started := time.Unix(r.StartedAt, 0)
		elapsed := time.Duration(r.FinishedAt-r.StartedAt) * time.Second
		tw.AppendRow(table.Row{
			r.ID, started.Format(time.DateTime), FormatDurationShort(elapsed), r.Status, r.Uploaded, r.ErrorKind,
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 5, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	tw.Render()
}

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	return tw
}
