package ui

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"knbackup/pkg/backup"
	"knbackup/pkg/kidsnote"
)

// RenderSummary formats the totals of a run as a table
func RenderSummary(s *backup.Summary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if !colorEnabled {
		tw.SetStyle(table.StyleLight)
	}
	tw.SetTitle("Backup summary")
	tw.AppendHeader(table.Row{"Item", "Count"})

	tw.AppendRow(table.Row{"Children", fmt.Sprintf("%d ok / %d failed", s.ChildrenSucceeded, s.ChildrenFailed)})
	tw.AppendRow(table.Row{"Reports", s.Reports})
	tw.AppendRow(table.Row{"Texts written", s.TextsWritten})
	tw.AppendRow(table.Row{"Images rendered", s.RendersWritten})
	if s.RenderFailures > 0 {
		tw.AppendRow(table.Row{"Render failures", s.RenderFailures})
	}
	if s.DryRun {
		tw.AppendRow(table.Row{"Images planned", s.ImagesPlanned})
	} else {
		tw.AppendRow(table.Row{"Images fetched", s.ImagesFetched})
	}
	tw.AppendRow(table.Row{"Images skipped", s.ImagesSkipped})
	tw.AppendRow(table.Row{"Images failed", s.ImagesFailed})
	tw.AppendSeparator()
	tw.AppendRow(table.Row{"Written", fmt.Sprintf("%d files, %s", s.FilesWritten, humanize.Bytes(uint64(s.BytesWritten)))})
	tw.AppendRow(table.Row{"Elapsed", s.Duration.Round(10*time.Millisecond).String()})

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

// PrintSummary writes the summary table and any per-child errors to w
func PrintSummary(w io.Writer, s *backup.Summary) {
	if s.DryRun {
		fmt.Fprintln(w, Yellow("dry run: nothing was written"))
	}
	fmt.Fprintln(w, RenderSummary(s))
	for _, e := range s.Errors {
		fmt.Fprintf(w, "%s %s: %s\n", Red("✗"), e.Child, e.Err)
	}
}

// RenderChildren lists the children and their enrollments
func RenderChildren(info *kidsnote.MeInfo) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Child", "ID", "Center", "Class"})

	for _, child := range info.Children {
		if len(child.Enrollments) == 0 {
			tw.AppendRow(table.Row{child.Name, strconv.FormatUint(child.ID, 10), "", ""})
			continue
		}
		for i, e := range child.Enrollments {
			name, id := child.Name, strconv.FormatUint(child.ID, 10)
			if i > 0 {
				name, id = "", ""
			}
			tw.AppendRow(table.Row{name, id, e.CenterName, e.ClassName})
		}
	}
	return tw.Render()
}
