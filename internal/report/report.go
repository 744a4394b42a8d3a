// Package report renders metrics as plain-text tables for the CLI.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/spec-kit/request-tracker/internal/domain"
)

const timestampLayout = "2006-01-02 15:04"

// RenderSummary writes the period overview, the per-technician table and,
// when present, the extended sections.
func RenderSummary(w io.Writer, s *domain.Summary) {
	overview := newTable(w, fmt.Sprintf("Summary (%s) %s .. %s", s.Period, s.From.Format(timestampLayout), s.To.Format(timestampLayout)))
	overview.AppendHeader(table.Row{"Metric", "Value"})
	overview.AppendRows([]table.Row{
		{"New", s.New},
		{"Finished", s.Finished},
		{"Pending now", s.PendingNow},
		{"Avg cycle (h)", s.AvgCycleHours},
		{"Total requests", s.Totals.TotalRequests},
		{"Assigned", s.Totals.AssignedTotal},
		{"Unassigned", s.Totals.UnassignedTotal},
		{"New last 24h", s.Totals.NewLast24h},
	})
	overview.Render()

	RenderTechnicians(w, s.ProductivityByTech)

	if s.Extended == nil {
		return
	}
	ext := s.Extended

	states := newTable(w, "Average time by status (h)")
	states.AppendHeader(table.Row{"Status", "Hours"})
	for _, status := range domain.OpenStatuses {
		states.AppendRow(table.Row{status, ext.AvgTimeByStatus[status]})
	}
	states.Render()

	sla := newTable(w, "SLA by priority")
	sla.AppendHeader(table.Row{"Priority", "SLA (h)", "In SLA", "Overdue"})
	for _, row := range ext.SLAByPriority {
		sla.AppendRow(table.Row{row.Priority, ext.SLAHoursByPriority[row.Priority], row.InSLA, row.Overdue})
	}
	sla.Render()

	if len(ext.ReturnsFromReviewByTech) > 0 {
		returns := newTable(w, "Returns from review")
		returns.AppendHeader(table.Row{"Technician", "Returns"})
		for _, row := range ext.ReturnsFromReviewByTech {
			returns.AppendRow(table.Row{displayName(row.TechName, row.TechID), row.Returns})
		}
		returns.Render()
	}

	if len(ext.FeedbackByTech) > 0 {
		feedback := newTable(w, "Feedback by technician")
		feedback.AppendHeader(table.Row{"Technician", "Up", "Down"})
		for _, row := range ext.FeedbackByTech {
			feedback.AppendRow(table.Row{displayName(row.Name, row.Key), row.Up, row.Down})
		}
		feedback.Render()
	}
}

// RenderTechnicians writes the productivity table.
func RenderTechnicians(w io.Writer, rows []domain.TechnicianStats) {
	tw := newTable(w, "Productivity by technician")
	tw.AppendHeader(table.Row{"Technician", "Assigned", "Pending", "Resolved", "Hours"})
	for _, row := range rows {
		tw.AppendRow(table.Row{displayName(row.TechName, row.TechID), row.AssignedTotal, row.PendingNow, row.Resolved, row.Hours})
	}
	if len(rows) == 0 {
		tw.AppendRow(table.Row{"(none)", "", "", "", ""})
	}
	tw.Render()
}

// RenderBacklog writes one row per day with a closing total.
func RenderBacklog(w io.Writer, trend *domain.BacklogTrend) {
	tw := newTable(w, fmt.Sprintf("Backlog %s .. %s", trend.From.Format("2006-01-02"), trend.To.Add(-time.Nanosecond).Format("2006-01-02")))
	tw.AppendHeader(table.Row{"Date", "New", "Closed", "Backlog"})
	var created, closed int64
	for _, p := range trend.Points {
		tw.AppendRow(table.Row{p.Date, p.New, p.Closed, p.Backlog})
		created += p.New
		closed += p.Closed
	}
	tw.AppendFooter(table.Row{"Total", created, closed, ""})
	tw.Render()
}

// newTable prints title on its own line; table titles wrap at table width.
func newTable(w io.Writer, title string) table.Writer {
	fmt.Fprintf(w, "\n%s\n", title)
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	return tw
}

func displayName(name, id string) string {
	if name != "" {
		return name
	}
	return id
}
