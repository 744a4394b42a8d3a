package domain

import "time"

// Window is a half-open [From, To) range scoping a metrics query.
type Window struct {
	Period string    `json:"period,omitempty"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

type KPIs struct {
	Window             Window  `json:"window"`
	Received           int64   `json:"received"`
	Resolved           int64   `json:"resolved"`
	Backlog            int64   `json:"backlog"`
	AvgResolutionHours float64 `json:"avg_resolution_hours"`
}

// GroupCount is one bucket of a distribution.
type GroupCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type Distribution struct {
	Window  Window       `json:"window"`
	GroupBy string       `json:"group_by"`
	Groups  []GroupCount `json:"groups"`
}

// TechnicianStats merges the per-assignee productivity counts.
type TechnicianStats struct {
	TechID        string  `json:"tech_id"`
	TechName      string  `json:"tech_name"`
	AssignedTotal int64   `json:"assigned_total"`
	PendingNow    int64   `json:"pending_now"`
	Resolved      int64   `json:"resolved"`
	Hours         float64 `json:"hours"`
}

type ReworkRate struct {
	Window     Window  `json:"window"`
	Total      int64   `json:"total"`
	Reworked   int64   `json:"reworked_count"`
	Percentage float64 `json:"percentage"`
}

type TimeByState struct {
	Window Window                    `json:"window"`
	Hours  map[RequestStatus]float64 `json:"hours"`
}

// BacklogPoint is one calendar day of the backlog trend.
type BacklogPoint struct {
	Date    string `json:"date"`
	New     int64  `json:"new"`
	Closed  int64  `json:"closed"`
	Backlog int64  `json:"backlog"`
}

type SummaryTotals struct {
	TotalRequests   int64 `json:"total_requests"`
	AssignedTotal   int64 `json:"assigned_total"`
	UnassignedTotal int64 `json:"unassigned_total"`
	NewLast24h      int64 `json:"new_last_24h"`
}

// Summary is the dashboard payload for a named period.
type Summary struct {
	Period             string            `json:"period"`
	From               time.Time         `json:"from"`
	To                 time.Time         `json:"to"`
	New                int64             `json:"new"`
	Finished           int64             `json:"finished"`
	PendingNow         int64             `json:"pending_now"`
	AvgCycleHours      float64           `json:"avg_cycle_hours"`
	Totals             SummaryTotals     `json:"totals"`
	ProductivityByTech []TechnicianStats `json:"productivity_by_tech"`
	Extended           *ExtendedSummary  `json:"extended,omitempty"`
}

type ReviewReturns struct {
	TechID   string `json:"tech_id"`
	TechName string `json:"tech_name"`
	Returns  int64  `json:"returns_from_review"`
}

// FeedbackTally counts ratings for a technician or a department.
type FeedbackTally struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Up   int64  `json:"up"`
	Down int64  `json:"down"`
}

type SLACompliance struct {
	Priority Priority `json:"priority"`
	InSLA    int64    `json:"in_sla"`
	Overdue  int64    `json:"overdue"`
}

type TrendSeries struct {
	Labels   []string `json:"labels"`
	Received []int64  `json:"received"`
	Resolved []int64  `json:"resolved"`
}

type DistributionSet struct {
	ByType       []GroupCount `json:"by_type"`
	ByLevel      []GroupCount `json:"by_level"`
	ByDepartment []GroupCount `json:"by_department"`
}

type ExtendedSummary struct {
	AvgTimeByStatus         map[RequestStatus]float64 `json:"avg_time_by_status"`
	ReturnsFromReviewByTech []ReviewReturns           `json:"returns_from_review_by_tech"`
	FeedbackByTech          []FeedbackTally           `json:"feedback_by_tech"`
	FeedbackByDepartment    []FeedbackTally           `json:"feedback_by_department"`
	SLAByPriority           []SLACompliance           `json:"sla_by_priority"`
	Trend                   TrendSeries               `json:"trend_received_vs_resolved"`
	Distribution            DistributionSet           `json:"distribution"`
	SLAHoursByPriority      map[Priority]int          `json:"sla_hours_by_priority"`
}

type TechnicianReport struct {
	Window      Window            `json:"window"`
	Technicians []TechnicianStats `json:"technicians"`
}

// BacklogTrend covers the last N calendar days, oldest first.
type BacklogTrend struct {
	From   time.Time      `json:"from"`
	To     time.Time      `json:"to"`
	Points []BacklogPoint `json:"rows"`
}
