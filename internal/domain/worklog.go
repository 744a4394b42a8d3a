package domain

import "time"

// Worklog is an append-only time entry against a request.
type Worklog struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Date      time.Time `json:"date"`
	Hours     float64   `json:"hours"`
	Note      *string   `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DayHours totals a user's hours for one log date (YYYY-MM-DD).
type DayHours struct {
	Date  string  `json:"date"`
	Hours float64 `json:"hours"`
}

// WorklogListing is a ledger slice with its totals.
type WorklogListing struct {
	Entries    []Worklog  `json:"entries"`
	ByDay      []DayHours `json:"by_day,omitempty"`
	TotalHours float64    `json:"total_hours"`
}
