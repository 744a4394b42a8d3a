package dto

// WorklogRequest payload.
type WorklogRequest struct {
	Hours float64 `json:"hours"`
	Note  string  `json:"note"`
}
