package handlers

import (
	"strconv"
	"strings"
	"time"

	apperrors "github.com/spec-kit/request-tracker/pkg/util/errorutil"
)

const dateLayout = "2006-01-02"

// parseTime accepts RFC3339 timestamps or plain dates. Empty means unset.
func parseTime(name, val string) (*time.Time, error) {
	return parseTimeIn(name, val, time.UTC)
}

// parseTimeIn reads plain dates as midnight in loc.
func parseTimeIn(name, val string, loc *time.Location) (*time.Time, error) {
	val = strings.TrimSpace(val)
	if val == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(dateLayout, val, loc)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid "+name, map[string]any{name: val})
	}
	return &t, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseRequiredInt(name, val string) (int, error) {
	parsed, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return 0, apperrors.NewValidationError("invalid "+name, map[string]any{name: val})
	}
	return parsed, nil
}

func parseBool(val string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(val))
	return err == nil && b
}
