package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/request-tracker/internal/domain"
)

func TestNormalizedStatusExpr(t *testing.T) {
	expr := normalizedStatusExpr("status")

	assert.Contains(t, expr, "CASE lower(btrim(status))")
	assert.Contains(t, expr, "WHEN 'completada' THEN 'Finalized'")
	assert.Contains(t, expr, "WHEN 'en revisión' THEN 'InReview'")
	assert.Contains(t, expr, "WHEN 'cancelled' THEN 'Rejected'")
	assert.Contains(t, expr, "ELSE 'Pending' END")
	assert.Equal(t, expr, normalizedStatusExpr("status"), "rendering must be deterministic")
}

func TestStatusInList(t *testing.T) {
	clause := statusInList("s", domain.OpenStatuses)
	assert.Equal(t, "s IN ('Pending','InProgress','InReview')", clause)
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, "'o''brien'", quoteLiteral("o'brien"))
}
