package repository

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spec-kit/request-tracker/internal/domain"
)

// normalizedStatusExpr renders a CASE expression that maps stored labels onto
// canonical statuses, mirroring domain.NormalizeStatus for SQL-side filters
// and aggregates.
func normalizedStatusExpr(column string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "(CASE lower(btrim(%s))", column)
	for _, status := range []domain.RequestStatus{
		domain.StatusInProgress,
		domain.StatusInReview,
		domain.StatusFinalized,
		domain.StatusRejected,
	} {
		labels := domain.StatusLabels(status)
		sort.Strings(labels)
		for _, label := range labels {
			fmt.Fprintf(&b, " WHEN %s THEN '%s'", quoteLiteral(label), status)
		}
	}
	fmt.Fprintf(&b, " ELSE '%s' END)", domain.StatusPending)
	return b.String()
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// statusInList renders "expr IN ('A','B')" for canonical statuses.
func statusInList(expr string, statuses []domain.RequestStatus) string {
	quoted := make([]string, len(statuses))
	for i, s := range statuses {
		quoted[i] = quoteLiteral(string(s))
	}
	return fmt.Sprintf("%s IN (%s)", expr, strings.Join(quoted, ","))
}

var (
	requestStatusExpr = normalizedStatusExpr("status")
	openStatusClause  = statusInList(requestStatusExpr, domain.OpenStatuses)
)
