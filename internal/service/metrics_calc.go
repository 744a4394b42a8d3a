package service

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/request-tracker/internal/domain"
	"github.com/spec-kit/request-tracker/internal/repository"
)

const unclassifiedLabel = "N/A"

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func hoursBetween(a, b time.Time) float64 {
	return b.Sub(a).Hours()
}

// sortEvents orders events by ticket then time, keeping insertion order for ties.
func sortEvents(events []domain.StatusEvent) []domain.StatusEvent {
	sorted := append([]domain.StatusEvent(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TicketID != sorted[j].TicketID {
			return sorted[i].TicketID < sorted[j].TicketID
		}
		return sorted[i].ChangedAt.Before(sorted[j].ChangedAt)
	})
	return sorted
}

// hoursByState walks each ticket's events and attributes the time between
// consecutive events to the earlier state. The last state of every ticket
// accrues until end. Non-positive deltas are skipped.
func hoursByState(events []domain.StatusEvent, end time.Time) map[domain.RequestStatus]float64 {
	totals := make(map[domain.RequestStatus]float64)
	type position struct {
		status domain.RequestStatus
		at     time.Time
	}
	last := make(map[string]position)
	var order []string

	for _, ev := range sortEvents(events) {
		if !ev.ChangedAt.Before(end) {
			continue
		}
		prev, seen := last[ev.TicketID]
		if seen {
			if delta := hoursBetween(prev.at, ev.ChangedAt); delta > 0 {
				totals[prev.status] += delta
			}
		} else {
			order = append(order, ev.TicketID)
		}
		last[ev.TicketID] = position{status: ev.Status, at: ev.ChangedAt}
	}
	for _, ticketID := range order {
		p := last[ticketID]
		if delta := hoursBetween(p.at, end); delta > 0 {
			totals[p.status] += delta
		}
	}

	for status, hours := range totals {
		totals[status] = round1(hours)
	}
	return totals
}

// avgTimeByStatus averages, per open state, the residence segments clipped to
// the window. A segment runs until the next event of the ticket or now.
func avgTimeByStatus(events []domain.StatusEvent, window domain.Window, now time.Time) map[domain.RequestStatus]float64 {
	sums := make(map[domain.RequestStatus]float64, len(domain.OpenStatuses))
	counts := make(map[domain.RequestStatus]int, len(domain.OpenStatuses))

	sorted := sortEvents(events)
	for i, ev := range sorted {
		if !ev.Status.IsOpen() {
			continue
		}
		segmentEnd := now
		if i+1 < len(sorted) && sorted[i+1].TicketID == ev.TicketID {
			segmentEnd = sorted[i+1].ChangedAt
		}
		start := ev.ChangedAt
		if start.Before(window.From) {
			start = window.From
		}
		if segmentEnd.After(window.To) {
			segmentEnd = window.To
		}
		if !segmentEnd.After(start) {
			continue
		}
		sums[ev.Status] += hoursBetween(start, segmentEnd)
		counts[ev.Status]++
	}

	result := make(map[domain.RequestStatus]float64, len(domain.OpenStatuses))
	for _, status := range domain.OpenStatuses {
		if counts[status] == 0 {
			result[status] = 0
			continue
		}
		result[status] = round1(sums[status] / float64(counts[status]))
	}
	return result
}

// reviewReturns counts InReview -> InProgress bounces that happened inside the
// window, credited to whoever made the change.
func reviewReturns(events []domain.StatusEvent, window domain.Window) []domain.ReviewReturns {
	counts := make(map[string]*domain.ReviewReturns)
	lastStatus := make(map[string]domain.RequestStatus)

	for _, ev := range sortEvents(events) {
		prev, seen := lastStatus[ev.TicketID]
		lastStatus[ev.TicketID] = ev.Status
		if !seen || !window.Contains(ev.ChangedAt) {
			continue
		}
		if prev != domain.StatusInReview || ev.Status != domain.StatusInProgress {
			continue
		}
		key := ev.ChangedBy.ID
		if key == "" {
			key = unclassifiedLabel
		}
		entry, ok := counts[key]
		if !ok {
			entry = &domain.ReviewReturns{TechID: key, TechName: ev.ChangedBy.Name}
			counts[key] = entry
		}
		if entry.TechName == "" {
			entry.TechName = ev.ChangedBy.Name
		}
		entry.Returns++
	}

	result := make([]domain.ReviewReturns, 0, len(counts))
	for _, entry := range counts {
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Returns != result[j].Returns {
			return result[i].Returns > result[j].Returns
		}
		return result[i].TechID < result[j].TechID
	})
	return result
}

// mergeTechnicians joins the independent per-assignee counts by id.
func mergeTechnicians(assigned, pending, resolved []repository.TechnicianCount, hours []repository.TechnicianHours) []domain.TechnicianStats {
	merged := make(map[string]*domain.TechnicianStats)
	entry := func(id, name string) *domain.TechnicianStats {
		stats, ok := merged[id]
		if !ok {
			stats = &domain.TechnicianStats{TechID: id}
			merged[id] = stats
		}
		if stats.TechName == "" {
			stats.TechName = name
		}
		return stats
	}

	for _, c := range assigned {
		if c.ID != "" {
			entry(c.ID, c.Name).AssignedTotal = c.Count
		}
	}
	for _, c := range pending {
		if c.ID != "" {
			entry(c.ID, c.Name).PendingNow = c.Count
		}
	}
	for _, c := range resolved {
		if c.ID != "" {
			entry(c.ID, c.Name).Resolved = c.Count
		}
	}
	for _, h := range hours {
		if h.ID != "" {
			entry(h.ID, h.Name).Hours = round1(h.Hours)
		}
	}

	result := make([]domain.TechnicianStats, 0, len(merged))
	for _, stats := range merged {
		result = append(result, *stats)
	}
	sortTechnicians(result)
	return result
}

func sortTechnicians(stats []domain.TechnicianStats) {
	sort.Slice(stats, func(i, j int) bool {
		a, b := stats[i], stats[j]
		if a.Resolved != b.Resolved {
			return a.Resolved > b.Resolved
		}
		if a.Hours != b.Hours {
			return a.Hours > b.Hours
		}
		return a.TechName < b.TechName
	})
}

// backlogTrend accumulates daily new and closed counts. The reported backlog
// is cumulative new minus cumulative closed, floored at zero; reopenings are
// not reflected.
func backlogTrend(days []time.Time, created, closed map[string]int64) []domain.BacklogPoint {
	points := make([]domain.BacklogPoint, 0, len(days))
	var accNew, accClosed int64
	for _, day := range days {
		label := day.Format("2006-01-02")
		n, c := created[label], closed[label]
		accNew += n
		accClosed += c
		backlog := accNew - accClosed
		if backlog < 0 {
			backlog = 0
		}
		points = append(points, domain.BacklogPoint{Date: label, New: n, Closed: c, Backlog: backlog})
	}
	return points
}

func dailyIndex(rows []repository.DailyCount) map[string]int64 {
	index := make(map[string]int64, len(rows))
	for _, row := range rows {
		index[row.Day] += row.Count
	}
	return index
}

// slaCompliance flags a request overdue when its completion, or now for open
// requests, falls after created_at plus the priority's SLA.
func slaCompliance(samples []repository.SLASample, slaHours map[domain.Priority]int, now time.Time) []domain.SLACompliance {
	counters := make(map[domain.Priority]*domain.SLACompliance, len(domain.Priorities))
	for _, p := range domain.Priorities {
		counters[p] = &domain.SLACompliance{Priority: p}
	}
	for _, s := range samples {
		counter, ok := counters[s.Priority]
		if !ok {
			continue
		}
		hours, ok := slaHours[s.Priority]
		if !ok {
			continue
		}
		deadline := s.CreatedAt.Add(time.Duration(hours) * time.Hour)
		finished := now
		if s.CompletionDate != nil {
			finished = *s.CompletionDate
		}
		if finished.After(deadline) {
			counter.Overdue++
		} else {
			counter.InSLA++
		}
	}

	result := make([]domain.SLACompliance, 0, len(domain.Priorities))
	for _, p := range domain.Priorities {
		result = append(result, *counters[p])
	}
	return result
}

// trendSeries buckets received and resolved timestamps hourly for a single
// day window and per calendar day otherwise.
func trendSeries(window domain.Window, received, resolved []time.Time, loc *time.Location) domain.TrendSeries {
	if loc == nil {
		loc = time.UTC
	}
	series := domain.TrendSeries{Labels: []string{}, Received: []int64{}, Resolved: []int64{}}

	if window.Period == PeriodDay {
		start := window.From.In(loc)
		for t := start; t.Before(window.To); t = t.Add(time.Hour) {
			series.Labels = append(series.Labels, t.Format("15:00"))
		}
		series.Received = make([]int64, len(series.Labels))
		series.Resolved = make([]int64, len(series.Labels))
		bucket := func(t time.Time) int {
			return int(t.Sub(window.From) / time.Hour)
		}
		fillBuckets(series.Received, received, window, bucket)
		fillBuckets(series.Resolved, resolved, window, bucket)
		return series
	}

	index := make(map[string]int)
	start := window.From.In(loc)
	for day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc); day.Before(window.To); day = day.AddDate(0, 0, 1) {
		label := day.Format("2006-01-02")
		index[label] = len(series.Labels)
		series.Labels = append(series.Labels, label)
	}
	series.Received = make([]int64, len(series.Labels))
	series.Resolved = make([]int64, len(series.Labels))
	bucket := func(t time.Time) int {
		if i, ok := index[t.In(loc).Format("2006-01-02")]; ok {
			return i
		}
		return -1
	}
	fillBuckets(series.Received, received, window, bucket)
	fillBuckets(series.Resolved, resolved, window, bucket)
	return series
}

func fillBuckets(counts []int64, times []time.Time, window domain.Window, bucket func(time.Time) int) {
	for _, t := range times {
		if !window.Contains(t) {
			continue
		}
		if i := bucket(t); i >= 0 && i < len(counts) {
			counts[i]++
		}
	}
}

// tallyFeedback folds per-rating rows into up/down tallies sorted by net
// score, then by up votes.
func tallyFeedback(rows []repository.FeedbackRow) []domain.FeedbackTally {
	tallies := make(map[string]*domain.FeedbackTally)
	for _, row := range rows {
		key := row.Key
		if key == "" {
			key = unclassifiedLabel
		}
		tally, ok := tallies[key]
		if !ok {
			tally = &domain.FeedbackTally{Key: key, Name: row.Name}
			tallies[key] = tally
		}
		if tally.Name == "" {
			tally.Name = row.Name
		}
		switch row.Rating {
		case domain.RatingUp:
			tally.Up += row.Count
		case domain.RatingDown:
			tally.Down += row.Count
		}
	}

	result := make([]domain.FeedbackTally, 0, len(tallies))
	for _, tally := range tallies {
		if tally.Name == "" {
			tally.Name = unclassifiedLabel
		}
		result = append(result, *tally)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if netA, netB := a.Up-a.Down, b.Up-b.Down; netA != netB {
			return netA > netB
		}
		if a.Up != b.Up {
			return a.Up > b.Up
		}
		return a.Key < b.Key
	})
	return result
}

// normalizeGroups maps raw stored values onto display names, merging buckets
// that normalize to the same name, and sorts by count then name.
func normalizeGroups(field repository.GroupField, groups []domain.GroupCount) []domain.GroupCount {
	merged := make(map[string]int64)
	for _, g := range groups {
		merged[groupName(field, g.Name)] += g.Count
	}

	result := make([]domain.GroupCount, 0, len(merged))
	for name, count := range merged {
		result = append(result, domain.GroupCount{Name: name, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Name < result[j].Name
	})
	return result
}

func groupName(field repository.GroupField, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return unclassifiedLabel
	}
	switch field {
	case repository.GroupByType:
		return string(domain.NormalizeRequestType(raw))
	case repository.GroupByLevel:
		if level, err := strconv.Atoi(raw); err == nil && domain.ValidLevel(level) {
			return strconv.Itoa(level)
		}
		return unclassifiedLabel
	}
	return raw
}
