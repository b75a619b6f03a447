// Package reporting computes read-only aggregates over tickets and staff.
// Every function is pure: callers load the population first.
package reporting

import (
	"sort"
	"time"

	"github.com/supportdesk/helpdesk-service/internal/domain"
)

// WindowDays is the trailing window of the volume and category trend series.
const WindowDays = 30

const dayLayout = "2006-01-02"

// Count is one bucket of a group-by-count pass.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Summary is the dashboard overview.
type Summary struct {
	TotalQueries    int     `json:"totalQueries"`
	ByCategory      []Count `json:"byCategory"`
	ByStatus        []Count `json:"byStatus"`
	ByPriority      []Count `json:"byPriority"`
	ByChannel       []Count `json:"byChannel"`
	AvgResponseTime float64 `json:"avgResponseTime"`
}

// ResponseTimeStats are resolution times in milliseconds over resolved tickets.
type ResponseTimeStats struct {
	Resolved        int     `json:"resolved"`
	AvgResponseTime float64 `json:"avgResponseTime"`
	MinResponseTime int64   `json:"minResponseTime"`
	MaxResponseTime int64   `json:"maxResponseTime"`
}

// VolumePoint counts tickets created on one UTC day.
type VolumePoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// CategoryTrendPoint counts tickets of one category created on one UTC day.
type CategoryTrendPoint struct {
	Date     string `json:"date"`
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// TeamPerformance groups resolved tickets by assignee string.
type TeamPerformance struct {
	Team              string  `json:"team"`
	ResolvedCount     int     `json:"resolvedCount"`
	AvgResolutionTime float64 `json:"avgResolutionTime"`
}

// ChannelEffectiveness reports per-channel resolution. AvgResolutionTime is nil
// when the channel has no resolved tickets.
type ChannelEffectiveness struct {
	Channel           string   `json:"channel"`
	Total             int      `json:"total"`
	Resolved          int      `json:"resolved"`
	AvgResolutionTime *float64 `json:"avgResolutionTime"`
}

// AgentPerformance reports tickets whose assignee equals the user's name.
type AgentPerformance struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Email             string   `json:"email"`
	Role              string   `json:"role"`
	Team              string   `json:"team"`
	TotalAssigned     int      `json:"totalAssigned"`
	Resolved          int      `json:"resolved"`
	AvgResolutionTime *float64 `json:"avgResolutionTime"`
}

// Report is the advanced reporting bundle.
type Report struct {
	ResponseTimeAnalysis *ResponseTimeStats     `json:"responseTimeAnalysis,omitempty"`
	QueryVolume          []VolumePoint          `json:"queryVolume"`
	CategoryTrends       []CategoryTrendPoint   `json:"categoryTrends"`
	TeamPerformance      []TeamPerformance      `json:"teamPerformance"`
	ChannelEffectiveness []ChannelEffectiveness `json:"channelEffectiveness"`
	AgentPerformance     []AgentPerformance     `json:"agentPerformance"`
	GeneratedAt          time.Time              `json:"generatedAt"`
}

// BuildSummary counts tickets along each dimension independently.
func BuildSummary(tickets []domain.Ticket) Summary {
	byCategory := map[string]int{}
	byStatus := map[string]int{}
	byPriority := map[string]int{}
	byChannel := map[string]int{}
	var resolved durations

	for i := range tickets {
		t := &tickets[i]
		byCategory[string(t.Category)]++
		byStatus[string(t.Status)]++
		byPriority[string(t.Priority)]++
		byChannel[string(t.Channel)]++
		if t.Resolved() {
			resolved.add(t.ResolutionTime())
		}
	}

	return Summary{
		TotalQueries:    len(tickets),
		ByCategory:      ordered(byCategory, stringsOf(domain.Categories)),
		ByStatus:        ordered(byStatus, stringsOf(domain.Statuses)),
		ByPriority:      ordered(byPriority, stringsOf(domain.Priorities)),
		ByChannel:       ordered(byChannel, stringsOf(domain.Channels)),
		AvgResponseTime: resolved.avg(),
	}
}

// Scope narrows parts of the advanced report. Start and End are inclusive on
// createdAt; an empty Team matches every assignee.
type Scope struct {
	Start *time.Time
	End   *time.Time
	Team  string
}

func (s Scope) inDates(t *domain.Ticket) bool {
	if s.Start != nil && t.CreatedAt.Before(*s.Start) {
		return false
	}
	if s.End != nil && t.CreatedAt.After(*s.End) {
		return false
	}
	return true
}

func (s Scope) inTeam(t *domain.Ticket) bool {
	return s.Team == "" || t.AssignedTo == s.Team
}

func (s Scope) filter(tickets []domain.Ticket, team bool) []domain.Ticket {
	out := make([]domain.Ticket, 0, len(tickets))
	for i := range tickets {
		t := &tickets[i]
		if s.inDates(t) && (!team || s.inTeam(t)) {
			out = append(out, *t)
		}
	}
	return out
}

// BuildReport computes the advanced bundle from the whole ticket population.
// Response times honour the dates and team of scope; team performance and
// channel effectiveness honour only the dates. Volume and category trend always
// cover the WindowDays before now, and agent performance every ticket.
func BuildReport(tickets []domain.Ticket, staff []domain.User, scope Scope, now time.Time) Report {
	now = now.UTC()
	dated := scope.filter(tickets, false)
	return Report{
		ResponseTimeAnalysis: responseTimes(scope.filter(tickets, true)),
		QueryVolume:          volume(tickets, now),
		CategoryTrends:       categoryTrends(tickets, now),
		TeamPerformance:      teamPerformance(dated),
		ChannelEffectiveness: channelEffectiveness(dated),
		AgentPerformance:     agentPerformance(tickets, staff),
		GeneratedAt:          now,
	}
}

func responseTimes(tickets []domain.Ticket) *ResponseTimeStats {
	var d durations
	for i := range tickets {
		if tickets[i].Resolved() {
			d.add(tickets[i].ResolutionTime())
		}
	}
	if d.n == 0 {
		return nil
	}
	return &ResponseTimeStats{
		Resolved:        d.n,
		AvgResponseTime: d.avg(),
		MinResponseTime: d.min,
		MaxResponseTime: d.max,
	}
}

func windowStart(now time.Time) time.Time {
	return now.AddDate(0, 0, -WindowDays)
}

func inWindow(t *domain.Ticket, now time.Time) bool {
	created := t.CreatedAt.UTC()
	return !created.Before(windowStart(now)) && !created.After(now)
}

// volume is densified: every day of the window appears, zero when empty.
func volume(tickets []domain.Ticket, now time.Time) []VolumePoint {
	counts := map[string]int{}
	for i := range tickets {
		if inWindow(&tickets[i], now) {
			counts[tickets[i].CreatedAt.UTC().Format(dayLayout)]++
		}
	}

	start := windowStart(now)
	first := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	last := now.Format(dayLayout)

	points := make([]VolumePoint, 0, WindowDays+1)
	for day := first; ; day = day.AddDate(0, 0, 1) {
		key := day.Format(dayLayout)
		points = append(points, VolumePoint{Date: key, Count: counts[key]})
		if key == last {
			break
		}
	}
	return points
}

// categoryTrends is sparse: only observed (day, category) pairs appear.
func categoryTrends(tickets []domain.Ticket, now time.Time) []CategoryTrendPoint {
	type key struct{ date, category string }
	counts := map[key]int{}
	for i := range tickets {
		t := &tickets[i]
		if inWindow(t, now) {
			counts[key{t.CreatedAt.UTC().Format(dayLayout), string(t.Category)}]++
		}
	}

	points := make([]CategoryTrendPoint, 0, len(counts))
	for k, c := range counts {
		points = append(points, CategoryTrendPoint{Date: k.date, Category: k.category, Count: c})
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Date != points[j].Date {
			return points[i].Date < points[j].Date
		}
		return points[i].Category < points[j].Category
	})
	return points
}

func teamPerformance(tickets []domain.Ticket) []TeamPerformance {
	groups := map[string]*durations{}
	for i := range tickets {
		t := &tickets[i]
		if !t.Resolved() || t.AssignedTo == "" {
			continue
		}
		d, ok := groups[t.AssignedTo]
		if !ok {
			d = &durations{}
			groups[t.AssignedTo] = d
		}
		d.add(t.ResolutionTime())
	}

	result := make([]TeamPerformance, 0, len(groups))
	for team, d := range groups {
		result = append(result, TeamPerformance{Team: team, ResolvedCount: d.n, AvgResolutionTime: d.avg()})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ResolvedCount != result[j].ResolvedCount {
			return result[i].ResolvedCount > result[j].ResolvedCount
		}
		return result[i].Team < result[j].Team
	})
	return result
}

func channelEffectiveness(tickets []domain.Ticket) []ChannelEffectiveness {
	type acc struct {
		total    int
		resolved durations
	}
	groups := map[domain.TicketChannel]*acc{}
	for i := range tickets {
		t := &tickets[i]
		a, ok := groups[t.Channel]
		if !ok {
			a = &acc{}
			groups[t.Channel] = a
		}
		a.total++
		if t.Resolved() {
			a.resolved.add(t.ResolutionTime())
		}
	}

	result := []ChannelEffectiveness{}
	for _, ch := range domain.Channels {
		a, ok := groups[ch]
		if !ok {
			continue
		}
		result = append(result, ChannelEffectiveness{
			Channel:           string(ch),
			Total:             a.total,
			Resolved:          a.resolved.n,
			AvgResolutionTime: a.resolved.avgPtr(),
		})
	}
	return result
}

func agentPerformance(tickets []domain.Ticket, staff []domain.User) []AgentPerformance {
	result := []AgentPerformance{}
	for _, u := range staff {
		if !u.Role.Staff() {
			continue
		}
		total := 0
		var resolved durations
		for i := range tickets {
			t := &tickets[i]
			if t.AssignedTo != u.Name {
				continue
			}
			total++
			if t.Resolved() {
				resolved.add(t.ResolutionTime())
			}
		}
		result = append(result, AgentPerformance{
			ID:                u.ID,
			Name:              u.Name,
			Email:             u.Email,
			Role:              string(u.Role),
			Team:              u.Team,
			TotalAssigned:     total,
			Resolved:          resolved.n,
			AvgResolutionTime: resolved.avgPtr(),
		})
	}
	return result
}

// durations accumulates millisecond resolution times.
type durations struct {
	n        int
	sum      int64
	min, max int64
}

func (d *durations) add(v time.Duration) {
	ms := v.Milliseconds()
	if d.n == 0 || ms < d.min {
		d.min = ms
	}
	if d.n == 0 || ms > d.max {
		d.max = ms
	}
	d.n++
	d.sum += ms
}

func (d *durations) avg() float64 {
	if d.n == 0 {
		return 0
	}
	return float64(d.sum) / float64(d.n)
}

func (d *durations) avgPtr() *float64 {
	if d.n == 0 {
		return nil
	}
	v := d.avg()
	return &v
}

func ordered(counts map[string]int, order []string) []Count {
	result := make([]Count, 0, len(counts))
	seen := map[string]bool{}
	for _, k := range order {
		if c, ok := counts[k]; ok {
			result = append(result, Count{Key: k, Count: c})
			seen[k] = true
		}
	}
	// Values outside the known enumeration still get reported.
	var rest []string
	for k := range counts {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		result = append(result, Count{Key: k, Count: counts[k]})
	}
	return result
}

func stringsOf[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
