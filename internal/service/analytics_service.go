package service

import (
	"bytes"
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/supportdesk/helpdesk-service/internal/cache"
	"github.com/supportdesk/helpdesk-service/internal/domain"
	"github.com/supportdesk/helpdesk-service/internal/events"
	"github.com/supportdesk/helpdesk-service/internal/reporting"
	"github.com/supportdesk/helpdesk-service/internal/repository"
	apperrors "github.com/supportdesk/helpdesk-service/pkg/util/errorutil"
)

const summaryCacheKey = "analytics:summary"

// AllTeams disables the team filter of a report.
const AllTeams = "all"

// AnalyticsService loads ticket and staff populations and hands them to the
// reporting package.
type AnalyticsService struct {
	tickets  repository.TicketRepository
	users    repository.UserRepository
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// AnalyticsDependencies bundles collaborators for analytics.
type AnalyticsDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Cache      cache.Cache
	CacheTTL   time.Duration
	Logger     *zap.Logger
	Clock      func() time.Time
}

// ReportFilter narrows the advanced report. Start and End are inclusive on
// createdAt; Team matches assignedTo exactly, "all" or empty means any.
type ReportFilter struct {
	Start *time.Time
	End   *time.Time
	Team  string
}

// NewAnalyticsService constructs the service.
func NewAnalyticsService(deps AnalyticsDependencies) *AnalyticsService {
	c := deps.Cache
	if c == nil {
		c = cache.Nop{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &AnalyticsService{
		tickets:  deps.TicketRepo,
		users:    deps.UserRepo,
		cache:    c,
		cacheTTL: deps.CacheTTL,
		logger:   logger,
		now:      clock,
	}
}

// RegisterHandlers invalidates the cached summary whenever tickets change.
func (s *AnalyticsService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	for _, t := range []events.EventType{events.EventTicketCreated, events.EventTicketUpdated, events.EventTicketDeleted} {
		dispatcher.Subscribe(t, s.invalidate)
	}
}

func (s *AnalyticsService) invalidate(ctx context.Context, _ events.Event) error {
	return s.cache.Delete(ctx, summaryCacheKey)
}

// Summary returns dimension counts and the average resolution time.
func (s *AnalyticsService) Summary(ctx context.Context) (reporting.Summary, error) {
	var summary reporting.Summary
	if hit, err := s.cache.Get(ctx, summaryCacheKey, &summary); err != nil {
		s.logger.Warn("summary cache read failed", zap.Error(err))
	} else if hit {
		return summary, nil
	}

	tickets, err := s.tickets.List(ctx, repository.TicketFilter{})
	if err != nil {
		return reporting.Summary{}, mapRepoError(err, "ticket")
	}
	summary = reporting.BuildSummary(tickets)

	if s.cacheTTL > 0 {
		if err := s.cache.Set(ctx, summaryCacheKey, summary, s.cacheTTL); err != nil {
			s.logger.Warn("summary cache write failed", zap.Error(err))
		}
	}
	return summary, nil
}

// AdvancedReport builds the reporting bundle. The filter scopes individual
// sections, so the whole population is loaded.
func (s *AnalyticsService) AdvancedReport(ctx context.Context, filter ReportFilter) (reporting.Report, error) {
	if filter.Start != nil && filter.End != nil && filter.Start.After(*filter.End) {
		return reporting.Report{}, apperrors.NewValidationError("startDate must not be after endDate", nil)
	}

	scope := reporting.Scope{Start: filter.Start, End: filter.End}
	if team := strings.TrimSpace(filter.Team); !strings.EqualFold(team, AllTeams) {
		scope.Team = team
	}

	tickets, err := s.tickets.List(ctx, repository.TicketFilter{})
	if err != nil {
		return reporting.Report{}, mapRepoError(err, "ticket")
	}
	staff, err := s.users.List(ctx, repository.UserFilter{Roles: []domain.Role{domain.RoleAdmin, domain.RoleAgent}})
	if err != nil {
		return reporting.Report{}, mapRepoError(err, "user")
	}
	return reporting.BuildReport(tickets, staff, scope, s.now()), nil
}

// ExportCSV renders every ticket as CSV, newest first.
func (s *AnalyticsService) ExportCSV(ctx context.Context) ([]byte, error) {
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{})
	if err != nil {
		return nil, mapRepoError(err, "ticket")
	}
	var buf bytes.Buffer
	if err := reporting.WriteCSV(&buf, tickets); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return buf.Bytes(), nil
}
