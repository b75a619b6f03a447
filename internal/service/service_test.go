package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/supportdesk/helpdesk-service/internal/config"
	"github.com/supportdesk/helpdesk-service/internal/domain"
	"github.com/supportdesk/helpdesk-service/internal/events"
	"github.com/supportdesk/helpdesk-service/internal/live"
	"github.com/supportdesk/helpdesk-service/internal/mailer"
	"github.com/supportdesk/helpdesk-service/internal/repository"
	apperrors "github.com/supportdesk/helpdesk-service/pkg/util/errorutil"
)

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Minute)
	return c.t
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	frames []live.Envelope
}

func (b *recordingBroadcaster) Emit(_ context.Context, env live.Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = append(b.frames, env)
	return nil
}

type fixture struct {
	tickets     *TicketService
	mail        *recordingMailer
	broadcaster *recordingBroadcaster
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := newStepClock()
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	repo := repository.NewMemoryTicketRepository(clock.now)
	mail := &recordingMailer{}
	broadcaster := &recordingBroadcaster{}

	notifications := NewNotificationService(NotificationDependencies{
		Dispatcher:  dispatcher,
		Mailer:      mail,
		Templates:   mailer.Templates{},
		Broadcaster: broadcaster,
		Logger:      zap.NewNop(),
		Clock:       clock.now,
	})
	notifications.RegisterHandlers()

	return &fixture{
		tickets: NewTicketService(TicketDependencies{
			TicketRepo: repo,
			Dispatcher: dispatcher,
			Clock:      clock.now,
		}),
		mail:        mail,
		broadcaster: broadcaster,
	}
}

func strPtr(s string) *string { return &s }

func statusPtr(s domain.TicketStatus) *domain.TicketStatus { return &s }

func TestCreateTicketAutoClassifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket, err := f.tickets.CreateTicket(ctx, TicketCreateInput{
		Message:       "  The checkout page is broken  ",
		Channel:       domain.ChannelEmail,
		Category:      domain.CategoryFeedback,
		Priority:      domain.TicketPriorityLow,
		CustomerEmail: "ana@example.com",
		CustomerName:  "Ana",
	}, CreateOptions{AutoClassify: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.Category != domain.CategoryComplaint || ticket.Priority != domain.TicketPriorityHigh {
		t.Errorf("classified as %s/%s, want complaint/high", ticket.Category, ticket.Priority)
	}
	if ticket.Message != "The checkout page is broken" {
		t.Errorf("message not trimmed: %q", ticket.Message)
	}
	if ticket.Status != domain.TicketStatusNew {
		t.Errorf("status = %s", ticket.Status)
	}
	if len(ticket.History) != 1 || ticket.History[0].Action != domain.ActionReceived || ticket.History[0].User != domain.SystemActor {
		t.Errorf("unexpected history %+v", ticket.History)
	}

	if len(f.mail.sent) != 1 || !strings.HasPrefix(f.mail.sent[0].Subject, "We've received your query") {
		t.Errorf("expected acknowledgement email, got %+v", f.mail.sent)
	}
	if len(f.broadcaster.frames) != 1 || f.broadcaster.frames[0].Event != live.EventNewTicket {
		t.Errorf("expected one new ticket frame, got %+v", f.broadcaster.frames)
	}
}

func TestCreateTicketKeepsCallerValuesWithoutAutoClassify(t *testing.T) {
	f := newFixture(t)

	ticket, err := f.tickets.CreateTicket(context.Background(), TicketCreateInput{
		Message:  "urgent: the app is broken",
		Channel:  domain.ChannelChat,
		Category: domain.CategoryQuestion,
	}, CreateOptions{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.Category != domain.CategoryQuestion {
		t.Errorf("category = %s, want caller value", ticket.Category)
	}
	if ticket.Priority != domain.TicketPriorityHigh {
		t.Errorf("priority = %s, want classified high", ticket.Priority)
	}
	if len(f.mail.sent) != 0 {
		t.Errorf("no email expected without customer email, got %d", len(f.mail.sent))
	}
	if len(f.broadcaster.frames) != 1 {
		t.Errorf("live frame expected regardless of email, got %d", len(f.broadcaster.frames))
	}
}

func TestCreateTicketValidation(t *testing.T) {
	f := newFixture(t)
	cases := []TicketCreateInput{
		{Message: "   ", Channel: domain.ChannelEmail},
		{Message: "hi"},
		{Message: "hi", Channel: "fax"},
		{Message: "hi", Channel: domain.ChannelEmail, Priority: "extreme"},
	}
	for _, in := range cases {
		_, err := f.tickets.CreateTicket(context.Background(), in, CreateOptions{AutoClassify: true})
		if !apperrors.HasCode(err, apperrors.CodeValidation) {
			t.Errorf("input %+v: expected validation error, got %v", in, err)
		}
	}
}

func TestUpdateTicketAppendsHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket, err := f.tickets.CreateTicket(ctx, TicketCreateInput{Message: "where is my order", Channel: domain.ChannelEmail}, CreateOptions{AutoClassify: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := f.tickets.UpdateTicket(ctx, Actor{UserID: "u1", Name: "Jordan"}, ticket.ID, TicketPatch{
		AssignedTo: strPtr("support"),
		Status:     statusPtr(domain.TicketStatusAssigned),
		Fields:     []string{FieldAssignedTo, FieldStatus},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated.History) != 2 {
		t.Fatalf("history length = %d, want 2", len(updated.History))
	}
	last := updated.History[1]
	if last.Action != "Updated: assignedTo, status" || last.User != "Jordan" {
		t.Errorf("unexpected entry %+v", last)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Errorf("updatedAt %v not after createdAt %v", updated.UpdatedAt, updated.CreatedAt)
	}

	// Writing the same value again still records an entry.
	again, err := f.tickets.UpdateTicket(ctx, Actor{}, ticket.ID, TicketPatch{Status: statusPtr(domain.TicketStatusAssigned)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(again.History) != 3 {
		t.Fatalf("history length = %d, want 3", len(again.History))
	}
	if again.History[2].User != domain.DefaultActor {
		t.Errorf("actor = %q, want %q", again.History[2].User, domain.DefaultActor)
	}
}

func TestUpdateTicketRejectsEmptyPatchAndMissingTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket, err := f.tickets.CreateTicket(ctx, TicketCreateInput{Message: "hello", Channel: domain.ChannelSocial}, CreateOptions{AutoClassify: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.tickets.UpdateTicket(ctx, Actor{}, ticket.ID, TicketPatch{}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("expected validation error for empty patch, got %v", err)
	}
	bad := domain.TicketStatus("closed")
	if _, err := f.tickets.UpdateTicket(ctx, Actor{}, ticket.ID, TicketPatch{Status: &bad}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("expected validation error for unknown status, got %v", err)
	}
	if _, err := f.tickets.UpdateTicket(ctx, Actor{}, "missing", TicketPatch{Status: statusPtr(domain.TicketStatusResolved)}); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestUpdateNotificationPrecedence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket, err := f.tickets.CreateTicket(ctx, TicketCreateInput{
		Message:       "question about billing",
		Channel:       domain.ChannelEmail,
		CustomerEmail: "sam@example.com",
	}, CreateOptions{AutoClassify: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f.mail.sent = nil

	// Assignment alone sends an update.
	if _, err := f.tickets.UpdateTicket(ctx, Actor{Name: "Lee"}, ticket.ID, TicketPatch{AssignedTo: strPtr("billing")}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	// Status change and assignment together mention only the status.
	if _, err := f.tickets.UpdateTicket(ctx, Actor{Name: "Lee"}, ticket.ID, TicketPatch{
		Status:     statusPtr(domain.TicketStatusInProgress),
		AssignedTo: strPtr("support"),
	}); err != nil {
		t.Fatalf("status: %v", err)
	}
	// Resolution wins over everything.
	if _, err := f.tickets.UpdateTicket(ctx, Actor{Name: "Lee"}, ticket.ID, TicketPatch{
		Status:     statusPtr(domain.TicketStatusResolved),
		AssignedTo: strPtr("billing"),
	}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// Already resolved and unchanged: no email.
	if _, err := f.tickets.UpdateTicket(ctx, Actor{Name: "Lee"}, ticket.ID, TicketPatch{Status: statusPtr(domain.TicketStatusResolved)}); err != nil {
		t.Fatalf("noop: %v", err)
	}

	if len(f.mail.sent) != 3 {
		t.Fatalf("sent %d emails, want 3", len(f.mail.sent))
	}
	if !strings.Contains(f.mail.sent[0].HTML, "Assigned to billing") {
		t.Errorf("first email should mention assignment")
	}
	if !strings.Contains(f.mail.sent[1].HTML, "Status changed to in-progress") || strings.Contains(f.mail.sent[1].HTML, "Assigned to support") {
		t.Errorf("second email should mention status only")
	}
	if !strings.HasPrefix(f.mail.sent[2].Subject, "Your query has been resolved") {
		t.Errorf("third email subject = %q", f.mail.sent[2].Subject)
	}
	for _, msg := range f.mail.sent {
		if msg.To != "sam@example.com" {
			t.Errorf("email sent to %q", msg.To)
		}
	}

	// One created frame plus one per update.
	if len(f.broadcaster.frames) != 5 {
		t.Errorf("frames = %d, want 5", len(f.broadcaster.frames))
	}
}

func TestMailerFailureDoesNotFailUpdate(t *testing.T) {
	f := newFixture(t)
	f.mail.err = errors.New("smtp down")
	ctx := context.Background()

	ticket, err := f.tickets.CreateTicket(ctx, TicketCreateInput{Message: "hello", Channel: domain.ChannelEmail, CustomerEmail: "a@b.c"}, CreateOptions{AutoClassify: true})
	if err != nil {
		t.Fatalf("create should succeed despite mailer failure: %v", err)
	}
	if _, err := f.tickets.UpdateTicket(ctx, Actor{}, ticket.ID, TicketPatch{Status: statusPtr(domain.TicketStatusResolved)}); err != nil {
		t.Fatalf("update should succeed despite mailer failure: %v", err)
	}
}

func TestConcurrentResolvesSendOneResolutionNotice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket, err := f.tickets.CreateTicket(ctx, TicketCreateInput{Message: "refund please", Channel: domain.ChannelEmail, CustomerEmail: "ana@example.com"}, CreateOptions{AutoClassify: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.tickets.UpdateTicket(ctx, Actor{Name: "Lee"}, ticket.ID, TicketPatch{Status: statusPtr(domain.TicketStatusResolved)})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	resolutions := 0
	f.mail.mu.Lock()
	for _, msg := range f.mail.sent {
		if strings.HasPrefix(msg.Subject, "Your query has been resolved") {
			resolutions++
		}
	}
	f.mail.mu.Unlock()
	if resolutions != 1 {
		t.Errorf("resolution emails = %d, want 1", resolutions)
	}

	stored, err := f.tickets.GetTicket(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(stored.History) != 1+workers {
		t.Errorf("history length = %d, want %d", len(stored.History), 1+workers)
	}
}

func TestDeleteTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket, err := f.tickets.CreateTicket(ctx, TicketCreateInput{Message: "bye", Channel: domain.ChannelCommunity}, CreateOptions{AutoClassify: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.tickets.DeleteTicket(ctx, Actor{Name: "Admin"}, ticket.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.tickets.GetTicket(ctx, ticket.ID); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
	if err := f.tickets.DeleteTicket(ctx, Actor{}, ticket.ID); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}

func TestListTicketsFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, msg := range []string{"broken screen", "where is the office", "I need a refund"} {
		if _, err := f.tickets.CreateTicket(ctx, TicketCreateInput{Message: msg, Channel: domain.ChannelEmail}, CreateOptions{AutoClassify: true}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	all, err := f.tickets.ListTickets(ctx, TicketListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].Message != "I need a refund" {
		t.Errorf("expected newest first, got %+v", all)
	}

	complaint := domain.CategoryComplaint
	got, err := f.tickets.ListTickets(ctx, TicketListFilter{Category: &complaint})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Message != "broken screen" {
		t.Errorf("unexpected filtered result %+v", got)
	}

	bad := domain.TicketPriority("p0")
	if _, err := f.tickets.ListTickets(ctx, TicketListFilter{Priority: &bad}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func testConfig() config.Config {
	return config.Config{Auth: config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 60, BcryptCost: 4}}
}

func TestAuthRegisterAndLogin(t *testing.T) {
	clock := newStepClock()
	users := repository.NewMemoryUserRepository(clock.now)
	svc := NewAuthService(testConfig(), AuthDependencies{UserRepo: users, Clock: clock.now})
	ctx := context.Background()

	user, token, _, err := svc.Register(ctx, RegisterInput{Name: "Casey", Email: " Casey@Example.com ", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if token == "" || user.Role != domain.RoleUser || user.Team != domain.DefaultTeam || user.Email != "casey@example.com" {
		t.Errorf("unexpected user %+v", user)
	}

	if _, _, _, err := svc.Register(ctx, RegisterInput{Name: "Casey", Email: "casey@example.com", Password: "secret1"}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("expected duplicate to be a validation error, got %v", err)
	}
	if _, _, _, err := svc.Register(ctx, RegisterInput{Name: "X", Email: "x@example.com", Password: "123"}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("expected short password to fail, got %v", err)
	}

	if _, _, _, err := svc.Login(ctx, "casey@example.com", "wrong"); !apperrors.HasCode(err, apperrors.CodeUnauthorized) {
		t.Errorf("expected unauthorized, got %v", err)
	}
	if _, _, _, err := svc.Login(ctx, "nobody@example.com", "secret1"); !apperrors.HasCode(err, apperrors.CodeUnauthorized) {
		t.Errorf("expected unauthorized for unknown email, got %v", err)
	}

	loggedIn, token, _, err := svc.Login(ctx, "CASEY@example.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token == "" || loggedIn.LastLogin == nil {
		t.Fatalf("expected token and lastLogin, got %q %+v", token, loggedIn)
	}
	stored, err := svc.Me(ctx, user.ID)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if stored.LastLogin == nil || !stored.LastLogin.Equal(*loggedIn.LastLogin) {
		t.Errorf("lastLogin not persisted: %+v", stored.LastLogin)
	}

	claims, err := svc.TokenManager().ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != domain.RoleUser {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestAuthRejectsInactiveAccount(t *testing.T) {
	users := repository.NewMemoryUserRepository(nil)
	svc := NewAuthService(testConfig(), AuthDependencies{UserRepo: users})
	admin := NewUserService(testConfig(), UserDependencies{UserRepo: users})
	ctx := context.Background()

	user, err := admin.CreateUser(ctx, CreateUserInput{Name: "Dee", Email: "dee@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	inactive := false
	if _, err := admin.UpdateUser(ctx, user.ID, UpdateUserInput{IsActive: &inactive}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, _, _, err := svc.Login(ctx, "dee@example.com", "secret1"); !apperrors.HasCode(err, apperrors.CodeUnauthorized) {
		t.Errorf("expected unauthorized for inactive account, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	users := repository.NewMemoryUserRepository(nil)
	svc := NewAuthService(testConfig(), AuthDependencies{UserRepo: users})
	ctx := context.Background()

	user, _, _, err := svc.Register(ctx, RegisterInput{Name: "Eli", Email: "eli@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	updated, token, _, err := svc.UpdateProfile(ctx, user.ID, ProfileInput{Name: strPtr("Eli R"), Team: strPtr("billing"), Password: strPtr("newsecret")})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Name != "Eli R" || updated.Team != "billing" || token == "" {
		t.Errorf("unexpected profile %+v", updated)
	}
	if _, _, _, err := svc.Login(ctx, "eli@example.com", "newsecret"); err != nil {
		t.Errorf("login with new password: %v", err)
	}
	if _, _, _, err := svc.UpdateProfile(ctx, user.ID, ProfileInput{Password: strPtr("abc")}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestUserServiceTeams(t *testing.T) {
	users := repository.NewMemoryUserRepository(nil)
	svc := NewUserService(testConfig(), UserDependencies{UserRepo: users})
	ctx := context.Background()

	seed := []CreateUserInput{
		{Name: "Ana", Email: "ana@example.com", Password: "secret1", Role: domain.RoleAdmin, Team: "support"},
		{Name: "Ben", Email: "ben@example.com", Password: "secret1", Team: "support"},
		{Name: "Cat", Email: "cat@example.com", Password: "secret1", Team: "billing"},
		{Name: "Dan", Email: "dan@example.com", Password: "secret1", Role: domain.RoleUser},
	}
	created := make([]*domain.User, 0, len(seed))
	for _, in := range seed {
		u, err := svc.CreateUser(ctx, in)
		if err != nil {
			t.Fatalf("create %s: %v", in.Name, err)
		}
		created = append(created, u)
	}
	if created[1].Role != domain.RoleAgent {
		t.Errorf("default role = %s, want agent", created[1].Role)
	}
	if created[3].Team != domain.DefaultTeam {
		t.Errorf("default team = %s", created[3].Team)
	}

	inactive := false
	if _, err := svc.UpdateUser(ctx, created[1].ID, UpdateUserInput{IsActive: &inactive}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	teams, err := svc.ListTeams(ctx)
	if err != nil {
		t.Fatalf("teams: %v", err)
	}
	if len(teams) != 3 || teams[0].Name != "billing" || teams[2].Name != "support" || teams[2].MemberCount != 2 {
		t.Errorf("unexpected teams %+v", teams)
	}

	stats, err := svc.TeamStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := TeamStats{Team: "support", TotalMembers: 2, ActiveMembers: 1, Admins: 1, Agents: 1}
	if stats[2] != want {
		t.Errorf("support stats = %+v, want %+v", stats[2], want)
	}

	moved, err := svc.UpdateTeam(ctx, created[2].ID, "support")
	if err != nil || moved.Team != "support" {
		t.Errorf("update team: %+v %v", moved, err)
	}
	if _, err := svc.UpdateRole(ctx, created[2].ID, "owner"); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("expected validation error for unknown role, got %v", err)
	}
	if _, err := svc.UpdateRole(ctx, "missing", domain.RoleAdmin); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	if err := svc.DeleteUser(ctx, Actor{UserID: created[0].ID}, created[0].ID); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("expected self delete to fail, got %v", err)
	}
	if err := svc.DeleteUser(ctx, Actor{UserID: created[0].ID}, created[3].ID); err != nil {
		t.Errorf("delete: %v", err)
	}
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	users := repository.NewMemoryUserRepository(nil)
	svc := NewUserService(testConfig(), UserDependencies{UserRepo: users})
	ctx := context.Background()
	in := CreateUserInput{Name: "Root", Email: "root@example.com", Password: "secret1"}

	first, created, err := svc.EnsureAdmin(ctx, in)
	if err != nil || !created || first.Role != domain.RoleAdmin {
		t.Fatalf("first ensure: %+v %v %v", first, created, err)
	}
	second, created, err := svc.EnsureAdmin(ctx, in)
	if err != nil || created || second.ID != first.ID {
		t.Fatalf("second ensure: %+v %v %v", second, created, err)
	}
}

func TestEndToEndScenarios(t *testing.T) {
	ctx := context.Background()

	t.Run("create classifies broken urgent message", func(t *testing.T) {
		f := newFixture(t)
		ticket, err := f.tickets.CreateTicket(ctx, TicketCreateInput{
			Message: "This is broken and urgent, please help ASAP",
			Channel: domain.ChannelEmail,
		}, CreateOptions{AutoClassify: true})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if ticket.Category != domain.CategoryComplaint || ticket.Priority != domain.TicketPriorityHigh {
			t.Errorf("got %s/%s", ticket.Category, ticket.Priority)
		}
		want := []domain.HistoryEntry{{Action: "Query received", User: "System", Timestamp: ticket.CreatedAt}}
		if !reflect.DeepEqual(ticket.History, want) {
			t.Errorf("history = %+v, want %+v", ticket.History, want)
		}
	})

	t.Run("resolve sends exactly one resolution notice", func(t *testing.T) {
		f := newFixture(t)
		ticket, err := f.tickets.CreateTicket(ctx, TicketCreateInput{Message: "hello", Channel: domain.ChannelEmail, CustomerEmail: "c@example.com"}, CreateOptions{AutoClassify: true})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		f.mail.sent = nil
		updated, err := f.tickets.UpdateTicket(ctx, Actor{}, ticket.ID, TicketPatch{Status: statusPtr(domain.TicketStatusResolved)})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated.Status != domain.TicketStatusResolved || len(updated.History) != 2 {
			t.Errorf("unexpected ticket %+v", updated)
		}
		if len(f.mail.sent) != 1 || !strings.HasPrefix(f.mail.sent[0].Subject, "Your query has been resolved") {
			t.Errorf("expected one resolution email, got %+v", f.mail.sent)
		}
	})

	t.Run("list by status is newest first", func(t *testing.T) {
		f := newFixture(t)
		var ids []string
		for _, msg := range []string{"one", "two", "three"} {
			ticket, err := f.tickets.CreateTicket(ctx, TicketCreateInput{Message: msg, Channel: domain.ChannelChat}, CreateOptions{AutoClassify: true})
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			ids = append(ids, ticket.ID)
		}
		if _, err := f.tickets.UpdateTicket(ctx, Actor{}, ids[1], TicketPatch{Status: statusPtr(domain.TicketStatusAssigned)}); err != nil {
			t.Fatalf("update: %v", err)
		}
		newStatus := domain.TicketStatusNew
		got, err := f.tickets.ListTickets(ctx, TicketListFilter{Status: &newStatus})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 2 || got[0].ID != ids[2] || got[1].ID != ids[0] {
			t.Errorf("unexpected order %+v", got)
		}
	})

	t.Run("delete missing is not found", func(t *testing.T) {
		f := newFixture(t)
		if err := f.tickets.DeleteTicket(ctx, Actor{}, "does-not-exist"); !apperrors.HasCode(err, apperrors.CodeNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
		if len(f.broadcaster.frames) != 0 {
			t.Error("no events expected for a failed delete")
		}
	})
}
