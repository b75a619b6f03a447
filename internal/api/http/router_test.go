package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/supportdesk/helpdesk-service/internal/api/http/handlers"
	"github.com/supportdesk/helpdesk-service/internal/auth"
	"github.com/supportdesk/helpdesk-service/internal/config"
	"github.com/supportdesk/helpdesk-service/internal/domain"
	"github.com/supportdesk/helpdesk-service/internal/events"
	"github.com/supportdesk/helpdesk-service/internal/observability"
	"github.com/supportdesk/helpdesk-service/internal/repository"
	"github.com/supportdesk/helpdesk-service/internal/service"
)

type testServer struct {
	app   *fiber.App
	auth  *service.AuthService
	users *service.UserService
}

func newTestServer(t *testing.T, intakeMax int) *testServer {
	t.Helper()
	cfg := config.Config{
		App:  config.AppConfig{Name: "helpdesk-test", Version: "test"},
		Auth: config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 60, BcryptCost: 4},
	}
	logger := zap.NewNop()
	ticketRepo := repository.NewMemoryTicketRepository(nil)
	userRepo := repository.NewMemoryUserRepository(nil)
	dispatcher := events.NewInMemoryDispatcher(logger)

	ticketService := service.NewTicketService(service.TicketDependencies{TicketRepo: ticketRepo, Dispatcher: dispatcher})
	authService := service.NewAuthService(cfg, service.AuthDependencies{UserRepo: userRepo})
	userService := service.NewUserService(cfg, service.UserDependencies{UserRepo: userRepo})
	analyticsService := service.NewAnalyticsService(service.AnalyticsDependencies{TicketRepo: ticketRepo, UserRepo: userRepo})
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterMiddlewares(app, logger, metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics, map[string]handlers.Pinger{}),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Users:          handlers.NewUsersHandler(authService),
		Admin:          handlers.NewAdminHandler(userService),
		Analytics:      handlers.NewAnalyticsHandler(analyticsService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), userRepo),
		IntakeMax:      intakeMax,
		IntakeWindow:   time.Minute,
	})
	return &testServer{app: app, auth: authService, users: userService}
}

// tokenFor creates an account with role and returns a bearer token for it.
func (s *testServer) tokenFor(t *testing.T, name string, role domain.Role) string {
	t.Helper()
	email := strings.ToLower(name) + "@example.com"
	if _, err := s.users.CreateUser(context.Background(), service.CreateUserInput{
		Name:     name,
		Email:    email,
		Password: "secret1",
		Role:     role,
	}); err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	_, token, _, err := s.auth.Login(context.Background(), email, "secret1")
	if err != nil {
		t.Fatalf("login %s: %v", name, err)
	}
	return token
}

func (s *testServer) do(t *testing.T, method, path, token, body string) (*nethttp.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	decoded := map[string]any{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
	} else {
		decoded["raw"] = string(raw)
	}
	return resp, decoded
}

func data(body map[string]any) map[string]any {
	d, _ := body["data"].(map[string]any)
	return d
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestPublicIntakeClassifies(t *testing.T) {
	s := newTestServer(t, 0)

	resp, body := s.do(t, nethttp.MethodPost, "/api/tickets", "", `{"message":"My order arrived broken","channel":"email","category":"feedback"}`)
	if resp.StatusCode != nethttp.StatusCreated {
		t.Fatalf("status = %d, body %v", resp.StatusCode, body)
	}
	ticket := data(body)
	if ticket["category"] != "complaint" || ticket["priority"] != "high" || ticket["status"] != "new" {
		t.Errorf("unexpected ticket %v", ticket)
	}
	history, _ := ticket["history"].([]any)
	if len(history) != 1 {
		t.Errorf("history = %v", history)
	}

	resp, body = s.do(t, nethttp.MethodPost, "/api/tickets?auto_classify=false", "", `{"message":"My order arrived broken","channel":"chat","category":"feedback","priority":"low"}`)
	if resp.StatusCode != nethttp.StatusCreated {
		t.Fatalf("status = %d, body %v", resp.StatusCode, body)
	}
	if got := data(body); got["category"] != "feedback" || got["priority"] != "low" {
		t.Errorf("caller values not honoured: %v", got)
	}
}

func TestIntakeValidation(t *testing.T) {
	s := newTestServer(t, 0)

	resp, body := s.do(t, nethttp.MethodPost, "/api/tickets", "", `{"message":"hi","channel":"fax"}`)
	if resp.StatusCode != nethttp.StatusBadRequest || errorCode(body) != "VALIDATION_FAILED" {
		t.Fatalf("status = %d, body %v", resp.StatusCode, body)
	}
	details, _ := body["error"].(map[string]any)["details"].(map[string]any)
	if _, ok := details["channel"]; !ok {
		t.Errorf("expected channel detail, got %v", details)
	}
}

func TestIntakeRateLimit(t *testing.T) {
	s := newTestServer(t, 2)
	payload := `{"message":"hello","channel":"email"}`

	for i := 0; i < 2; i++ {
		if resp, body := s.do(t, nethttp.MethodPost, "/api/tickets", "", payload); resp.StatusCode != nethttp.StatusCreated {
			t.Fatalf("request %d: status = %d, body %v", i, resp.StatusCode, body)
		}
	}
	resp, body := s.do(t, nethttp.MethodPost, "/api/tickets", "", payload)
	if resp.StatusCode != nethttp.StatusTooManyRequests || errorCode(body) != "RATE_LIMITED" {
		t.Errorf("status = %d, body %v", resp.StatusCode, body)
	}
}

func TestStaffRoutesRequireRole(t *testing.T) {
	s := newTestServer(t, 0)
	userToken := s.tokenFor(t, "Customer", domain.RoleUser)
	agentToken := s.tokenFor(t, "Agent", domain.RoleAgent)

	if resp, _ := s.do(t, nethttp.MethodGet, "/api/tickets", "", ""); resp.StatusCode != nethttp.StatusUnauthorized {
		t.Errorf("anonymous list: status = %d", resp.StatusCode)
	}
	if resp, _ := s.do(t, nethttp.MethodGet, "/api/tickets", "not-a-token", ""); resp.StatusCode != nethttp.StatusUnauthorized {
		t.Errorf("bad token: status = %d", resp.StatusCode)
	}
	if resp, body := s.do(t, nethttp.MethodGet, "/api/tickets", userToken, ""); resp.StatusCode != nethttp.StatusForbidden || errorCode(body) != "FORBIDDEN" {
		t.Errorf("user list: status = %d", resp.StatusCode)
	}
	if resp, _ := s.do(t, nethttp.MethodGet, "/api/tickets", agentToken, ""); resp.StatusCode != nethttp.StatusOK {
		t.Errorf("agent list: status = %d", resp.StatusCode)
	}
	if resp, _ := s.do(t, nethttp.MethodGet, "/api/analytics", agentToken, ""); resp.StatusCode != nethttp.StatusOK {
		t.Errorf("agent analytics: status = %d", resp.StatusCode)
	}
	if resp, _ := s.do(t, nethttp.MethodGet, "/api/reports/advanced", agentToken, ""); resp.StatusCode != nethttp.StatusForbidden {
		t.Errorf("agent report: status = %d", resp.StatusCode)
	}
	if resp, _ := s.do(t, nethttp.MethodGet, "/api/users", agentToken, ""); resp.StatusCode != nethttp.StatusForbidden {
		t.Errorf("agent users: status = %d", resp.StatusCode)
	}
}

func TestUpdateRecordsFieldsInRequestOrder(t *testing.T) {
	s := newTestServer(t, 0)
	agentToken := s.tokenFor(t, "Riley", domain.RoleAgent)

	_, body := s.do(t, nethttp.MethodPost, "/api/tickets", "", `{"message":"where is my parcel","channel":"social"}`)
	id, _ := data(body)["id"].(string)

	resp, body := s.do(t, nethttp.MethodPut, "/api/tickets/"+id, agentToken, `{"status":"assigned","assignedTo":"logistics"}`)
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("status = %d, body %v", resp.StatusCode, body)
	}
	history, _ := data(body)["history"].([]any)
	if len(history) != 2 {
		t.Fatalf("history = %v", history)
	}
	last, _ := history[1].(map[string]any)
	if last["action"] != "Updated: status, assignedTo" || last["user"] != "Riley" {
		t.Errorf("unexpected entry %v", last)
	}

	if resp, body := s.do(t, nethttp.MethodPut, "/api/tickets/"+id, agentToken, `{}`); resp.StatusCode != nethttp.StatusBadRequest {
		t.Errorf("empty patch: status = %d, body %v", resp.StatusCode, body)
	}
	if resp, body := s.do(t, nethttp.MethodPut, "/api/tickets/missing", agentToken, `{"status":"resolved"}`); resp.StatusCode != nethttp.StatusNotFound || errorCode(body) != "NOT_FOUND" {
		t.Errorf("missing ticket: status = %d, body %v", resp.StatusCode, body)
	}

	if resp, _ := s.do(t, nethttp.MethodDelete, "/api/tickets/"+id, agentToken, ""); resp.StatusCode != nethttp.StatusOK {
		t.Errorf("delete: status = %d", resp.StatusCode)
	}
	if resp, _ := s.do(t, nethttp.MethodGet, "/api/tickets/"+id, agentToken, ""); resp.StatusCode != nethttp.StatusNotFound {
		t.Errorf("get after delete: status = %d", resp.StatusCode)
	}
}

func TestExportAndReports(t *testing.T) {
	s := newTestServer(t, 0)
	adminToken := s.tokenFor(t, "Admin", domain.RoleAdmin)
	s.do(t, nethttp.MethodPost, "/api/tickets", "", `{"message":"hello, there","channel":"community"}`)

	resp, body := s.do(t, nethttp.MethodGet, "/api/reports/export", adminToken, "")
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "queries-export.csv") {
		t.Errorf("content disposition = %q", cd)
	}
	if raw, _ := body["raw"].(string); !strings.Contains(raw, `"hello, there"`) {
		t.Errorf("export body = %q", raw)
	}

	resp, body = s.do(t, nethttp.MethodGet, "/api/reports/advanced?team=all&startDate=2000-01-01", adminToken, "")
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("report status = %d, body %v", resp.StatusCode, body)
	}
	if volume, _ := data(body)["queryVolume"].([]any); len(volume) != 31 {
		t.Errorf("volume points = %d, want 31", len(volume))
	}

	resp, _ = s.do(t, nethttp.MethodGet, "/api/reports/advanced?startDate=yesterday", adminToken, "")
	if resp.StatusCode != nethttp.StatusBadRequest {
		t.Errorf("bad date: status = %d", resp.StatusCode)
	}
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, 0)

	resp, body := s.do(t, nethttp.MethodPost, "/api/auth/register", "", `{"name":"Sky","email":"sky@example.com","password":"secret1","team":"support"}`)
	if resp.StatusCode != nethttp.StatusCreated {
		t.Fatalf("register status = %d, body %v", resp.StatusCode, body)
	}
	user, _ := data(body)["user"].(map[string]any)
	if user["role"] != "user" || user["team"] != "support" {
		t.Errorf("unexpected user %v", user)
	}
	if _, leaked := user["passwordHash"]; leaked {
		t.Error("password hash must not be serialised")
	}

	resp, body = s.do(t, nethttp.MethodPost, "/api/auth/login", "", `{"email":"sky@example.com","password":"wrong1"}`)
	if resp.StatusCode != nethttp.StatusUnauthorized {
		t.Errorf("bad login status = %d, body %v", resp.StatusCode, body)
	}

	resp, body = s.do(t, nethttp.MethodPost, "/api/auth/login", "", `{"email":"sky@example.com","password":"secret1"}`)
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("login status = %d, body %v", resp.StatusCode, body)
	}
	authBody, _ := data(body)["auth"].(map[string]any)
	token, _ := authBody["token"].(string)

	resp, body = s.do(t, nethttp.MethodGet, "/api/auth/me", token, "")
	if resp.StatusCode != nethttp.StatusOK || data(body)["email"] != "sky@example.com" || data(body)["lastLogin"] == nil {
		t.Errorf("me status = %d, body %v", resp.StatusCode, body)
	}

	resp, body = s.do(t, nethttp.MethodPut, "/api/auth/profile", token, `{"name":"Sky W"}`)
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("profile status = %d, body %v", resp.StatusCode, body)
	}
	if updated, _ := data(body)["user"].(map[string]any); updated["name"] != "Sky W" {
		t.Errorf("profile not updated: %v", updated)
	}
}

func TestAdminUserAndTeamRoutes(t *testing.T) {
	s := newTestServer(t, 0)
	adminToken := s.tokenFor(t, "Boss", domain.RoleAdmin)

	resp, body := s.do(t, nethttp.MethodPost, "/api/users", adminToken, `{"name":"Ned","email":"ned@example.com","password":"secret1","team":"billing"}`)
	if resp.StatusCode != nethttp.StatusCreated {
		t.Fatalf("create status = %d, body %v", resp.StatusCode, body)
	}
	ned := data(body)
	if ned["role"] != "agent" {
		t.Errorf("default role = %v", ned["role"])
	}
	id, _ := ned["id"].(string)

	resp, body = s.do(t, nethttp.MethodPost, "/api/users", adminToken, `{"name":"Ned","email":"ned@example.com","password":"secret1"}`)
	if resp.StatusCode != nethttp.StatusBadRequest {
		t.Errorf("duplicate status = %d, body %v", resp.StatusCode, body)
	}

	resp, body = s.do(t, nethttp.MethodPut, "/api/teams/"+id+"/role", adminToken, `{"role":"admin"}`)
	if resp.StatusCode != nethttp.StatusOK || data(body)["role"] != "admin" {
		t.Errorf("role status = %d, body %v", resp.StatusCode, body)
	}
	resp, _ = s.do(t, nethttp.MethodPut, "/api/teams/"+id+"/role", adminToken, `{"role":"owner"}`)
	if resp.StatusCode != nethttp.StatusBadRequest {
		t.Errorf("invalid role status = %d", resp.StatusCode)
	}

	resp, body = s.do(t, nethttp.MethodGet, "/api/teams/performance", adminToken, "")
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("performance status = %d", resp.StatusCode)
	}
	stats, _ := body["data"].([]any)
	if len(stats) != 2 {
		t.Errorf("stats = %v", stats)
	}

	resp, _ = s.do(t, nethttp.MethodDelete, "/api/users/"+id, adminToken, "")
	if resp.StatusCode != nethttp.StatusOK {
		t.Errorf("delete status = %d", resp.StatusCode)
	}
	resp, _ = s.do(t, nethttp.MethodDelete, "/api/users/"+id, adminToken, "")
	if resp.StatusCode != nethttp.StatusNotFound {
		t.Errorf("second delete status = %d", resp.StatusCode)
	}
}

func TestHealthAndUnknownRoute(t *testing.T) {
	s := newTestServer(t, 0)

	if resp, body := s.do(t, nethttp.MethodGet, "/health/ready", "", ""); resp.StatusCode != nethttp.StatusOK || body["status"] != "ready" {
		t.Errorf("ready: status = %d, body %v", resp.StatusCode, body)
	}
	if resp, body := s.do(t, nethttp.MethodGet, "/nope", "", ""); resp.StatusCode != nethttp.StatusNotFound || errorCode(body) != "NOT_FOUND" {
		t.Errorf("unknown route: status = %d, body %v", resp.StatusCode, body)
	}
	resp, body := s.do(t, nethttp.MethodGet, "/health/metrics", "", "")
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("metrics status = %d", resp.StatusCode)
	}
	if requests, _ := data(body)["requests"].(map[string]any); len(requests) == 0 {
		t.Errorf("expected recorded requests, got %v", body)
	}
}
