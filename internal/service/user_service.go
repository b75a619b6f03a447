package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/supportdesk/helpdesk-service/internal/auth"
	"github.com/supportdesk/helpdesk-service/internal/config"
	"github.com/supportdesk/helpdesk-service/internal/domain"
	"github.com/supportdesk/helpdesk-service/internal/repository"
	apperrors "github.com/supportdesk/helpdesk-service/pkg/util/errorutil"
)

// UserService manages accounts and team membership for administrators.
type UserService struct {
	users      repository.UserRepository
	bcryptCost int
}

// UserDependencies encapsulates repositories required for user management.
type UserDependencies struct {
	UserRepo repository.UserRepository
}

// CreateUserInput describes an account created by an administrator. Role
// defaults to agent.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
	Team     string
}

// UpdateUserInput lists optional account changes.
type UpdateUserInput struct {
	Name     *string
	Email    *string
	Role     *domain.Role
	Team     *string
	IsActive *bool
}

// TeamMember is one user listed under a team.
type TeamMember struct {
	ID        string
	Name      string
	Email     string
	Role      domain.Role
	IsActive  bool
	LastLogin *time.Time
}

// Team groups users sharing a team name.
type Team struct {
	Name        string
	Members     []TeamMember
	MemberCount int
}

// TeamStats counts membership per team.
type TeamStats struct {
	Team          string
	TotalMembers  int
	ActiveMembers int
	Admins        int
	Agents        int
}

// NewUserService constructs the service.
func NewUserService(cfg config.Config, deps UserDependencies) *UserService {
	return &UserService{
		users:      deps.UserRepo,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// ListUsers returns every account ordered by name.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx, repository.UserFilter{})
	if err != nil {
		return nil, mapRepoError(err, "user")
	}
	return users, nil
}

// CreateUser adds an account on behalf of an administrator.
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)
	if err := validateCredentials(name, email, input.Password); err != nil {
		return nil, err
	}
	role := input.Role
	if role == "" {
		role = domain.RoleAgent
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid user", map[string]any{"role": "must be one of admin, agent, user"})
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Team:         teamOrDefault(input.Team),
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, mapRepoError(err, "user")
	}
	return user, nil
}

// UpdateUser applies the provided changes.
func (s *UserService) UpdateUser(ctx context.Context, userID string, input UpdateUserInput) (*domain.User, error) {
	if input.Role != nil && !input.Role.Valid() {
		return nil, apperrors.NewValidationError("invalid user", map[string]any{"role": "must be one of admin, agent, user"})
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapRepoError(err, "user")
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) != "" {
		user.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil && strings.TrimSpace(*input.Email) != "" {
		user.Email = normalizeEmail(*input.Email)
	}
	if input.Role != nil {
		user.Role = *input.Role
	}
	if input.Team != nil {
		user.Team = teamOrDefault(*input.Team)
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, mapRepoError(err, "user")
	}
	return user, nil
}

// DeleteUser removes an account. Administrators cannot delete themselves.
func (s *UserService) DeleteUser(ctx context.Context, actor Actor, userID string) error {
	if actor.UserID != "" && actor.UserID == userID {
		return apperrors.NewValidationError("you cannot delete your own account", nil)
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return mapRepoError(err, "user")
	}
	return nil
}

// UpdateTeam moves a user to another team.
func (s *UserService) UpdateTeam(ctx context.Context, userID, team string) (*domain.User, error) {
	if strings.TrimSpace(team) == "" {
		return nil, apperrors.NewValidationError("invalid team", map[string]any{"team": "required"})
	}
	return s.UpdateUser(ctx, userID, UpdateUserInput{Team: &team})
}

// UpdateRole changes a user's role.
func (s *UserService) UpdateRole(ctx context.Context, userID string, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": "must be one of admin, agent, user"})
	}
	return s.UpdateUser(ctx, userID, UpdateUserInput{Role: &role})
}

// ListTeams groups all users by team name.
func (s *UserService) ListTeams(ctx context.Context) ([]Team, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	index := map[string]int{}
	teams := []Team{}
	for _, u := range users {
		i, ok := index[u.Team]
		if !ok {
			i = len(teams)
			index[u.Team] = i
			teams = append(teams, Team{Name: u.Team})
		}
		teams[i].Members = append(teams[i].Members, TeamMember{
			ID:        u.ID,
			Name:      u.Name,
			Email:     u.Email,
			Role:      u.Role,
			IsActive:  u.IsActive,
			LastLogin: u.LastLogin,
		})
		teams[i].MemberCount++
	}
	sort.Slice(teams, func(a, b int) bool { return teams[a].Name < teams[b].Name })
	return teams, nil
}

// TeamStats counts members, active members, admins and agents per team.
func (s *UserService) TeamStats(ctx context.Context) ([]TeamStats, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	byTeam := map[string]*TeamStats{}
	for _, u := range users {
		st, ok := byTeam[u.Team]
		if !ok {
			st = &TeamStats{Team: u.Team}
			byTeam[u.Team] = st
		}
		st.TotalMembers++
		if u.IsActive {
			st.ActiveMembers++
		}
		switch u.Role {
		case domain.RoleAdmin:
			st.Admins++
		case domain.RoleAgent:
			st.Agents++
		}
	}
	result := make([]TeamStats, 0, len(byTeam))
	for _, st := range byTeam {
		result = append(result, *st)
	}
	sort.Slice(result, func(a, b int) bool { return result[a].Team < result[b].Team })
	return result, nil
}

// EnsureAdmin creates an administrator when no account with that email exists.
// It reports whether a new account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, input CreateUserInput) (*domain.User, bool, error) {
	existing, err := s.users.GetByEmail(ctx, normalizeEmail(input.Email))
	if err == nil {
		return existing, false, nil
	}
	if !apperrors.HasCode(mapRepoError(err, "user"), apperrors.CodeNotFound) {
		return nil, false, mapRepoError(err, "user")
	}
	input.Role = domain.RoleAdmin
	user, err := s.CreateUser(ctx, input)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}
