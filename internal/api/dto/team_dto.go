package dto

import (
	"time"

	"github.com/supportdesk/helpdesk-service/internal/service"
)

// TeamMemberResponse is one member listed under a team.
type TeamMemberResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	IsActive  bool       `json:"isActive"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

// TeamResponse groups members by team.
type TeamResponse struct {
	Team        string               `json:"team"`
	Members     []TeamMemberResponse `json:"members"`
	MemberCount int                  `json:"memberCount"`
}

// TeamStatsResponse counts membership per team.
type TeamStatsResponse struct {
	Team          string `json:"team"`
	TotalMembers  int    `json:"totalMembers"`
	ActiveMembers int    `json:"activeMembers"`
	Admins        int    `json:"admins"`
	Agents        int    `json:"agents"`
}

// NewTeamList maps teams.
func NewTeamList(teams []service.Team) []TeamResponse {
	items := make([]TeamResponse, 0, len(teams))
	for _, t := range teams {
		members := make([]TeamMemberResponse, 0, len(t.Members))
		for _, m := range t.Members {
			members = append(members, TeamMemberResponse{
				ID:        m.ID,
				Name:      m.Name,
				Email:     m.Email,
				Role:      string(m.Role),
				IsActive:  m.IsActive,
				LastLogin: m.LastLogin,
			})
		}
		items = append(items, TeamResponse{Team: t.Name, Members: members, MemberCount: t.MemberCount})
	}
	return items
}

// NewTeamStatsList maps team statistics.
func NewTeamStatsList(stats []service.TeamStats) []TeamStatsResponse {
	items := make([]TeamStatsResponse, 0, len(stats))
	for _, s := range stats {
		items = append(items, TeamStatsResponse(s))
	}
	return items
}
