package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	RoleLeader = "leader"
	RoleMember = "member"
)

// Hackathon is an event teams are formed for.
type Hackathon struct {
	ID        int64     `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Team belongs to one hackathon. Role is the caller's role when the team is
// listed for a user.
type Team struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	HackathonSlug string    `json:"hackathonSlug"`
	HackathonName string    `json:"hackathonName"`
	LeaderID      int64     `json:"leaderId"`
	Description   string    `json:"description,omitempty"`
	Role          string    `json:"role,omitempty"`
	MemberCount   int       `json:"memberCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

type TeamMember struct {
	UserID   int64     `json:"userId"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

type TeamInvite struct {
	ID        int64     `json:"id"`
	TeamID    int64     `json:"teamId"`
	Invitee   string    `json:"invitee"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Store) CreateHackathon(ctx context.Context, slug, name string) (Hackathon, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return Hackathon{}, fmt.Errorf("hackathon slug is required")
	}
	if _, err := s.HackathonBySlug(ctx, slug); err == nil {
		return Hackathon{}, fmt.Errorf("hackathon %q: %w", slug, ErrAlreadyExists)
	}
	if name == "" {
		name = slug
	}

	now := s.stamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO hackathons (slug, name, created_at) VALUES (?, ?, ?)`, slug, name, now)
	if err != nil {
		return Hackathon{}, fmt.Errorf("failed to create hackathon: %w", err)
	}
	id, _ := res.LastInsertId()
	return Hackathon{ID: id, Slug: slug, Name: name, CreatedAt: fromStamp(now)}, nil
}

func (s *Store) HackathonBySlug(ctx context.Context, slug string) (Hackathon, error) {
	var h Hackathon
	var created int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, slug, name, created_at FROM hackathons WHERE slug = ?`, strings.TrimSpace(slug)).
		Scan(&h.ID, &h.Slug, &h.Name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Hackathon{}, fmt.Errorf("hackathon %q: %w", slug, ErrNotFound)
	}
	if err != nil {
		return Hackathon{}, fmt.Errorf("failed to load hackathon: %w", err)
	}
	h.CreatedAt = fromStamp(created)
	return h, nil
}

// CreateTeam inserts the team and the leader's membership in one
// transaction.
func (s *Store) CreateTeam(ctx context.Context, leaderID int64, hackathonSlug, name, description string) (Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Team{}, fmt.Errorf("team name is required")
	}
	h, err := s.HackathonBySlug(ctx, hackathonSlug)
	if err != nil {
		return Team{}, err
	}

	team := Team{
		Name:          name,
		HackathonSlug: h.Slug,
		HackathonName: h.Name,
		LeaderID:      leaderID,
		Description:   description,
		Role:          RoleLeader,
		MemberCount:   1,
	}
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		var taken int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM teams WHERE hackathon_id = ? AND name = ?`, h.ID, name).Scan(&taken); err != nil {
			return fmt.Errorf("failed to check team name: %w", err)
		}
		if taken > 0 {
			return ErrDuplicateTeam
		}

		now := s.stamp()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO teams (name, hackathon_id, leader_id, description, created_at) VALUES (?, ?, ?, ?, ?)`,
			name, h.ID, leaderID, description, now)
		if err != nil {
			return fmt.Errorf("failed to create team: %w", err)
		}
		team.ID, _ = res.LastInsertId()
		team.CreatedAt = fromStamp(now)

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO team_members (team_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)`,
			team.ID, leaderID, RoleLeader, now); err != nil {
			return fmt.Errorf("failed to add team leader: %w", err)
		}
		return nil
	})
	if err != nil {
		return Team{}, err
	}

	s.log.Info("team created",
		zap.Int64("team_id", team.ID), zap.String("name", name), zap.String("hackathon", h.Slug))
	return team, nil
}

const teamSelect = `
	SELECT t.id, t.name, h.slug, h.name, t.leader_id, t.description, m.role, t.created_at,
	       (SELECT COUNT(*) FROM team_members mm WHERE mm.team_id = t.id)
	  FROM teams t
	  JOIN hackathons h ON h.id = t.hackathon_id
	  JOIN team_members m ON m.team_id = t.id AND m.user_id = ?`

// ListTeams returns the teams userID belongs to, optionally restricted to one
// hackathon.
func (s *Store) ListTeams(ctx context.Context, userID int64, hackathonSlug string) ([]Team, error) {
	query := teamSelect
	args := []any{userID}
	if hackathonSlug != "" {
		query += ` WHERE h.slug = ?`
		args = append(args, hackathonSlug)
	}
	query += ` ORDER BY t.created_at, t.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return teams, nil
}

// TeamForMember finds a team named name that userID belongs to.
func (s *Store) TeamForMember(ctx context.Context, userID int64, name string) (Team, error) {
	t, err := scanTeam(s.db.QueryRowContext(ctx,
		teamSelect+` WHERE t.name = ? ORDER BY t.created_at DESC LIMIT 1`, userID, strings.TrimSpace(name)))
	if errors.Is(err, sql.ErrNoRows) {
		return Team{}, fmt.Errorf("team %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return Team{}, err
	}
	return t, nil
}

func scanTeam(r rowScanner) (Team, error) {
	var t Team
	var created int64
	err := r.Scan(&t.ID, &t.Name, &t.HackathonSlug, &t.HackathonName, &t.LeaderID,
		&t.Description, &t.Role, &created, &t.MemberCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Team{}, err
		}
		return Team{}, fmt.Errorf("scan failed: %w", err)
	}
	t.CreatedAt = fromStamp(created)
	return t, nil
}

func (s *Store) TeamMembers(ctx context.Context, teamID int64) ([]TeamMember, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.username, m.role, m.joined_at
		   FROM team_members m JOIN users u ON u.id = m.user_id
		  WHERE m.team_id = ?
		  ORDER BY m.joined_at, u.username`, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	defer rows.Close()

	var members []TeamMember
	for rows.Next() {
		var m TeamMember
		var joined int64
		if err := rows.Scan(&m.UserID, &m.Username, &m.Role, &joined); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		m.JoinedAt = fromStamp(joined)
		members = append(members, m)
	}
	return members, rows.Err()
}

// InviteMember records a pending invite from the team leader to inviteeID.
// Inviting an existing member, the leader included, is ErrAlreadyMember.
func (s *Store) InviteMember(ctx context.Context, teamID, inviterID, inviteeID int64) (TeamInvite, error) {
	invite := TeamInvite{TeamID: teamID, Status: StatusPending}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var leader int64
		err := tx.QueryRowContext(ctx, `SELECT leader_id FROM teams WHERE id = ?`, teamID).Scan(&leader)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("team %d: %w", teamID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load team: %w", err)
		}
		if leader != inviterID {
			return ErrNotTeamLeader
		}

		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM team_members WHERE team_id = ? AND user_id = ?`, teamID, inviteeID).Scan(&n); err != nil {
			return fmt.Errorf("failed to check membership: %w", err)
		}
		if n > 0 {
			return ErrAlreadyMember
		}
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM team_invites WHERE team_id = ? AND invitee_id = ? AND status = 'pending'`,
			teamID, inviteeID).Scan(&n); err != nil {
			return fmt.Errorf("failed to check invites: %w", err)
		}
		if n > 0 {
			return ErrDuplicateRequest
		}

		now := s.stamp()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO team_invites (team_id, inviter_id, invitee_id, status, created_at) VALUES (?, ?, ?, 'pending', ?)`,
			teamID, inviterID, inviteeID, now)
		if err != nil {
			return fmt.Errorf("failed to create invite: %w", err)
		}
		invite.ID, _ = res.LastInsertId()
		invite.CreatedAt = fromStamp(now)
		return tx.QueryRowContext(ctx, `SELECT username FROM users WHERE id = ?`, inviteeID).Scan(&invite.Invitee)
	})
	if err != nil {
		return TeamInvite{}, err
	}

	s.log.Info("team invite sent", zap.Int64("team_id", teamID), zap.Int64("invitee", inviteeID))
	return invite, nil
}

// PendingInvites lists open invites for a team.
func (s *Store) PendingInvites(ctx context.Context, teamID int64) ([]TeamInvite, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT i.id, i.team_id, u.username, i.status, i.created_at
		   FROM team_invites i JOIN users u ON u.id = i.invitee_id
		  WHERE i.team_id = ? AND i.status = 'pending'
		  ORDER BY i.created_at, i.id`, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	defer rows.Close()

	var invites []TeamInvite
	for rows.Next() {
		var inv TeamInvite
		var created int64
		if err := rows.Scan(&inv.ID, &inv.TeamID, &inv.Invitee, &inv.Status, &created); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		inv.CreatedAt = fromStamp(created)
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}

// CountTeams returns the number of teams in a hackathon.
func (s *Store) CountTeams(ctx context.Context, hackathonSlug string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM teams t JOIN hackathons h ON h.id = t.hackathon_id WHERE h.slug = ?`,
		hackathonSlug).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count teams: %w", err)
	}
	return n, nil
}
