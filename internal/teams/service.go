package teams

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"ms-events/internal/auth"
	"ms-events/internal/errs"
	"ms-events/internal/models"
)

// DBLayer threads an explicit transaction handle through the membership
// operations so the size check and the insert provably share isolation.
type DBLayer interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error

	EventExists(ctx context.Context, tenantID, eventID int64) (bool, error)
	CreateTeam(ctx context.Context, team *models.Team) error
	GetTeamByID(ctx context.Context, tenantID, id int64) (*models.Team, error)
	TeamForUpdate(ctx context.Context, tx bun.IDB, tenantID, id int64) (*models.Team, error)
	ListTeams(ctx context.Context, tenantID int64) ([]models.Team, error)
	UpdateTeam(ctx context.Context, team models.Team) error
	DeleteTeam(ctx context.Context, id int64) error

	MemberCount(ctx context.Context, tx bun.IDB, teamID int64) (int, error)
	IsMember(ctx context.Context, tx bun.IDB, teamID, userID int64) (bool, error)
	AddMember(ctx context.Context, tx bun.IDB, member *models.TeamMember) error
	ListMembers(ctx context.Context, teamID int64) ([]models.User, error)
}

type Publisher interface {
	PublishTeamMemberJoined(member models.TeamMember) error
}

type Service struct {
	DB        DBLayer
	Publisher Publisher
}

func NewService(db DBLayer, publisher Publisher) *Service {
	return &Service{DB: db, Publisher: publisher}
}

// ---------------- TEAM CRUD ----------------

func (s *Service) CreateTeam(ctx context.Context, p auth.Principal, team *models.Team) error {
	if team.MinSize < 1 || team.MaxSize < team.MinSize {
		return errs.ErrInvalidIDs
	}
	exists, err := s.DB.EventExists(ctx, p.TenantID, team.EventID)
	if err != nil {
		return err
	}
	if !exists {
		return errs.ErrInvalidIDs
	}
	if err := s.DB.CreateTeam(ctx, team); err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

func (s *Service) GetTeam(ctx context.Context, p auth.Principal, id int64) (*models.Team, error) {
	team, err := s.DB.GetTeamByID(ctx, p.TenantID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return team, nil
}

func (s *Service) ListTeams(ctx context.Context, p auth.Principal) ([]models.Team, error) {
	return s.DB.ListTeams(ctx, p.TenantID)
}

func (s *Service) UpdateTeam(ctx context.Context, p auth.Principal, team models.Team) error {
	existing, err := s.GetTeam(ctx, p, team.ID)
	if err != nil {
		return err
	}
	if team.MinSize < 1 || team.MaxSize < team.MinSize {
		return errs.ErrInvalidIDs
	}
	team.EventID = existing.EventID
	return s.DB.UpdateTeam(ctx, team)
}

func (s *Service) DeleteTeam(ctx context.Context, p auth.Principal, id int64) error {
	if _, err := s.GetTeam(ctx, p, id); err != nil {
		return err
	}
	return s.DB.DeleteTeam(ctx, id)
}

func (s *Service) ListMembers(ctx context.Context, p auth.Principal, teamID int64) ([]models.User, error) {
	if _, err := s.GetTeam(ctx, p, teamID); err != nil {
		return nil, err
	}
	return s.DB.ListMembers(ctx, teamID)
}

// ---------------- MEMBERSHIP ----------------

// Join adds the caller to a team. The size check and the insert run
// inside one transaction with the team row locked, so concurrent
// joiners serialize; the unique (team, user) constraint catches any
// duplicate that still slips through.
func (s *Service) Join(ctx context.Context, p auth.Principal, teamID int64) (*models.TeamMember, error) {
	var member *models.TeamMember

	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		team, err := s.DB.TeamForUpdate(ctx, tx, p.TenantID, teamID)
		if errors.Is(err, sql.ErrNoRows) {
			return errs.ErrNotFound
		}
		if err != nil {
			return err
		}

		count, err := s.DB.MemberCount(ctx, tx, team.ID)
		if err != nil {
			return err
		}
		if count >= team.MaxSize {
			return errs.ErrTeamFull
		}

		isMember, err := s.DB.IsMember(ctx, tx, team.ID, p.UserID)
		if err != nil {
			return err
		}
		if isMember {
			return errs.ErrAlreadyMember
		}

		member = &models.TeamMember{
			TeamID:   team.ID,
			UserID:   p.UserID,
			JoinedAt: time.Now(),
		}
		if err := s.DB.AddMember(ctx, tx, member); err != nil {
			if isUniqueViolation(err) {
				return errs.ErrAlreadyMember
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.Publisher != nil {
		if err := s.Publisher.PublishTeamMemberJoined(*member); err != nil {
			fmt.Printf("Kafka publish error (team member joined): %v\n", err)
		}
	}
	return member, nil
}

// MeetsMinimum reports whether the team is large enough for ticket
// issuance. Join does not enforce the minimum; only purchase does.
func (s *Service) MeetsMinimum(ctx context.Context, tx bun.IDB, team models.Team) (bool, error) {
	count, err := s.DB.MemberCount(ctx, tx, team.ID)
	if err != nil {
		return false, err
	}
	return count >= team.MinSize, nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}
