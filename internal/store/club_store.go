package store

import (
	"context"

	"github.com/AdamBeresnev/op-chess-club/internal/club"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	membershipColumns = `id, user_id, club_id, personal_statement, application_status, user_type,
		highest_elo_rating, lowest_elo_rating, created_at`

	createClubQuery = `INSERT INTO clubs (id, name, owner_id, location, mission_statement, description, created_at)
		VALUES (:id, :name, :owner_id, :location, :mission_statement, :description, :created_at)`
	createMembershipQuery = `INSERT INTO memberships (` + membershipColumns + `)
		VALUES (:id, :user_id, :club_id, :personal_statement, :application_status, :user_type,
		:highest_elo_rating, :lowest_elo_rating, :created_at)`
	updateEloWatermarksQuery = `UPDATE memberships SET
		highest_elo_rating = :highest_elo_rating,
		lowest_elo_rating = :lowest_elo_rating
		WHERE id = :id`
)

type ClubStore struct {
	db *sqlx.DB
}

func NewClubStore(db *sqlx.DB) *ClubStore {
	return &ClubStore{db: db}
}

func (s *ClubStore) CreateClub(ctx context.Context, q sqlx.ExtContext, c *club.Club) error {
	_, err := sqlx.NamedExecContext(ctx, q, createClubQuery, c)
	return err
}

func (s *ClubStore) GetClub(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*club.Club, error) {
	var c club.Club
	err := sqlx.GetContext(ctx, q, &c,
		`SELECT id, name, owner_id, location, mission_statement, description, created_at FROM clubs WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *ClubStore) CreateMembership(ctx context.Context, q sqlx.ExtContext, m *club.Membership) error {
	_, err := sqlx.NamedExecContext(ctx, q, createMembershipQuery, m)
	return err
}

// GetMembership returns sql.ErrNoRows when the user never applied to the club.
func (s *ClubStore) GetMembership(ctx context.Context, q sqlx.ExtContext, userID, clubID uuid.UUID) (*club.Membership, error) {
	var m club.Membership
	err := sqlx.GetContext(ctx, q, &m,
		`SELECT `+membershipColumns+` FROM memberships WHERE user_id = ? AND club_id = ?`, userID, clubID)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *ClubStore) UpdateEloWatermarks(ctx context.Context, q sqlx.ExtContext, m *club.Membership) error {
	res, err := sqlx.NamedExecContext(ctx, q, updateEloWatermarksQuery, m)
	if err != nil {
		return err
	}
	return checkAffectedRows(res)
}
