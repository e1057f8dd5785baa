package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/AdamBeresnev/op-chess-club/internal/club"
	"github.com/AdamBeresnev/op-chess-club/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type ClubService struct {
	db    *sqlx.DB
	store *store.ClubStore
}

func NewClubService(db *sqlx.DB, store *store.ClubStore) *ClubService {
	return &ClubService{db: db, store: store}
}

// GetMembership returns nil without an error when the user never applied to the club.
func (s *ClubService) GetMembership(ctx context.Context, q sqlx.ExtContext, userID, clubID uuid.UUID) (*club.Membership, error) {
	m, err := s.store.GetMembership(ctx, q, userID, clubID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

func (s *ClubService) GetClub(ctx context.Context, clubID uuid.UUID) (*club.Club, error) {
	return s.store.GetClub(ctx, s.db, clubID)
}
