package service

import (
	"context"
	"fmt"

	"github.com/AdamBeresnev/op-chess-club/internal/bracket"
	"github.com/AdamBeresnev/op-chess-club/internal/club"
	"github.com/AdamBeresnev/op-chess-club/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	msgJoinClosed     = "You cannot join the tournament once the sign-up deadline has passed."
	msgNotAMember     = "You are not a member of this club, you cannot join the tournament."
	msgIsOrganizer    = "You are organizing this tournament, you cannot join it."
	msgFull           = "This tournament has reached max capacity, you cannot join it."
	msgAlreadyJoined  = "You are already signed up to this tournament."
	msgLeaveClosed    = "You cannot leave the tournament once the sign-up deadline has passed."
	msgNotSignedUp    = "You are not signed-up for this tournament."
	msgNotOrganizer   = "Only the organizers of this tournament can cancel it."
	msgAlreadyStarted = "You cannot cancel a tournament once it has started."
)

// ParticipationService guards signing up to, leaving and cancelling tournaments. Each
// operation returns an empty message on success, otherwise the reason it was refused.
type ParticipationService struct {
	db    *sqlx.DB
	store *store.TournamentStore
	clubs *ClubService
	clock clockwork.Clock
}

func NewParticipationService(db *sqlx.DB, store *store.TournamentStore, clubs *ClubService, clock clockwork.Clock) *ParticipationService {
	return &ParticipationService{db: db, store: store, clubs: clubs, clock: clock}
}

func (s *ParticipationService) Join(ctx context.Context, tournamentID, userID uuid.UUID) (string, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	tournament, err := s.store.GetTournament(ctx, tx, tournamentID)
	if err != nil {
		return "", err
	}

	now := s.clock.Now()
	if !tournament.SignupsOpen(now) {
		return msgJoinClosed, nil
	}

	membership, err := s.clubs.GetMembership(ctx, tx, userID, tournament.ClubID)
	if err != nil {
		return "", fmt.Errorf("failed to get membership: %w", err)
	}
	if !club.GrantsAtLeast(membership, club.Member) {
		return msgNotAMember, nil
	}

	if tournament.IsOrganizer(userID) {
		return msgIsOrganizer, nil
	}

	count, err := s.store.CountParticipants(ctx, tx, tournamentID)
	if err != nil {
		return "", fmt.Errorf("failed to count participants: %w", err)
	}
	if tournament.IsFull(count) {
		return msgFull, nil
	}

	joined, err := s.store.HasParticipation(ctx, tx, tournamentID, userID)
	if err != nil {
		return "", err
	}
	if joined {
		return msgAlreadyJoined, nil
	}

	participation := bracket.Participation{
		ID:           uuid.New(),
		TournamentID: tournamentID,
		UserID:       userID,
		CreatedAt:    now.UTC(),
	}
	if err := s.store.CreateParticipation(ctx, tx, &participation); err != nil {
		return "", fmt.Errorf("failed to create participation: %w", err)
	}

	log.Debug().
		Str("tournament_id", tournamentID.String()).
		Str("user_id", userID.String()).
		Int("participants", count+1).
		Msg("user joined tournament")
	return "", tx.Commit()
}

func (s *ParticipationService) Leave(ctx context.Context, tournamentID, userID uuid.UUID) (string, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	tournament, err := s.store.GetTournament(ctx, tx, tournamentID)
	if err != nil {
		return "", err
	}
	if !tournament.SignupsOpen(s.clock.Now()) {
		return msgLeaveClosed, nil
	}

	deleted, err := s.store.DeleteParticipation(ctx, tx, tournamentID, userID)
	if err != nil {
		return "", fmt.Errorf("failed to delete participation: %w", err)
	}
	if !deleted {
		return msgNotSignedUp, nil
	}

	log.Debug().
		Str("tournament_id", tournamentID.String()).
		Str("user_id", userID.String()).
		Msg("user left tournament")
	return "", tx.Commit()
}

// Cancel deletes a tournament that has not started yet, along with everything attached to it.
func (s *ParticipationService) Cancel(ctx context.Context, tournamentID, userID uuid.UUID) (string, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	tournament, err := s.store.GetTournament(ctx, tx, tournamentID)
	if err != nil {
		return "", err
	}
	if !tournament.IsOrganizer(userID) {
		return msgNotOrganizer, nil
	}
	if !tournament.Stage.NotStarted() {
		return msgAlreadyStarted, nil
	}

	if err := s.store.DeleteTournament(ctx, tx, tournamentID); err != nil {
		return "", fmt.Errorf("failed to delete tournament: %w", err)
	}

	log.Info().
		Str("tournament_id", tournamentID.String()).
		Str("user_id", userID.String()).
		Msg("tournament cancelled")
	return "", tx.Commit()
}
