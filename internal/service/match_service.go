package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/AdamBeresnev/op-chess-club/internal/bracket"
	"github.com/AdamBeresnev/op-chess-club/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

type MatchService struct {
	db    *sqlx.DB
	store *store.TournamentStore
	clock clockwork.Clock
}

func NewMatchService(db *sqlx.DB, store *store.TournamentStore, clock clockwork.Clock) *MatchService {
	return &MatchService{db: db, store: store, clock: clock}
}

// RecordResult stores the outcome of a match on behalf of an organizer. Recording the same
// outcome again only refreshes the result date.
func (s *MatchService) RecordResult(ctx context.Context, matchID, userID uuid.UUID, outcome bracket.Result) (*bracket.Match, string, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, "", err
	}
	defer tx.Rollback()

	match, err := s.store.GetMatch(ctx, tx, matchID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get match: %w", err)
	}

	tournament, err := s.store.GetTournament(ctx, tx, match.TournamentID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get tournament: %w", err)
	}
	if !tournament.IsOrganizer(userID) {
		return match, "Only the organizers of this tournament can record results.", nil
	}
	if !tournament.Stage.Playing() {
		return match, "Results can only be recorded while the tournament is in progress.", nil
	}

	if err := match.SetResult(outcome, s.clock.Now()); err != nil {
		if errors.Is(err, bracket.ErrResultFinal) {
			return match, "This match already has a final result.", nil
		}
		return nil, "", err
	}

	if err := s.store.UpdateMatchResult(ctx, tx, match); err != nil {
		return nil, "", fmt.Errorf("failed to update match: %w", err)
	}

	log.Info().
		Str("match_id", match.ID.String()).
		Str("tournament_id", match.TournamentID.String()).
		Str("result", string(match.Result)).
		Msg("match result recorded")
	return match, "", tx.Commit()
}
