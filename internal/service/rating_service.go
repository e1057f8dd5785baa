package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/AdamBeresnev/op-chess-club/internal/bracket"
	"github.com/AdamBeresnev/op-chess-club/internal/club"
	"github.com/AdamBeresnev/op-chess-club/internal/config"
	"github.com/AdamBeresnev/op-chess-club/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// RatingPoint is a rating and the result date it was reached at. The baseline has no date.
type RatingPoint struct {
	Rating float64
	At     *time.Time
}

type RatingService struct {
	db          *sqlx.DB
	tournaments *store.TournamentStore
	clubs       *store.ClubStore
	cfg         config.Rating
}

func NewRatingService(db *sqlx.DB, tournaments *store.TournamentStore, clubs *store.ClubStore, cfg config.Rating) *RatingService {
	return &RatingService{db: db, tournaments: tournaments, clubs: clubs, cfg: cfg}
}

// GetRatings replays the club's results up to asOf, or all of them when asOf is nil, and
// returns the member's rating after each of their matches. The stored highest and lowest
// ratings of the membership are widened to include the final rating.
func (s *RatingService) GetRatings(ctx context.Context, m *club.Membership, asOf *time.Time) ([]RatingPoint, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	matches, err := s.tournaments.GetDecidedClubMatches(ctx, tx, m.ClubID)
	if err != nil {
		return nil, fmt.Errorf("failed to get club matches: %w", err)
	}
	if asOf != nil {
		matches = decidedBy(matches, *asOf)
	}

	history, err := sweepRatings(matches, s.cfg.Baseline, s.cfg.KFactor)
	if err != nil {
		return nil, err
	}

	points, ok := history[m.UserID]
	if !ok {
		points = []RatingPoint{{Rating: s.cfg.Baseline}}
	}

	final := int(math.Round(points[len(points)-1].Rating))
	if m.TrackRating(final) {
		if err := s.clubs.UpdateEloWatermarks(ctx, tx, m); err != nil {
			return nil, fmt.Errorf("failed to update rating watermarks: %w", err)
		}
		log.Debug().
			Str("membership_id", m.ID.String()).
			Int("highest", m.HighestEloRating).
			Int("lowest", m.LowestEloRating).
			Msg("rating watermarks updated")
	}

	return points, tx.Commit()
}

func decidedBy(matches []bracket.Match, asOf time.Time) []bracket.Match {
	var kept []bracket.Match
	for _, m := range matches {
		if m.ResultDate != nil && !m.ResultDate.After(asOf) {
			kept = append(kept, m)
		}
	}
	return kept
}

// sweepRatings replays the matches in the given order and builds every player's rating
// history at once. Both players of a match are updated from their ratings before it.
func sweepRatings(matches []bracket.Match, baseline, k float64) (map[uuid.UUID][]RatingPoint, error) {
	history := make(map[uuid.UUID][]RatingPoint)
	current := func(id uuid.UUID) float64 {
		points, ok := history[id]
		if !ok {
			history[id] = []RatingPoint{{Rating: baseline}}
			return baseline
		}
		return points[len(points)-1].Rating
	}

	for i := range matches {
		m := &matches[i]
		if m.WhitePlayerID == nil || m.BlackPlayerID == nil || m.Result == bracket.ResultPending {
			continue
		}
		white, black := *m.WhitePlayerID, *m.BlackPlayerID

		whiteAward, err := m.AwardFor(white)
		if err != nil {
			return nil, fmt.Errorf("failed to score match %s: %w", m.ID, err)
		}
		blackAward, err := m.AwardFor(black)
		if err != nil {
			return nil, fmt.Errorf("failed to score match %s: %w", m.ID, err)
		}

		whiteRating, blackRating := current(white), current(black)
		history[white] = append(history[white], RatingPoint{
			Rating: eloUpdate(whiteRating, blackRating, whiteAward, k),
			At:     m.ResultDate,
		})
		history[black] = append(history[black], RatingPoint{
			Rating: eloUpdate(blackRating, whiteRating, blackAward, k),
			At:     m.ResultDate,
		})
	}
	return history, nil
}

func expectedScore(self, opponent float64) float64 {
	return 1 / (1 + math.Pow(10, (opponent-self)/400))
}

func eloUpdate(self, opponent, award, k float64) float64 {
	return self + k*(award-expectedScore(self, opponent))
}
