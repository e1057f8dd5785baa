package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/AdamBeresnev/op-chess-club/internal/bracket"
	"github.com/AdamBeresnev/op-chess-club/internal/club"
	"github.com/AdamBeresnev/op-chess-club/internal/messages"
	"github.com/AdamBeresnev/op-chess-club/internal/store"
	users "github.com/AdamBeresnev/op-chess-club/internal/user"
	"github.com/AdamBeresnev/op-chess-club/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type TournamentService struct {
	db      *sqlx.DB
	store   *store.TournamentStore
	users   *store.UserStore
	clubs   *ClubService
	builder *BracketBuilder
	clock   clockwork.Clock
	rules   Rules
}

func NewTournamentService(db *sqlx.DB, store *store.TournamentStore, users *store.UserStore, clubs *ClubService, clock clockwork.Clock, rules Rules) *TournamentService {
	return &TournamentService{
		db:      db,
		store:   store,
		users:   users,
		clubs:   clubs,
		builder: NewBracketBuilder(store, rules),
		clock:   clock,
		rules:   rules,
	}
}

// CheckStageTransition advances the tournament through every stage whose condition holds
// right now and returns it with its current stage.
func (s *TournamentService) CheckStageTransition(ctx context.Context, tournamentID uuid.UUID) (*bracket.Tournament, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	tournament, err := s.store.GetTournament(ctx, tx, tournamentID)
	if err != nil {
		return nil, err
	}

	if err := s.checkStageTransition(ctx, tx, tournament); err != nil {
		return nil, err
	}
	return tournament, tx.Commit()
}

// checkStageTransition evaluates the rules in stage order, each against the stage the
// previous one left behind, so that one call can move through several stages.
func (s *TournamentService) checkStageTransition(ctx context.Context, tx *sqlx.Tx, t *bracket.Tournament) error {
	now := s.clock.Now()

	if t.Stage == bracket.StageSignupsOpen && t.DeadlinePassed(now) {
		if err := s.moveTo(ctx, tx, t, bracket.StageSignupsClosed); err != nil {
			return err
		}
	}

	if t.Stage == bracket.StageSignupsClosed && t.DatePassed(now) {
		count, err := s.store.CountParticipants(ctx, tx, t.ID)
		if err != nil {
			return fmt.Errorf("failed to count participants: %w", err)
		}
		next := bracket.StageGroupStages
		if count <= s.rules.EliminationThreshold {
			next = bracket.StageElimination
		}
		if err := s.moveTo(ctx, tx, t, next); err != nil {
			return err
		}
	}

	if t.Stage == bracket.StageGroupStages {
		pending, err := s.store.PendingMatches(ctx, tx, t.ID)
		if err != nil {
			return fmt.Errorf("failed to get pending matches: %w", err)
		}
		if len(pending) == 0 {
			competing, played, err := s.builder.CompetingPlayers(ctx, tx, t.ID)
			if err != nil {
				return fmt.Errorf("failed to count competing players: %w", err)
			}
			if played && competing <= s.rules.GroupStageThreshold {
				if err := s.moveTo(ctx, tx, t, bracket.StageElimination); err != nil {
					return err
				}
			}
		}
	}

	if t.Stage == bracket.StageElimination {
		decided, err := s.finalDecided(ctx, tx, t.ID)
		if err != nil {
			return err
		}
		if decided {
			if err := s.moveTo(ctx, tx, t, bracket.StageFinished); err != nil {
				return err
			}
		}
	}

	return nil
}

// finalDecided reports whether the latest elimination phase is fully played and leaves at
// most one player standing. This is stricter than finishing on any non-pending final: a
// drawn final is replayed, so it does not finish the tournament. Fewer than one winner is
// possible when deleted accounts won their matches.
func (s *TournamentService) finalDecided(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) (bool, error) {
	groups, err := s.store.LatestGroups(ctx, tx, tournamentID, bracket.StageElimination)
	if err != nil {
		return false, fmt.Errorf("failed to get elimination groups: %w", err)
	}
	if len(groups) != 1 {
		return false, nil
	}

	matches, err := s.store.GetPhaseMatches(ctx, tx, tournamentID, bracket.StageElimination, groups[0].Phase)
	if err != nil {
		return false, fmt.Errorf("failed to get final matches: %w", err)
	}
	if len(matches) == 0 {
		return false, nil
	}
	for _, m := range matches {
		if m.Result == bracket.ResultPending {
			return false, nil
		}
	}

	outcome := resolveEliminationPhase(groups[0], matches)
	return len(outcome.replays) == 0 && len(outcome.advancing) <= 1, nil
}

func (s *TournamentService) moveTo(ctx context.Context, tx *sqlx.Tx, t *bracket.Tournament, stage bracket.Stage) error {
	if err := s.store.UpdateStage(ctx, tx, t.ID, stage); err != nil {
		return fmt.Errorf("failed to update stage: %w", err)
	}
	log.Info().
		Str("tournament_id", t.ID.String()).
		Str("from", t.Stage.String()).
		Str("to", stage.String()).
		Msg("tournament stage changed")
	t.Stage = stage
	return nil
}

// GenerateMatches creates the next round of the tournament for an organizer. Refusals are
// reported through the level and message, the error is kept for failures.
func (s *TournamentService) GenerateMatches(ctx context.Context, tournamentID, userID uuid.UUID) (messages.Level, string, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return messages.Error, "", err
	}
	defer tx.Rollback()

	tournament, err := s.store.GetTournament(ctx, tx, tournamentID)
	if err != nil {
		return messages.Error, "", err
	}

	if !tournament.IsOrganizer(userID) {
		return messages.Error, "Only the organizers of this tournament can generate matches.", nil
	}

	if err := s.checkStageTransition(ctx, tx, tournament); err != nil {
		return messages.Error, "", err
	}

	switch {
	case tournament.Stage.NotStarted():
		// Stage changes made by the check above are kept.
		return messages.Warning, "The tournament has not started yet.", tx.Commit()
	case tournament.Stage == bracket.StageFinished:
		return messages.Warning, "The tournament has already finished.", tx.Commit()
	}

	pending, err := s.store.PendingMatches(ctx, tx, tournament.ID)
	if err != nil {
		return messages.Error, "", fmt.Errorf("failed to get pending matches: %w", err)
	}
	if len(pending) > 0 {
		return messages.Info, "Matches have already been generated.", tx.Commit()
	}

	now := s.clock.Now().UTC()
	var round *Round
	if tournament.Stage == bracket.StageElimination {
		round, err = s.builder.NextElimination(ctx, tx, tournament, now)
	} else {
		round, err = s.builder.NextGroupStage(ctx, tx, tournament, now)
	}
	if err != nil {
		return messages.Error, "", err
	}
	if round == nil {
		return messages.Warning, "There are not enough players to generate matches.", tx.Commit()
	}

	if err := s.builder.Save(ctx, tx, round); err != nil {
		return messages.Error, "", err
	}
	if err := tx.Commit(); err != nil {
		return messages.Error, "", err
	}

	s.logRound(tournament, round)

	if round.Rescheduled {
		return messages.Success, "Drawn matches have been rescheduled.", nil
	}
	return messages.Success, "Matches have been generated.", nil
}

func (s *TournamentService) logRound(t *bracket.Tournament, round *Round) {
	event := log.Info().
		Str("tournament_id", t.ID.String()).
		Str("stage", round.Stage.String()).
		Int("phase", round.Phase).
		Int("groups", len(round.Groups)).
		Int("matches", len(round.Matches))
	if round.Bye != nil {
		event = event.Str("bye", round.Bye.String())
	}
	if round.Rescheduled {
		event.Msg("drawn matches rescheduled")
	} else {
		event.Msg("round generated")
	}

	if len(round.Dropped) > 0 {
		log.Warn().
			Str("tournament_id", t.ID.String()).
			Int("phase", round.Phase).
			Int("dropped", len(round.Dropped)).
			Msg("players left out of the group stage")
	}
}

type CreateTournamentInput struct {
	ClubID       uuid.UUID
	OrganizerID  uuid.UUID
	Name         string
	Description  string
	Date         *time.Time
	Deadline     *time.Time
	Capacity     *int
	Coorganizers []uuid.UUID
}

// CreateTournament validates the input and creates the tournament with signups open. The
// message explains why the tournament was not created.
func (s *TournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (uuid.UUID, string, error) {
	name := strings.TrimSpace(input.Name)
	description := strings.TrimSpace(input.Description)
	switch {
	case name == "":
		return uuid.Nil, "A tournament needs a name.", nil
	case description == "":
		return uuid.Nil, "A tournament needs a description.", nil
	case input.Capacity != nil && *input.Capacity < 2:
		return uuid.Nil, "A tournament needs room for at least two players.", nil
	case input.Date != nil && input.Deadline != nil && !input.Deadline.Before(*input.Date):
		return uuid.Nil, "The sign-up deadline must be before the tournament date.", nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return uuid.Nil, "", err
	}
	defer tx.Rollback()

	membership, err := s.clubs.GetMembership(ctx, tx, input.OrganizerID, input.ClubID)
	if err != nil {
		return uuid.Nil, "", err
	}
	if !club.GrantsAtLeast(membership, club.Officer) {
		return uuid.Nil, "Only officers and the owner of the club can create tournaments.", nil
	}

	var coorganizers []uuid.UUID
	for _, userID := range input.Coorganizers {
		if userID == input.OrganizerID || slices.Contains(coorganizers, userID) {
			continue
		}
		m, err := s.clubs.GetMembership(ctx, tx, userID, input.ClubID)
		if err != nil {
			return uuid.Nil, "", err
		}
		if !club.GrantsAtLeast(m, club.Officer) {
			return uuid.Nil, "Co-organizers must be officers or the owner of the club.", nil
		}
		coorganizers = append(coorganizers, userID)
	}

	taken, err := s.store.NameTaken(ctx, tx, name)
	if err != nil {
		return uuid.Nil, "", err
	}
	if taken {
		return uuid.Nil, "A tournament with this name already exists.", nil
	}

	tournament := bracket.Tournament{
		ID:           uuid.New(),
		ClubID:       input.ClubID,
		OrganizerID:  input.OrganizerID,
		Name:         name,
		Description:  description,
		Date:         utils.UTC(input.Date),
		Deadline:     utils.UTC(input.Deadline),
		Capacity:     input.Capacity,
		Stage:        bracket.StageSignupsOpen,
		CreatedAt:    s.clock.Now().UTC(),
		Coorganizers: coorganizers,
	}
	if err := s.store.CreateTournament(ctx, tx, &tournament); err != nil {
		return uuid.Nil, "", fmt.Errorf("failed to create tournament: %w", err)
	}

	log.Info().
		Str("tournament_id", tournament.ID.String()).
		Str("club_id", tournament.ClubID.String()).
		Msg("tournament created")
	return tournament.ID, "", tx.Commit()
}

type TournamentData struct {
	Tournament   *bracket.Tournament
	Participants []uuid.UUID
	Groups       []bracket.Group
	Matches      []bracket.Match
	Users        map[uuid.UUID]users.User
	SignupsOpen  bool
	NotStarted   bool
}

// GetTournamentData checks the stage and loads everything the tournament dashboard shows.
func (s *TournamentService) GetTournamentData(ctx context.Context, tournamentID uuid.UUID) (*TournamentData, error) {
	tournament, err := s.CheckStageTransition(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	data := &TournamentData{
		Tournament:  tournament,
		SignupsOpen: tournament.SignupsOpen(s.clock.Now()),
		NotStarted:  tournament.Stage.NotStarted(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		participants, err := s.store.GetParticipants(gctx, s.db, tournamentID)
		data.Participants = participants
		return err
	})
	g.Go(func() error {
		groups, err := s.store.GetAllGroups(gctx, s.db, tournamentID)
		data.Groups = groups
		return err
	})
	g.Go(func() error {
		matches, err := s.store.GetMatches(gctx, s.db, tournamentID)
		data.Matches = matches
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ids := append([]uuid.UUID{tournament.OrganizerID}, tournament.Coorganizers...)
	ids = append(ids, data.Participants...)
	found, err := s.users.GetUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	data.Users = make(map[uuid.UUID]users.User, len(found))
	for _, u := range found {
		data.Users[u.ID] = u
	}
	return data, nil
}

func (s *TournamentService) GetTournament(ctx context.Context, tournamentID uuid.UUID) (*bracket.Tournament, error) {
	return s.store.GetTournament(ctx, s.db, tournamentID)
}

// GetClubTournaments lists the club's tournaments, newest first.
func (s *TournamentService) GetClubTournaments(ctx context.Context, clubID uuid.UUID) ([]bracket.Tournament, error) {
	return s.store.GetTournamentsByClub(ctx, s.db, clubID)
}
