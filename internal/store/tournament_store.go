package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AdamBeresnev/op-chess-club/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	tournamentColumns = `id, club_id, organizer_id, name, description, date, deadline, capacity, stage, created_at`
	groupColumns      = `id, tournament_id, stage, phase, label, created_at`
	matchColumns      = `id, tournament_id, group_id, white_player_id, black_player_id, result, result_date, stage, match_order, created_at`

	createTournamentQuery = `INSERT INTO tournaments (` + tournamentColumns + `)
		VALUES (:id, :club_id, :organizer_id, :name, :description, :date, :deadline, :capacity, :stage, :created_at)`
	createParticipationQuery = `INSERT INTO participations (id, tournament_id, user_id, created_at)
		VALUES (:id, :tournament_id, :user_id, :created_at)`
	createGroupQuery = `INSERT INTO tournament_groups (` + groupColumns + `)
		VALUES (:id, :tournament_id, :stage, :phase, :label, :created_at)`
	createMatchQuery = `INSERT INTO matches (` + matchColumns + `)
		VALUES (:id, :tournament_id, :group_id, :white_player_id, :black_player_id, :result, :result_date, :stage, :match_order, :created_at)`
)

type TournamentStore struct {
	db *sqlx.DB
}

func NewTournamentStore(db *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: db}
}

func (s *TournamentStore) CreateTournament(ctx context.Context, q sqlx.ExtContext, tournament *bracket.Tournament) error {
	if _, err := sqlx.NamedExecContext(ctx, q, createTournamentQuery, tournament); err != nil {
		return err
	}
	for _, userID := range tournament.Coorganizers {
		if _, err := q.ExecContext(ctx, `INSERT INTO tournament_coorganizers (tournament_id, user_id) VALUES (?, ?)`,
			tournament.ID, userID); err != nil {
			return err
		}
	}
	return nil
}

// GetTournament loads the tournament with its co-organizers.
func (s *TournamentStore) GetTournament(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*bracket.Tournament, error) {
	var tournament bracket.Tournament
	err := sqlx.GetContext(ctx, q, &tournament, `SELECT `+tournamentColumns+` FROM tournaments WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}

	err = sqlx.SelectContext(ctx, q, &tournament.Coorganizers,
		`SELECT user_id FROM tournament_coorganizers WHERE tournament_id = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get co-organizers: %w", err)
	}
	return &tournament, nil
}

func (s *TournamentStore) NameTaken(ctx context.Context, q sqlx.ExtContext, name string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, q, &exists, `SELECT EXISTS (SELECT 1 FROM tournaments WHERE name = ?)`, name)
	return exists, err
}

func (s *TournamentStore) GetTournamentsByClub(ctx context.Context, q sqlx.ExtContext, clubID uuid.UUID) ([]bracket.Tournament, error) {
	var tournaments []bracket.Tournament
	err := sqlx.SelectContext(ctx, q, &tournaments,
		`SELECT `+tournamentColumns+` FROM tournaments WHERE club_id = ? ORDER BY created_at DESC`, clubID)
	return tournaments, err
}

func (s *TournamentStore) UpdateStage(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, stage bracket.Stage) error {
	res, err := q.ExecContext(ctx, `UPDATE tournaments SET stage = ? WHERE id = ?`, stage, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(res)
}

// DeleteTournament removes the tournament, cascading to participations, groups and matches.
func (s *TournamentStore) DeleteTournament(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) error {
	res, err := q.ExecContext(ctx, `DELETE FROM tournaments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(res)
}

func (s *TournamentStore) CountParticipants(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, q, &count, `SELECT COUNT(*) FROM participations WHERE tournament_id = ?`, tournamentID)
	return count, err
}

// GetParticipants returns the signed up user IDs in signup order.
func (s *TournamentStore) GetParticipants(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := sqlx.SelectContext(ctx, q, &ids,
		`SELECT user_id FROM participations WHERE tournament_id = ? ORDER BY created_at ASC, rowid ASC`, tournamentID)
	return ids, err
}

func (s *TournamentStore) HasParticipation(ctx context.Context, q sqlx.ExtContext, tournamentID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, q, &exists,
		`SELECT EXISTS (SELECT 1 FROM participations WHERE tournament_id = ? AND user_id = ?)`, tournamentID, userID)
	return exists, err
}

func (s *TournamentStore) CreateParticipation(ctx context.Context, q sqlx.ExtContext, p *bracket.Participation) error {
	_, err := sqlx.NamedExecContext(ctx, q, createParticipationQuery, p)
	return err
}

// DeleteParticipation reports false when there was nothing to delete.
func (s *TournamentStore) DeleteParticipation(ctx context.Context, q sqlx.ExtContext, tournamentID, userID uuid.UUID) (bool, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM participations WHERE tournament_id = ? AND user_id = ?`, tournamentID, userID)
	if err != nil {
		return false, err
	}
	if err := checkAffectedRows(res); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateGroup inserts the group and its players, keeping the slice order as position.
func (s *TournamentStore) CreateGroup(ctx context.Context, q sqlx.ExtContext, group *bracket.Group) error {
	if _, err := sqlx.NamedExecContext(ctx, q, createGroupQuery, group); err != nil {
		return err
	}
	for i, userID := range group.Players {
		if _, err := q.ExecContext(ctx, `INSERT INTO group_players (group_id, user_id, position) VALUES (?, ?, ?)`,
			group.ID, userID, i); err != nil {
			return err
		}
	}
	return nil
}

// LatestGroups returns every group of the highest phase recorded for the given stage kind,
// ordered by label, with their players. An empty slice means no phase was played yet.
func (s *TournamentStore) LatestGroups(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID, stage bracket.Stage) ([]bracket.Group, error) {
	var phase sql.NullInt64
	err := sqlx.GetContext(ctx, q, &phase,
		`SELECT MAX(phase) FROM tournament_groups WHERE tournament_id = ? AND stage = ?`, tournamentID, stage)
	if err != nil {
		return nil, err
	}
	if !phase.Valid {
		return nil, nil
	}
	return s.GetGroups(ctx, q, tournamentID, stage, int(phase.Int64))
}

func (s *TournamentStore) GetGroups(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID, stage bracket.Stage, phase int) ([]bracket.Group, error) {
	var groups []bracket.Group
	err := sqlx.SelectContext(ctx, q, &groups,
		`SELECT `+groupColumns+` FROM tournament_groups
		WHERE tournament_id = ? AND stage = ? AND phase = ?
		ORDER BY length(label), label, rowid`, tournamentID, stage, phase)
	if err != nil {
		return nil, err
	}
	if err := s.loadPlayers(ctx, q, groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// GetAllGroups returns every group of the tournament ordered for display.
func (s *TournamentStore) GetAllGroups(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) ([]bracket.Group, error) {
	var groups []bracket.Group
	err := sqlx.SelectContext(ctx, q, &groups,
		`SELECT `+groupColumns+` FROM tournament_groups WHERE tournament_id = ?
		ORDER BY created_at, stage, phase, length(label), label`, tournamentID)
	if err != nil {
		return nil, err
	}
	if err := s.loadPlayers(ctx, q, groups); err != nil {
		return nil, err
	}
	return groups, nil
}

type groupPlayer struct {
	GroupID uuid.UUID `db:"group_id"`
	UserID  uuid.UUID `db:"user_id"`
}

func (s *TournamentStore) loadPlayers(ctx context.Context, q sqlx.ExtContext, groups []bracket.Group) error {
	if len(groups) == 0 {
		return nil
	}
	index := make(map[uuid.UUID]*bracket.Group, len(groups))
	for i := range groups {
		index[groups[i].ID] = &groups[i]
	}

	var rows []groupPlayer
	err := sqlx.SelectContext(ctx, q, &rows,
		`SELECT gp.group_id, gp.user_id FROM group_players gp
		JOIN tournament_groups g ON g.id = gp.group_id
		WHERE g.tournament_id = ?
		ORDER BY gp.position`, groups[0].TournamentID)
	if err != nil {
		return fmt.Errorf("failed to get group players: %w", err)
	}

	for _, row := range rows {
		if g, ok := index[row.GroupID]; ok {
			g.Players = append(g.Players, row.UserID)
		}
	}
	return nil
}

func (s *TournamentStore) CreateMatches(ctx context.Context, q sqlx.ExtContext, matches []bracket.Match) error {
	if len(matches) == 0 {
		return nil
	}
	for i := range matches {
		if _, err := sqlx.NamedExecContext(ctx, q, createMatchQuery, &matches[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *TournamentStore) GetMatch(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*bracket.Match, error) {
	var match bracket.Match
	err := sqlx.GetContext(ctx, q, &match, `SELECT `+matchColumns+` FROM matches WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *TournamentStore) GetMatches(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := sqlx.SelectContext(ctx, q, &matches,
		`SELECT `+matchColumns+` FROM matches WHERE tournament_id = ? ORDER BY created_at, match_order, rowid`, tournamentID)
	return matches, err
}

// GetPhaseMatches returns the matches of every group in one phase of a stage kind.
func (s *TournamentStore) GetPhaseMatches(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID, stage bracket.Stage, phase int) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := sqlx.SelectContext(ctx, q, &matches,
		`SELECT m.id, m.tournament_id, m.group_id, m.white_player_id, m.black_player_id, m.result,
			m.result_date, m.stage, m.match_order, m.created_at
		FROM matches m
		JOIN tournament_groups g ON g.id = m.group_id
		WHERE g.tournament_id = ? AND g.stage = ? AND g.phase = ?
		ORDER BY m.created_at, m.match_order, m.rowid`, tournamentID, stage, phase)
	return matches, err
}

func (s *TournamentStore) PendingMatches(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := sqlx.SelectContext(ctx, q, &matches,
		`SELECT `+matchColumns+` FROM matches WHERE tournament_id = ? AND result = ? ORDER BY created_at, match_order, rowid`,
		tournamentID, bracket.ResultPending)
	return matches, err
}

func (s *TournamentStore) UpdateMatchResult(ctx context.Context, q sqlx.ExtContext, match *bracket.Match) error {
	res, err := sqlx.NamedExecContext(ctx, q,
		`UPDATE matches SET result = :result, result_date = :result_date WHERE id = :id`, match)
	if err != nil {
		return err
	}
	return checkAffectedRows(res)
}

// GetDecidedClubMatches returns every match with a result in tournaments of the club, in
// the order the results were recorded.
func (s *TournamentStore) GetDecidedClubMatches(ctx context.Context, q sqlx.ExtContext, clubID uuid.UUID) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := sqlx.SelectContext(ctx, q, &matches,
		`SELECT m.id, m.tournament_id, m.group_id, m.white_player_id, m.black_player_id, m.result,
			m.result_date, m.stage, m.match_order, m.created_at
		FROM matches m
		JOIN tournaments t ON t.id = m.tournament_id
		WHERE t.club_id = ? AND m.result <> ? AND m.result_date IS NOT NULL
		ORDER BY m.result_date, m.rowid`, clubID, bracket.ResultPending)
	return matches, err
}
