package service

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/AdamBeresnev/op-chess-club/internal/bracket"
	"github.com/AdamBeresnev/op-chess-club/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type BracketBuilder struct {
	store *store.TournamentStore
	rules Rules
}

func NewBracketBuilder(store *store.TournamentStore, rules Rules) *BracketBuilder {
	return &BracketBuilder{store: store, rules: rules}
}

// Round is one batch of groups and matches produced by the builder. A rescheduled round
// only replays matches inside an existing group and has no groups of its own.
type Round struct {
	Stage       bracket.Stage
	Phase       int
	Groups      []bracket.Group
	Matches     []bracket.Match
	Rescheduled bool
	Bye         *uuid.UUID
	Dropped     []uuid.UUID
}

// NextElimination builds the next elimination round. It returns nil when there are not
// enough players to pair anyone.
func (b *BracketBuilder) NextElimination(ctx context.Context, q sqlx.ExtContext, t *bracket.Tournament, now time.Time) (*Round, error) {
	latest, err := b.store.LatestGroups(ctx, q, t.ID, bracket.StageElimination)
	if err != nil {
		return nil, fmt.Errorf("failed to get elimination groups: %w", err)
	}

	if len(latest) == 0 {
		players, prior, err := b.eliminationSeeds(ctx, q, t)
		if err != nil {
			return nil, err
		}
		if len(players) < 2 {
			return nil, nil
		}
		return b.eliminationRound(t, 0, players, prior, now), nil
	}

	if len(latest) != 1 {
		return nil, fmt.Errorf("%w: %d elimination groups in phase %d", ErrCorruptState, len(latest), latest[0].Phase)
	}
	group := latest[0]

	matches, err := b.store.GetPhaseMatches(ctx, q, t.ID, bracket.StageElimination, group.Phase)
	if err != nil {
		return nil, fmt.Errorf("failed to get elimination matches: %w", err)
	}

	outcome := resolveEliminationPhase(group, matches)
	if len(outcome.replays) > 0 {
		round := &Round{Stage: bracket.StageElimination, Phase: group.Phase, Rescheduled: true}
		for _, m := range outcome.replays {
			round.Matches = append(round.Matches, bracket.Match{
				ID:            uuid.New(),
				TournamentID:  t.ID,
				GroupID:       m.GroupID,
				WhitePlayerID: m.WhitePlayerID,
				BlackPlayerID: m.BlackPlayerID,
				Result:        bracket.ResultPending,
				Stage:         bracket.StageElimination,
				MatchOrder:    m.MatchOrder,
				CreatedAt:     now,
			})
		}
		return round, nil
	}

	// One player left, or none when deleted accounts took the winners with them: the stage
	// check finishes the tournament.
	if len(outcome.advancing) < 2 {
		return nil, nil
	}
	return b.eliminationRound(t, group.Phase+1, outcome.advancing, nil, now), nil
}

// eliminationSeeds returns the players of the first elimination phase: the qualifiers of the
// last group-stage phase if there was one, the participants in signup order otherwise.
func (b *BracketBuilder) eliminationSeeds(ctx context.Context, q sqlx.ExtContext, t *bracket.Tournament) ([]uuid.UUID, []bracket.Group, error) {
	groups, err := b.store.LatestGroups(ctx, q, t.ID, bracket.StageGroupStages)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get group-stage groups: %w", err)
	}

	if len(groups) == 0 {
		players, err := b.store.GetParticipants(ctx, q, t.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get participants: %w", err)
		}
		return players, nil, nil
	}

	matches, err := b.store.GetPhaseMatches(ctx, q, t.ID, bracket.StageGroupStages, groups[0].Phase)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get group-stage matches: %w", err)
	}
	players, err := qualifiers(groups, matches, b.rules.QualifiersPerGroup)
	if err != nil {
		return nil, nil, err
	}
	return players, groups, nil
}

func (b *BracketBuilder) eliminationRound(t *bracket.Tournament, phase int, players []uuid.UUID, prior []bracket.Group, now time.Time) *Round {
	group := bracket.Group{
		ID:           uuid.New(),
		TournamentID: t.ID,
		Stage:        bracket.StageElimination,
		Phase:        phase,
		CreatedAt:    now,
		Players:      players,
	}

	pairs, bye := pairPlayers(players, prior)
	round := &Round{
		Stage:  bracket.StageElimination,
		Phase:  phase,
		Groups: []bracket.Group{group},
		Bye:    bye,
	}
	for i, pair := range pairs {
		round.Matches = append(round.Matches, newMatch(t.ID, group, pair, i, now))
	}
	return round
}

// NextGroupStage builds the next group-stage phase from the participants, or from the
// qualifiers of the previous phase. It returns nil when no full group can be formed.
func (b *BracketBuilder) NextGroupStage(ctx context.Context, q sqlx.ExtContext, t *bracket.Tournament, now time.Time) (*Round, error) {
	latest, err := b.store.LatestGroups(ctx, q, t.ID, bracket.StageGroupStages)
	if err != nil {
		return nil, fmt.Errorf("failed to get group-stage groups: %w", err)
	}

	phase := 0
	var players []uuid.UUID
	if len(latest) == 0 {
		players, err = b.store.GetParticipants(ctx, q, t.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get participants: %w", err)
		}
	} else {
		phase = latest[0].Phase + 1
		matches, err := b.store.GetPhaseMatches(ctx, q, t.ID, bracket.StageGroupStages, latest[0].Phase)
		if err != nil {
			return nil, fmt.Errorf("failed to get group-stage matches: %w", err)
		}
		if players, err = qualifiers(latest, matches, b.rules.QualifiersPerGroup); err != nil {
			return nil, err
		}
	}

	chunks, dropped := partitionGroups(players, b.rules.groupSize(len(players)))
	if len(chunks) == 0 {
		return nil, nil
	}

	round := &Round{Stage: bracket.StageGroupStages, Phase: phase, Dropped: dropped}
	for i, chunk := range chunks {
		group := bracket.Group{
			ID:           uuid.New(),
			TournamentID: t.ID,
			Stage:        bracket.StageGroupStages,
			Phase:        phase,
			Label:        bracket.GroupLabel(i),
			CreatedAt:    now,
			Players:      chunk,
		}
		round.Groups = append(round.Groups, group)
		for j, pair := range roundRobinPairs(chunk) {
			round.Matches = append(round.Matches, newMatch(t.ID, group, pair, j, now))
		}
	}
	return round, nil
}

// CompetingPlayers counts the players of the latest group-stage phase. ok is false when
// no group stage has been played.
func (b *BracketBuilder) CompetingPlayers(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) (count int, ok bool, err error) {
	groups, err := b.store.LatestGroups(ctx, q, tournamentID, bracket.StageGroupStages)
	if err != nil {
		return 0, false, err
	}
	for _, g := range groups {
		count += len(g.Players)
	}
	return count, len(groups) > 0, nil
}

// Save persists the groups of the round before its matches.
func (b *BracketBuilder) Save(ctx context.Context, q sqlx.ExtContext, round *Round) error {
	for i := range round.Groups {
		if err := b.store.CreateGroup(ctx, q, &round.Groups[i]); err != nil {
			return fmt.Errorf("failed to create group: %w", err)
		}
	}
	if err := b.store.CreateMatches(ctx, q, round.Matches); err != nil {
		return fmt.Errorf("failed to create matches: %w", err)
	}
	return nil
}

func newMatch(tournamentID uuid.UUID, group bracket.Group, pair [2]uuid.UUID, order int, now time.Time) bracket.Match {
	groupID := group.ID
	white, black := pair[0], pair[1]
	return bracket.Match{
		ID:            uuid.New(),
		TournamentID:  tournamentID,
		GroupID:       &groupID,
		WhitePlayerID: &white,
		BlackPlayerID: &black,
		Result:        bracket.ResultPending,
		Stage:         group.Stage,
		MatchOrder:    order,
		CreatedAt:     now,
	}
}

// pairPlayers sets the last player aside as the bye when the count is odd, interleaves the
// rest across the prior groups and pairs them first with second, third with fourth...
func pairPlayers(players []uuid.UUID, prior []bracket.Group) ([][2]uuid.UUID, *uuid.UUID) {
	var bye *uuid.UUID
	if len(players)%2 == 1 {
		last := players[len(players)-1]
		bye = &last
		players = players[:len(players)-1]
	}

	ordered := interleave(players, prior)
	pairs := make([][2]uuid.UUID, 0, len(ordered)/2)
	for i := 0; i+1 < len(ordered); i += 2 {
		pairs = append(pairs, [2]uuid.UUID{ordered[i], ordered[i+1]})
	}
	return pairs, bye
}

// interleave takes one player from each prior group in turn so that players from the same
// group meet as late as possible. Within a group players keep their order in players.
func interleave(players []uuid.UUID, prior []bracket.Group) []uuid.UUID {
	if len(prior) < 2 {
		return players
	}

	columns := make([][]uuid.UUID, len(prior))
	var outside []uuid.UUID
	for _, p := range players {
		idx := slices.IndexFunc(prior, func(g bracket.Group) bool { return g.Has(p) })
		if idx < 0 {
			outside = append(outside, p)
			continue
		}
		columns[idx] = append(columns[idx], p)
	}

	longest := 0
	for _, column := range columns {
		longest = max(longest, len(column))
	}

	ordered := make([]uuid.UUID, 0, len(players))
	for row := 0; row < longest; row++ {
		for _, column := range columns {
			if row < len(column) {
				ordered = append(ordered, column[row])
			}
		}
	}
	return append(ordered, outside...)
}

// partitionGroups cuts players into consecutive groups of size. The players left over
// after the last full group are returned separately.
func partitionGroups(players []uuid.UUID, size int) ([][]uuid.UUID, []uuid.UUID) {
	if size <= 0 {
		return nil, players
	}
	count := len(players) / size
	groups := make([][]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		groups = append(groups, players[i*size:(i+1)*size])
	}
	return groups, players[count*size:]
}

// roundRobinPairs lists every pair of the group once, the earlier seed playing white.
func roundRobinPairs(players []uuid.UUID) [][2]uuid.UUID {
	var pairs [][2]uuid.UUID
	for i := 0; i < len(players); i++ {
		for j := i + 1; j < len(players); j++ {
			pairs = append(pairs, [2]uuid.UUID{players[i], players[j]})
		}
	}
	return pairs
}

// rankGroup orders the players of the group by their total award, highest first. Equal
// totals keep the seeding order.
func rankGroup(group bracket.Group, matches []bracket.Match) ([]uuid.UUID, error) {
	totals := make(map[uuid.UUID]float64, len(group.Players))
	for i := range matches {
		m := &matches[i]
		if m.GroupID == nil || *m.GroupID != group.ID || m.Result == bracket.ResultPending {
			continue
		}
		for _, p := range []*uuid.UUID{m.WhitePlayerID, m.BlackPlayerID} {
			if p == nil || !group.Has(*p) {
				continue
			}
			award, err := m.AwardFor(*p)
			if err != nil {
				return nil, fmt.Errorf("failed to score match %s: %w", m.ID, err)
			}
			totals[*p] += award
		}
	}

	ranked := slices.Clone(group.Players)
	sort.SliceStable(ranked, func(i, j int) bool {
		return totals[ranked[i]] > totals[ranked[j]]
	})
	return ranked, nil
}

// qualifiers returns the top n players of every group, group by group.
func qualifiers(groups []bracket.Group, matches []bracket.Match, n int) ([]uuid.UUID, error) {
	var players []uuid.UUID
	for _, g := range groups {
		ranked, err := rankGroup(g, matches)
		if err != nil {
			return nil, err
		}
		players = append(players, ranked[:min(n, len(ranked))]...)
	}
	return players, nil
}

type phaseOutcome struct {
	advancing []uuid.UUID
	replays   []bracket.Match
}

// resolveEliminationPhase works out who advances from an elimination phase. A match without
// a decisive result is replayed unless the same two players already settled it in another
// match. Players who won, and players who had no match at all, advance in seeding order.
// Nobody advances from a match won by a deleted account; an undecided match against a
// deleted account is a walkover for the remaining player.
func resolveEliminationPhase(group bracket.Group, matches []bracket.Match) phaseOutcome {
	var outcome phaseOutcome
	played := make(map[uuid.UUID]bool)
	settledFor := make(map[uuid.UUID]bool)
	winners := make(map[uuid.UUID]bool)
	var walkovers []uuid.UUID

	for i := range matches {
		m := &matches[i]
		for _, p := range []*uuid.UUID{m.WhitePlayerID, m.BlackPlayerID} {
			if p != nil {
				played[*p] = true
			}
		}

		if m.Result.Decisive() {
			for _, p := range []*uuid.UUID{m.WhitePlayerID, m.BlackPlayerID} {
				if p != nil {
					settledFor[*p] = true
				}
			}
			if w := m.Winner(); w != nil {
				winners[*w] = true
			}
			continue
		}

		if remaining, ok := walkoverPlayer(m); ok {
			if remaining != nil {
				walkovers = append(walkovers, *remaining)
			}
			continue
		}

		settled := slices.ContainsFunc(matches, func(other bracket.Match) bool {
			return other.Result.Decisive() && m.SamePairing(&other)
		})
		replayed := slices.ContainsFunc(outcome.replays, func(other bracket.Match) bool {
			return m.SamePairing(&other)
		})
		if !settled && !replayed {
			outcome.replays = append(outcome.replays, *m)
		}
	}

	for _, p := range walkovers {
		if !settledFor[p] {
			winners[p] = true
		}
	}

	for _, p := range group.Players {
		if winners[p] || !played[p] {
			outcome.advancing = append(outcome.advancing, p)
		}
	}
	return outcome
}

// walkoverPlayer reports whether the match lost a player to a deleted account, and returns
// the player still in it, nil when both accounts are gone.
func walkoverPlayer(m *bracket.Match) (*uuid.UUID, bool) {
	for _, p := range []*uuid.UUID{m.WhitePlayerID, m.BlackPlayerID} {
		if p == nil {
			continue
		}
		opponent, err := m.Opponent(*p)
		if err != nil || opponent != nil {
			return nil, false
		}
		return p, true
	}
	return nil, true
}
