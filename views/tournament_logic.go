package views

import (
	"sort"

	"github.com/AdamBeresnev/op-chess-club/internal/bracket"
	"github.com/google/uuid"
)

// RoundData is one phase of a stage with its groups in label order.
type RoundData struct {
	Stage  bracket.Stage
	Phase  int
	Groups []GroupData
}

type GroupData struct {
	Group   bracket.Group
	Matches []bracket.Match
}

// PrepareBracketData arranges groups and matches by round for display: group stages
// first, then elimination, each in phase order.
func PrepareBracketData(groups []bracket.Group, matches []bracket.Match) []RoundData {
	byGroup := make(map[uuid.UUID][]bracket.Match)
	for _, m := range matches {
		if m.GroupID != nil {
			byGroup[*m.GroupID] = append(byGroup[*m.GroupID], m)
		}
	}

	type roundKey struct {
		stage bracket.Stage
		phase int
	}
	index := make(map[roundKey]int)
	var rounds []RoundData

	for _, g := range groups {
		key := roundKey{g.Stage, g.Phase}
		i, ok := index[key]
		if !ok {
			i = len(rounds)
			index[key] = i
			rounds = append(rounds, RoundData{Stage: g.Stage, Phase: g.Phase})
		}
		groupMatches := byGroup[g.ID]
		sortMatches(groupMatches)
		rounds[i].Groups = append(rounds[i].Groups, GroupData{Group: g, Matches: groupMatches})
	}

	sort.SliceStable(rounds, func(i, j int) bool {
		if rounds[i].Stage != rounds[j].Stage {
			return rounds[i].Stage == bracket.StageGroupStages
		}
		return rounds[i].Phase < rounds[j].Phase
	})
	for _, r := range rounds {
		sort.SliceStable(r.Groups, func(i, j int) bool {
			a, b := r.Groups[i].Group.Label, r.Groups[j].Group.Label
			if len(a) != len(b) {
				return len(a) < len(b)
			}
			return a < b
		})
	}
	return rounds
}

func sortMatches(matches []bracket.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.Before(matches[j].CreatedAt)
		}
		return matches[i].MatchOrder < matches[j].MatchOrder
	})
}
