package service

import (
	"errors"

	"github.com/AdamBeresnev/op-chess-club/internal/config"
)

// ErrCorruptState marks a tournament whose groups or matches contradict its stage.
var ErrCorruptState = errors.New("corrupt tournament state")

// Rules holds the thresholds that decide stage transitions and group sizes.
type Rules struct {
	EliminationThreshold int
	GroupStageThreshold  int
	SmallGroupSize       int
	LargeGroupSize       int
	QualifiersPerGroup   int
}

func NewRules(cfg config.Tournament) Rules {
	return Rules{
		EliminationThreshold: cfg.EliminationThreshold,
		GroupStageThreshold:  cfg.GroupStageThreshold,
		SmallGroupSize:       cfg.SmallGroupSize,
		LargeGroupSize:       cfg.LargeGroupSize,
		QualifiersPerGroup:   cfg.QualifiersPerGroup,
	}
}

func DefaultRules() Rules {
	return NewRules(config.Default().Tournament)
}

func (r Rules) groupSize(players int) int {
	if players <= r.GroupStageThreshold {
		return r.SmallGroupSize
	}
	return r.LargeGroupSize
}
