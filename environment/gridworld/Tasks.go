package gridworld

import (
	"gonum.org/v1/gonum/floats"
)

const (
	CloserReward  float64 = 1.0
	FartherReward float64 = -1.0
	GoalReward    float64 = 10.0
)

// Approach implements the task of moving the agent onto the goal.
//
// Rewards are shaped by the change in Euclidean distance between the
// agent and the goal: CloserReward if the distance strictly decreased
// and FartherReward otherwise. A move that leaves the distance
// unchanged (e.g. bumping into a wall) is rewarded with FartherReward.
// The transition onto the goal is rewarded with GoalReward instead.
type Approach struct {
	closer, farther, goal float64
}

// NewApproach returns the Approach task with the default rewards
func NewApproach() *Approach {
	return &Approach{CloserReward, FartherReward, GoalReward}
}

// GetReward returns the reward for moving from a distance of prev to a
// distance of next from the goal
func (a *Approach) GetReward(prev, next float64) float64 {
	if next == 0 {
		return a.goal
	}
	if prev-next > 0 {
		return a.closer
	}
	return a.farther
}

// AtGoal returns whether the agent and goal occupy the same cell
func (a *Approach) AtGoal(agent, goal Position) bool {
	return agent == goal
}

// euclidean returns the Euclidean distance between two positions
func euclidean(p, q Position) float64 {
	return floats.Distance(
		[]float64{float64(p.X), float64(p.Y)},
		[]float64{float64(q.X), float64(q.Y)},
		2,
	)
}
