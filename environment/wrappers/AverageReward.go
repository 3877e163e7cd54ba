// Package wrappers implements environments which wrap other
// environments and alter the TimeSteps they return
package wrappers

import (
	"fmt"

	env "github.com/rlgrid/gridsim/environment"
	ts "github.com/rlgrid/gridsim/timestep"
	"gonum.org/v1/gonum/mat"
)

// RewardKey is the TimeStep Info key under which AverageReward stores
// the reward returned by the wrapped environment
const RewardKey = "EnvironmentReward"

// AverageReward wraps an environment and alters rewards so that the
// differential reward is returned for each action. Training an agent
// on an AverageReward environment turns a discounted algorithm into
// its differential counterpart, which suits continuing environments
// such as the bike-share grid.
//
// The average reward of the policy is estimated as an exponential
// moving average of the environmental rewards:
//
//	avgReward <- avgReward + learningRate * (reward - avgReward)
//
// and each reward is replaced by reward - avgReward, using the
// estimate from before the update. The estimate is kept across
// calls to Reset.
//
// The average reward setting does not use discounting, so every
// TimeStep returned has a discount of 1.
type AverageReward struct {
	env.Environment
	avgReward    float64
	learningRate float64

	currentStep ts.TimeStep
}

// NewAverageReward creates and returns a new AverageReward Environment
// wrapper along with its first TimeStep. The init parameter is the
// initial estimate of the average reward, usually 0.
func NewAverageReward(e env.Environment, init,
	learningRate float64) (*AverageReward, ts.TimeStep, error) {
	if learningRate <= 0 || learningRate > 1 {
		return nil, ts.TimeStep{}, fmt.Errorf("newAverageReward: "+
			"learning rate %v ∉ (0, 1]", learningRate)
	}

	a := &AverageReward{
		Environment:  e,
		avgReward:    init,
		learningRate: learningRate,
	}
	step, err := a.Reset()
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("newAverageReward: %w", err)
	}
	return a, step, nil
}

// Reset resets the wrapped environment
func (a *AverageReward) Reset() (ts.TimeStep, error) {
	step, err := a.Environment.Reset()
	if err != nil {
		return ts.TimeStep{}, err
	}
	step.Discount = 1.0

	a.currentStep = step
	return step.Copy(), nil
}

// Step takes one environmental step given action and returns the next
// TimeStep with its reward replaced by the differential reward
func (a *AverageReward) Step(action *mat.VecDense) (ts.TimeStep, bool,
	error) {
	step, done, err := a.Environment.Step(action)
	if err != nil {
		return ts.TimeStep{}, false, err
	}

	step.Info[RewardKey] = step.Reward
	step.Reward -= a.avgReward
	a.avgReward += a.learningRate * step.Reward
	step.Discount = 1.0

	a.currentStep = step
	return step.Copy(), done, nil
}

// CurrentTimeStep returns the last TimeStep returned by the wrapper
func (a *AverageReward) CurrentTimeStep() ts.TimeStep {
	return a.currentStep.Copy()
}

// AverageReward returns the current estimate of the average reward
func (a *AverageReward) AverageReward() float64 {
	return a.avgReward
}

// Unwrap returns the wrapped environment
func (a *AverageReward) Unwrap() env.Environment {
	return a.Environment
}

// DiscountSpec returns the discount specification of the environment,
// which is always 1
func (a *AverageReward) DiscountSpec() env.Spec {
	return env.NewDiscountSpec(1.0)
}

// String returns a string representation of the AverageReward
// environment
func (a *AverageReward) String() string {
	return fmt.Sprintf("Average Reward (%.4f): %v", a.avgReward,
		a.Environment)
}
