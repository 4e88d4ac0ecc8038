package optim

import (
	"fmt"
	"math"
)

// Schedule names.
const (
	ScheduleConstant = "constant"
	ScheduleCosine   = "cosine"
)

// CosineSchedule computes learning rate with warmup + cosine decay.
func CosineSchedule(step, warmupSteps, totalSteps int, maxLR, minLR float64) float64 {
	if step < warmupSteps {
		// Linear warmup
		return maxLR * float64(step+1) / float64(warmupSteps)
	}
	if totalSteps <= warmupSteps {
		return minLR
	}

	// Cosine decay
	progress := float64(step-warmupSteps) / float64(totalSteps-warmupSteps)
	if progress > 1.0 {
		progress = 1.0
	}
	return minLR + 0.5*(maxLR-minLR)*(1.0+math.Cos(math.Pi*progress))
}

// LRFunc returns the learning rate for a step.
type LRFunc func(step int) float64

// NewSchedule returns the LRFunc for the named schedule.
func NewSchedule(name string, warmupSteps, totalSteps int, maxLR, minLR float64) (LRFunc, error) {
	switch name {
	case ScheduleConstant, "":
		return func(int) float64 { return maxLR }, nil
	case ScheduleCosine:
		return func(step int) float64 {
			return CosineSchedule(step, warmupSteps, totalSteps, maxLR, minLR)
		}, nil
	default:
		return nil, fmt.Errorf("optim: unknown schedule %q", name)
	}
}
