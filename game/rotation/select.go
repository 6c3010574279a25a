package rotation

import (
	"math/rand/v2"

	"github.com/fitquest/server/model"
)

// Rand is the randomness Select draws from.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// DefaultRand uses the runtime's shared source.
var DefaultRand Rand = globalRand{}

// Select runs a cumulative-weight roulette over candidates. A zero total
// falls back to a uniform pick; float drift that leaves no winner falls back
// to the last candidate. Select returns nil only for an empty slice.
func Select(candidates []*model.QuestTemplate, weights []float64, r Rand) *model.QuestTemplate {
	if len(candidates) == 0 {
		return nil
	}
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return candidates[r.IntN(len(candidates))]
	}
	remaining := r.Float64() * total
	for i, tpl := range candidates {
		remaining -= weights[i]
		if remaining <= 0 {
			return tpl
		}
	}
	return candidates[len(candidates)-1]
}
