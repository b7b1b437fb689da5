package soundsgd

import (
	"math"
	"math/rand"

	"github.com/unixpickle/anydiff"
)

// Shuffle shuffles a list of samples.
// If r is nil, the global source from math/rand is used.
func Shuffle(s SampleList, r *rand.Rand) {
	intn := rand.Intn
	if r != nil {
		intn = r.Intn
	}
	for i := 0; i < s.Len(); i++ {
		j := i + intn(s.Len()-i)
		s.Swap(i, j)
	}
}

// A ConstRater is a Rater which always returns the same
// constant learning rate.
type ConstRater float64

// Rate returns float64(c).
func (c ConstRater) Rate(epoch float64) float64 {
	return float64(c)
}

// A StepRater multiplies an initial learning rate by
// Factor after every Every complete epochs.
//
// The schedule does not depend on the observed cost.
type StepRater struct {
	Initial float64
	Factor  float64
	Every   int
}

// Rate returns the learning rate for the epoch.
func (s StepRater) Rate(epoch float64) float64 {
	if s.Every <= 0 {
		return s.Initial
	}
	steps := math.Floor(epoch / float64(s.Every))
	return s.Initial * math.Pow(s.Factor, steps)
}

func copyGrad(g anydiff.Grad) anydiff.Grad {
	res := anydiff.Grad{}
	for k, v := range g {
		res[k] = v.Copy()
	}
	return res
}

func scaleGrad(g anydiff.Grad, s float64) {
	for _, v := range g {
		v.Scale(v.Creator().MakeNumeric(s))
	}
}

func valueOrDefault(value, def float64) float64 {
	if value == 0 {
		return def
	}
	return value
}
