package soundconv

import (
	"sync"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/soundnet"
)

const (
	defaultBNStabilizer = 1e-5
	defaultBNMomentum   = 0.1
)

// BatchNorm is a batch normalization layer which
// normalizes each channel of its input.
//
// In soundnet.Training mode, the layer normalizes with the
// mean and variance of the current batch and folds those
// statistics into running estimates.
// In soundnet.Evaluation mode, it normalizes with the
// running estimates and leaves them untouched.
//
// A freshly created BatchNorm is in training mode.
type BatchNorm struct {
	// InputCount is the number of channels to normalize.
	// For use after a Conv, this is the filter count.
	InputCount int

	// Post-normalization affine transform.
	Scalers *anydiff.Var
	Biases  *anydiff.Var

	// Running statistics used in evaluation mode.
	RunningMean     anyvec.Vector
	RunningVariance anyvec.Vector

	// Momentum is the weight given to each new batch when
	// updating running statistics.
	// If it is 0, a default is used.
	Momentum float64

	// Stabilizer prevents numerical instability by adding a
	// small constant to variances to keep them from being 0.
	// If it is 0, a default is used.
	Stabilizer float64

	lock sync.Mutex
	mode soundnet.Mode
}

// NewBatchNorm creates a BatchNorm with an input size.
func NewBatchNorm(c anyvec.Creator, inCount int) *BatchNorm {
	ones := c.MakeVector(inCount)
	ones.AddScalar(c.MakeNumeric(1))
	return &BatchNorm{
		InputCount:      inCount,
		Scalers:         anydiff.NewVar(ones.Copy()),
		Biases:          anydiff.NewVar(c.MakeVector(inCount)),
		RunningMean:     c.MakeVector(inCount),
		RunningVariance: ones,
	}
}

// SetMode switches between batch and running statistics.
func (b *BatchNorm) SetMode(m soundnet.Mode) {
	b.lock.Lock()
	b.mode = m
	b.lock.Unlock()
}

// Mode returns the current mode.
func (b *BatchNorm) Mode() soundnet.Mode {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.mode
}

// Apply applies the layer to some inputs.
//
// In training mode, Apply updates the running statistics.
func (b *BatchNorm) Apply(in anydiff.Res, batch int) anydiff.Res {
	if in.Output().Len()%b.InputCount != 0 {
		panic("invalid input size")
	}
	if b.Mode() == soundnet.Evaluation {
		return b.applyRunning(in)
	}
	return anydiff.Pool(in, func(in anydiff.Res) anydiff.Res {
		c := in.Output().Creator()

		negMean := negMeanRows(in, b.InputCount)
		secondMoment := meanSquareRows(in, b.InputCount)
		variance := anydiff.Sub(secondMoment, anydiff.Square(negMean))

		b.updateRunning(negMean.Output(), variance.Output(),
			in.Output().Len()/b.InputCount)

		variance = anydiff.AddScalar(variance, c.MakeNumeric(b.stabilizer()))
		normalizer := anydiff.Pow(variance, c.MakeNumeric(-0.5))

		totalScaler := anydiff.Mul(b.Scalers, normalizer)
		return anydiff.Pool(totalScaler, func(totalScaler anydiff.Res) anydiff.Res {
			return anydiff.ScaleAddRepeated(
				in,
				totalScaler,
				anydiff.Add(b.Biases, anydiff.Mul(negMean, totalScaler)),
			)
		})
	})
}

// Parameters returns a slice containing the scales and
// biases, in that order.
func (b *BatchNorm) Parameters() []*anydiff.Var {
	return []*anydiff.Var{b.Scalers, b.Biases}
}

func (b *BatchNorm) applyRunning(in anydiff.Res) anydiff.Res {
	c := in.Output().Creator()

	b.lock.Lock()
	normalizer := b.RunningVariance.Copy()
	negMean := b.RunningMean.Copy()
	b.lock.Unlock()

	normalizer.AddScalar(c.MakeNumeric(b.stabilizer()))
	anyvec.Pow(normalizer, c.MakeNumeric(-0.5))
	negMean.Scale(c.MakeNumeric(-1))

	totalScaler := anydiff.Mul(b.Scalers, anydiff.NewConst(normalizer))
	return anydiff.Pool(totalScaler, func(totalScaler anydiff.Res) anydiff.Res {
		return anydiff.ScaleAddRepeated(
			in,
			totalScaler,
			anydiff.Add(b.Biases, anydiff.Mul(anydiff.NewConst(negMean), totalScaler)),
		)
	})
}

// updateRunning folds batch statistics into the running
// estimates.
// The stored variance is unbiased.
func (b *BatchNorm) updateRunning(negMean, variance anyvec.Vector, count int) {
	c := negMean.Creator()
	momentum := b.momentum()

	mean := negMean.Copy()
	mean.Scale(c.MakeNumeric(-momentum))

	correction := 1.0
	if count > 1 {
		correction = float64(count) / float64(count-1)
	}
	newVar := variance.Copy()
	newVar.Scale(c.MakeNumeric(momentum * correction))

	b.lock.Lock()
	defer b.lock.Unlock()
	b.RunningMean.Scale(c.MakeNumeric(1 - momentum))
	b.RunningMean.Add(mean)
	b.RunningVariance.Scale(c.MakeNumeric(1 - momentum))
	b.RunningVariance.Add(newVar)
}

func (b *BatchNorm) stabilizer() float64 {
	if b.Stabilizer == 0 {
		return defaultBNStabilizer
	}
	return b.Stabilizer
}

func (b *BatchNorm) momentum() float64 {
	if b.Momentum == 0 {
		return defaultBNMomentum
	}
	return b.Momentum
}
