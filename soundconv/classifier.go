package soundconv

import (
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/soundnet"
)

// InputWidth is the number of waveform samples the
// classifier expects per input.
const InputWidth = 32000

// ClassifierMarkup describes the fixed classifier
// topology: four conv/batch-norm/ReLU/max-pool stages, a
// mean pool over time, and a linear layer with a
// log-softmax over soundnet.NumClasses classes.
//
// Widths shrink 32000 -> 1995 -> 498 -> 124 -> 30 -> 1.
const ClassifierMarkup = `
Input(w=32000, h=1, d=1)

Conv(w=80, h=1, n=128, sx=4, sy=1)
BatchNorm
ReLU
MaxPool(w=4, h=1, sx=4, sy=1)

Conv(w=3, h=1, n=128, sx=1, sy=1)
BatchNorm
ReLU
MaxPool(w=4, h=1, sx=4, sy=1)

Conv(w=3, h=1, n=256, sx=1, sy=1)
BatchNorm
ReLU
MaxPool(w=4, h=1, sx=4, sy=1)

Conv(w=3, h=1, n=512, sx=1, sy=1)
BatchNorm
ReLU
MaxPool(w=4, h=1, sx=4, sy=1)

MeanPool(w=30, h=1, sx=30, sy=1)
FC(out=10)
Softmax
`

// NewClassifier creates a randomly initialized classifier
// network from ClassifierMarkup.
//
// Every Conv in the result is set to run in parallel.
func NewClassifier(c anyvec.Creator) soundnet.Net {
	net, err := FromMarkup(c, ClassifierMarkup)
	if err != nil {
		panic(err)
	}
	for _, layer := range net {
		if conv, ok := layer.(*Conv); ok {
			conv.Parallel = true
		}
	}
	return net
}
