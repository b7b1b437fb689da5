package soundnet

import (
	"fmt"

	"github.com/unixpickle/anydiff"
)

// An Activation is a standard activation function.
type Activation int

// These are standard activation function.
const (
	ReLU Activation = iota
	LogSoftmax
	Tanh
	Sigmoid
)

// Apply applies the activation function.
//
// LogSoftmax normalizes each of the n packed vectors on
// its own.
func (a Activation) Apply(in anydiff.Res, n int) anydiff.Res {
	switch a {
	case ReLU:
		return anydiff.ClipPos(in)
	case LogSoftmax:
		inLen := in.Output().Len()
		if inLen%n != 0 {
			panic("batch size must divide input length")
		}
		return anydiff.LogSoftmax(in, inLen/n)
	case Tanh:
		return anydiff.Tanh(in)
	case Sigmoid:
		return anydiff.Sigmoid(in)
	default:
		panic(fmt.Sprintf("unknown activation: %d", a))
	}
}

// String returns the activation's name.
func (a Activation) String() string {
	switch a {
	case ReLU:
		return "ReLU"
	case LogSoftmax:
		return "LogSoftmax"
	case Tanh:
		return "Tanh"
	case Sigmoid:
		return "Sigmoid"
	default:
		return fmt.Sprintf("Activation(%d)", int(a))
	}
}
