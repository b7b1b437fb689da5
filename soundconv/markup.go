package soundconv

import (
	"errors"
	"fmt"

	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/convmarkup"
	"github.com/unixpickle/soundnet"
)

// FromMarkup creates a network from a markup description.
//
// For details on this format, see:
// https://github.com/unixpickle/convmarkup.
//
// Tensors are treated as 1-D: every block must have a
// height of 1, and the markup width is the number of time
// steps.
func FromMarkup(c anyvec.Creator, code string) (soundnet.Net, error) {
	parsed, err := convmarkup.Parse(code)
	if err != nil {
		return nil, errors.New("parse markup: " + err.Error())
	}
	block, err := parsed.Block(convmarkup.Dims{}, convmarkup.DefaultCreators())
	if err != nil {
		return nil, errors.New("make markup block: " + err.Error())
	}
	chain := convmarkup.RealizerChain{convmarkup.MetaRealizer{}, Realizer(c)}
	instance, _, err := chain.Realize(convmarkup.Dims{}, block)
	if err != nil {
		return nil, errors.New("realize markup block: " + err.Error())
	}
	switch instance := instance.(type) {
	case soundnet.Net:
		return instance, nil
	case soundnet.Layer:
		return soundnet.Net{instance}, nil
	default:
		return nil, fmt.Errorf("not a soundnet.Layer: %T", instance)
	}
}

// Realizer creates a convmarkup.Realizer which turns 1-D
// convolutional markup into soundnet layers.
//
// It is meant to be used after a convmarkup.MetaRealizer
// in a convmarkup.RealizerChain.
func Realizer(c anyvec.Creator) convmarkup.Realizer {
	return &realizer{creator: c}
}

type realizer struct {
	creator anyvec.Creator
}

func (r *realizer) Realize(chain convmarkup.RealizerChain, inDims convmarkup.Dims,
	b convmarkup.Block) (interface{}, error) {
	switch b := b.(type) {
	case *convmarkup.Root:
		return r.net(chain, inDims, b.Children)
	case *convmarkup.Conv:
		return r.conv(inDims, b)
	case *convmarkup.FC:
		return soundnet.NewDense(r.creator, inDims.Volume(), b.OutCount), nil
	case *convmarkup.Activation:
		return r.activation(inDims, b)
	case *convmarkup.Pool:
		return r.pool(inDims, b)
	default:
		return nil, convmarkup.ErrUnsupportedBlock
	}
}

func (r *realizer) net(chain convmarkup.RealizerChain, inDims convmarkup.Dims,
	ch []convmarkup.Block) (soundnet.Net, error) {
	var res soundnet.Net
	for _, b := range ch {
		// Avoiding nested soundnet.Net objects.
		if rep, ok := b.(*convmarkup.Repeat); ok {
			for i := 0; i < rep.N; i++ {
				net, err := r.net(chain, inDims, rep.Children)
				if err != nil {
					return nil, err
				}
				res = append(res, net...)
			}
			inDims = b.OutDims()
			continue
		}
		obj, _, err := chain.Realize(inDims, b)
		if err != nil {
			return nil, err
		} else if obj != nil {
			if layer, ok := obj.(soundnet.Layer); ok {
				res = append(res, layer)
			} else {
				return nil, fmt.Errorf("not a soundnet.Layer: %T", obj)
			}
		}
		inDims = b.OutDims()
	}
	return res, nil
}

func (r *realizer) conv(d convmarkup.Dims, b *convmarkup.Conv) (soundnet.Layer, error) {
	if d.Height != 1 || b.FilterHeight != 1 {
		return nil, fmt.Errorf("conv: expected height 1 but got input %d, filter %d",
			d.Height, b.FilterHeight)
	}
	return NewConv(r.creator, d.Width, d.Depth, b.FilterWidth, b.FilterCount,
		b.StrideX), nil
}

func (r *realizer) activation(d convmarkup.Dims, b *convmarkup.Activation) (soundnet.Layer, error) {
	switch b.Name {
	case "BatchNorm":
		return NewBatchNorm(r.creator, d.Depth), nil
	case "ReLU":
		return soundnet.ReLU, nil
	case "Sigmoid":
		return soundnet.Sigmoid, nil
	case "Tanh":
		return soundnet.Tanh, nil
	case "Softmax":
		return soundnet.LogSoftmax, nil
	default:
		return nil, fmt.Errorf("unknown activation: %s", b.Name)
	}
}

func (r *realizer) pool(d convmarkup.Dims, b *convmarkup.Pool) (soundnet.Layer, error) {
	if d.Height != 1 || b.Height != 1 {
		return nil, fmt.Errorf("%s: expected height 1", b.Name)
	}
	switch b.Name {
	case "MaxPool":
		if b.StrideX != b.Width {
			return nil, errors.New("MaxPool: stride must equal width")
		}
		return &MaxPool{
			Span:       b.Width,
			InputWidth: d.Width,
			InputDepth: d.Depth,
		}, nil
	case "MeanPool":
		if b.Width != d.Width {
			return nil, fmt.Errorf("MeanPool: width %d must cover the input width %d",
				b.Width, d.Width)
		}
		return &MeanPool{
			InputWidth: d.Width,
			InputDepth: d.Depth,
		}, nil
	default:
		return nil, fmt.Errorf("unknown pooling: %s", b.Name)
	}
}
