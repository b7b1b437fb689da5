package soundconv

import (
	"math"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/soundnet"
)

func TestFromMarkup(t *testing.T) {
	code := `
Input(w=20, h=1, d=1)
Conv(w=4, h=1, n=3, sx=2, sy=1)
BatchNorm
ReLU
MaxPool(w=3, h=1, sx=3, sy=1)
MeanPool(w=3, h=1, sx=3, sy=1)
FC(out=5)
Softmax
`
	net, err := FromMarkup(anyvec32.CurrentCreator(), code)
	if err != nil {
		t.Fatal(err)
	}
	if len(net) != 7 {
		t.Fatalf("expected 7 layers but got %d", len(net))
	}
	conv, ok := net[0].(*Conv)
	if !ok {
		t.Fatalf("expected *Conv but got %T", net[0])
	}
	if conv.OutputWidth() != 9 || conv.OutputDepth() != 3 {
		t.Errorf("unexpected conv output %dx%d", conv.OutputWidth(), conv.OutputDepth())
	}
	if bn, ok := net[1].(*BatchNorm); !ok || bn.InputCount != 3 {
		t.Errorf("unexpected batch norm layer: %#v", net[1])
	}
	if net[2] != soundnet.ReLU {
		t.Errorf("expected ReLU but got %v", net[2])
	}
	if mp, ok := net[3].(*MaxPool); !ok || mp.Span != 3 || mp.InputWidth != 9 {
		t.Errorf("unexpected max pool layer: %#v", net[3])
	}
	if mp, ok := net[4].(*MeanPool); !ok || mp.InputWidth != 3 || mp.InputDepth != 3 {
		t.Errorf("unexpected mean pool layer: %#v", net[4])
	}
	if fc, ok := net[5].(*soundnet.Dense); !ok || fc.In != 3 || fc.Out != 5 {
		t.Errorf("unexpected fc layer: %#v", net[5])
	}
	if net[6] != soundnet.LogSoftmax {
		t.Errorf("expected LogSoftmax but got %v", net[6])
	}
}

func TestFromMarkupRejects2D(t *testing.T) {
	code := `
Input(w=20, h=4, d=1)
Conv(w=4, h=2, n=3)
`
	if _, err := FromMarkup(anyvec32.CurrentCreator(), code); err == nil {
		t.Error("expected an error for a 2-D convolution")
	}
}

func TestClassifierOutput(t *testing.T) {
	if testing.Short() {
		t.Skip("full-size classifier is slow")
	}
	c := anyvec32.CurrentCreator()
	net := NewClassifier(c)

	in := c.MakeVector(InputWidth * 2)
	anyvec.Rand(in, anyvec.Normal, nil)

	for _, mode := range []soundnet.Mode{soundnet.Training, soundnet.Evaluation} {
		net.SetMode(mode)
		out := net.Apply(anydiff.NewConst(in), 2).Output().Data().([]float32)
		if len(out) != 2*soundnet.NumClasses {
			t.Fatalf("%v: expected %d outputs but got %d", mode, 2*soundnet.NumClasses,
				len(out))
		}
		for i := 0; i < 2; i++ {
			var sum float64
			for _, x := range out[i*soundnet.NumClasses : (i+1)*soundnet.NumClasses] {
				sum += math.Exp(float64(x))
			}
			if math.Abs(sum-1) > 1e-3 {
				t.Errorf("%v: sample %d probabilities sum to %f", mode, i, sum)
			}
		}
	}
}

func TestClassifierShapes(t *testing.T) {
	net := NewClassifier(anyvec32.CurrentCreator())
	var widths []int
	var depths []int
	for _, layer := range net {
		if mp, ok := layer.(*MaxPool); ok {
			widths = append(widths, mp.OutputWidth())
			depths = append(depths, mp.OutputDepth())
		}
	}
	expectedWidths := []int{1995, 498, 124, 30}
	expectedDepths := []int{128, 128, 256, 512}
	if len(widths) != len(expectedWidths) {
		t.Fatalf("expected %d pooling stages but got %d", len(expectedWidths), len(widths))
	}
	for i, w := range expectedWidths {
		if widths[i] != w || depths[i] != expectedDepths[i] {
			t.Errorf("stage %d: expected %dx%d but got %dx%d", i, w, expectedDepths[i],
				widths[i], depths[i])
		}
	}
	fc, ok := net[len(net)-2].(*soundnet.Dense)
	if !ok || fc.In != 512 || fc.Out != soundnet.NumClasses {
		t.Errorf("unexpected final layer: %#v", net[len(net)-2])
	}
}
