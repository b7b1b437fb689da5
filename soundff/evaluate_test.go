package soundff

import (
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/soundnet"
)

type modeRecorder struct {
	modes []soundnet.Mode
}

func (m *modeRecorder) Apply(in anydiff.Res, n int) anydiff.Res {
	return in
}

func (m *modeRecorder) SetMode(mode soundnet.Mode) {
	m.modes = append(m.modes, mode)
}

func TestEvaluate(t *testing.T) {
	c := anyvec32.CurrentCreator()
	fc := soundnet.NewDenseZero(c, 3, soundnet.NumClasses)
	biases := make([]float64, soundnet.NumClasses)
	biases[2] = 1
	fc.Biases.Vector.SetData(c.MakeNumericList(biases))
	recorder := &modeRecorder{}
	net := soundnet.Net{recorder, fc, soundnet.LogSoftmax}
	trainer := &Trainer{Net: net, Cost: soundnet.NLL{}}

	var samples MemoryList
	for _, label := range []int{2, 2, 3, 2, 7} {
		samples = append(samples, &Sample{
			Input:  anyvec32.MakeVectorData([]float32{1, 2, 3}),
			Label:  label,
		})
	}

	var statuses []int
	acc, err := trainer.Evaluate(samples, 2, func(done, total int) {
		if total != 5 {
			t.Errorf("unexpected total: %d", total)
		}
		statuses = append(statuses, done)
	})
	if err != nil {
		t.Fatal(err)
	}
	if acc.Correct != 3 || acc.Total != 5 {
		t.Errorf("expected 3/5 but got %d/%d", acc.Correct, acc.Total)
	}
	if acc.Percent() != 60 {
		t.Errorf("expected 60%% but got %f", acc.Percent())
	}
	if acc.ClassTotal[2] != 3 || acc.ClassCorrect[2] != 3 {
		t.Errorf("bad class 2 counts: %d/%d", acc.ClassCorrect[2], acc.ClassTotal[2])
	}
	if acc.ClassTotal[3] != 1 || acc.ClassCorrect[3] != 0 {
		t.Errorf("bad class 3 counts: %d/%d", acc.ClassCorrect[3], acc.ClassTotal[3])
	}
	if acc.ClassPercent(2) != 100 || acc.ClassPercent(3) != 0 || acc.ClassPercent(5) != 0 {
		t.Error("bad class percentages")
	}
	if len(statuses) != 3 || statuses[0] != 2 || statuses[1] != 4 || statuses[2] != 5 {
		t.Errorf("unexpected statuses: %v", statuses)
	}

	if len(recorder.modes) != 2 || recorder.modes[0] != soundnet.Evaluation ||
		recorder.modes[1] != soundnet.Training {
		t.Errorf("unexpected mode transitions: %v", recorder.modes)
	}
}

func TestEvaluateEmpty(t *testing.T) {
	c := anyvec32.CurrentCreator()
	trainer := &Trainer{
		Net:  soundnet.Net{soundnet.NewDense(c, 3, soundnet.NumClasses)},
		Cost: soundnet.NLL{},
	}
	acc, err := trainer.Evaluate(MemoryList{}, 128, nil)
	if err != nil {
		t.Fatal(err)
	}
	if acc.Total != 0 || acc.Correct != 0 {
		t.Errorf("expected no samples but got %d/%d", acc.Correct, acc.Total)
	}
	if acc.Percent() != 0 {
		t.Errorf("expected 0%% but got %f", acc.Percent())
	}
}
