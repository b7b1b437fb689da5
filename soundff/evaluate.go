package soundff

import (
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/soundnet"
)

// Accuracy summarizes classification results.
type Accuracy struct {
	Correct int
	Total   int

	// ClassCorrect and ClassTotal are indexed by the true
	// class of each sample.
	ClassCorrect []int
	ClassTotal   []int
}

// Percent returns 100*Correct/Total, or 0 if no samples
// were evaluated.
func (a *Accuracy) Percent() float64 {
	if a.Total == 0 {
		return 0
	}
	return 100 * float64(a.Correct) / float64(a.Total)
}

// ClassPercent returns the accuracy for a single class, or
// 0 if the class never appeared.
func (a *Accuracy) ClassPercent(class int) float64 {
	if class >= len(a.ClassTotal) || a.ClassTotal[class] == 0 {
		return 0
	}
	return 100 * float64(a.ClassCorrect[class]) / float64(a.ClassTotal[class])
}

func (a *Accuracy) add(predicted, actual int) {
	for len(a.ClassTotal) <= actual {
		a.ClassTotal = append(a.ClassTotal, 0)
		a.ClassCorrect = append(a.ClassCorrect, 0)
	}
	a.Total++
	a.ClassTotal[actual]++
	if predicted == actual {
		a.Correct++
		a.ClassCorrect[actual]++
	}
}

// Evaluate classifies every sample in s and counts how
// many predictions match the sample labels.
//
// While evaluating, the network is switched into
// evaluation mode (if it supports modes), and it is
// switched back into training mode afterwards.
//
// If status is non-nil, it is called after each batch
// with the number of samples processed so far.
func (t *Trainer) Evaluate(s SampleList, batchSize int,
	status func(done, total int)) (acc *Accuracy, err error) {
	defer essentials.AddCtxTo("evaluate", &err)

	if setter, ok := t.Net.(soundnet.ModeSetter); ok {
		setter.SetMode(soundnet.Evaluation)
		defer setter.SetMode(soundnet.Training)
	}

	if batchSize <= 0 {
		batchSize = s.Len()
	}

	acc = &Accuracy{
		ClassCorrect: make([]int, soundnet.NumClasses),
		ClassTotal:   make([]int, soundnet.NumClasses),
	}
	for i := 0; i < s.Len(); i += batchSize {
		end := essentials.MinInt(s.Len(), i+batchSize)
		rawBatch, err := t.Fetch(s.Slice(i, end))
		if err != nil {
			return nil, err
		}
		b := rawBatch.(*Batch)
		out := t.Net.Apply(b.Inputs, b.Num).Output()
		predicted := soundnet.Predictions(out, b.Num)
		for j, p := range predicted {
			acc.add(p, b.Labels[j])
		}
		if status != nil {
			status(end, s.Len())
		}
	}
	return acc, nil
}
