// Package soundtrain runs the epoch loop which trains a
// sound classifier and measures its held-out accuracy.
package soundtrain

import (
	"math/rand"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/soundnet"
	"github.com/unixpickle/soundnet/soundff"
	"github.com/unixpickle/soundnet/soundsgd"
)

// An EpochReport summarizes one TRAIN/EVAL round.
type EpochReport struct {
	// Epoch starts at 1.
	Epoch int

	// LearningRate is the rate used during the epoch.
	LearningRate float64

	// MeanCost is the average training cost per sample.
	MeanCost float64

	// Accuracy is the test set accuracy after the epoch.
	Accuracy *soundff.Accuracy
}

// A Report lists the results of every finished epoch.
type Report struct {
	Epochs []*EpochReport
}

// Final returns the report of the last finished epoch,
// or nil if no epoch finished.
func (r *Report) Final() *EpochReport {
	if len(r.Epochs) == 0 {
		return nil
	}
	return r.Epochs[len(r.Epochs)-1]
}

// Run trains net on the train samples and evaluates it on
// the test samples after every epoch.
//
// During training, the network is in training mode.
// During evaluation, it is in evaluation mode.
// The learning rate decays only between training epochs.
//
// If done is closed, Run stops before the next batch and
// returns the finished epochs along with
// soundsgd.ErrStopped.
func Run(cfg *Config, net soundnet.Net, train, test soundff.SampleList,
	done <-chan struct{}) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, essentials.AddCtx("train", err)
	}

	trainer := &soundff.Trainer{
		Net:     net,
		Cost:    soundnet.NLL{},
		Params:  net.Parameters(),
		Average: true,
		MaxGos:  cfg.MaxGos,
	}

	r := &runner{
		cfg:     cfg,
		net:     net,
		trainer: trainer,
		train:   train,
		test:    test,
	}
	r.sgd = &soundsgd.SGD{
		Fetcher:    trainer,
		Gradienter: trainer,
		Transformer: &soundsgd.Adam{
			WeightDecay: cfg.WeightDecay,
		},
		Samples: train,
		Rater: soundsgd.StepRater{
			Initial: cfg.LearningRate,
			Factor:  cfg.DecayFactor,
			Every:   cfg.DecayEvery,
		},
		StatusFunc: r.trainStatus,
		BatchSize:  cfg.BatchSize,
		Rand:       rand.New(rand.NewSource(cfg.Seed)),
	}

	report := &Report{}
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		epochReport, err := r.runEpoch(epoch, done)
		if err != nil {
			if err == soundsgd.ErrStopped {
				return report, err
			}
			return report, essentials.AddCtx("train", err)
		}
		report.Epochs = append(report.Epochs, epochReport)
		if cfg.EpochFunc != nil {
			cfg.EpochFunc(epochReport)
		}
	}
	return report, nil
}

type runner struct {
	cfg     *Config
	net     soundnet.Net
	trainer *soundff.Trainer
	sgd     *soundsgd.SGD
	train   soundff.SampleList
	test    soundff.SampleList

	epoch      int
	numBatches int
	costSum    float64
	costCount  int
}

func (r *runner) runEpoch(epoch int, done <-chan struct{}) (*EpochReport, error) {
	r.epoch = epoch
	r.numBatches = (r.train.Len() + r.cfg.BatchSize - 1) / r.cfg.BatchSize
	r.costSum = 0
	r.costCount = 0

	res := &EpochReport{
		Epoch:        epoch,
		LearningRate: r.sgd.Rater.Rate(r.sgd.Epoch()),
	}

	r.net.SetMode(soundnet.Training)
	if err := r.sgd.RunEpoch(done); err != nil {
		return nil, err
	}
	if r.costCount > 0 {
		res.MeanCost = r.costSum / float64(r.costCount)
	}

	select {
	case <-done:
		return nil, soundsgd.ErrStopped
	default:
	}

	var status func(done, total int)
	if r.cfg.EvalStatus != nil {
		status = func(done, total int) {
			r.cfg.EvalStatus(epoch, done, total)
		}
	}
	acc, err := r.trainer.Evaluate(r.test, r.cfg.BatchSize, status)
	if err != nil {
		return nil, err
	}
	res.Accuracy = acc
	r.cfg.logger().Printf("Test set: Epoch %d Accuracy: %d/%d (%.0f%%)",
		epoch, acc.Correct, acc.Total, acc.Percent())
	return res, nil
}

func (r *runner) trainStatus(batchIdx int, batch soundsgd.Batch) {
	num := batch.(*soundff.Batch).Num
	r.costSum += r.trainer.LastCost * float64(num)
	r.costCount += num

	if r.cfg.LogInterval == 0 || batchIdx%r.cfg.LogInterval != 0 {
		return
	}
	r.cfg.logger().Printf("Train Epoch: %d [%d/%d (%.0f%%)]\tLoss: %.6f",
		r.epoch, batchIdx*r.cfg.BatchSize, r.train.Len(),
		100*float64(batchIdx)/float64(r.numBatches), r.trainer.LastCost)
}
