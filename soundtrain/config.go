package soundtrain

import (
	"errors"
	"log"
)

// Config holds the options of a training run.
//
// Use DefaultConfig to get the standard values, then
// override individual fields.
type Config struct {
	// BatchSize is the number of samples per training and
	// evaluation batch.
	BatchSize int

	// Epochs is the number of TRAIN/EVAL rounds.
	Epochs int

	// LearningRate is the initial Adam step size.
	LearningRate float64

	// WeightDecay is the L2 penalty added to gradients.
	WeightDecay float64

	// DecayEvery is the number of training epochs between
	// learning rate decays.
	// If it is 0, the learning rate never changes.
	DecayEvery int

	// DecayFactor multiplies the learning rate at each
	// decay.
	DecayFactor float64

	// LogInterval is the number of batches between training
	// progress lines.
	// If it is 0, no training progress is logged.
	LogInterval int

	// Seed seeds the order in which training samples are
	// visited.
	Seed int64

	// MaxGos limits the goroutines used to load samples.
	// If it is 0, GOMAXPROCS is used.
	MaxGos int

	// Logger receives progress lines.
	// If it is nil, log.Default() is used.
	Logger *log.Logger

	// EvalStatus, if non-nil, is called after every
	// evaluation batch.
	EvalStatus func(epoch, done, total int)

	// EpochFunc, if non-nil, is called at the end of every
	// epoch.
	EpochFunc func(r *EpochReport)
}

// DefaultConfig returns the standard UrbanSound8K
// training configuration.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:    128,
		Epochs:       40,
		LearningRate: 0.01,
		WeightDecay:  1e-4,
		DecayEvery:   20,
		DecayFactor:  0.1,
		LogInterval:  20,
		Seed:         1,
	}
}

// Validate checks that the options make sense.
func (c *Config) Validate() error {
	switch {
	case c.BatchSize <= 0:
		return errors.New("batch size must be positive")
	case c.Epochs < 0:
		return errors.New("epoch count must not be negative")
	case c.LearningRate <= 0:
		return errors.New("learning rate must be positive")
	case c.WeightDecay < 0:
		return errors.New("weight decay must not be negative")
	case c.DecayEvery < 0:
		return errors.New("decay interval must not be negative")
	case c.DecayEvery > 0 && c.DecayFactor <= 0:
		return errors.New("decay factor must be positive")
	case c.LogInterval < 0:
		return errors.New("log interval must not be negative")
	case c.MaxGos < 0:
		return errors.New("goroutine limit must not be negative")
	}
	return nil
}

func (c *Config) logger() *log.Logger {
	if c.Logger == nil {
		return log.Default()
	}
	return c.Logger
}
