package soundtrain

import (
	"bytes"
	"fmt"
	"log"
	"math"
	"strings"
	"testing"

	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/soundnet"
	"github.com/unixpickle/soundnet/soundconv"
	"github.com/unixpickle/soundnet/soundff"
	"github.com/unixpickle/soundnet/soundsgd"
)

func classSamples(n int) soundff.MemoryList {
	var res soundff.MemoryList
	for i := 0; i < n; i++ {
		label := i % soundnet.NumClasses
		in := make([]float32, soundnet.NumClasses)
		in[label] = 1
		res = append(res, &soundff.Sample{
			Input: anyvec32.MakeVectorData(in),
			Label: label,
		})
	}
	return res
}

func testNet() soundnet.Net {
	c := anyvec32.CurrentCreator()
	return soundnet.Net{
		soundnet.NewDense(c, soundnet.NumClasses, soundnet.NumClasses),
		soundnet.LogSoftmax,
	}
}

func testConfig(logs *bytes.Buffer) *Config {
	cfg := DefaultConfig()
	cfg.BatchSize = 4
	cfg.Epochs = 2
	cfg.DecayEvery = 1
	cfg.LogInterval = 1
	cfg.Logger = log.New(logs, "", 0)
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.BatchSize != 128 || cfg.Epochs != 40 || cfg.LearningRate != 0.01 ||
		cfg.WeightDecay != 1e-4 || cfg.DecayEvery != 20 || cfg.DecayFactor != 0.1 ||
		cfg.LogInterval != 20 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Error(err)
	}
}

func TestConfigValidate(t *testing.T) {
	mutators := map[string]func(c *Config){
		"batch size":    func(c *Config) { c.BatchSize = 0 },
		"epochs":        func(c *Config) { c.Epochs = -1 },
		"learning rate": func(c *Config) { c.LearningRate = 0 },
		"weight decay":  func(c *Config) { c.WeightDecay = -1 },
		"decay every":   func(c *Config) { c.DecayEvery = -2 },
		"decay factor":  func(c *Config) { c.DecayFactor = 0 },
		"log interval":  func(c *Config) { c.LogInterval = -1 },
		"max gos":       func(c *Config) { c.MaxGos = -1 },
	}
	for name, mutate := range mutators {
		cfg := DefaultConfig()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected error", name)
		}
		if _, err := Run(cfg, testNet(), classSamples(4), classSamples(4), nil); err == nil {
			t.Errorf("%s: expected Run to fail", name)
		}
	}

	cfg := DefaultConfig()
	cfg.DecayEvery = 0
	cfg.DecayFactor = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("decay factor is unused without decay: %v", err)
	}
}

func TestRunLogs(t *testing.T) {
	var logs bytes.Buffer
	cfg := testConfig(&logs)
	var epochs []int
	cfg.EpochFunc = func(r *EpochReport) {
		epochs = append(epochs, r.Epoch)
	}
	var evalCalls int
	cfg.EvalStatus = func(epoch, done, total int) {
		if total != 6 {
			t.Errorf("unexpected evaluation total: %d", total)
		}
		evalCalls++
	}

	report, err := Run(cfg, testNet(), classSamples(10), classSamples(6), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Epochs) != 2 || len(epochs) != 2 || epochs[1] != 2 {
		t.Fatalf("unexpected epochs: %v", epochs)
	}
	if evalCalls != 4 {
		t.Errorf("expected 4 evaluation batches but got %d", evalCalls)
	}
	if math.Abs(report.Epochs[0].LearningRate-0.01) > 1e-9 ||
		math.Abs(report.Epochs[1].LearningRate-0.001) > 1e-9 {
		t.Errorf("unexpected learning rates: %f, %f", report.Epochs[0].LearningRate,
			report.Epochs[1].LearningRate)
	}
	if report.Final().Accuracy.Total != 6 {
		t.Errorf("unexpected test total: %d", report.Final().Accuracy.Total)
	}
	if report.Epochs[0].MeanCost <= 0 {
		t.Errorf("unexpected mean cost: %f", report.Epochs[0].MeanCost)
	}

	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	if len(lines) != 8 {
		t.Fatalf("expected 8 lines but got %d: %q", len(lines), lines)
	}
	prefixes := []string{
		"Train Epoch: 1 [0/10 (0%)]\tLoss: ",
		"Train Epoch: 1 [4/10 (33%)]\tLoss: ",
		"Train Epoch: 1 [8/10 (67%)]\tLoss: ",
		"Test set: Epoch 1 Accuracy: ",
		"Train Epoch: 2 [0/10 (0%)]\tLoss: ",
	}
	for i, prefix := range prefixes {
		if !strings.HasPrefix(lines[i], prefix) {
			t.Errorf("line %d: expected prefix %q but got %q", i, prefix, lines[i])
		}
	}
	if !strings.HasSuffix(lines[3], fmt.Sprintf("/6 (%.0f%%)", report.Epochs[0].Accuracy.Percent())) {
		t.Errorf("unexpected test line: %q", lines[3])
	}
}

func TestRunLearns(t *testing.T) {
	var logs bytes.Buffer
	cfg := testConfig(&logs)
	cfg.Epochs = 50
	cfg.BatchSize = 5
	cfg.LearningRate = 0.05
	cfg.DecayEvery = 0
	cfg.LogInterval = 0

	samples := classSamples(20)
	net := testNet()
	report, err := Run(cfg, net, samples, samples, nil)
	if err != nil {
		t.Fatal(err)
	}
	acc := report.Final().Accuracy
	if acc.Correct != acc.Total || acc.Total != 20 {
		t.Errorf("expected 20/20 but got %d/%d", acc.Correct, acc.Total)
	}
	if report.Final().MeanCost >= report.Epochs[0].MeanCost {
		t.Errorf("cost did not decrease: %f -> %f", report.Epochs[0].MeanCost,
			report.Final().MeanCost)
	}
	if strings.Contains(logs.String(), "Train Epoch") {
		t.Error("training progress should not be logged")
	}
}

func TestRunModes(t *testing.T) {
	var logs bytes.Buffer
	cfg := testConfig(&logs)
	c := anyvec32.CurrentCreator()
	bn := soundconv.NewBatchNorm(c, soundnet.NumClasses)
	net := soundnet.Net{
		soundnet.NewDense(c, soundnet.NumClasses, soundnet.NumClasses),
		bn,
		soundnet.LogSoftmax,
	}
	if _, err := Run(cfg, net, classSamples(10), classSamples(3), nil); err != nil {
		t.Fatal(err)
	}
	if bn.Mode() != soundnet.Training {
		t.Errorf("expected training mode after run but got %s", bn.Mode())
	}
	var updated bool
	for _, x := range bn.RunningMean.Data().([]float32) {
		if x != 0 {
			updated = true
		}
	}
	if !updated {
		t.Error("running statistics were not updated")
	}
}

func TestRunStopped(t *testing.T) {
	var logs bytes.Buffer
	cfg := testConfig(&logs)
	done := make(chan struct{})
	close(done)
	report, err := Run(cfg, testNet(), classSamples(10), classSamples(3), done)
	if err != soundsgd.ErrStopped {
		t.Fatalf("expected ErrStopped but got %v", err)
	}
	if len(report.Epochs) != 0 || report.Final() != nil {
		t.Error("no epoch should have finished")
	}
}

func TestRunEmptyTestSet(t *testing.T) {
	var logs bytes.Buffer
	cfg := testConfig(&logs)
	cfg.Epochs = 1
	report, err := Run(cfg, testNet(), classSamples(10), soundff.MemoryList{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	acc := report.Final().Accuracy
	if acc.Total != 0 || acc.Percent() != 0 {
		t.Errorf("unexpected accuracy: %d/%d", acc.Correct, acc.Total)
	}
	if !strings.Contains(logs.String(), "Test set: Epoch 1 Accuracy: 0/0 (0%)") {
		t.Errorf("missing test line in %q", logs.String())
	}
}
