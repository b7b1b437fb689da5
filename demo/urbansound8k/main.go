package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/rip"
	"github.com/unixpickle/soundnet/soundconv"
	"github.com/unixpickle/soundnet/soundff"
	"github.com/unixpickle/soundnet/soundset"
	"github.com/unixpickle/soundnet/soundsgd"
	"github.com/unixpickle/soundnet/soundtrain"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

const TestFold = 10

var Creator anyvec.Creator

func main() {
	_ = godotenv.Load()

	dataDir := os.Getenv("URBANSOUND8K_DIR")
	if dataDir == "" {
		essentials.Die("URBANSOUND8K_DIR is not set")
	}

	log.Println("Setting up...")

	Creator = anyvec32.CurrentCreator()

	meta, err := soundset.ReadMetadataFile(filepath.Join(dataDir, "metadata",
		"UrbanSound8K.csv"))
	if err != nil {
		essentials.Die(err)
	}
	audioDir := filepath.Join(dataDir, "audio")

	var trainFolds []int
	for _, fold := range meta.Folds() {
		if fold != TestFold {
			trainFolds = append(trainFolds, fold)
		}
	}
	trainSet := soundset.NewDataset(meta, audioDir, trainFolds)
	testSet := soundset.NewDataset(meta, audioDir, []int{TestFold})
	log.Printf("Train set size: %d", trainSet.Len())
	log.Printf("Test set size: %d", testSet.Len())

	network := soundconv.NewClassifier(Creator)

	cfg := soundtrain.DefaultConfig()
	cfg.EvalStatus = evalProgress()
	cfg.EpochFunc = func(r *soundtrain.EpochReport) {
		log.Println(color.New(color.FgGreen, color.Bold).Sprintf(
			"Epoch %d: accuracy %.2f%% (lr=%g, mean cost=%f)",
			r.Epoch, r.Accuracy.Percent(), r.LearningRate, r.MeanCost))
	}

	log.Println("Press ctrl+c once to stop...")
	report, err := soundtrain.Run(cfg, network,
		soundset.NewSamples(Creator, trainSet),
		soundset.NewSamples(Creator, testSet),
		rip.NewRIP().Chan())
	if err != nil && err != soundsgd.ErrStopped {
		essentials.Die(err)
	}

	if final := report.Final(); final != nil {
		printClassStats(final.Accuracy, meta.ClassNames())
	}
}

// evalProgress creates a progress bar for each epoch's
// evaluation pass.
func evalProgress() func(epoch, done, total int) {
	var progress *mpb.Progress
	var bar *mpb.Bar
	return func(epoch, done, total int) {
		if bar == nil {
			progress = mpb.New(mpb.WithWidth(64))
			bar = progress.AddBar(int64(total),
				mpb.PrependDecorators(
					decor.Name("Evaluating: "),
					decor.CountersNoUnit("%d / %d"),
				),
				mpb.AppendDecorators(
					decor.Percentage(),
					decor.AverageETA(decor.ET_STYLE_GO),
				),
			)
		}
		bar.SetCurrent(int64(done))
		if done == total {
			progress.Wait()
			progress, bar = nil, nil
		}
	}
}

func printClassStats(acc *soundff.Accuracy, names []string) {
	good := color.New(color.FgGreen)
	bad := color.New(color.FgRed)
	log.Println("Per-class accuracy:")
	for class, name := range names {
		if name == "" {
			name = "(unnamed)"
		}
		c := good
		if acc.ClassPercent(class) < acc.Percent() {
			c = bad
		}
		log.Println(c.Sprintf("  %d %-18s %d/%d (%.1f%%)", class, name,
			acc.ClassCorrect[class], acc.ClassTotal[class], acc.ClassPercent(class)))
	}
}
