package train

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"

	pb "github.com/cheggaaa/pb/v3"
	"github.com/google/subcommands"

	"github.com/YounessBoumeshouli/MLOps/cmd/mlops/subcommands/common"
	"github.com/YounessBoumeshouli/MLOps/pkg/commandline/flag/flagger"
	"github.com/YounessBoumeshouli/MLOps/pkg/dataset"
	"github.com/YounessBoumeshouli/MLOps/pkg/model/centroid"
	"github.com/YounessBoumeshouli/MLOps/pkg/model/linear"
	kreg "github.com/YounessBoumeshouli/MLOps/pkg/registry"
	"github.com/YounessBoumeshouli/MLOps/pkg/trainer"
)

type Flags struct {
	Name         string  `flag:"name,metavar=MODEL,help=name to register the model under."`
	Experiment   string  `flag:"experiment,metavar=NAME,help=tracking experiment to record the run in."`
	RunName      string  `flag:"run-name,metavar=NAME,help=name of the tracking run."`
	Family       string  `flag:"family,metavar=logreg|centroid,help=model family to fit."`
	Samples      int     `flag:"samples,help=number of samples to generate."`
	Features     int     `flag:"features,help=feature dimension."`
	Classes      int     `flag:"classes,help=number of classes."`
	Seed         int64   `flag:"seed,help=dataset and train/test split seed."`
	TestFraction float64 `flag:"test-fraction,help=share of samples held out for evaluation."`
	Epochs       int     `flag:"epochs,help=gradient descent epochs. logreg only."`
	LearningRate float64 `flag:"learning-rate,help=gradient descent step size. logreg only."`
	Promote      bool    `flag:"promote,help=stage the new version Production, archiving the current one."`
	Quiet        bool    `flag:"quiet,short=q,help=suppress the progress bar."`
}

// Task fits and registers a model, the way trainer.Run does.
type Task func(ctx context.Context, tracker kreg.Tracker, conf trainer.Config, logger *log.Logger) (*trainer.Result, error)

type Command struct {
	flags       *flagger.Flagger[Flags]
	task        Task
	newTracker  func() (kreg.Tracker, error)
	progressOut io.Writer
	output      io.Writer
}

type Option func(*Command) *Command

func WithTask(task Task) Option {
	return func(c *Command) *Command {
		c.task = task
		return c
	}
}

func WithTracker(newTracker func() (kreg.Tracker, error)) Option {
	return func(c *Command) *Command {
		c.newTracker = newTracker
		return c
	}
}

func WithProgressOut(w io.Writer) Option {
	return func(c *Command) *Command {
		c.progressOut = w
		return c
	}
}

func WithOutput(w io.Writer) Option {
	return func(c *Command) *Command {
		c.output = w
		return c
	}
}

func New(opt ...Option) subcommands.Command {
	c := &Command{
		flags: flagger.New(Flags{
			Name:         "ml_classifier",
			Experiment:   "ml_model_training",
			RunName:      "training_run",
			Family:       linear.Family,
			Samples:      1000,
			Features:     20,
			Classes:      2,
			Seed:         42,
			TestFraction: 0.2,
			Epochs:       200,
			LearningRate: 0.1,
		}),
		task: trainer.Run,
		newTracker: func() (kreg.Tracker, error) {
			return common.NewClient()
		},
		progressOut: os.Stderr,
		output:      os.Stdout,
	}
	for _, o := range opt {
		c = o(c)
	}
	return c
}

var _ subcommands.Command = &Command{}

func (*Command) Name() string {
	return "train"
}

func (*Command) Synopsis() string {
	return "fit a classifier on a synthetic dataset and register it."
}

func (*Command) Usage() string {
	return `train [flags]:
	Generate a seeded synthetic dataset, fit the selected model family,
	evaluate it on a held-out split, and record the whole run in the
	registry: params, metrics, the model artifact and a new version.

	The version is staged Staging. Pass --promote to stage it
	Production, archiving the version currently there.

`
}

func (cmd *Command) SetFlags(f *flag.FlagSet) {
	cmd.flags.SetFlags(f)
}

// Summary is what a successful run prints.
type Summary struct {
	Version      common.Version     `json:"version"`
	Metrics      map[string]float64 `json:"metrics"`
	TrainSamples int                `json:"train_samples"`
	TestSamples  int                `json:"test_samples"`
}

func (cmd *Command) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	logger := log.New(os.Stderr, "", log.LstdFlags)
	for _, elem := range args {
		switch e := elem.(type) {
		case *log.Logger:
			logger = e
		}
	}

	if 0 < f.NArg() {
		logger.Println("train takes no arguments:", f.Args())
		return subcommands.ExitUsageError
	}

	flags := cmd.flags.Values
	switch flags.Family {
	case linear.Family, centroid.Family:
	default:
		logger.Printf(
			"unknown model family %q. pick one of: %s, %s",
			flags.Family, linear.Family, centroid.Family,
		)
		return subcommands.ExitUsageError
	}

	conf := trainer.Config{
		ModelName:  flags.Name,
		Experiment: flags.Experiment,
		RunName:    flags.RunName,
		Family:     flags.Family,
		Data: dataset.Config{
			Samples: flags.Samples,
			Dim:     flags.Features,
			Classes: flags.Classes,
			Seed:    flags.Seed,
		},
		TestFraction: flags.TestFraction,
		Logreg: linear.TrainConfig{
			LearningRate: flags.LearningRate,
			Epochs:       flags.Epochs,
		},
		Promote: flags.Promote,
	}

	tracker, err := cmd.newTracker()
	if err != nil {
		logger.Println(err)
		return subcommands.ExitFailure
	}

	var bar *pb.ProgressBar
	if flags.Family == linear.Family && !flags.Quiet {
		bar = pb.New(flags.Epochs)
		bar.SetWriter(cmd.progressOut)
		if err := bar.Err(); err != nil {
			logger.Println(err)
			return subcommands.ExitFailure
		}
		bar.Start()
		conf.Logreg.OnEpoch = func(done int) {
			bar.SetCurrent(int64(done))
		}
	}

	result, err := cmd.task(ctx, tracker, conf, logger)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		logger.Println(err)
		return subcommands.ExitFailure
	}

	enc := json.NewEncoder(cmd.output)
	enc.SetIndent("", "    ")
	if err := enc.Encode(Summary{
		Version:      common.ComposeVersion(result.Version),
		Metrics:      result.Evaluation.Metrics(),
		TrainSamples: result.TrainSamples,
		TestSamples:  result.TestSamples,
	}); err != nil {
		logger.Printf("fail to dump the training summary: %s", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
