package train_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/google/subcommands"

	"github.com/YounessBoumeshouli/MLOps/cmd/mlops/subcommands/common"
	"github.com/YounessBoumeshouli/MLOps/cmd/mlops/subcommands/train"
	clitestutil "github.com/YounessBoumeshouli/MLOps/internal/testutils/cli"
	"github.com/YounessBoumeshouli/MLOps/pkg/cmp"
	"github.com/YounessBoumeshouli/MLOps/pkg/dataset"
	"github.com/YounessBoumeshouli/MLOps/pkg/model/linear"
	kreg "github.com/YounessBoumeshouli/MLOps/pkg/registry"
	"github.com/YounessBoumeshouli/MLOps/pkg/registry/mock"
	"github.com/YounessBoumeshouli/MLOps/pkg/trainer"
)

func fixtureResult() *trainer.Result {
	return &trainer.Result{
		Run: kreg.Run{
			ID: "run-1", ExperimentID: "exp-1",
			ArtifactURI: "s3://mlflow/1/run-1/artifacts",
		},
		Version: kreg.ModelVersion{
			Name: "iris-classifier", Version: "5", Stage: kreg.StageStaging,
			RunID: "run-1", Source: "s3://mlflow/1/run-1/artifacts/model",
		},
		Evaluation: trainer.Evaluation{
			Accuracy: 0.95, Precision: 0.94, Recall: 0.93, F1: 0.935,
		},
		TrainSamples: 48,
		TestSamples:  12,
	}
}

func TestTrainCommand(t *testing.T) {
	t.Run("it hands the flag-shaped config to the task and prints the summary", func(t *testing.T) {
		taskCalled := 0
		var got trainer.Config
		mocktask := func(ctx context.Context, tracker kreg.Tracker, conf trainer.Config, l *log.Logger) (*trainer.Result, error) {
			taskCalled += 1
			got = conf
			return fixtureResult(), nil
		}

		out := new(bytes.Buffer)
		testee := train.New(
			train.WithTask(mocktask),
			train.WithTracker(func() (kreg.Tracker, error) { return mock.NewTracker(), nil }),
			train.WithOutput(out),
			train.WithProgressOut(io.Discard),
		)

		status := clitestutil.Execute(
			t, testee,
			"-name", "iris-classifier", "-experiment", "iris-exp", "-run-name", "nightly",
			"-samples", "60", "-features", "4", "-seed", "7",
			"-test-fraction", "0.25", "-epochs", "5", "-learning-rate", "0.5",
			"-promote",
		)
		if status != subcommands.ExitSuccess {
			t.Fatal("unmatch exit status:", status)
		}
		if taskCalled != 1 {
			t.Fatal("unmatch task invocations:", taskCalled)
		}

		if got.ModelName != "iris-classifier" || got.Experiment != "iris-exp" || got.RunName != "nightly" {
			t.Errorf("unmatch run naming: %+v", got)
		}
		if got.Family != linear.Family {
			t.Error("unmatch family:", got.Family)
		}
		if expected := (dataset.Config{Samples: 60, Dim: 4, Classes: 2, Seed: 7}); got.Data != expected {
			t.Errorf("unmatch dataset config: (actual, expected) = (%+v, %+v)", got.Data, expected)
		}
		if got.TestFraction != 0.25 {
			t.Error("unmatch test fraction:", got.TestFraction)
		}
		if got.Logreg.LearningRate != 0.5 || got.Logreg.Epochs != 5 {
			t.Errorf("unmatch gradient descent tuning: %+v", got.Logreg)
		}
		if !got.Promote {
			t.Error("promote should be set")
		}
		if got.Logreg.OnEpoch == nil {
			t.Error("the progress hook should be set")
		}

		var summary train.Summary
		if err := json.Unmarshal(out.Bytes(), &summary); err != nil {
			t.Fatal(err)
		}
		expectedVersion := common.Version{
			Name: "iris-classifier", Version: "5", Stage: kreg.StageStaging,
			RunID: "run-1", Source: "s3://mlflow/1/run-1/artifacts/model",
		}
		if summary.Version != expectedVersion {
			t.Errorf("unmatch version: (actual, expected) = (%+v, %+v)", summary.Version, expectedVersion)
		}
		if !cmp.MapEq(summary.Metrics, map[string]float64{
			"accuracy": 0.95, "precision": 0.94, "recall": 0.93, "f1_score": 0.935,
		}) {
			t.Errorf("unmatch metrics: %+v", summary.Metrics)
		}
		if summary.TrainSamples != 48 || summary.TestSamples != 12 {
			t.Errorf("unmatch sample counts: %+v", summary)
		}
	})

	t.Run("with -q the task gets no progress hook", func(t *testing.T) {
		var got trainer.Config
		mocktask := func(ctx context.Context, tracker kreg.Tracker, conf trainer.Config, l *log.Logger) (*trainer.Result, error) {
			got = conf
			return fixtureResult(), nil
		}

		testee := train.New(
			train.WithTask(mocktask),
			train.WithTracker(func() (kreg.Tracker, error) { return mock.NewTracker(), nil }),
			train.WithOutput(io.Discard),
		)

		if status := clitestutil.Execute(t, testee, "-q"); status != subcommands.ExitSuccess {
			t.Fatal("unmatch exit status:", status)
		}
		if got.Logreg.OnEpoch != nil {
			t.Error("the progress hook should not be set")
		}
	})

	t.Run("an unknown family is refused before the tracker is built", func(t *testing.T) {
		taskCalled := 0
		factoryCalled := false
		testee := train.New(
			train.WithTask(func(context.Context, kreg.Tracker, trainer.Config, *log.Logger) (*trainer.Result, error) {
				taskCalled += 1
				return fixtureResult(), nil
			}),
			train.WithTracker(func() (kreg.Tracker, error) {
				factoryCalled = true
				return mock.NewTracker(), nil
			}),
			train.WithOutput(io.Discard),
			train.WithProgressOut(io.Discard),
		)

		if status := clitestutil.Execute(t, testee, "-family", "perceptron"); status != subcommands.ExitUsageError {
			t.Error("unmatch exit status:", status)
		}
		if taskCalled != 0 || factoryCalled {
			t.Error("nothing should run on a usage error")
		}
	})

	t.Run("positional arguments are refused", func(t *testing.T) {
		taskCalled := 0
		testee := train.New(
			train.WithTask(func(context.Context, kreg.Tracker, trainer.Config, *log.Logger) (*trainer.Result, error) {
				taskCalled += 1
				return fixtureResult(), nil
			}),
			train.WithOutput(io.Discard),
			train.WithProgressOut(io.Discard),
		)

		if status := clitestutil.Execute(t, testee, "extra"); status != subcommands.ExitUsageError {
			t.Error("unmatch exit status:", status)
		}
		if taskCalled != 0 {
			t.Error("the task should not run")
		}
	})

	t.Run("a broken tracker factory fails the command", func(t *testing.T) {
		taskCalled := 0
		out := new(bytes.Buffer)
		testee := train.New(
			train.WithTask(func(context.Context, kreg.Tracker, trainer.Config, *log.Logger) (*trainer.Result, error) {
				taskCalled += 1
				return fixtureResult(), nil
			}),
			train.WithTracker(func() (kreg.Tracker, error) {
				return nil, errors.New("fake error")
			}),
			train.WithOutput(out),
			train.WithProgressOut(io.Discard),
		)

		if status := clitestutil.Execute(t, testee, "-q"); status != subcommands.ExitFailure {
			t.Error("unmatch exit status:", status)
		}
		if taskCalled != 0 {
			t.Error("the task should not run")
		}
		if out.Len() != 0 {
			t.Error("nothing should be printed:", out.String())
		}
	})

	t.Run("a failed run prints nothing", func(t *testing.T) {
		out := new(bytes.Buffer)
		testee := train.New(
			train.WithTask(func(context.Context, kreg.Tracker, trainer.Config, *log.Logger) (*trainer.Result, error) {
				return nil, errors.New("fake error")
			}),
			train.WithTracker(func() (kreg.Tracker, error) { return mock.NewTracker(), nil }),
			train.WithOutput(out),
			train.WithProgressOut(io.Discard),
		)

		if status := clitestutil.Execute(t, testee); status != subcommands.ExitFailure {
			t.Error("unmatch exit status:", status)
		}
		if out.Len() != 0 {
			t.Error("nothing should be printed:", out.String())
		}
	})

	t.Run("the default task drives the tracker end to end", func(t *testing.T) {
		tracker := mock.NewTracker()
		tracker.Impl.EnsureExperiment = func(ctx context.Context, name string) (string, error) {
			return "exp-1", nil
		}
		tracker.Impl.CreateRun = func(ctx context.Context, experimentID string, runName string) (kreg.Run, error) {
			return kreg.Run{
				ID: "run-1", ExperimentID: experimentID,
				ArtifactURI: "s3://mlflow/1/run-1/artifacts",
			}, nil
		}
		tracker.Impl.LogRunData = func(ctx context.Context, runID string, params map[string]string, metrics map[string]float64) error {
			return nil
		}
		tracker.Impl.UploadModelArtifact = func(ctx context.Context, run kreg.Run, payload []byte) (string, error) {
			return run.ArtifactURI + "/model", nil
		}
		tracker.Impl.EnsureRegisteredModel = func(ctx context.Context, name string) error {
			return nil
		}
		tracker.Impl.CreateModelVersion = func(ctx context.Context, name string, source string, runID string) (kreg.ModelVersion, error) {
			return kreg.ModelVersion{
				Name: name, Version: "5", Stage: kreg.StageNone,
				RunID: runID, Source: source,
			}, nil
		}
		tracker.Impl.TransitionStage = func(ctx context.Context, name string, version string, stage string, archiveExisting bool) (kreg.ModelVersion, error) {
			return kreg.ModelVersion{Name: name, Version: version, Stage: stage}, nil
		}
		tracker.Impl.FinishRun = func(ctx context.Context, runID string, status string) error {
			return nil
		}

		out := new(bytes.Buffer)
		testee := train.New(
			train.WithTracker(func() (kreg.Tracker, error) { return tracker, nil }),
			train.WithOutput(out),
			train.WithProgressOut(io.Discard),
		)

		status := clitestutil.Execute(
			t, testee,
			"-samples", "60", "-features", "4", "-seed", "42", "-epochs", "50",
		)
		if status != subcommands.ExitSuccess {
			t.Fatal("unmatch exit status:", status)
		}

		if !cmp.SliceEq(tracker.Calls.FinishRun, []struct {
			RunID  string
			Status string
		}{{RunID: "run-1", Status: kreg.RunFinished}}) {
			t.Errorf("unmatch FinishRun calls: %+v", tracker.Calls.FinishRun)
		}

		var summary train.Summary
		if err := json.Unmarshal(out.Bytes(), &summary); err != nil {
			t.Fatal(err)
		}
		if summary.Version.Stage != kreg.StageStaging {
			t.Error("unmatch stage:", summary.Version.Stage)
		}
		if summary.TrainSamples != 48 || summary.TestSamples != 12 {
			t.Errorf("unmatch sample counts: %+v", summary)
		}
		// blobs 3 apart on every axis are trivially separable.
		if summary.Metrics["accuracy"] < 0.9 {
			t.Error("unexpectedly poor fit:", summary.Metrics)
		}
	})
}
