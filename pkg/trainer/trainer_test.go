package trainer_test

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/YounessBoumeshouli/MLOps/pkg/cmp"
	"github.com/YounessBoumeshouli/MLOps/pkg/dataset"
	"github.com/YounessBoumeshouli/MLOps/pkg/model"
	"github.com/YounessBoumeshouli/MLOps/pkg/model/centroid"
	"github.com/YounessBoumeshouli/MLOps/pkg/model/linear"
	kreg "github.com/YounessBoumeshouli/MLOps/pkg/registry"
	"github.com/YounessBoumeshouli/MLOps/pkg/registry/mock"
	"github.com/YounessBoumeshouli/MLOps/pkg/trainer"
)

// scriptedTracker is a Tracker whose every operation succeeds,
// handing out fixed identifiers.
func scriptedTracker() *mock.Tracker {
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
	return tracker
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", log.LstdFlags)
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	smallData := dataset.Config{Samples: 60, Dim: 4, Classes: 2, Seed: 42}

	t.Run("it fits, evaluates and registers a Staging version", func(t *testing.T) {
		tracker := scriptedTracker()

		conf := trainer.Config{
			Data:   smallData,
			Logreg: linear.TrainConfig{Epochs: 50},
		}
		result, err := trainer.Run(ctx, tracker, conf, quietLogger())
		if err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}

		if result.Version.Version != "5" {
			t.Errorf("unmatch: version: (actual, expected) = (%s, 5)", result.Version.Version)
		}
		if result.Version.Stage != kreg.StageStaging {
			t.Errorf(
				"unmatch: stage: (actual, expected) = (%s, %s)",
				result.Version.Stage, kreg.StageStaging,
			)
		}
		if result.TrainSamples != 48 || result.TestSamples != 12 {
			t.Errorf(
				"unmatch: sample counts: (train, test) = (%d, %d), expected (48, 12)",
				result.TrainSamples, result.TestSamples,
			)
		}
		// blobs 3 apart on every axis are trivially separable
		if result.Evaluation.Accuracy < 0.9 {
			t.Errorf("suspiciously low accuracy: %v", result.Evaluation.Accuracy)
		}

		if tracker.Calls.EnsureExperiment.Times() != 1 ||
			tracker.Calls.EnsureExperiment[0].Name != "ml_model_training" {
			t.Errorf("unexpected EnsureExperiment calls: %+v", tracker.Calls.EnsureExperiment)
		}
		if tracker.Calls.CreateRun.Times() != 1 ||
			tracker.Calls.CreateRun[0].ExperimentID != "exp-1" ||
			tracker.Calls.CreateRun[0].RunName != "training_run" {
			t.Errorf("unexpected CreateRun calls: %+v", tracker.Calls.CreateRun)
		}

		logged := tracker.Calls.LogRunData[0]
		if logged.RunID != "run-1" {
			t.Errorf("unmatch: logged run: (actual, expected) = (%s, run-1)", logged.RunID)
		}
		for key, expected := range map[string]string{
			"model_family":  "logreg",
			"epochs":        "50",
			"n_samples":     "60",
			"n_features":    "4",
			"train_samples": "48",
			"test_samples":  "12",
		} {
			if logged.Params[key] != expected {
				t.Errorf(
					"unmatch: param %s: (actual, expected) = (%s, %s)",
					key, logged.Params[key], expected,
				)
			}
		}
		if !cmp.MapEq(logged.Metrics, result.Evaluation.Metrics()) {
			t.Errorf("logged metrics do not match the evaluation: %v", logged.Metrics)
		}

		uploaded := tracker.Calls.UploadModelArtifact[0]
		restorer := model.NewRestorer()
		linear.Register(restorer)
		artifact, predictor, err := restorer.Restore(uploaded.Payload)
		if err != nil {
			t.Fatalf("the uploaded document does not restore: %+v", err)
		}
		if artifact.ModelName != "ml_classifier" || artifact.Family != linear.Family {
			t.Errorf("unexpected artifact envelope: %+v", artifact)
		}
		if predictor.InputDim() != 4 {
			t.Errorf("unmatch: input dim: (actual, expected) = (%d, 4)", predictor.InputDim())
		}

		created := tracker.Calls.CreateModelVersion[0]
		if created.Name != "ml_classifier" ||
			created.Source != "s3://mlflow/1/run-1/artifacts/model" ||
			created.RunID != "run-1" {
			t.Errorf("unexpected CreateModelVersion call: %+v", created)
		}

		transition := tracker.Calls.TransitionStage[0]
		if transition.Stage != kreg.StageStaging || transition.ArchiveExisting {
			t.Errorf("unexpected TransitionStage call: %+v", transition)
		}

		if tracker.Calls.FinishRun.Times() != 1 ||
			tracker.Calls.FinishRun[0].Status != kreg.RunFinished {
			t.Errorf("unexpected FinishRun calls: %+v", tracker.Calls.FinishRun)
		}
	})

	t.Run("with Promote, the version goes Production archiving the old one", func(t *testing.T) {
		tracker := scriptedTracker()

		conf := trainer.Config{
			Data:    smallData,
			Logreg:  linear.TrainConfig{Epochs: 50},
			Promote: true,
		}
		result, err := trainer.Run(ctx, tracker, conf, quietLogger())
		if err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}

		if result.Version.Stage != kreg.StageProduction {
			t.Errorf(
				"unmatch: stage: (actual, expected) = (%s, %s)",
				result.Version.Stage, kreg.StageProduction,
			)
		}
		transition := tracker.Calls.TransitionStage[0]
		if transition.Stage != kreg.StageProduction || !transition.ArchiveExisting {
			t.Errorf("unexpected TransitionStage call: %+v", transition)
		}
	})

	t.Run("the centroid family trains and uploads its own document", func(t *testing.T) {
		tracker := scriptedTracker()

		conf := trainer.Config{
			Data:   dataset.Config{Samples: 60, Dim: 3, Classes: 3, Seed: 7},
			Family: centroid.Family,
		}
		result, err := trainer.Run(ctx, tracker, conf, quietLogger())
		if err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}
		if result.Evaluation.Accuracy < 0.9 {
			t.Errorf("suspiciously low accuracy: %v", result.Evaluation.Accuracy)
		}

		restorer := model.NewRestorer()
		centroid.Register(restorer)
		artifact, _, err := restorer.Restore(tracker.Calls.UploadModelArtifact[0].Payload)
		if err != nil {
			t.Fatalf("the uploaded document does not restore: %+v", err)
		}
		if artifact.Family != centroid.Family {
			t.Errorf("unmatch: family: (actual, expected) = (%s, %s)", artifact.Family, centroid.Family)
		}
		if !cmp.SliceEq(artifact.Classes, []int{0, 1, 2}) {
			t.Errorf("unmatch: classes: %v", artifact.Classes)
		}
	})

	t.Run("a registration failure closes the run as FAILED", func(t *testing.T) {
		fake := errors.New("fake registry error")

		tracker := scriptedTracker()
		tracker.Impl.CreateModelVersion = func(ctx context.Context, name string, source string, runID string) (kreg.ModelVersion, error) {
			return kreg.ModelVersion{}, fake
		}

		conf := trainer.Config{Data: smallData, Logreg: linear.TrainConfig{Epochs: 10}}
		if _, err := trainer.Run(ctx, tracker, conf, quietLogger()); !errors.Is(err, fake) {
			t.Errorf("unexpected error: %+v", err)
		}

		if tracker.Calls.FinishRun.Times() != 1 ||
			tracker.Calls.FinishRun[0].RunID != "run-1" ||
			tracker.Calls.FinishRun[0].Status != kreg.RunFailed {
			t.Errorf("unexpected FinishRun calls: %+v", tracker.Calls.FinishRun)
		}
		if tracker.Calls.TransitionStage.Times() != 0 {
			t.Error("a failed registration should not transition stages")
		}
	})

	t.Run("failures before the run opens touch no run at all", func(t *testing.T) {
		fake := errors.New("fake registry error")

		tracker := mock.NewTracker()
		tracker.Impl.EnsureExperiment = func(ctx context.Context, name string) (string, error) {
			return "", fake
		}
		// every other Impl stays nil: reaching one fails the test

		conf := trainer.Config{Data: smallData, Logreg: linear.TrainConfig{Epochs: 10}}
		if _, err := trainer.Run(ctx, tracker, conf, quietLogger()); !errors.Is(err, fake) {
			t.Errorf("unexpected error: %+v", err)
		}
	})

	t.Run("unknown families are refused before anything is tracked", func(t *testing.T) {
		tracker := mock.NewTracker()
		// every Impl stays nil: reaching one fails the test

		conf := trainer.Config{Data: smallData, Family: "perceptron"}
		if _, err := trainer.Run(ctx, tracker, conf, quietLogger()); err == nil {
			t.Error("Run should fail, but not")
		}
		if tracker.Calls.EnsureExperiment.Times() != 0 {
			t.Error("nothing should be tracked for an unknown family")
		}
	})

	t.Run("the epoch hook reaches gradient descent", func(t *testing.T) {
		tracker := scriptedTracker()

		epochs := 0
		conf := trainer.Config{
			Data: smallData,
			Logreg: linear.TrainConfig{
				Epochs:  13,
				OnEpoch: func(done int) { epochs = done },
			},
		}
		if _, err := trainer.Run(ctx, tracker, conf, quietLogger()); err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}
		if epochs != 13 {
			t.Errorf("unmatch: epochs seen: (actual, expected) = (%d, 13)", epochs)
		}
	})
}

func TestConfigDefaults(t *testing.T) {
	tracker := scriptedTracker()

	names := []string{}
	tracker.Impl.EnsureRegisteredModel = func(ctx context.Context, name string) error {
		names = append(names, name)
		return nil
	}

	conf := trainer.Config{
		ModelName:  "churn",
		Experiment: "churn_experiments",
		RunName:    "run-7",
		Data:       dataset.Config{Samples: 50, Dim: 2, Seed: 3},
		Logreg:     linear.TrainConfig{Epochs: 10},
	}
	if _, err := trainer.Run(context.Background(), tracker, conf, quietLogger()); err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}

	if !cmp.SliceEq(names, []string{"churn"}) {
		t.Errorf("unmatch: registered names: %v", names)
	}
	if tracker.Calls.EnsureExperiment[0].Name != "churn_experiments" {
		t.Errorf("unmatch: experiment: %s", tracker.Calls.EnsureExperiment[0].Name)
	}
	if tracker.Calls.CreateRun[0].RunName != "run-7" {
		t.Errorf("unmatch: run name: %s", tracker.Calls.CreateRun[0].RunName)
	}
}
