// Package trainer fits a model family on a synthetic dataset,
// evaluates it, and records the whole run in the model registry:
// params, metrics, the artifact document, and a registered version.
package trainer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/YounessBoumeshouli/MLOps/pkg/api/types/misc/rfctime"
	"github.com/YounessBoumeshouli/MLOps/pkg/dataset"
	xe "github.com/YounessBoumeshouli/MLOps/pkg/errors"
	"github.com/YounessBoumeshouli/MLOps/pkg/model"
	"github.com/YounessBoumeshouli/MLOps/pkg/model/centroid"
	"github.com/YounessBoumeshouli/MLOps/pkg/model/linear"
	kreg "github.com/YounessBoumeshouli/MLOps/pkg/registry"
)

// Config of one training run. Zero values fall back to defaults.
type Config struct {
	ModelName  string // registered model, default "ml_classifier"
	Experiment string // default "ml_model_training"
	RunName    string // default "training_run"

	// model family to fit: linear.Family (default) or centroid.Family.
	Family string

	// dataset to generate. Its seed also shuffles the train/test split.
	Data dataset.Config

	// share of samples held out for evaluation. default 0.2.
	TestFraction float64

	// gradient descent tuning; linear.Family only.
	Logreg linear.TrainConfig

	// stage the new version Production, archiving the version
	// currently there. Off, the version goes to Staging.
	Promote bool
}

func (c Config) withDefaults() Config {
	if c.ModelName == "" {
		c.ModelName = "ml_classifier"
	}
	if c.Experiment == "" {
		c.Experiment = "ml_model_training"
	}
	if c.RunName == "" {
		c.RunName = "training_run"
	}
	if c.Family == "" {
		c.Family = linear.Family
	}
	c.Data = c.Data.WithDefaults()
	if c.TestFraction == 0 {
		c.TestFraction = 0.2
	}
	return c
}

// Result of a finished training run.
type Result struct {
	Run     kreg.Run
	Version kreg.ModelVersion

	Evaluation Evaluation

	TrainSamples int
	TestSamples  int
}

// Run generates the dataset, fits and evaluates the model, then plays
// the tracking protocol: open a run, log params and metrics, upload
// the artifact, register a version and stage it, close the run.
//
// Failures after the run was opened close it as FAILED before
// reporting; nothing retries.
func Run(ctx context.Context, tracker kreg.Tracker, conf Config, logger *log.Logger) (*Result, error) {
	conf = conf.withDefaults()
	if logger == nil {
		logger = log.Default()
	}

	set, err := dataset.Generate(conf.Data)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	train, test, err := dataset.Split(set, conf.TestFraction, conf.Data.Seed)
	if err != nil {
		return nil, xe.Wrap(err)
	}

	predictor, payload, familyParams, err := fit(train, conf)
	if err != nil {
		return nil, xe.Wrap(err)
	}

	ev, err := Evaluate(predictor, test)
	if err != nil {
		return nil, xe.Wrap(err)
	}

	artifact := &model.Artifact{
		Format:    model.Format,
		Family:    conf.Family,
		ModelName: conf.ModelName,
		InputDim:  predictor.InputDim(),
		Classes:   predictor.Classes(),
		TrainedAt: rfctime.New(time.Now()),
		Params:    familyParams,
		Payload:   payload,
	}
	document, err := artifact.Encode()
	if err != nil {
		return nil, xe.Wrap(err)
	}

	params := map[string]string{}
	for k, v := range conf.Data.Params() {
		params[k] = v
	}
	for k, v := range familyParams {
		params[k] = v
	}
	params["train_samples"] = fmt.Sprintf("%d", train.Len())
	params["test_samples"] = fmt.Sprintf("%d", test.Len())

	experimentID, err := tracker.EnsureExperiment(ctx, conf.Experiment)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	run, err := tracker.CreateRun(ctx, experimentID, conf.RunName)
	if err != nil {
		return nil, xe.Wrap(err)
	}

	mv, err := register(ctx, tracker, run, conf, document, params, ev)
	if err != nil {
		if ferr := tracker.FinishRun(ctx, run.ID, kreg.RunFailed); ferr != nil {
			logger.Printf("cannot close run %s: %s", run.ID, ferr)
		}
		return nil, err
	}

	logger.Printf(
		"run %s: registered %s version %s staged %s (accuracy %.4f)",
		run.ID, mv.Name, mv.Version, mv.Stage, ev.Accuracy,
	)
	return &Result{
		Run:          run,
		Version:      mv,
		Evaluation:   ev,
		TrainSamples: train.Len(),
		TestSamples:  test.Len(),
	}, nil
}

func fit(train dataset.Set, conf Config) (model.Predictor, json.RawMessage, map[string]string, error) {
	switch conf.Family {
	case linear.Family:
		m, err := linear.Train(train.Features, train.Labels, conf.Logreg)
		if err != nil {
			return nil, nil, nil, err
		}
		payload, err := m.Payload()
		if err != nil {
			return nil, nil, nil, err
		}
		return m, payload, conf.Logreg.Params(), nil

	case centroid.Family:
		m, err := centroid.Train(train.Features, train.Labels)
		if err != nil {
			return nil, nil, nil, err
		}
		payload, err := m.Payload()
		if err != nil {
			return nil, nil, nil, err
		}
		return m, payload, map[string]string{"model_family": centroid.Family}, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown model family %q", conf.Family)
	}
}

func register(
	ctx context.Context,
	tracker kreg.Tracker,
	run kreg.Run,
	conf Config,
	document []byte,
	params map[string]string,
	ev Evaluation,
) (kreg.ModelVersion, error) {
	none := kreg.ModelVersion{}

	if err := tracker.LogRunData(ctx, run.ID, params, ev.Metrics()); err != nil {
		return none, xe.Wrap(err)
	}

	source, err := tracker.UploadModelArtifact(ctx, run, document)
	if err != nil {
		return none, xe.Wrap(err)
	}

	if err := tracker.EnsureRegisteredModel(ctx, conf.ModelName); err != nil {
		return none, xe.Wrap(err)
	}
	mv, err := tracker.CreateModelVersion(ctx, conf.ModelName, source, run.ID)
	if err != nil {
		return none, xe.Wrap(err)
	}

	stage, archive := kreg.StageStaging, false
	if conf.Promote {
		stage, archive = kreg.StageProduction, true
	}
	mv, err = tracker.TransitionStage(ctx, conf.ModelName, mv.Version, stage, archive)
	if err != nil {
		return none, xe.Wrap(err)
	}

	if err := tracker.FinishRun(ctx, run.ID, kreg.RunFinished); err != nil {
		return none, xe.Wrap(err)
	}
	return mv, nil
}
