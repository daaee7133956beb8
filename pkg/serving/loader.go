package serving

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	xe "github.com/YounessBoumeshouli/MLOps/pkg/errors"
	"github.com/YounessBoumeshouli/MLOps/pkg/loop"
	"github.com/YounessBoumeshouli/MLOps/pkg/metrics"
	"github.com/YounessBoumeshouli/MLOps/pkg/model"
	kreg "github.com/YounessBoumeshouli/MLOps/pkg/registry"
)

// Loader resolves the Production version of the model against the
// registry and publishes it to the cache.
//
// Loads are serialized on a mutex: concurrent triggers queue up, and
// whoever runs after a publish sees the fresh version and no-ops. The
// cache read path never touches that mutex.
type Loader struct {
	cache    *Cache
	registry kreg.Registry
	restorer *model.Restorer

	// registered model name to resolve.
	modelName string

	// feature dimensionality the service is configured for. Artifacts
	// declaring another one are refused. Zero skips the check.
	inputDim int

	logger *log.Logger

	mu sync.Mutex
}

func NewLoader(
	cache *Cache,
	registry kreg.Registry,
	restorer *model.Restorer,
	modelName string,
	inputDim int,
	logger *log.Logger,
) *Loader {
	if logger == nil {
		logger = log.Default()
	}
	return &Loader{
		cache:     cache,
		registry:  registry,
		restorer:  restorer,
		modelName: modelName,
		inputDim:  inputDim,
		logger:    logger,
	}
}

// Load fetches the current Production version and publishes it.
//
// Failures surface as the registry sentinels: ErrNoProductionVersion,
// ErrUnavailable, ErrCorruptArtifact. On failure nothing is published
// and the cache keeps whatever it served before.
func (l *Loader) Load(ctx context.Context) (*Handle, error) {
	handle, _, err := l.Reload(ctx)
	return handle, err
}

// Reload is Load telling also whether the served handle changed.
// Reloading the version already in cache keeps the handle and reports
// false.
func (l *Loader) Reload(ctx context.Context) (*Handle, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	handle, reloaded, err := l.load(ctx)

	outcome := metrics.ReloadOutcome(err)
	if err == nil && !reloaded {
		outcome = metrics.OutcomeNoop
	}
	metrics.ModelReloads.WithLabelValues(outcome).Inc()

	return handle, reloaded, err
}

func (l *Loader) load(ctx context.Context) (*Handle, bool, error) {
	mv, err := l.registry.GetProductionVersion(ctx, l.modelName)
	if err != nil {
		return nil, false, xe.Wrap(err)
	}

	if current, ok := l.cache.Get(); ok &&
		current.ModelVersion.Version == mv.Version &&
		current.ModelVersion.Source == mv.Source {
		return current, false, nil
	}

	document, err := l.registry.FetchArtifact(ctx, mv)
	if err != nil {
		return nil, false, xe.Wrap(err)
	}

	artifact, predictor, err := l.restorer.Restore(document)
	if err != nil {
		return nil, false, xe.Wrap(fmt.Errorf("%w: %s", kreg.ErrCorruptArtifact, err))
	}
	if l.inputDim != 0 && predictor.InputDim() != l.inputDim {
		return nil, false, xe.Wrap(fmt.Errorf(
			"%w: version %s takes %d features, but the service is configured for %d",
			kreg.ErrCorruptArtifact, mv.Version, predictor.InputDim(), l.inputDim,
		))
	}

	var trainingMetrics map[string]float64
	if mv.RunID != "" {
		m, err := l.registry.GetRunMetrics(ctx, mv.RunID)
		if err != nil {
			// not fatal: the model serves without its training metrics
			l.logger.Printf("cannot read training metrics of run %s: %s", mv.RunID, err)
		} else {
			trainingMetrics = m
		}
	}

	handle := &Handle{
		Predictor:       predictor,
		ModelVersion:    mv,
		Artifact:        artifact,
		TrainingMetrics: trainingMetrics,
		LoadedAt:        time.Now(),
	}
	l.cache.Publish(handle)
	metrics.SetTrainingMetrics(mv.Version, trainingMetrics)

	l.logger.Printf(
		"serving model %s version %s (family %s, input_dim %d)",
		mv.Name, mv.Version, artifact.Family, predictor.InputDim(),
	)
	return handle, true, nil
}

// Watch polls the registry on the interval and reloads when Production
// moves, until ctx ends. Reload failures are logged and the last
// published handle keeps serving. interval <= 0 disables polling.
func (l *Loader) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	_, err := loop.Start(
		ctx, true,
		func(ctx context.Context, first bool) (bool, loop.Next) {
			if first {
				// the caller has just loaded; skip straight to waiting
				return false, loop.Continue(interval)
			}
			if _, err := l.Load(ctx); err != nil {
				l.logger.Printf("model reload failed: %s", err)
			}
			return false, loop.Continue(interval)
		},
	)
	return err
}
