package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/YounessBoumeshouli/MLOps/cmd/mlopsd/handlers"
	configs "github.com/YounessBoumeshouli/MLOps/pkg/configs/serving"
	"github.com/YounessBoumeshouli/MLOps/pkg/model"
	"github.com/YounessBoumeshouli/MLOps/pkg/model/centroid"
	"github.com/YounessBoumeshouli/MLOps/pkg/model/linear"
	"github.com/YounessBoumeshouli/MLOps/pkg/predlog"
	pgpredlog "github.com/YounessBoumeshouli/MLOps/pkg/predlog/postgres"
	"github.com/YounessBoumeshouli/MLOps/pkg/registry/mlflow"
	"github.com/YounessBoumeshouli/MLOps/pkg/serving"
	"github.com/YounessBoumeshouli/MLOps/pkg/utils/filewatch"
	"github.com/YounessBoumeshouli/MLOps/pkg/utils/try"
)

func main() {
	logger := log.Default()
	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, os.Kill, syscall.SIGTERM,
	)
	// call cancel() when this function exits
	defer cancel()

	_ = godotenv.Load()

	pconfig := flag.String(
		"config", os.Getenv("MLOPS_SERVING_CONFIG"), "path to config file",
	)
	ploglevel := flag.String("loglevel", "info", "log level. debug|info|warn|error|off")
	flag.Parse()

	conf := try.To(configs.LoadServingConfig(*pconfig)).OrFatal(logger)

	{
		// quit when the config changes; the orchestrator restarts us
		// with the new one.
		wctx, cancel, err := filewatch.UntilModifyContext(ctx, *pconfig)
		if err != nil {
			logger.Fatalf("can not watch configuration: %s", err)
		}
		defer cancel()
		ctx = wctx
	}

	options := []mlflow.Option{
		mlflow.WithTimeout(time.Duration(conf.Registry.Timeout)),
		mlflow.WithArtifactCache(conf.Registry.ArtifactCache),
	}
	if s3 := conf.Registry.S3; s3 != nil {
		options = append(options, mlflow.WithS3(
			s3.Endpoint, s3.AccessKey, s3.SecretKey, s3.UseSSL,
		))
	}
	registry := try.To(mlflow.New(conf.Registry.URI, options...)).OrFatal(logger)

	restorer := model.NewRestorer()
	linear.Register(restorer)
	centroid.Register(restorer)

	cache := serving.NewCache()
	loader := serving.NewLoader(
		cache, registry, restorer, conf.Model.Name, conf.Model.FeatureDim, logger,
	)
	gate := serving.NewGate(
		cache, registry, time.Duration(conf.Health.RegistryProbeInterval), logger,
	)

	var plog handlers.PredictionLog
	var recorder *predlog.Recorder
	if dsn := conf.PredictionLog.DBURI; dsn != "" {
		pool := try.To(pgpredlog.Open(ctx, dsn)).OrFatal(logger)
		defer pool.Close()
		recorder = predlog.NewRecorder(pgpredlog.New(pool), conf.PredictionLog.Buffer, logger)
		plog = recorder
	}

	// a failed first load leaves the process up with an empty cache;
	// the health gate keeps traffic away until some reload succeeds.
	if _, err := loader.Load(ctx); err != nil {
		logger.Printf("initial model load failed: %s", err)
	}

	go func() {
		if err := gate.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("registry probe stopped: %s", err)
		}
	}()
	go func() {
		interval := time.Duration(conf.Registry.PollInterval)
		if err := loader.Watch(ctx, interval); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("registry poll stopped: %s", err)
		}
	}()

	e := BuildServer(
		Deps{
			Cache:         cache,
			Gate:          gate,
			Loader:        loader,
			FeatureDim:    conf.Model.FeatureDim,
			AdminSecret:   []byte(conf.Admin.TokenSecret),
			PredictionLog: plog,
		},
		*ploglevel,
	)

	go func() {
		<-ctx.Done()
		graceful, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.Shutdown(graceful); err != nil {
			logger.Printf("error on shutdown: %s", err)
		}
	}()

	logger.Printf(
		`serving model "%s" on port %d (registry: %s)`,
		conf.Model.Name, conf.Port, conf.Registry.URI,
	)
	if err := e.Start(fmt.Sprintf(":%d", conf.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal(err)
	}

	if recorder != nil {
		if err := recorder.Close(5 * time.Second); err != nil {
			logger.Print(err)
		}
	}
}
