package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	bindserving "github.com/YounessBoumeshouli/MLOps/pkg/api-types-binding/serving"
	apierr "github.com/YounessBoumeshouli/MLOps/pkg/api/types/errors"
	"github.com/YounessBoumeshouli/MLOps/pkg/api/types/predict"
	"github.com/YounessBoumeshouli/MLOps/pkg/metrics"
	"github.com/YounessBoumeshouli/MLOps/pkg/predlog"
	"github.com/YounessBoumeshouli/MLOps/pkg/serving"
)

// endpoint label of the api_errors_total counter.
const endpointPredict = "/api/predict"

// PredictionLog is where the predict handler reports served
// predictions. Satisfied by *predlog.Recorder. nil disables logging.
type PredictionLog interface {
	Put(predlog.Record)
}

// PredictHandler scores one feature vector with the model in cache.
//
// Validation happens before the cache is read, and the handle is read
// once: the response is attributed to a single version even when a
// reload lands mid-request.
func PredictHandler(cache *serving.Cache, featureDim int, plog PredictionLog) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := predict.Request{}
		if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
			metrics.APIErrors.WithLabelValues(endpointPredict, metrics.ErrorTypeInvalidInput).Inc()
			return apierr.UnprocessableEntity(
				`send a JSON body like {"features": [...]}`, err,
			)
		}
		if err := req.Validate(featureDim); err != nil {
			metrics.APIErrors.WithLabelValues(endpointPredict, metrics.ErrorTypeInvalidInput).Inc()
			return apierr.UnprocessableEntity(err.Error(), err)
		}

		h, ok := cache.Get()
		if !ok {
			metrics.APIErrors.WithLabelValues(endpointPredict, metrics.ErrorTypeServiceUnavailable).Inc()
			return apierr.ServiceUnavailable("no model version is loaded yet. retry later.", nil)
		}

		begin := time.Now()
		prediction, err := h.Predictor.Predict(req.Features)
		elapsed := time.Since(begin)

		if err != nil {
			metrics.APIErrors.WithLabelValues(endpointPredict, metrics.ErrorTypeInferenceError).Inc()
			if plog != nil {
				plog.Put(predlog.Record{
					ID:           uuid.New(),
					RecordedAt:   begin,
					ModelVersion: h.Version(),
					Features:     req.Features,
					LatencyMS:    float64(elapsed) / float64(time.Millisecond),
					Outcome:      predlog.OutcomeInferenceError,
				})
			}
			return apierr.InternalServerError(err)
		}

		metrics.PredictionsTotal.WithLabelValues(h.Version()).Inc()
		metrics.PredictionDuration.Observe(elapsed.Seconds())

		resp := bindserving.ComposePrediction(prediction, h.Version(), time.Now())
		if plog != nil {
			plog.Put(predlog.Record{
				ID:           uuid.New(),
				RecordedAt:   begin,
				ModelVersion: h.Version(),
				Features:     req.Features,
				Prediction:   resp.Prediction,
				Scores:       prediction.Probability,
				LatencyMS:    float64(elapsed) / float64(time.Millisecond),
				Outcome:      predlog.OutcomeOK,
			})
		}

		return c.JSON(http.StatusOK, resp)
	}
}
