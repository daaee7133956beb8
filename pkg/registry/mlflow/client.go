// Package mlflow talks to an MLflow tracking server over its REST API.
//
// The Client implements both sides of the registry boundary: the
// serving-side view (resolve the Production version, fetch its
// artifact) and the training-side view (runs, model versions, stage
// transitions).
package mlflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	xe "github.com/YounessBoumeshouli/MLOps/pkg/errors"
	kreg "github.com/YounessBoumeshouli/MLOps/pkg/registry"
)

// error codes of the MLflow REST API which change control flow.
const (
	codeResourceDoesNotExist  = "RESOURCE_DOES_NOT_EXIST"
	codeResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
)

type Client struct {
	httpclient *http.Client
	api        string

	// object store client for s3:// artifact sources. nil unless WithS3.
	s3 *minio.Client

	// fetched artifacts keyed by source URI. nil unless WithArtifactCache.
	cache *lru.Cache[string, []byte]
}

type Option func(*Client) error

// WithTimeout caps each call against the tracking server.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		c.httpclient.Timeout = d
		return nil
	}
}

// WithS3 lets the client read and write s3:// artifact URIs directly,
// without going through the tracking server's artifact proxy.
func WithS3(endpoint string, accessKey string, secretKey string, useSSL bool) Option {
	return func(c *Client) error {
		mc, err := minio.New(endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
			Secure: useSSL,
		})
		if err != nil {
			return xe.Wrap(err)
		}
		c.s3 = mc
		return nil
	}
}

// WithArtifactCache keeps up to size fetched artifact payloads in
// memory, keyed by source URI. Versions keep their source forever, so
// cached payloads never go stale.
func WithArtifactCache(size int) Option {
	return func(c *Client) error {
		cache, err := lru.New[string, []byte](size)
		if err != nil {
			return xe.Wrap(err)
		}
		c.cache = cache
		return nil
	}
}

// New creates a Client against the MLflow tracking server rooted at
// apiRoot, like "http://mlflow:5000".
func New(apiRoot string, opts ...Option) (*Client, error) {
	hc := new(http.Client)
	c := &Client{
		httpclient: hc,
		api:        strings.TrimSuffix(apiRoot, "/"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Client) apipath(path ...string) string {
	path = append([]string{c.api, "api/2.0/mlflow"}, path...)
	for i := range path {
		path[i] = strings.TrimSuffix(path[i], "/")
	}
	return strings.Join(path, "/")
}

// Ping probes the tracking server's health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.api+"/health", nil)
	if err != nil {
		return xe.Wrap(err)
	}
	resp, err := c.httpclient.Do(req)
	if err != nil {
		return xe.Wrap(unavailable(err))
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return xe.Wrap(fmt.Errorf(
			"%w: health endpoint answered status code %d",
			kreg.ErrUnavailable, resp.StatusCode,
		))
	}
	return nil
}

func (c *Client) post(ctx context.Context, endpoint string, reqBody any, ret any) error {
	resp, err := c.send(ctx, http.MethodPost, endpoint, reqBody)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return unmarshalJsonResponse(resp, ret)
}

// postDiscard is post for endpoints whose success payload carries
// nothing the caller needs.
func (c *Client) postDiscard(ctx context.Context, endpoint string, reqBody any) error {
	resp, err := c.send(ctx, http.MethodPost, endpoint, reqBody)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return discardResponse(resp)
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, ret any) error {
	if len(query) != 0 {
		endpoint = endpoint + "?" + query.Encode()
	}
	resp, err := c.send(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return unmarshalJsonResponse(resp, ret)
}

func (c *Client) send(ctx context.Context, method string, endpoint string, reqBody any) (*http.Response, error) {
	var body io.Reader
	if reqBody != nil {
		buf, err := json.Marshal(reqBody)
		if err != nil {
			return nil, xe.Wrap(err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return nil, xe.Wrap(unavailable(err))
	}
	return resp, nil
}

// unmarshalJsonResponse decodes a 2xx response into ret, and maps
// anything else onto the registry error taxonomy: 5xx and unreadable
// responses mean the registry is unavailable, 4xx carries the MLflow
// error document through as *apiError.
func unmarshalJsonResponse(resp *http.Response, ret any) error {
	if 200 <= resp.StatusCode && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(ret); err != nil {
			return xe.WrapWithNote(
				fmt.Sprintf("unexpected response (status code = %d)", resp.StatusCode),
				err,
			)
		}
		return nil
	}
	return errorFromResponse(resp)
}

func discardResponse(resp *http.Response) error {
	if 200 <= resp.StatusCode && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return errorFromResponse(resp)
}

func errorFromResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return unavailable(err)
	}

	ae := new(apiError)
	if err := json.Unmarshal(body, ae); err != nil || ae.Code == "" {
		ae.Code = http.StatusText(resp.StatusCode)
		ae.Message = strings.TrimSpace(string(body))
	}

	if 500 <= resp.StatusCode {
		return fmt.Errorf("%w: %s", kreg.ErrUnavailable, ae)
	}
	return ae
}

// apiError is the error document of the MLflow REST API.
type apiError struct {
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("mlflow: %s: %s", e.Code, e.Message)
}

func errorCode(err error) string {
	ae := new(apiError)
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

func unavailable(cause error) error {
	return fmt.Errorf("%w: %s", kreg.ErrUnavailable, cause)
}

// wire documents of the MLflow REST API.

type modelVersionDocument struct {
	Name         string `json:"name"`
	Version      string `json:"version"`
	CurrentStage string `json:"current_stage"`
	Source       string `json:"source"`
	RunID        string `json:"run_id"`
}

func (d modelVersionDocument) toModelVersion() kreg.ModelVersion {
	return kreg.ModelVersion{
		Name:    d.Name,
		Version: d.Version,
		Stage:   d.CurrentStage,
		RunID:   d.RunID,
		Source:  d.Source,
	}
}

type runInfoDocument struct {
	RunID        string `json:"run_id"`
	ExperimentID string `json:"experiment_id"`
	ArtifactURI  string `json:"artifact_uri"`
}

type metricDocument struct {
	Key       string  `json:"key"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"`
	Step      int64   `json:"step,omitempty"`
}

type paramDocument struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
