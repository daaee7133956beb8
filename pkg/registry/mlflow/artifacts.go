package mlflow

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"

	xe "github.com/YounessBoumeshouli/MLOps/pkg/errors"
	kreg "github.com/YounessBoumeshouli/MLOps/pkg/registry"
)

// each model version's source URI points at a directory holding the
// model document under this name.
const artifactFileName = "model.json"

// FetchArtifact reads the model document of the version from wherever
// its source URI points: an s3 bucket, the tracking server's artifact
// proxy, a run-relative path, or the local filesystem.
func (c *Client) FetchArtifact(ctx context.Context, mv kreg.ModelVersion) ([]byte, error) {
	if c.cache != nil {
		if buf, ok := c.cache.Get(mv.Source); ok {
			return buf, nil
		}
	}

	buf, err := c.readArtifact(ctx, mv.Source)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.Add(mv.Source, buf)
	}
	return buf, nil
}

func (c *Client) readArtifact(ctx context.Context, source string) ([]byte, error) {
	switch {
	case strings.HasPrefix(source, "s3://"):
		return c.readS3(ctx, source)
	case strings.HasPrefix(source, "mlflow-artifacts:"):
		return c.getRaw(ctx, c.proxyURL(source))
	case strings.HasPrefix(source, "runs:/"):
		rel := strings.TrimPrefix(source, "runs:/")
		runID, sub, _ := strings.Cut(rel, "/")
		query := url.Values{
			"run_id": {runID},
			"path":   {path.Join(sub, artifactFileName)},
		}
		return c.getRaw(ctx, c.api+"/get-artifact?"+query.Encode())
	case strings.HasPrefix(source, "file://"):
		return readLocal(strings.TrimPrefix(source, "file://"))
	default:
		return readLocal(source)
	}
}

func (c *Client) readS3(ctx context.Context, source string) ([]byte, error) {
	if c.s3 == nil {
		return nil, xe.New(fmt.Sprintf(
			"source %q needs an object store, but none is configured", source,
		))
	}

	bucket, prefix, ok := strings.Cut(strings.TrimPrefix(source, "s3://"), "/")
	if !ok {
		return nil, xe.Wrap(fmt.Errorf(
			"%w: source %q has no object path", kreg.ErrCorruptArtifact, source,
		))
	}

	obj, err := c.s3.GetObject(ctx, bucket, path.Join(prefix, artifactFileName), minio.GetObjectOptions{})
	if err != nil {
		return nil, xe.Wrap(unavailable(err))
	}
	defer obj.Close()

	buf, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, xe.Wrap(fmt.Errorf(
				"%w: %s/%s is missing from the store",
				kreg.ErrCorruptArtifact, source, artifactFileName,
			))
		}
		return nil, xe.Wrap(unavailable(err))
	}
	return buf, nil
}

// proxyURL maps an "mlflow-artifacts:" URI onto the tracking server's
// artifact proxy.
func (c *Client) proxyURL(source string) string {
	rel := strings.TrimPrefix(source, "mlflow-artifacts:")
	rel = strings.TrimLeft(rel, "/")
	return strings.Join(
		[]string{c.api, "api/2.0/mlflow-artifacts/artifacts", rel, artifactFileName},
		"/",
	)
}

func (c *Client) getRaw(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	resp, err := c.httpclient.Do(req)
	if err != nil {
		return nil, xe.Wrap(unavailable(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, xe.Wrap(unavailable(err))
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, xe.Wrap(fmt.Errorf(
			"%w: artifact is missing (%s)", kreg.ErrCorruptArtifact, endpoint,
		))
	case 500 <= resp.StatusCode:
		return nil, xe.Wrap(fmt.Errorf(
			"%w: artifact store answered status code %d",
			kreg.ErrUnavailable, resp.StatusCode,
		))
	default:
		return nil, xe.New(fmt.Sprintf(
			"unexpected status code %d from artifact store", resp.StatusCode,
		))
	}
}

func readLocal(dir string) ([]byte, error) {
	buf, err := os.ReadFile(filepath.Join(dir, artifactFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, xe.Wrap(fmt.Errorf("%w: %s", kreg.ErrCorruptArtifact, err))
		}
		return nil, xe.Wrap(err)
	}
	return buf, nil
}

// UploadModelArtifact stores the model document under the run's
// artifact root and returns the source URI to register for it.
func (c *Client) UploadModelArtifact(ctx context.Context, run kreg.Run, payload []byte) (string, error) {
	root := strings.TrimSuffix(run.ArtifactURI, "/")
	source := root + "/model"

	switch {
	case strings.HasPrefix(root, "s3://"):
		if c.s3 == nil {
			return "", xe.New(fmt.Sprintf(
				"artifact root %q needs an object store, but none is configured", root,
			))
		}
		bucket, prefix, ok := strings.Cut(strings.TrimPrefix(source, "s3://"), "/")
		if !ok {
			return "", xe.New(fmt.Sprintf("artifact root %q has no object path", root))
		}
		_, err := c.s3.PutObject(
			ctx, bucket, path.Join(prefix, artifactFileName),
			bytes.NewReader(payload), int64(len(payload)),
			minio.PutObjectOptions{ContentType: "application/json"},
		)
		if err != nil {
			return "", xe.Wrap(err)
		}

	case strings.HasPrefix(root, "mlflow-artifacts:"):
		if err := c.putRaw(ctx, c.proxyURL(source), payload); err != nil {
			return "", err
		}

	case strings.HasPrefix(root, "file://"), strings.HasPrefix(root, "/"):
		dir := strings.TrimPrefix(source, "file://")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", xe.Wrap(err)
		}
		if err := os.WriteFile(filepath.Join(dir, artifactFileName), payload, 0644); err != nil {
			return "", xe.Wrap(err)
		}

	default:
		return "", xe.New(fmt.Sprintf("artifact root %q: unsupported scheme", root))
	}

	if c.cache != nil {
		c.cache.Add(source, payload)
	}
	return source, nil
}

func (c *Client) putRaw(ctx context.Context, endpoint string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return xe.Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return xe.Wrap(unavailable(err))
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || 300 <= resp.StatusCode {
		return xe.New(fmt.Sprintf(
			"artifact store answered status code %d", resp.StatusCode,
		))
	}
	return nil
}
