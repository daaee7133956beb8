package mlflow_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	kreg "github.com/YounessBoumeshouli/MLOps/pkg/registry"
	"github.com/YounessBoumeshouli/MLOps/pkg/registry/mlflow"
	"github.com/YounessBoumeshouli/MLOps/pkg/utils/try"
)

func TestFetchArtifact(t *testing.T) {
	payload := []byte(`{"format": "mlops/model@v1", "family": "logreg"}`)

	t.Run("it fetches proxied sources through the tracking server", func(t *testing.T) {
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				t.Error("unexpected http method:", r.Method)
			}
			want := "/api/2.0/mlflow-artifacts/artifacts/7/abc/artifacts/model/model.json"
			if r.URL.Path != want {
				t.Errorf("unmatch path: (actual, expected) = (%s, %s)", r.URL.Path, want)
			}
			w.Write(payload)
		})
		ts := httptest.NewServer(h)
		defer ts.Close()

		testee := try.To(mlflow.New(ts.URL)).OrFatal(t)

		actual := try.To(testee.FetchArtifact(context.Background(), kreg.ModelVersion{
			Source: "mlflow-artifacts:/7/abc/artifacts/model",
		})).OrFatal(t)

		if !bytes.Equal(actual, payload) {
			t.Errorf("unmatch payload: (actual, expected) = (%s, %s)", actual, payload)
		}
	})

	t.Run("it fetches run-relative sources via get-artifact", func(t *testing.T) {
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/get-artifact" {
				t.Error("unexpected path:", r.URL.Path)
			}
			if got := r.URL.Query().Get("run_id"); got != "abc" {
				t.Error("unexpected run_id:", got)
			}
			if got := r.URL.Query().Get("path"); got != "model/model.json" {
				t.Error("unexpected path query:", got)
			}
			w.Write(payload)
		})
		ts := httptest.NewServer(h)
		defer ts.Close()

		testee := try.To(mlflow.New(ts.URL)).OrFatal(t)

		actual := try.To(testee.FetchArtifact(context.Background(), kreg.ModelVersion{
			Source: "runs:/abc/model",
		})).OrFatal(t)

		if !bytes.Equal(actual, payload) {
			t.Errorf("unmatch payload: (actual, expected) = (%s, %s)", actual, payload)
		}
	})

	t.Run("it reads local sources from the filesystem", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "model.json"), payload, 0644); err != nil {
			t.Fatal(err)
		}

		testee := try.To(mlflow.New("http://localhost:5000")).OrFatal(t)

		for _, source := range []string{dir, "file://" + dir} {
			actual := try.To(testee.FetchArtifact(context.Background(), kreg.ModelVersion{
				Source: source,
			})).OrFatal(t)
			if !bytes.Equal(actual, payload) {
				t.Errorf("unmatch payload (source=%s)", source)
			}
		}
	})

	t.Run("missing artifacts are ErrCorruptArtifact", func(t *testing.T) {
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		ts := httptest.NewServer(h)
		defer ts.Close()

		testee := try.To(mlflow.New(ts.URL)).OrFatal(t)

		_, err := testee.FetchArtifact(context.Background(), kreg.ModelVersion{
			Source: "mlflow-artifacts:/7/abc/artifacts/model",
		})
		if !errors.Is(err, kreg.ErrCorruptArtifact) {
			t.Errorf("unexpected error: %+v", err)
		}

		_, err = testee.FetchArtifact(context.Background(), kreg.ModelVersion{
			Source: filepath.Join(t.TempDir(), "no-such-dir"),
		})
		if !errors.Is(err, kreg.ErrCorruptArtifact) {
			t.Errorf("unexpected error: %+v", err)
		}
	})

	t.Run("artifact store failures are ErrUnavailable", func(t *testing.T) {
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		ts := httptest.NewServer(h)
		defer ts.Close()

		testee := try.To(mlflow.New(ts.URL)).OrFatal(t)

		_, err := testee.FetchArtifact(context.Background(), kreg.ModelVersion{
			Source: "mlflow-artifacts:/7/abc/artifacts/model",
		})
		if !errors.Is(err, kreg.ErrUnavailable) {
			t.Errorf("unexpected error: %+v", err)
		}
	})

	t.Run("s3 sources need an object store to be configured", func(t *testing.T) {
		testee := try.To(mlflow.New("http://localhost:5000")).OrFatal(t)

		_, err := testee.FetchArtifact(context.Background(), kreg.ModelVersion{
			Source: "s3://mlflow/7/abc/artifacts/model",
		})
		if err == nil {
			t.Error("error is expected, but not")
		}
	})

	t.Run("cached sources are not fetched twice", func(t *testing.T) {
		served := 0
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			served += 1
			w.Write(payload)
		})
		ts := httptest.NewServer(h)
		defer ts.Close()

		testee := try.To(mlflow.New(ts.URL, mlflow.WithArtifactCache(2))).OrFatal(t)

		mv := kreg.ModelVersion{Source: "mlflow-artifacts:/7/abc/artifacts/model"}
		for i := 0; i < 3; i++ {
			actual := try.To(testee.FetchArtifact(context.Background(), mv)).OrFatal(t)
			if !bytes.Equal(actual, payload) {
				t.Error("unmatch payload")
			}
		}

		if served != 1 {
			t.Errorf("artifact store was hit %d times (expected: 1)", served)
		}
	})
}

func TestUploadModelArtifact(t *testing.T) {
	payload := []byte(`{"format": "mlops/model@v1", "family": "centroid"}`)

	t.Run("it writes local artifact roots and reports the source", func(t *testing.T) {
		dir := t.TempDir()
		run := kreg.Run{ID: "abc", ArtifactURI: "file://" + dir + "/artifacts"}

		testee := try.To(mlflow.New("http://localhost:5000")).OrFatal(t)

		source := try.To(
			testee.UploadModelArtifact(context.Background(), run, payload),
		).OrFatal(t)

		if source != "file://"+dir+"/artifacts/model" {
			t.Error("unexpected source:", source)
		}

		stored := try.To(
			os.ReadFile(filepath.Join(dir, "artifacts", "model", "model.json")),
		).OrFatal(t)
		if !bytes.Equal(stored, payload) {
			t.Errorf("unmatch stored payload: (actual, expected) = (%s, %s)", stored, payload)
		}

		// what was uploaded must come back as-is
		fetched := try.To(testee.FetchArtifact(context.Background(), kreg.ModelVersion{
			Source: source,
		})).OrFatal(t)
		if !bytes.Equal(fetched, payload) {
			t.Error("unmatch fetched payload")
		}
	})

	t.Run("it uploads proxied artifact roots through the tracking server", func(t *testing.T) {
		var gotBody []byte
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPut {
				t.Error("unexpected http method:", r.Method)
			}
			want := "/api/2.0/mlflow-artifacts/artifacts/7/abc/artifacts/model/model.json"
			if r.URL.Path != want {
				t.Errorf("unmatch path: (actual, expected) = (%s, %s)", r.URL.Path, want)
			}
			buf := new(bytes.Buffer)
			buf.ReadFrom(r.Body)
			gotBody = buf.Bytes()
			w.WriteHeader(http.StatusOK)
		})
		ts := httptest.NewServer(h)
		defer ts.Close()

		testee := try.To(mlflow.New(ts.URL)).OrFatal(t)

		run := kreg.Run{ID: "abc", ArtifactURI: "mlflow-artifacts:/7/abc/artifacts"}
		source := try.To(
			testee.UploadModelArtifact(context.Background(), run, payload),
		).OrFatal(t)

		if source != "mlflow-artifacts:/7/abc/artifacts/model" {
			t.Error("unexpected source:", source)
		}
		if !bytes.Equal(gotBody, payload) {
			t.Errorf("unmatch uploaded payload: (actual, expected) = (%s, %s)", gotBody, payload)
		}
	})

	t.Run("upload failures are reported", func(t *testing.T) {
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInsufficientStorage)
		})
		ts := httptest.NewServer(h)
		defer ts.Close()

		testee := try.To(mlflow.New(ts.URL)).OrFatal(t)

		run := kreg.Run{ID: "abc", ArtifactURI: "mlflow-artifacts:/7/abc/artifacts"}
		if _, err := testee.UploadModelArtifact(context.Background(), run, payload); err == nil {
			t.Error("error is expected, but not")
		}
	})
}
