package model

import (
	"encoding/json"
	"fmt"

	"github.com/YounessBoumeshouli/MLOps/pkg/api/types/misc/rfctime"
)

// Format identifies the model document layout this package reads and
// writes.
const Format = "mlops/model@v1"

// Artifact is the JSON document a trained model is stored as. The
// envelope is shared by all families; Payload holds family-specific
// parameters.
type Artifact struct {
	Format    string            `json:"format"`
	Family    string            `json:"family"`
	ModelName string            `json:"model_name"`
	InputDim  int               `json:"input_dim"`
	Classes   []int             `json:"classes"`
	TrainedAt rfctime.RFC3339   `json:"trained_at"`
	Params    map[string]string `json:"params,omitempty"`
	Payload   json.RawMessage   `json:"payload"`
}

// Encode renders the artifact as its storage representation.
func (a *Artifact) Encode() ([]byte, error) {
	return json.MarshalIndent(a, "", "  ")
}

// Restorer decodes model documents into Predictors, dispatching on the
// family name. Families are registered explicitly; an empty Restorer
// rejects everything.
type Restorer struct {
	families map[string]func(*Artifact) (Predictor, error)
}

func NewRestorer() *Restorer {
	return &Restorer{families: map[string]func(*Artifact) (Predictor, error){}}
}

// Register binds a family name to its payload decoder. Registering the
// same family twice overwrites the earlier decoder.
func (r *Restorer) Register(family string, decode func(*Artifact) (Predictor, error)) {
	r.families[family] = decode
}

// Restore parses a model document and rebuilds its Predictor.
//
// It fails when the document is not valid JSON, declares another
// format, names an unregistered family, or carries a payload which
// does not agree with its envelope.
func (r *Restorer) Restore(document []byte) (*Artifact, Predictor, error) {
	a := new(Artifact)
	if err := json.Unmarshal(document, a); err != nil {
		return nil, nil, fmt.Errorf("cannot parse model document: %w", err)
	}
	if a.Format != Format {
		return nil, nil, fmt.Errorf(
			"unsupported model document format %q (supported: %q)", a.Format, Format,
		)
	}

	decode, ok := r.families[a.Family]
	if !ok {
		return nil, nil, fmt.Errorf("unknown model family %q", a.Family)
	}

	p, err := decode(a)
	if err != nil {
		return nil, nil, fmt.Errorf("broken %q payload: %w", a.Family, err)
	}
	if p.InputDim() != a.InputDim {
		return nil, nil, fmt.Errorf(
			"model document declares input_dim = %d, but its payload takes %d",
			a.InputDim, p.InputDim(),
		)
	}
	return a, p, nil
}
