package inspect

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"

	"github.com/google/subcommands"

	"github.com/YounessBoumeshouli/MLOps/cmd/mlops/subcommands/common"
	"github.com/YounessBoumeshouli/MLOps/pkg/api/types/misc/rfctime"
	"github.com/YounessBoumeshouli/MLOps/pkg/commandline/flag/flagger"
	"github.com/YounessBoumeshouli/MLOps/pkg/model"
	"github.com/YounessBoumeshouli/MLOps/pkg/model/centroid"
	"github.com/YounessBoumeshouli/MLOps/pkg/model/linear"
	kreg "github.com/YounessBoumeshouli/MLOps/pkg/registry"
)

type Flags struct {
	File    string `flag:"file,metavar=PATH,help=artifact document to inspect."`
	Name    string `flag:"name,metavar=MODEL,help=registered model name. --version only."`
	Version string `flag:"version,metavar=N,help=registered version to inspect."`
}

// ModelReader resolves a registered version and reads its artifact.
type ModelReader interface {
	GetModelVersion(ctx context.Context, name string, version string) (kreg.ModelVersion, error)
	FetchArtifact(ctx context.Context, mv kreg.ModelVersion) ([]byte, error)
}

type Command struct {
	flags     *flagger.Flagger[Flags]
	newReader func() (ModelReader, error)
	output    io.Writer
}

type Option func(*Command) *Command

func WithReader(newReader func() (ModelReader, error)) Option {
	return func(c *Command) *Command {
		c.newReader = newReader
		return c
	}
}

func WithOutput(w io.Writer) Option {
	return func(c *Command) *Command {
		c.output = w
		return c
	}
}

func New(opt ...Option) subcommands.Command {
	c := &Command{
		flags: flagger.New(Flags{Name: "ml_classifier"}),
		newReader: func() (ModelReader, error) {
			return common.NewClient()
		},
		output: os.Stdout,
	}
	for _, o := range opt {
		c = o(c)
	}
	return c
}

var _ subcommands.Command = &Command{}

func (*Command) Name() string {
	return "inspect"
}

func (*Command) Synopsis() string {
	return "show what is inside a model artifact."
}

func (*Command) Usage() string {
	return `inspect (--file PATH | --version N) [flags]:
	Decode a model artifact document and report its family, feature
	dimension, classes and training params. The document comes from a
	local file or from a registered version in the registry.

	The payload is decoded with the same families the serving daemon
	knows, so "inspect" succeeding means the daemon could load it.

`
}

func (cmd *Command) SetFlags(f *flag.FlagSet) {
	cmd.flags.SetFlags(f)
}

// Report is what inspect prints about an artifact.
type Report struct {
	// set when the artifact came from the registry.
	Registered *common.Version `json:"registered,omitempty"`

	ModelName    string            `json:"model_name"`
	Format       string            `json:"format"`
	Family       string            `json:"family"`
	InputDim     int               `json:"input_dim"`
	Classes      []int             `json:"classes"`
	NClasses     int               `json:"n_classes"`
	TrainedAt    rfctime.RFC3339   `json:"trained_at"`
	Params       map[string]string `json:"params,omitempty"`
	PayloadBytes int               `json:"payload_bytes"`
}

func (cmd *Command) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	logger := log.New(os.Stderr, "", log.LstdFlags)
	for _, elem := range args {
		switch e := elem.(type) {
		case *log.Logger:
			logger = e
		}
	}

	if 0 < f.NArg() {
		logger.Println("inspect takes no arguments:", f.Args())
		return subcommands.ExitUsageError
	}

	flags := cmd.flags.Values
	if (flags.File == "") == (flags.Version == "") {
		logger.Println("pass exactly one of --file or --version")
		return subcommands.ExitUsageError
	}

	var document []byte
	var registered *common.Version
	switch {
	case flags.File != "":
		d, err := os.ReadFile(flags.File)
		if err != nil {
			logger.Printf("cannot read %s: %s", flags.File, err)
			return subcommands.ExitFailure
		}
		document = d

	default:
		reader, err := cmd.newReader()
		if err != nil {
			logger.Println(err)
			return subcommands.ExitFailure
		}
		mv, err := reader.GetModelVersion(ctx, flags.Name, flags.Version)
		if err != nil {
			logger.Printf("cannot resolve %s version %s: %s", flags.Name, flags.Version, err)
			return subcommands.ExitFailure
		}
		d, err := reader.FetchArtifact(ctx, mv)
		if err != nil {
			logger.Printf("cannot fetch the artifact of %s version %s: %s", flags.Name, flags.Version, err)
			return subcommands.ExitFailure
		}
		document = d
		v := common.ComposeVersion(mv)
		registered = &v
	}

	restorer := model.NewRestorer()
	linear.Register(restorer)
	centroid.Register(restorer)

	artifact, _, err := restorer.Restore(document)
	if err != nil {
		logger.Printf("not a usable model artifact: %s", err)
		return subcommands.ExitFailure
	}

	enc := json.NewEncoder(cmd.output)
	enc.SetIndent("", "    ")
	if err := enc.Encode(Report{
		Registered:   registered,
		ModelName:    artifact.ModelName,
		Format:       artifact.Format,
		Family:       artifact.Family,
		InputDim:     artifact.InputDim,
		Classes:      artifact.Classes,
		NClasses:     len(artifact.Classes),
		TrainedAt:    artifact.TrainedAt,
		Params:       artifact.Params,
		PayloadBytes: len(artifact.Payload),
	}); err != nil {
		logger.Printf("fail to dump the report: %s", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
