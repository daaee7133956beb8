package versions

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"

	"github.com/google/subcommands"

	"github.com/YounessBoumeshouli/MLOps/cmd/mlops/subcommands/common"
	"github.com/YounessBoumeshouli/MLOps/pkg/commandline/flag/flagger"
	kreg "github.com/YounessBoumeshouli/MLOps/pkg/registry"
)

type Flags struct {
	Name string `flag:"name,metavar=MODEL,help=registered model name."`
}

type Command struct {
	flags      *flagger.Flagger[Flags]
	newTracker func() (kreg.Tracker, error)
	output     io.Writer
}

type Option func(*Command) *Command

func WithTracker(newTracker func() (kreg.Tracker, error)) Option {
	return func(c *Command) *Command {
		c.newTracker = newTracker
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
		newTracker: func() (kreg.Tracker, error) {
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
	return "versions"
}

func (*Command) Synopsis() string {
	return "list the latest version of the model per lifecycle stage."
}

func (*Command) Usage() string {
	return `versions [flags]:
	List the newest registered version of the model in each lifecycle
	stage. The Production entry is the version the serving daemon
	loads.

`
}

func (cmd *Command) SetFlags(f *flag.FlagSet) {
	cmd.flags.SetFlags(f)
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
		logger.Println("versions takes no arguments:", f.Args())
		return subcommands.ExitUsageError
	}

	flags := cmd.flags.Values

	tracker, err := cmd.newTracker()
	if err != nil {
		logger.Println(err)
		return subcommands.ExitFailure
	}

	mvs, err := tracker.LatestVersions(ctx, flags.Name)
	if err != nil {
		logger.Printf("cannot list versions of %s: %s", flags.Name, err)
		return subcommands.ExitFailure
	}

	found := make([]common.Version, 0, len(mvs))
	for _, mv := range mvs {
		found = append(found, common.ComposeVersion(mv))
	}

	enc := json.NewEncoder(cmd.output)
	enc.SetIndent("", "    ")
	if err := enc.Encode(found); err != nil {
		logger.Printf("fail to dump found versions: %s", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
