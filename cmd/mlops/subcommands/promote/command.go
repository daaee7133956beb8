package promote

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
	Name    string `flag:"name,metavar=MODEL,help=registered model name."`
	Version string `flag:"version,metavar=N,help=version to stage Production."`
	Archive bool   `flag:"archive,help=archive the version currently in Production."`
}

// Task stages the version Production, the way RunPromote does.
type Task func(ctx context.Context, tracker kreg.Tracker, name string, version string, archive bool) (kreg.ModelVersion, error)

type Command struct {
	flags      *flagger.Flagger[Flags]
	task       Task
	newTracker func() (kreg.Tracker, error)
	output     io.Writer
}

type Option func(*Command) *Command

func WithTask(task Task) Option {
	return func(c *Command) *Command {
		c.task = task
		return c
	}
}

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
		flags: flagger.New(Flags{
			Name:    "ml_classifier",
			Archive: true,
		}),
		task: RunPromote,
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
	return "promote"
}

func (*Command) Synopsis() string {
	return "stage a registered model version Production."
}

func (*Command) Usage() string {
	return `promote --version N [flags]:
	Stage an already registered version Production, so the serving
	daemon picks it up on its next reload. The version currently in
	Production is archived unless --archive=false.

	Promoting an older version is how a bad model is rolled back.

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
		logger.Println("promote takes no arguments:", f.Args())
		return subcommands.ExitUsageError
	}

	flags := cmd.flags.Values
	if flags.Version == "" {
		logger.Println("--version is required")
		return subcommands.ExitUsageError
	}

	tracker, err := cmd.newTracker()
	if err != nil {
		logger.Println(err)
		return subcommands.ExitFailure
	}

	mv, err := cmd.task(ctx, tracker, flags.Name, flags.Version, flags.Archive)
	if err != nil {
		logger.Printf("cannot promote %s version %s: %s", flags.Name, flags.Version, err)
		return subcommands.ExitFailure
	}

	enc := json.NewEncoder(cmd.output)
	enc.SetIndent("", "    ")
	if err := enc.Encode(common.ComposeVersion(mv)); err != nil {
		logger.Printf("fail to dump the promoted version: %s", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func RunPromote(ctx context.Context, tracker kreg.Tracker, name string, version string, archive bool) (kreg.ModelVersion, error) {
	return tracker.TransitionStage(ctx, name, version, kreg.StageProduction, archive)
}
