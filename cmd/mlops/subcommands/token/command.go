package token

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/YounessBoumeshouli/MLOps/cmd/mlops/subcommands/common"
	"github.com/YounessBoumeshouli/MLOps/pkg/admintoken"
	"github.com/YounessBoumeshouli/MLOps/pkg/commandline/flag/flagger"
)

type Flags struct {
	Secret string        `flag:"secret,metavar=SECRET,help=signing secret the serving daemon is configured with."`
	TTL    time.Duration `flag:"ttl,help=how long the token stays valid."`
	Sub    string        `flag:"sub,metavar=NAME,help=subject recorded in the token."`
}

type Command struct {
	flags  *flagger.Flagger[Flags]
	output io.Writer
}

type Option func(*Command) *Command

func WithOutput(w io.Writer) Option {
	return func(c *Command) *Command {
		c.output = w
		return c
	}
}

func New(opt ...Option) subcommands.Command {
	c := &Command{
		flags: flagger.New(Flags{
			Secret: os.Getenv(common.EnvAdminSecret),
			TTL:    time.Hour,
			Sub:    "admin",
		}),
		output: os.Stdout,
	}
	for _, o := range opt {
		c = o(c)
	}
	return c
}

var _ subcommands.Command = &Command{}

func (*Command) Name() string {
	return "token"
}

func (*Command) Synopsis() string {
	return "mint a bearer token for the serving daemon's admin API."
}

func (*Command) Usage() string {
	return `token --secret SECRET [flags]:
	Mint a short-lived bearer token accepted by the serving daemon's
	reload endpoint. The secret must be the one the daemon is
	configured with; it can also come from ` + common.EnvAdminSecret + `.

	The token goes to stdout, ready for
	curl -H "Authorization: Bearer $(mlops token)" .../api/admin/reload

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
		logger.Println("token takes no arguments:", f.Args())
		return subcommands.ExitUsageError
	}

	flags := cmd.flags.Values
	if flags.Secret == "" {
		logger.Printf("--secret (or %s) is required", common.EnvAdminSecret)
		return subcommands.ExitUsageError
	}
	if flags.TTL <= 0 {
		logger.Println("--ttl should be positive:", flags.TTL)
		return subcommands.ExitUsageError
	}

	tok, err := admintoken.Issue([]byte(flags.Secret), flags.Sub, flags.TTL)
	if err != nil {
		logger.Printf("cannot issue the token: %s", err)
		return subcommands.ExitFailure
	}

	fmt.Fprintln(cmd.output, tok)
	logger.Printf("token for %q expires in %s", flags.Sub, flags.TTL)
	return subcommands.ExitSuccess
}
