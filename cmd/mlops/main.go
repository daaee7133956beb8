package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"

	"github.com/YounessBoumeshouli/MLOps/cmd/mlops/subcommands/inspect"
	"github.com/YounessBoumeshouli/MLOps/cmd/mlops/subcommands/promote"
	"github.com/YounessBoumeshouli/MLOps/cmd/mlops/subcommands/token"
	"github.com/YounessBoumeshouli/MLOps/cmd/mlops/subcommands/train"
	"github.com/YounessBoumeshouli/MLOps/cmd/mlops/subcommands/versions"
)

func main() {
	logger := log.New(os.Stderr, "[mlops] ", log.LstdFlags)

	// .env keeps the registry location and credentials out of the
	// command line. Missing file is fine.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer cancel()

	commander := subcommands.NewCommander(flag.CommandLine, "mlops")
	commander.Register(commander.HelpCommand(), "help")
	commander.Register(commander.FlagsCommand(), "help")
	commander.Register(commander.CommandsCommand(), "help")

	commander.Register(train.New(), "model lifecycle")
	commander.Register(promote.New(), "model lifecycle")
	commander.Register(versions.New(), "model lifecycle")
	commander.Register(inspect.New(), "model lifecycle")

	commander.Register(token.New(), "serving administration")

	flag.Parse()
	os.Exit(int(commander.Execute(ctx, logger)))
}
