// Package clitestutil runs subcommands the way the mlops commander
// dispatches them: flags bound, parsed, then Execute with a logger in
// the trailing args.
package clitestutil

import (
	"context"
	"flag"
	"io"
	"log"
	"testing"

	"github.com/google/subcommands"
)

// nullLogger swallows command chatter. stdout assertions stay clean.
func nullLogger() *log.Logger {
	return log.New(io.Discard, "", log.LstdFlags)
}

// Execute parses args against the command's own flags and runs it.
func Execute(t *testing.T, cmd subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cmd.SetFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	return cmd.Execute(context.Background(), fs, nullLogger())
}
