package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/tweag/asset-shell/storage"
	"google.golang.org/grpc/metadata"
)

// newCommandFlagSet builds the flag set for a command handler. The set
// is named after Argv[0], so single-shot invocations report the alias
// the user actually typed.
func newCommandFlagSet(session *Session, usage string) *pflag.FlagSet {
	name := session.Argv[0]
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.SetOutput(session.Stderr)
	flagSet.Usage = func() {
		fmt.Fprintf(session.Stderr, "Usage: %s %s\n", name, usage)
		fmt.Fprint(session.Stderr, flagSet.FlagUsages())
	}
	return flagSet
}

func requireVolume(session *Session) (*storage.Volume, bool) {
	if session.Volume == nil {
		fmt.Fprintf(session.Stderr, "%s: not connected (use \"connect\" first)\n", session.Argv[0])
		return nil, false
	}
	return session.Volume, true
}

// headersFromOptions turns the accumulated translator options into gRPC
// metadata attached to every RPC of a connection.
func headersFromOptions(options Options) metadata.MD {
	if len(options.XlatorOptions) == 0 {
		return nil
	}
	md := metadata.MD{}
	for _, option := range options.XlatorOptions {
		md.Append(strings.ToLower(option.Key), option.Value)
	}
	return md
}

const helpText = `Commands:
  cat PATH...              Print file contents
  connect [OPTIONS] TARGET Connect to a remote storage
  cp [-r] SRC... DST       Copy files to the local filesystem
  disconnect               Close the current connection
  help                     Print this help
  ls [-l] [PATH...]        List directory contents
  mkdir [-p] PATH...       Create directories
  mv                       Move files (not implemented)
  quit                     Exit the shell
  rm [-r] PATH...          Remove files or directories
  stat PATH...             Print file metadata
  tail [-c N] [-f] PATH    Print the end of a file
`

func runHelp(ctx context.Context, session *Session) int {
	fmt.Fprint(session.Stdout, helpText)
	return statusOK
}

func runQuit(ctx context.Context, session *Session) int {
	session.quitRequested = true
	return statusOK
}

func runMove(ctx context.Context, session *Session) int {
	fmt.Fprintf(session.Stderr, "%s: not implemented\n", session.Argv[0])
	return statusNotImplemented
}
