package cli

import (
	"context"
	"fmt"

	"github.com/tweag/asset-shell/storage"
)

// runConnect opens a volume from inside the shell. It re-uses the
// global option parser, but with the local policy: a flag error (or
// --help/--version) produces a diagnostic and fails the command, it
// never terminates the shell.
func runConnect(ctx context.Context, session *Session) int {
	result, err := parseGlobalOptions(session.Argv[1:], session.Stderr)
	if err != nil {
		fmt.Fprintf(session.Stderr, "%s: %v\n", session.Argv[0], err)
		return statusFailure
	}
	if result.ShowHelp || result.ShowVersion {
		return statusOK
	}

	// Translator options accumulate across connects; the new connection
	// sees all of them.
	session.Options.Debug = session.Options.Debug || result.Options.Debug
	session.Options.XlatorOptions = append(session.Options.XlatorOptions, result.Options.XlatorOptions...)

	target := result.Target
	if target == "" {
		target = result.Config.Remote
	}
	volume, err := storage.Connect(target, result.Config, headersFromOptions(session.Options))
	if err != nil {
		fmt.Fprintf(session.Stderr, "%s: %v\n", session.Argv[0], err)
		return statusFailure
	}

	if err := session.Disconnect(); err != nil {
		fmt.Fprintf(session.Stderr, "%s: closing previous connection: %v\n", session.Argv[0], err)
	}
	session.Volume = volume
	session.Config = result.Config
	if target != "" {
		session.ConnString = target
	} else {
		session.ConnString = "local"
	}
	return statusOK
}

func runDisconnect(ctx context.Context, session *Session) int {
	if session.Volume == nil {
		fmt.Fprintf(session.Stderr, "%s: not connected\n", session.Argv[0])
		return statusFailure
	}
	if err := session.Disconnect(); err != nil {
		fmt.Fprintf(session.Stderr, "%s: %v\n", session.Argv[0], err)
		return statusFailure
	}
	return statusOK
}
