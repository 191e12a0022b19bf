package cli

import (
	"context"
	"fmt"
)

func runMkdir(ctx context.Context, session *Session) int {
	flagSet := newCommandFlagSet(session, "[-p] PATH...")
	parents := flagSet.BoolP("parents", "p", false, "Create parent directories as needed, no error if existing")
	if err := flagSet.Parse(session.Argv[1:]); err != nil {
		return statusFailure
	}
	paths := flagSet.Args()
	if len(paths) == 0 {
		flagSet.Usage()
		return statusFailure
	}
	volume, ok := requireVolume(session)
	if !ok {
		return statusFailure
	}

	status := statusOK
	for _, p := range paths {
		if err := volume.Mkdir(p, *parents); err != nil {
			fmt.Fprintf(session.Stderr, "%s: %s: %v\n", session.Argv[0], p, err)
			status = statusFailure
		}
	}
	return status
}
