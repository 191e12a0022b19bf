package cli

import (
	"context"
	"fmt"
)

func runRemove(ctx context.Context, session *Session) int {
	flagSet := newCommandFlagSet(session, "[-r] PATH...")
	recursive := flagSet.BoolP("recursive", "r", false, "Remove directories and their contents recursively")
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
		if err := volume.Remove(p, *recursive); err != nil {
			fmt.Fprintf(session.Stderr, "%s: %s: %v\n", session.Argv[0], p, err)
			status = statusFailure
		}
	}
	return status
}
