package cli

import (
	"context"
	"fmt"
)

func runCopy(ctx context.Context, session *Session) int {
	flagSet := newCommandFlagSet(session, "[-r] SRC... DST")
	recursive := flagSet.BoolP("recursive", "r", false, "Copy directories recursively")
	if err := flagSet.Parse(session.Argv[1:]); err != nil {
		return statusFailure
	}
	args := flagSet.Args()
	if len(args) < 2 {
		flagSet.Usage()
		return statusFailure
	}
	volume, ok := requireVolume(session)
	if !ok {
		return statusFailure
	}

	sources, dst := args[:len(args)-1], args[len(args)-1]
	status := statusOK
	for _, src := range sources {
		if err := volume.CopyToLocal(ctx, src, dst, *recursive); err != nil {
			fmt.Fprintf(session.Stderr, "%s: %s: %v\n", session.Argv[0], src, err)
			status = statusFailure
		}
	}
	return status
}
