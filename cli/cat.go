package cli

import (
	"context"
	"fmt"
	"io"
)

func runCat(ctx context.Context, session *Session) int {
	flagSet := newCommandFlagSet(session, "PATH...")
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
		reader, err := volume.Stream(ctx, p, 0, 0)
		if err != nil {
			fmt.Fprintf(session.Stderr, "%s: %s: %v\n", session.Argv[0], p, err)
			status = statusFailure
			continue
		}
		_, copyErr := io.Copy(session.Stdout, reader)
		reader.Close()
		if copyErr != nil {
			fmt.Fprintf(session.Stderr, "%s: %s: %v\n", session.Argv[0], p, copyErr)
			status = statusFailure
		}
	}
	return status
}
