package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/tweag/asset-shell/storage"
)

const (
	tailDefaultLines = 10
	// tailBlockSize bounds how far back the default line-based tail
	// looks for line breaks.
	tailBlockSize = 16 << 10
)

func runTail(ctx context.Context, session *Session) int {
	flagSet := newCommandFlagSet(session, "[-c N] [-f] PATH")
	byteCount := flagSet.Int64P("bytes", "c", 0, "Output the last N bytes instead of the last 10 lines")
	follow := flagSet.BoolP("follow", "f", false, "Keep watching for appended data until interrupted")
	if err := flagSet.Parse(session.Argv[1:]); err != nil {
		return statusFailure
	}
	args := flagSet.Args()
	if len(args) != 1 {
		flagSet.Usage()
		return statusFailure
	}
	path := args[0]
	volume, ok := requireVolume(session)
	if !ok {
		return statusFailure
	}

	var err error
	if *byteCount > 0 {
		err = tailBytes(ctx, volume, path, *byteCount, session.Stdout)
	} else {
		err = tailLines(ctx, volume, path, tailDefaultLines, session.Stdout)
	}
	if err != nil {
		fmt.Fprintf(session.Stderr, "%s: %s: %v\n", session.Argv[0], path, err)
		return statusFailure
	}

	if *follow {
		if err := volume.Follow(ctx, path, session.Stdout); err != nil {
			fmt.Fprintf(session.Stderr, "%s: %s: %v\n", session.Argv[0], path, err)
			return statusFailure
		}
	}
	return statusOK
}

func tailBytes(ctx context.Context, volume *storage.Volume, path string, count int64, w io.Writer) error {
	size, err := volume.ResolveSize(ctx, path)
	if err != nil {
		return err
	}
	offset := size - count
	if offset < 0 {
		offset = 0
	}
	reader, err := volume.Stream(ctx, path, offset, 0)
	if err != nil {
		return err
	}
	defer reader.Close()
	_, err = io.Copy(w, reader)
	return err
}

// tailLines prints the last count lines. It only inspects the final
// tailBlockSize bytes of the file, so lines further back than that are
// out of reach.
func tailLines(ctx context.Context, volume *storage.Volume, path string, count int, w io.Writer) error {
	size, err := volume.ResolveSize(ctx, path)
	if err != nil {
		return err
	}
	offset := size - tailBlockSize
	if offset < 0 {
		offset = 0
	}
	reader, err := volume.Stream(ctx, path, offset, 0)
	if err != nil {
		return err
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	lines := strings.SplitAfter(string(data), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) > count {
		lines = lines[len(lines)-count:]
	}
	for _, line := range lines {
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
	return nil
}
