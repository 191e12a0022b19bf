package cli

import (
	"context"
	"fmt"

	"github.com/tweag/asset-shell/manifest"
	"github.com/tweag/asset-shell/storage"
)

func runList(ctx context.Context, session *Session) int {
	flagSet := newCommandFlagSet(session, "[-l] [PATH...]")
	long := flagSet.BoolP("long", "l", false, "Use a long listing format (type, size, name)")
	if err := flagSet.Parse(session.Argv[1:]); err != nil {
		return statusFailure
	}
	paths := flagSet.Args()
	if len(paths) == 0 {
		paths = []string{""}
	}
	volume, ok := requireVolume(session)
	if !ok {
		return statusFailure
	}

	status := statusOK
	for i, p := range paths {
		if len(paths) > 1 {
			if i > 0 {
				fmt.Fprintln(session.Stdout)
			}
			fmt.Fprintf(session.Stdout, "%s:\n", p)
		}
		if err := listPath(volume, p, *long, session); err != nil {
			fmt.Fprintf(session.Stderr, "%s: %s: %v\n", session.Argv[0], p, err)
			status = statusFailure
		}
	}
	return status
}

func listPath(volume *storage.Volume, p string, long bool, session *Session) error {
	node, err := volume.Lookup(p)
	if err != nil {
		return err
	}
	if leaf, ok := node.(*manifest.Leaf); ok {
		printListEntry(session, p, leaf, long)
		return nil
	}

	entries, err := volume.List(p)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		printListEntry(session, entry.Name, entry.Node, long)
	}
	return nil
}

func printListEntry(session *Session, name string, node any, long bool) {
	_, isDir := node.(*manifest.Directory)
	if !long {
		if isDir {
			name += "/"
		}
		fmt.Fprintln(session.Stdout, name)
		return
	}

	kind := "-"
	size := "-"
	if isDir {
		kind = "d"
	} else if leaf, ok := node.(*manifest.Leaf); ok && leaf.SizeHint >= 0 {
		size = fmt.Sprintf("%d", leaf.SizeHint)
	}
	fmt.Fprintf(session.Stdout, "%s %12s %s\n", kind, size, name)
}
