package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/tweag/asset-shell/storage"
)

func runStat(ctx context.Context, session *Session) int {
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
		info, err := volume.Stat(ctx, p)
		if err != nil {
			fmt.Fprintf(session.Stderr, "%s: %s: %v\n", session.Argv[0], p, err)
			status = statusFailure
			continue
		}
		printInfo(session, volume, info)
	}
	return status
}

func printInfo(session *Session, volume *storage.Volume, info storage.Info) {
	fmt.Fprintf(session.Stdout, "File: %s\n", info.Path)
	if info.IsDir {
		fmt.Fprintf(session.Stdout, "Type: directory\n")
		return
	}
	fmt.Fprintf(session.Stdout, "Type: regular file\n")
	if info.SizeBytes >= 0 {
		fmt.Fprintf(session.Stdout, "Size: %d\n", info.SizeBytes)
	} else {
		fmt.Fprintf(session.Stdout, "Size: unknown\n")
	}
	var checksums []string
	for checksum := range info.Integrity.Items() {
		checksums = append(checksums, checksum.ToSRI())
	}
	if len(checksums) > 0 {
		fmt.Fprintf(session.Stdout, "Integrity: %s\n", strings.Join(checksums, " "))
	}
	if len(info.URIs) > 0 {
		fmt.Fprintf(session.Stdout, "URIs: %s\n", strings.Join(info.URIs, " "))
	}
	if info.DigestKnown {
		fmt.Fprintf(session.Stdout, "Digest: %s/%s\n", volume.DigestFunction(), info.Digest.Hex(volume.DigestFunction()))
		fmt.Fprintf(session.Stdout, "Local cache: %s\n", presence(info.LocalPresent))
		fmt.Fprintf(session.Stdout, "Remote CAS: %s\n", presence(info.RemotePresent))
	}
}

func presence(present bool) string {
	if present {
		return "present"
	}
	return "absent"
}
