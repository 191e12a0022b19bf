// Package storage implements the volume handle the shell commands
// operate on: a manifest-described namespace whose file contents live
// in a local disk cache, a remote content-addressable storage, or
// behind plain HTTP mirrors.
package storage

import (
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/tweag/asset-shell/api"
	"github.com/tweag/asset-shell/integrity"
	"github.com/tweag/asset-shell/internal/logging"
	"github.com/tweag/asset-shell/manifest"
	assetService "github.com/tweag/asset-shell/service/asset"
	casService "github.com/tweag/asset-shell/service/cas"
	"github.com/tweag/asset-shell/service/downloader"
	"github.com/tweag/asset-shell/internal/grpcutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Volume is an open storage connection: the manifest namespace plus
// the services that can produce blob contents.
// Volume is owned by a single session and is not safe for concurrent
// mutation of its namespace.
type Volume struct {
	connString   string
	manifestPath string

	conn *grpc.ClientConn
	tree manifest.Tree

	fetcher *fetcher

	closeOnce sync.Once
	closeErr  error
}

// Connect opens a volume. The target names the gRPC endpoint; headers
// (parsed from repeated -o flags) are attached to every RPC on the
// connection. An empty target opens the volume in local mode: contents
// are served from the disk cache and HTTP mirrors only.
func Connect(target string, config api.GlobalConfig, headers metadata.MD) (*Volume, error) {
	digestFunction, ok := integrity.AlgorithmFromString(config.DigestFunction)
	if !ok {
		return nil, fmt.Errorf("invalid digest function: %s", config.DigestFunction)
	}

	manifestFile, err := os.Open(config.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("opening manifest file: %w", err)
	}
	defer manifestFile.Close()
	tree, err := manifest.TreeFromManifest(manifestFile)
	if err != nil {
		return nil, fmt.Errorf("constructing tree from manifest %s: %w", config.ManifestPath, err)
	}

	diskCache, err := casService.NewDisk(SubstituteHome(config.DiskCachePath))
	if err != nil {
		return nil, fmt.Errorf("creating disk cache at %s: %w", config.DiskCachePath, err)
	}

	checksumCache := integrity.NewCache()
	// Prefill the checksum cache with the checksums from the manifest.
	tree.Walk("", func(leafPath string, leaf *manifest.Leaf) error {
		if checksum, ok := leaf.Integrity.ChecksumForAlgorithm(digestFunction); ok && leaf.SizeHint >= 0 {
			digest := integrity.NewDigest(checksum.Hash, leaf.SizeHint, digestFunction)
			checksumCache.PutIntegrity(leaf.Integrity, digest)
		}
		return nil
	})

	volume := &Volume{
		connString:   target,
		manifestPath: config.ManifestPath,
		tree:         tree,
		fetcher: &fetcher{
			localCAS:       diskCache,
			downloader:     downloader.New(diskCache, &http.Client{}),
			checksumCache:  checksumCache,
			digestFunction: digestFunction,
		},
	}

	if target != "" {
		parsed, err := ParseTarget(target)
		if err != nil {
			return nil, err
		}
		conn, err := grpcutil.NewClientConn(parsed.Endpoint, headers)
		if err != nil {
			return nil, fmt.Errorf("connecting to %s: %w", parsed.Endpoint, err)
		}
		volume.conn = conn
		volume.fetcher.remoteCAS = casService.NewRemote(conn)
		volume.fetcher.remoteAsset = assetService.NewRemote(conn)
		logging.Basicf("connected to %s", parsed.Endpoint)
	} else {
		logging.Debugf("no remote endpoint - running in local mode")
	}

	return volume, nil
}

// ConnString returns the target the volume was connected with.
// It is displayed in the shell prompt.
func (v *Volume) ConnString() string {
	return v.connString
}

// DigestFunction returns the algorithm used to address blobs.
func (v *Volume) DigestFunction() integrity.Algorithm {
	return v.fetcher.digestFunction
}

// Close releases the gRPC connection. It is safe to call more than once.
func (v *Volume) Close() error {
	v.closeOnce.Do(func() {
		if v.conn != nil {
			v.closeErr = v.conn.Close()
			v.conn = nil
		}
	})
	return v.closeErr
}

// SubstituteHome expands a leading "~" to the user's home directory.
func SubstituteHome(p string) string {
	if len(p) == 0 || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return home + p[1:]
}
