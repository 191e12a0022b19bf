package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/tweag/asset-shell/integrity"
	"github.com/tweag/asset-shell/internal/logging"
	"github.com/tweag/asset-shell/manifest"
)

// Info describes a single node of the namespace, as reported by Stat.
type Info struct {
	Path      string
	IsDir     bool
	// SizeBytes is negative if the size is not known yet.
	SizeBytes int64
	Integrity integrity.Integrity
	URIs      []string

	Digest      integrity.Digest
	DigestKnown bool
	// LocalPresent and RemotePresent report whether the blob is
	// available in the disk cache / remote CAS. Only meaningful if
	// the digest is known.
	LocalPresent  bool
	RemotePresent bool
}

// List returns the sorted directory listing at the given path.
func (v *Volume) List(p string) ([]manifest.DirEntry, error) {
	return v.tree.List(p)
}

// Lookup resolves a path to a node of the namespace.
func (v *Volume) Lookup(p string) (any, error) {
	return v.tree.Lookup(p)
}

// Mkdir creates a directory in the namespace.
func (v *Volume) Mkdir(p string, parents bool) error {
	return v.tree.Mkdir(p, parents)
}

// Remove deletes a node from the namespace.
func (v *Volume) Remove(p string, recursive bool) error {
	return v.tree.Remove(p, recursive)
}

// Stat reports metadata for a node, including blob presence in the
// disk cache and the remote CAS where the digest is known.
func (v *Volume) Stat(ctx context.Context, p string) (Info, error) {
	node, err := v.tree.Lookup(p)
	if err != nil {
		return Info{}, err
	}
	switch n := node.(type) {
	case *manifest.Directory:
		return Info{Path: p, IsDir: true, SizeBytes: -1}, nil
	case *manifest.Leaf:
		info := Info{
			Path:      p,
			SizeBytes: n.SizeHint,
			Integrity: n.Integrity,
			URIs:      n.URIs,
		}
		if digest, ok := v.fetcher.checksumCache.FromIntegrity(n.Integrity); ok {
			info.Digest = digest
			info.DigestKnown = true
			info.SizeBytes = digest.SizeBytes

			missing, err := v.fetcher.localCAS.FindMissingBlobs(ctx, []integrity.Digest{digest}, v.fetcher.digestFunction)
			if err != nil {
				return Info{}, err
			}
			info.LocalPresent = len(missing) == 0

			if v.fetcher.remoteCAS != nil {
				missing, err := v.fetcher.remoteCAS.FindMissingBlobs(ctx, []integrity.Digest{digest}, v.fetcher.digestFunction)
				if err != nil {
					return Info{}, err
				}
				info.RemotePresent = len(missing) == 0
			}
		}
		return info, nil
	default:
		return Info{}, fmt.Errorf("unexpected node type %T", node)
	}
}

// Stream opens a reader over a byte range of a leaf's content.
// A limit of zero means no limit.
func (v *Volume) Stream(ctx context.Context, p string, offset, limit int64) (io.ReadCloser, error) {
	node, err := v.tree.Lookup(p)
	if err != nil {
		return nil, err
	}
	leaf, ok := node.(*manifest.Leaf)
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, manifest.ErrIsADirectory)
	}
	return v.fetcher.stream(ctx, assetFromLeaf(leaf), offset, limit)
}

// ResolveSize returns the content size of a leaf, fetching the digest
// if the manifest does not carry a size hint.
func (v *Volume) ResolveSize(ctx context.Context, p string) (int64, error) {
	node, err := v.tree.Lookup(p)
	if err != nil {
		return 0, err
	}
	leaf, ok := node.(*manifest.Leaf)
	if !ok {
		return 0, fmt.Errorf("%s: %w", p, manifest.ErrIsADirectory)
	}
	digest, err := v.fetcher.resolveDigest(ctx, assetFromLeaf(leaf))
	if err != nil {
		return 0, err
	}
	return digest.SizeBytes, nil
}

// CopyToLocal copies a leaf (or, with recursive set, a whole subtree)
// from the volume to a local file or directory.
func (v *Volume) CopyToLocal(ctx context.Context, src, dst string, recursive bool) error {
	node, err := v.tree.Lookup(src)
	if err != nil {
		return err
	}

	switch n := node.(type) {
	case *manifest.Leaf:
		target := dst
		if info, err := os.Stat(dst); err == nil && info.IsDir() {
			target = filepath.Join(dst, path.Base(src))
		}
		return v.copyLeaf(ctx, n, target)
	case *manifest.Directory:
		if !recursive {
			return fmt.Errorf("%s: %w (use -r to copy directories)", src, manifest.ErrIsADirectory)
		}
		return v.copyTree(ctx, src, dst)
	default:
		return fmt.Errorf("unexpected node type %T", node)
	}
}

func (v *Volume) copyLeaf(ctx context.Context, leaf *manifest.Leaf, dst string) error {
	reader, err := v.fetcher.stream(ctx, assetFromLeaf(leaf), 0, 0)
	if err != nil {
		return err
	}
	defer reader.Close()

	file, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		os.Remove(dst)
		return err
	}
	return file.Close()
}

type copyJob struct {
	leaf *manifest.Leaf
	dst  string
}

// copyTree copies every leaf below src in parallel.
func (v *Volume) copyTree(ctx context.Context, src, dst string) error {
	var jobs []copyJob
	err := v.tree.Walk(src, func(leafPath string, leaf *manifest.Leaf) error {
		jobs = append(jobs, copyJob{leaf: leaf, dst: filepath.Join(dst, filepath.FromSlash(leafPath))})
		return nil
	})
	if err != nil {
		return err
	}

	queue := newWorkQueue(func(ctx context.Context, job copyJob) (struct{}, error) {
		if err := os.MkdirAll(filepath.Dir(job.dst), 0o755); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, v.copyLeaf(ctx, job.leaf, job.dst)
	}, copyWorkers)
	queue.Start(ctx)
	defer queue.Stop()

	results := make(chan error, len(jobs))
	for _, job := range jobs {
		queue.Enqueue(job, func(job copyJob, _ struct{}, err error) {
			if err != nil {
				err = fmt.Errorf("copying to %s: %w", job.dst, err)
			}
			results <- err
		})
	}

	var issues int
	for range jobs {
		if err := <-results; err != nil {
			logging.Errorf("%v", err)
			issues++
		}
	}
	if issues > 0 {
		return fmt.Errorf("not all files were copied successfully: %d errors occurred", issues)
	}
	return nil
}

// copyWorkers is the number of parallel transfers in a recursive copy.
const copyWorkers = 4
