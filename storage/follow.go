package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/tweag/asset-shell/integrity"
	"github.com/tweag/asset-shell/internal/logging"
	"github.com/tweag/asset-shell/manifest"
)

// Follow watches the manifest file and streams data appended to the
// leaf at path p to w, until the context is cancelled. The manifest is
// the source of truth for the namespace, so "the file grew" means the
// manifest now references a larger blob for the same path.
func (v *Volume) Follow(ctx context.Context, p string, w io.Writer) error {
	node, err := v.tree.Lookup(p)
	if err != nil {
		return err
	}
	leaf, ok := node.(*manifest.Leaf)
	if !ok {
		return fmt.Errorf("%s: %w", p, manifest.ErrIsADirectory)
	}
	digest, err := v.fetcher.resolveDigest(ctx, assetFromLeaf(leaf))
	if err != nil {
		return err
	}

	manifestAbsPath, err := filepath.Abs(v.manifestPath)
	if err != nil {
		return err
	}
	manifestDigest, err := v.manifestDigest()
	if err != nil {
		return err
	}

	notifyWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer notifyWatcher.Close()
	if err := notifyWatcher.Add(filepath.Dir(manifestAbsPath)); err != nil {
		return err
	}
	logging.Debugf("following %s via manifest %s", p, v.manifestPath)

	offset := digest.SizeBytes
	for {
		select {
		case event, ok := <-notifyWatcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if event.Name != manifestAbsPath {
				continue
			}

			newManifestDigest, err := v.manifestDigest()
			if err != nil {
				logging.Errorf("re-reading manifest: %v", err)
				continue
			}
			if newManifestDigest.Equals(manifestDigest, v.fetcher.digestFunction) {
				logging.Debugf("manifest digest is the same, skipping update")
				continue
			}
			manifestDigest = newManifestDigest

			if err := v.reloadManifest(); err != nil {
				var syntaxErr manifest.DecodeError
				if errors.As(err, &syntaxErr) {
					logging.Warningf("syntax error in manifest - skipping update: %v", err)
					continue
				}
				return err
			}

			node, err := v.tree.Lookup(p)
			if err != nil {
				return fmt.Errorf("%s disappeared from the manifest: %w", p, err)
			}
			leaf, ok := node.(*manifest.Leaf)
			if !ok {
				return fmt.Errorf("%s: %w", p, manifest.ErrIsADirectory)
			}
			newDigest, err := v.fetcher.resolveDigest(ctx, assetFromLeaf(leaf))
			if err != nil {
				return err
			}
			if newDigest.Equals(digest, v.fetcher.digestFunction) {
				continue
			}
			digest = newDigest
			if newDigest.SizeBytes <= offset {
				// truncated or rewritten; start over from the new end
				logging.Warningf("%s: content replaced with a smaller blob, resuming from its end", p)
				offset = newDigest.SizeBytes
				continue
			}

			reader, err := v.fetcher.stream(ctx, assetFromLeaf(leaf), offset, 0)
			if err != nil {
				return err
			}
			_, copyErr := io.Copy(w, reader)
			reader.Close()
			if copyErr != nil {
				return copyErr
			}
			offset = newDigest.SizeBytes
		case err, ok := <-notifyWatcher.Errors:
			if !ok {
				return nil
			}
			logging.Errorf("manifest watcher encountered error: %v", err)
		case <-ctx.Done():
			return nil
		}
	}
}

// manifestDigest hashes the manifest file, used to skip reloads when
// the file was touched without changing.
func (v *Volume) manifestDigest() (integrity.Digest, error) {
	file, err := os.Open(v.manifestPath)
	if err != nil {
		return integrity.Digest{}, err
	}
	defer file.Close()
	return v.fetcher.digestFunction.CalculateDigest(file)
}

// reloadManifest replaces the namespace with the current manifest
// contents and refreshes the checksum cache.
func (v *Volume) reloadManifest() error {
	file, err := os.Open(v.manifestPath)
	if err != nil {
		return err
	}
	defer file.Close()
	tree, err := manifest.TreeFromManifest(file)
	if err != nil {
		return err
	}
	tree.Walk("", func(leafPath string, leaf *manifest.Leaf) error {
		if checksum, ok := leaf.Integrity.ChecksumForAlgorithm(v.fetcher.digestFunction); ok && leaf.SizeHint >= 0 {
			digest := integrity.NewDigest(checksum.Hash, leaf.SizeHint, v.fetcher.digestFunction)
			v.fetcher.checksumCache.PutIntegrity(leaf.Integrity, digest)
		}
		return nil
	})
	v.tree = tree
	logging.Basicf("manifest was changed, updating namespace")
	return nil
}
