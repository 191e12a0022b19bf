package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tweag/asset-shell/api"
	"github.com/tweag/asset-shell/integrity"
	"github.com/tweag/asset-shell/internal/logging"
	"github.com/tweag/asset-shell/manifest"
	assetService "github.com/tweag/asset-shell/service/asset"
	casService "github.com/tweag/asset-shell/service/cas"
)

// fetcher decides where blob contents come from: the local disk cache,
// the remote CAS, the remote asset service, or a direct HTTP download.
type fetcher struct {
	localCAS       casService.LocalCAS
	remoteCAS      casService.CAS        // nil in local mode
	remoteAsset    assetService.Asset    // nil in local mode
	downloader     assetService.Fetch    // HTTP fallback
	checksumCache  *integrity.ChecksumCache
	digestFunction integrity.Algorithm
}

// assetFromLeaf converts a manifest leaf into the asset metadata used
// by the fetch services.
func assetFromLeaf(leaf *manifest.Leaf) api.Asset {
	return api.Asset{
		URIs:      leaf.URIs,
		Integrity: leaf.Integrity,
		SizeHint:  leaf.SizeHint,
	}
}

// resolveDigest learns the digest of an asset, by cache lookup if
// possible, otherwise by asking the remote asset service (or the HTTP
// downloader in local mode).
func (f *fetcher) resolveDigest(ctx context.Context, asset api.Asset) (integrity.Digest, error) {
	if digest, ok := f.checksumCache.FromIntegrity(asset.Integrity); ok {
		return digest, nil
	}

	fetch := f.downloader
	if f.remoteAsset != nil {
		fetch = f.remoteAsset
	}
	if fetch == nil {
		return integrity.Digest{}, errors.New("cannot resolve digest without a fetch service")
	}
	resp, err := fetch.FetchBlob(ctx, noFetchTimeout, noFetchOldestContentAccepted, asset, f.digestFunction)
	if err != nil {
		return integrity.Digest{}, err
	}
	// we learned a new association between the asset and the digest
	logging.Debugf("learned digest %s (content size: %d bytes)", resp.BlobDigest.Hex(f.digestFunction), resp.BlobDigest.SizeBytes)
	f.checksumCache.PutIntegrity(asset.Integrity, resp.BlobDigest)
	return resp.BlobDigest, nil
}

// materialize ensures that the asset is available in the local cache
// for reading. It stops as soon as the local CAS has the expected data.
func (f *fetcher) materialize(ctx context.Context, asset api.Asset) (integrity.Digest, error) {
	digest, err := f.resolveDigest(ctx, asset)
	if err != nil {
		return integrity.Digest{}, err
	}

	missing, err := f.localCAS.FindMissingBlobs(ctx, []integrity.Digest{digest}, f.digestFunction)
	if err != nil {
		return integrity.Digest{}, err
	}
	if len(missing) == 0 {
		// the data is already in the local cache
		return digest, nil
	}

	if f.remoteCAS != nil {
		if err := f.casRemoteToLocalTransfer(ctx, digest); err == nil {
			return digest, nil
		} else {
			logging.Debugf("remote CAS transfer failed, falling back to download: %v", err)
		}
	}

	if f.downloader == nil {
		return integrity.Digest{}, fmt.Errorf("blob %s is not available locally and no source can provide it", digest.Hex(f.digestFunction))
	}
	if _, err := f.downloader.FetchBlob(ctx, noFetchTimeout, noFetchOldestContentAccepted, asset, f.digestFunction); err != nil {
		return integrity.Digest{}, err
	}
	return digest, nil
}

// stream opens a reader over a byte range of the asset's content.
// A limit of zero means no limit.
func (f *fetcher) stream(ctx context.Context, asset api.Asset, offset, limit int64) (io.ReadCloser, error) {
	digest, err := f.resolveDigest(ctx, asset)
	if err != nil {
		return nil, err
	}

	missing, err := f.localCAS.FindMissingBlobs(ctx, []integrity.Digest{digest}, f.digestFunction)
	if err != nil {
		return nil, err
	}
	if len(missing) == 0 {
		return f.localCAS.ReadStream(ctx, digest, f.digestFunction, offset, limit)
	}

	if f.remoteCAS != nil {
		// stream straight from the remote CAS without populating the cache
		reader, err := f.remoteCAS.ReadStream(ctx, digest, f.digestFunction, offset, limit)
		if err == nil {
			return reader, nil
		}
		logging.Debugf("remote CAS stream failed, falling back to materialization: %v", err)
	}

	if _, err := f.materialize(ctx, asset); err != nil {
		return nil, err
	}
	return f.localCAS.ReadStream(ctx, digest, f.digestFunction, offset, limit)
}

// casRemoteToLocalTransfer copies a blob from the remote CAS into the
// local cache, batching small blobs and streaming large ones.
func (f *fetcher) casRemoteToLocalTransfer(ctx context.Context, digest integrity.Digest) error {
	if digest.SizeBytes >= byteStreamThreshold {
		reader, err := f.remoteCAS.ReadStream(ctx, digest, f.digestFunction, 0, 0)
		if err != nil {
			return err
		}
		defer reader.Close()
		writer, err := f.localCAS.WriteStream(ctx, digest, f.digestFunction)
		if err != nil {
			return err
		}
		if _, err := io.Copy(writer, reader); err != nil {
			writer.Close()
			return err
		}
		return writer.Close()
	}

	readResponses, err := f.remoteCAS.BatchReadBlobs(ctx, []integrity.Digest{digest}, f.digestFunction)
	if err != nil {
		return err
	}
	if len(readResponses) != 1 {
		return fmt.Errorf("unexpected number of responses from remote CAS: expected 1, got %d", len(readResponses))
	}
	_, err = f.localCAS.BatchUpdateBlobs(ctx, casService.DigestsAndData{{Digest: digest, Data: readResponses[0].Data}}, f.digestFunction)
	return err
}

const (
	// byteStreamThreshold is the blob size at which we switch from
	// batched reads to the bytestream API.
	byteStreamThreshold = 4 << 20

	noFetchTimeout = 0
)

// noFetchOldestContentAccepted means any cached content is acceptable.
var noFetchOldestContentAccepted = time.Time{}
