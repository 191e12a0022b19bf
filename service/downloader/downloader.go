package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tweag/asset-shell/api"
	"github.com/tweag/asset-shell/integrity"
	"github.com/tweag/asset-shell/internal/logging"
	assetService "github.com/tweag/asset-shell/service/asset"
	casService "github.com/tweag/asset-shell/service/cas"
	"github.com/tweag/asset-shell/service/status"
)

// Downloader is a service that downloads files directly into the local CAS.
// It performs HTTP requests locally and never invokes the remote asset API
// or the remote CAS. It is the local fallback for the remote asset service.
type Downloader struct {
	localCAS   casService.LocalCAS
	httpClient *http.Client
}

func New(localCAS casService.LocalCAS, httpClient *http.Client) *Downloader {
	return &Downloader{
		localCAS:   localCAS,
		httpClient: httpClient,
	}
}

// FetchBlob implements the Fetch service of the remote asset API locally:
// it downloads the asset from one of its URIs and stores it in the local CAS.
func (d *Downloader) FetchBlob(
	ctx context.Context, timeout time.Duration, oldestContentAccepted time.Time,
	apiAsset api.Asset, digestFunction integrity.Algorithm,
) (assetService.FetchBlobResponse, error) {
	logging.Debugf("downloading asset specified by %v", apiAsset.URIs)
	if timeout != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var uriIssues []string
	for _, uri := range apiAsset.URIs {
		digest, err := d.fetchURI(ctx, uri, apiAsset.Integrity, digestFunction)
		if err != nil {
			logging.Warningf("downloading %s: %v", uri, err)
			uriIssues = append(uriIssues, fmt.Sprintf("%s: %v", uri, err))
			continue
		}
		return assetService.FetchBlobResponse{
			Status:         status.Status{Code: status.Status_OK},
			URI:            uri,
			BlobDigest:     digest,
			DigestFunction: digestFunction,
		}, nil
	}
	return assetService.FetchBlobResponse{}, fmt.Errorf("no uri could be downloaded:\n  %s", strings.Join(uriIssues, "\n  "))
}

func (d *Downloader) fetchURI(ctx context.Context, uri string, expected integrity.Integrity, digestFunction integrity.Algorithm) (integrity.Digest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return integrity.Digest{}, err
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return integrity.Digest{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return integrity.Digest{}, fmt.Errorf("unexpected http status %s", resp.Status)
	}

	// Spool to a temporary file while hashing, so we know the digest
	// before handing the data to the CAS.
	spool, err := os.CreateTemp("", "asset-shell-download-")
	if err != nil {
		return integrity.Digest{}, err
	}
	defer os.Remove(spool.Name())
	defer spool.Close()

	digest, err := digestFunction.CalculateDigest(io.TeeReader(resp.Body, spool))
	if err != nil {
		return integrity.Digest{}, err
	}
	if checksum, ok := expected.ChecksumForAlgorithm(digestFunction); ok {
		if !checksum.Equals(integrity.ChecksumFromDigest(digest, digestFunction)) {
			return integrity.Digest{}, errors.New("downloaded data does not match the expected integrity")
		}
	}

	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return integrity.Digest{}, err
	}
	if err := d.localCAS.ImportBlob(ctx, digest, digestFunction, spool); err != nil {
		return integrity.Digest{}, fmt.Errorf("importing downloaded data into the local cache: %w", err)
	}
	return digest, nil
}

var _ assetService.Fetch = (*Downloader)(nil)
