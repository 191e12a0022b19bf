package cas

import (
	"context"
	"errors"
	"io"

	"github.com/tweag/asset-shell/integrity"
	"github.com/tweag/asset-shell/service/status"
)

// CAS is the interface for a content-addressable storage system.
// It is modeled after the remote execution API's ContentAddressableStorage service.
// However, it does not assume that the storage system is remote or that it is accessed via gRPC.
type CAS interface {
	Checker
	Reader
	Writer
}

type LocalCAS interface {
	CAS
	Importer
}

type Checker interface {
	FindMissingBlobs(ctx context.Context, blobDigests []integrity.Digest, digestFunction integrity.Algorithm) ([]integrity.Digest, error)
}

type Reader interface {
	BatchReadBlobs(ctx context.Context, blobDigests []integrity.Digest, digestFunction integrity.Algorithm) (BatchReadBlobsResponse, error)
	ReadStream(ctx context.Context, blobDigest integrity.Digest, digestFunction integrity.Algorithm, offset, limit int64) (io.ReadCloser, error)
}

type Writer interface {
	BatchUpdateBlobs(ctx context.Context, blobData DigestsAndData, digestFunction integrity.Algorithm) (BatchUpdateBlobsResponse, error)
	WriteStream(ctx context.Context, blobDigest integrity.Digest, digestFunction integrity.Algorithm) (io.WriteCloser, error)
}

// Importer ingests data from a reader whose digest is known in advance.
type Importer interface {
	ImportBlob(ctx context.Context, digest integrity.Digest, digestFunction integrity.Algorithm, data io.Reader) error
}

// BatchResponseHasNonZeroStatus marks a batch response in which at least
// one per-blob status is not OK. The partial responses are still returned.
var BatchResponseHasNonZeroStatus = errors.New("batch response contains non-OK status")

type BatchReadBlobsResponse []ReadBlobsResponse

type ReadBlobsResponse struct {
	Digest integrity.Digest
	Data   []byte
	Status status.Status
}

type BatchUpdateBlobsResponse []UpdateBlobsResponse

type UpdateBlobsResponse struct {
	Digest integrity.Digest
	Status status.Status
}

type DigestAndData struct {
	Digest integrity.Digest
	Data   []byte
}

type DigestsAndData []DigestAndData
