package cas

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tweag/asset-shell/integrity"
	"github.com/tweag/asset-shell/service/status"
)

// Disk is a local content-addressable storage that stores blobs on disk.
type Disk struct {
	rootDir string
}

// NewDisk creates a new Disk CAS with the given root directory.
func NewDisk(rootDir string) (*Disk, error) {
	disk := &Disk{rootDir: rootDir}
	if err := disk.initializeCacheDir(); err != nil {
		return nil, err
	}
	return disk, nil
}

func (d *Disk) FindMissingBlobs(ctx context.Context, blobDigests []integrity.Digest, digestFunction integrity.Algorithm) ([]integrity.Digest, error) {
	missing := make([]integrity.Digest, 0, len(blobDigests))
	for _, digest := range blobDigests {
		blobPath := d.blobPath(integrity.ChecksumFromDigest(digest, digestFunction))
		fileInfo, err := os.Stat(blobPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			missing = append(missing, digest)
			continue
		}
		if fileInfo.IsDir() {
			// our cache is corrupted
			return nil, fmt.Errorf("blob path %s is a directory", blobPath)
		}
	}
	return missing, nil
}

func (d *Disk) BatchReadBlobs(ctx context.Context, blobDigests []integrity.Digest, digestFunction integrity.Algorithm) (BatchReadBlobsResponse, error) {
	responses := make(BatchReadBlobsResponse, 0, len(blobDigests))
	for _, digest := range blobDigests {
		data, err := os.ReadFile(d.blobPath(integrity.ChecksumFromDigest(digest, digestFunction)))
		if err != nil && os.IsNotExist(err) {
			responses = append(responses, ReadBlobsResponse{
				Digest: digest,
				Status: status.Status{Code: status.Status_NOT_FOUND},
			})
			continue
		} else if err != nil {
			responses = append(responses, ReadBlobsResponse{
				Digest: digest,
				Status: status.Status{Code: status.Status_UNKNOWN, Message: err.Error()},
			})
			continue
		}
		responses = append(responses, ReadBlobsResponse{
			Digest: digest,
			Data:   data,
			Status: status.Status{Code: status.Status_OK},
		})
	}
	var issues int
	for _, response := range responses {
		if response.Status.Code != status.Status_OK {
			issues++
		}
	}
	if issues > 0 {
		return responses, BatchResponseHasNonZeroStatus
	}
	return responses, nil
}

func (d *Disk) BatchUpdateBlobs(ctx context.Context, blobData DigestsAndData, digestFunction integrity.Algorithm) (BatchUpdateBlobsResponse, error) {
	responses := make(BatchUpdateBlobsResponse, 0, len(blobData))
	for _, item := range blobData {
		writeErr := func() error {
			staging, err := d.stagingFile(item.Digest, digestFunction)
			if err != nil {
				return err
			}
			if _, err := staging.Write(item.Data); err != nil {
				staging.Close()
				return err
			}
			return staging.Close()
		}()
		if writeErr != nil && os.IsPermission(writeErr) {
			responses = append(responses, UpdateBlobsResponse{item.Digest, status.Status{Code: status.Status_PERMISSION_DENIED, Message: writeErr.Error()}})
		} else if writeErr != nil {
			responses = append(responses, UpdateBlobsResponse{item.Digest, status.Status{Code: status.Status_INTERNAL, Message: writeErr.Error()}})
		} else {
			responses = append(responses, UpdateBlobsResponse{item.Digest, status.Status{Code: status.Status_OK}})
		}
	}
	var issues int
	for _, response := range responses {
		if response.Status.Code != status.Status_OK {
			issues++
		}
	}
	if issues > 0 {
		return responses, BatchResponseHasNonZeroStatus
	}
	return responses, nil
}

func (d *Disk) ReadStream(ctx context.Context, blobDigest integrity.Digest, digestFunction integrity.Algorithm, offset, limit int64) (io.ReadCloser, error) {
	file, err := os.Open(d.blobPath(integrity.ChecksumFromDigest(blobDigest, digestFunction)))
	if err != nil {
		return nil, err
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		file.Close()
		return nil, err
	}
	if limit == 0 {
		// Zero means no limit.
		return file, nil
	}
	return struct {
		io.Reader
		io.Closer
	}{io.LimitReader(file, limit), file}, nil
}

func (d *Disk) WriteStream(ctx context.Context, blobDigest integrity.Digest, digestFunction integrity.Algorithm) (io.WriteCloser, error) {
	return d.stagingFile(blobDigest, digestFunction)
}

// ImportBlob streams data into the CAS, verifying it against the known
// digest on finalization.
func (d *Disk) ImportBlob(ctx context.Context, digest integrity.Digest, digestFunction integrity.Algorithm, data io.Reader) error {
	staging, err := d.stagingFile(digest, digestFunction)
	if err != nil {
		return err
	}
	if _, err := io.Copy(staging, data); err != nil {
		staging.Close()
		return err
	}
	return staging.Close()
}

// blobPath returns the path to the blob with the given checksum.
// The directory structure is very similar to the one used by Bazel's local
// cache, with a subdirectory per digest function.
func (d *Disk) blobPath(checksum integrity.Checksum) string {
	hex := checksum.Hex()
	return filepath.Join(d.rootDir, checksum.Algorithm.String(), "cas", hex[:2], hex)
}

func (d *Disk) stagingFile(digest integrity.Digest, digestFunction integrity.Algorithm) (io.WriteCloser, error) {
	hex := digest.Hex(digestFunction)
	dir := filepath.Join(d.rootDir, digestFunction.String(), "staging")
	tmpfile, err := os.CreateTemp(dir, hex+"-")
	if err != nil {
		return nil, err
	}
	// try to preallocate the file to the expected size
	_ = tmpfile.Truncate(digest.SizeBytes)
	return &blobFinalizer{
		File:        tmpfile,
		stagingPath: tmpfile.Name(),
		finalPath:   d.blobPath(integrity.ChecksumFromDigest(digest, digestFunction)),

		digest:         digest,
		digestFunction: digestFunction,
	}, nil
}

func (d *Disk) initializeCacheDir() error {
	// <rootDir>/<digestFunction>/cas/<first 2 hex>/ is created lazily
	// by the blob finalizer; only the staging area needs to exist upfront.
	for digestFunction := range integrity.SupportedAlgorithms() {
		stagingDir := filepath.Join(d.rootDir, digestFunction.String(), "staging")
		if err := os.MkdirAll(stagingDir, 0o755); err != nil {
			return err
		}
		// try to clean up the staging directory from any leftover files
		// (this assumes that the directory is only used by this process)
		files, err := os.ReadDir(stagingDir)
		if err != nil {
			return err
		}
		for _, file := range files {
			if err := os.Remove(filepath.Join(stagingDir, file.Name())); err != nil {
				return err
			}
		}
	}

	return nil
}

type blobFinalizer struct {
	*os.File
	stagingPath string
	finalPath   string

	digest         integrity.Digest
	digestFunction integrity.Algorithm
}

func (b *blobFinalizer) Close() error {
	b.File.Close()
	defer os.Remove(b.stagingPath)

	// verify that the file contents are correct
	validationFile, err := os.Open(b.stagingPath)
	if err != nil {
		return fmt.Errorf("failed to open staging file %s for validation: %w", b.stagingPath, err)
	}
	defer validationFile.Close()
	if err := b.digest.CheckContent(validationFile, b.digestFunction); err != nil {
		return fmt.Errorf("failed to validate staging file %s: %w", b.stagingPath, err)
	}

	// move the file to its final location
	if err := os.MkdirAll(filepath.Dir(b.finalPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for final blob %s: %w", b.finalPath, err)
	}
	if err := os.Rename(b.stagingPath, b.finalPath); err != nil {
		return fmt.Errorf("failed to rename staging file %s to final blob %s: %w", b.stagingPath, b.finalPath, err)
	}

	return nil
}

var _ LocalCAS = (*Disk)(nil)
