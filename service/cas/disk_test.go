package cas_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/tweag/asset-shell/integrity"
	"github.com/tweag/asset-shell/service/cas"
	"github.com/tweag/asset-shell/service/status"
)

func sha256Algorithm(t *testing.T) integrity.Algorithm {
	t.Helper()
	alg, ok := integrity.AlgorithmFromString("sha256")
	if !ok {
		t.Fatal("sha256 not supported")
	}
	return alg
}

func digestOf(t *testing.T, alg integrity.Algorithm, content []byte) integrity.Digest {
	t.Helper()
	digest, err := alg.CalculateDigest(bytes.NewReader(content))
	if err != nil {
		t.Fatal(err)
	}
	return digest
}

func TestDiskImportAndRead(t *testing.T) {
	disk, err := cas.NewDisk(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	alg := sha256Algorithm(t)
	ctx := context.Background()

	content := []byte("some blob content\n")
	digest := digestOf(t, alg, content)

	missing, err := disk.FindMissingBlobs(ctx, []integrity.Digest{digest}, alg)
	if err != nil {
		t.Fatal(err)
	}
	if len(missing) != 1 {
		t.Fatalf("expected 1 missing blob before import, got %d", len(missing))
	}

	if err := disk.ImportBlob(ctx, digest, alg, bytes.NewReader(content)); err != nil {
		t.Fatalf("ImportBlob: %v", err)
	}

	missing, err = disk.FindMissingBlobs(ctx, []integrity.Digest{digest}, alg)
	if err != nil {
		t.Fatal(err)
	}
	if len(missing) != 0 {
		t.Fatalf("expected no missing blobs after import, got %d", len(missing))
	}

	reader, err := disk.ReadStream(ctx, digest, alg, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	got, err := io.ReadAll(reader)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("unexpected content: %q", got)
	}
}

func TestDiskReadStreamOffsetAndLimit(t *testing.T) {
	disk, err := cas.NewDisk(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	alg := sha256Algorithm(t)
	ctx := context.Background()

	content := []byte("0123456789")
	digest := digestOf(t, alg, content)
	if err := disk.ImportBlob(ctx, digest, alg, bytes.NewReader(content)); err != nil {
		t.Fatal(err)
	}

	reader, err := disk.ReadStream(ctx, digest, alg, 3, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	got, err := io.ReadAll(reader)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "3456" {
		t.Errorf("unexpected ranged content: %q", got)
	}
}

func TestDiskImportRejectsCorruptedContent(t *testing.T) {
	disk, err := cas.NewDisk(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	alg := sha256Algorithm(t)
	ctx := context.Background()

	digest := digestOf(t, alg, []byte("expected content"))
	if err := disk.ImportBlob(ctx, digest, alg, bytes.NewReader([]byte("tampered content"))); err == nil {
		t.Fatal("importing content with a mismatched digest succeeded")
	}

	missing, err := disk.FindMissingBlobs(ctx, []integrity.Digest{digest}, alg)
	if err != nil {
		t.Fatal(err)
	}
	if len(missing) != 1 {
		t.Error("corrupted content ended up in the cache")
	}
}

func TestDiskBatchRoundtrip(t *testing.T) {
	disk, err := cas.NewDisk(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	alg := sha256Algorithm(t)
	ctx := context.Background()

	blobs := [][]byte{[]byte("first"), []byte("second")}
	var updates cas.DigestsAndData
	var digests []integrity.Digest
	for _, blob := range blobs {
		digest := digestOf(t, alg, blob)
		updates = append(updates, cas.DigestAndData{Digest: digest, Data: blob})
		digests = append(digests, digest)
	}

	if _, err := disk.BatchUpdateBlobs(ctx, updates, alg); err != nil {
		t.Fatalf("BatchUpdateBlobs: %v", err)
	}

	responses, err := disk.BatchReadBlobs(ctx, digests, alg)
	if err != nil {
		t.Fatalf("BatchReadBlobs: %v", err)
	}
	for i, response := range responses {
		if response.Status.Code != status.Status_OK {
			t.Errorf("blob %d: status %d (%s)", i, response.Status.Code, response.Status.Message)
			continue
		}
		if !bytes.Equal(response.Data, blobs[i]) {
			t.Errorf("blob %d: unexpected content %q", i, response.Data)
		}
	}
}

func TestDiskBatchReadReportsMissing(t *testing.T) {
	disk, err := cas.NewDisk(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	alg := sha256Algorithm(t)

	digest := digestOf(t, alg, []byte("never stored"))
	responses, err := disk.BatchReadBlobs(context.Background(), []integrity.Digest{digest}, alg)
	if !errors.Is(err, cas.BatchResponseHasNonZeroStatus) {
		t.Fatalf("expected BatchResponseHasNonZeroStatus, got %v", err)
	}
	if len(responses) != 1 || responses[0].Status.Code != status.Status_NOT_FOUND {
		t.Errorf("unexpected responses: %+v", responses)
	}
}
