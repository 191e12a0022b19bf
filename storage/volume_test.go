package storage_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tweag/asset-shell/api"
	"github.com/tweag/asset-shell/integrity"
	"github.com/tweag/asset-shell/manifest"
	"github.com/tweag/asset-shell/storage"
)

// blobServer serves content over HTTP and allows tests to swap the
// content of a path while a volume is live.
type blobServer struct {
	mu    sync.Mutex
	blobs map[string][]byte
	srv   *httptest.Server
}

func newBlobServer(t *testing.T, blobs map[string][]byte) *blobServer {
	t.Helper()
	server := &blobServer{blobs: blobs}
	server.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		server.mu.Lock()
		content, ok := server.blobs[r.URL.Path]
		server.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(content)
	}))
	t.Cleanup(server.srv.Close)
	return server
}

func (s *blobServer) put(path string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[path] = content
}

func (s *blobServer) uri(path string) string {
	return s.srv.URL + path
}

func sha256SRI(t *testing.T, content []byte) string {
	t.Helper()
	alg, ok := integrity.AlgorithmFromString("sha256")
	if !ok {
		t.Fatal("sha256 not supported")
	}
	digest, err := alg.CalculateDigest(bytes.NewReader(content))
	if err != nil {
		t.Fatal(err)
	}
	return integrity.ChecksumFromDigest(digest, alg).ToSRI()
}

type manifestEntry struct {
	URIs      []string `json:"uris"`
	Integrity string   `json:"integrity"`
	Size      *int64   `json:"size,omitempty"`
}

func writeManifest(t *testing.T, path string, entries map[string]manifestEntry) {
	t.Helper()
	raw, err := json.Marshal(entries)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}
}

func sizeOf(content []byte) *int64 {
	size := int64(len(content))
	return &size
}

// testVolume connects a local-mode volume over a manifest with two
// leaves served by the blob server.
func testVolume(t *testing.T) (*storage.Volume, *blobServer, string) {
	t.Helper()
	dir := t.TempDir()

	wordsContent := []byte("alpha\nbravo\ncharlie\n")
	readmeContent := []byte("# readme\n")
	server := newBlobServer(t, map[string][]byte{
		"/words.txt": wordsContent,
		"/README.md": readmeContent,
	})

	manifestPath := filepath.Join(dir, "manifest.json")
	writeManifest(t, manifestPath, map[string]manifestEntry{
		"data/words.txt": {
			URIs:      []string{server.uri("/words.txt")},
			Integrity: sha256SRI(t, wordsContent),
			Size:      sizeOf(wordsContent),
		},
		"README.md": {
			URIs:      []string{server.uri("/README.md")},
			Integrity: sha256SRI(t, readmeContent),
		},
	})

	config := api.GlobalConfig{
		DigestFunction: "sha256",
		ManifestPath:   manifestPath,
		DiskCachePath:  filepath.Join(dir, "cache"),
		LogLevel:       "error",
	}
	volume, err := storage.Connect("", config, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { volume.Close() })
	return volume, server, manifestPath
}

func TestVolumeListAndNamespace(t *testing.T) {
	volume, _, _ := testVolume(t)

	entries, err := volume.List("")
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name)
	}
	if strings.Join(names, ",") != "README.md,data" {
		t.Errorf("unexpected root listing: %v", names)
	}

	if err := volume.Mkdir("data/new/deep", true); err != nil {
		t.Fatalf("mkdir -p: %v", err)
	}
	if err := volume.Mkdir("data/new/deep", true); err != nil {
		t.Fatalf("mkdir -p on existing directory: %v", err)
	}
	if err := volume.Mkdir("other/deep", false); err == nil {
		t.Error("mkdir without parents created missing intermediate directories")
	}

	if err := volume.Remove("data", false); err == nil {
		t.Error("remove deleted a non-empty directory without recursive")
	}
	if err := volume.Remove("data", true); err != nil {
		t.Fatalf("recursive remove: %v", err)
	}
	if _, err := volume.Lookup("data/words.txt"); !errors.Is(err, manifest.ErrNotFound) {
		t.Errorf("expected ErrNotFound after removal, got %v", err)
	}
}

func TestVolumeStreamFetchesViaHTTP(t *testing.T) {
	volume, _, _ := testVolume(t)
	ctx := context.Background()

	reader, err := volume.Stream(ctx, "data/words.txt", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	content, err := io.ReadAll(reader)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "alpha\nbravo\ncharlie\n" {
		t.Errorf("unexpected content: %q", content)
	}

	// ranged read, now served from the disk cache
	reader, err = volume.Stream(ctx, "data/words.txt", 6, 5)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	ranged, err := io.ReadAll(reader)
	if err != nil {
		t.Fatal(err)
	}
	if string(ranged) != "bravo" {
		t.Errorf("unexpected ranged content: %q", ranged)
	}
}

func TestVolumeStatReportsPresence(t *testing.T) {
	volume, _, _ := testVolume(t)
	ctx := context.Background()

	info, err := volume.Stat(ctx, "data/words.txt")
	if err != nil {
		t.Fatal(err)
	}
	if info.IsDir {
		t.Error("leaf reported as directory")
	}
	if !info.DigestKnown {
		t.Error("digest should be known from the manifest size hint")
	}
	if info.LocalPresent {
		t.Error("blob reported present before any fetch")
	}

	reader, err := volume.Stream(ctx, "data/words.txt", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	io.Copy(io.Discard, reader)
	reader.Close()

	info, err = volume.Stat(ctx, "data/words.txt")
	if err != nil {
		t.Fatal(err)
	}
	if !info.LocalPresent {
		t.Error("blob not present in the disk cache after streaming")
	}

	dirInfo, err := volume.Stat(ctx, "data")
	if err != nil {
		t.Fatal(err)
	}
	if !dirInfo.IsDir {
		t.Error("directory not reported as directory")
	}
}

func TestVolumeResolveSizeWithoutHint(t *testing.T) {
	volume, _, _ := testVolume(t)

	// README.md has no size in the manifest, so the digest has to be
	// learned by downloading the content
	size, err := volume.ResolveSize(context.Background(), "README.md")
	if err != nil {
		t.Fatal(err)
	}
	if size != int64(len("# readme\n")) {
		t.Errorf("unexpected size: %d", size)
	}
}

func TestVolumeCopyToLocal(t *testing.T) {
	volume, _, _ := testVolume(t)
	ctx := context.Background()
	dst := t.TempDir()

	target := filepath.Join(dst, "words.txt")
	if err := volume.CopyToLocal(ctx, "data/words.txt", target, false); err != nil {
		t.Fatal(err)
	}
	content, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "alpha\nbravo\ncharlie\n" {
		t.Errorf("unexpected copied content: %q", content)
	}

	if err := volume.CopyToLocal(ctx, "data", filepath.Join(dst, "tree"), false); err == nil {
		t.Error("copying a directory without recursive succeeded")
	}
	if err := volume.CopyToLocal(ctx, "", filepath.Join(dst, "tree"), true); err != nil {
		t.Fatalf("recursive copy: %v", err)
	}
	for _, name := range []string{"README.md", "data/words.txt"} {
		if _, err := os.Stat(filepath.Join(dst, "tree", filepath.FromSlash(name))); err != nil {
			t.Errorf("missing %s in recursive copy: %v", name, err)
		}
	}
}

// syncBuffer lets the follow goroutine write while the test polls.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestVolumeFollowStreamsAppendedData(t *testing.T) {
	volume, server, manifestPath := testVolume(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- volume.Follow(ctx, "data/words.txt", &out)
	}()
	// give the watcher a moment to install
	time.Sleep(500 * time.Millisecond)

	grown := []byte("alpha\nbravo\ncharlie\ndelta\n")
	server.put("/words.txt", grown)
	writeManifest(t, manifestPath, map[string]manifestEntry{
		"data/words.txt": {
			URIs:      []string{server.uri("/words.txt")},
			Integrity: sha256SRI(t, grown),
			Size:      sizeOf(grown),
		},
	})

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if out.String() == "delta\n" {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if got := out.String(); got != "delta\n" {
		t.Errorf("expected the appended suffix %q, got %q", "delta\n", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Follow: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Follow did not observe cancellation")
	}
}

func TestVolumeCloseIdempotent(t *testing.T) {
	volume, _, _ := testVolume(t)
	if err := volume.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := volume.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
