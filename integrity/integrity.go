package integrity

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"iter"
	"strings"
)

// Digest represents the digest of a blob in the
// Content Addressable Storage (CAS), as specified in
// the remote execution API, including the hash and content size (in bytes).
// Unlike the remote execution API, the hash is encoded as a byte array.
type Digest struct {
	// Inlined array of bytes representing the hash.
	// This uses the theoretical maximum size of a hash (64 bytes).
	// All public methods correctly handle the actual hash size.
	// The contents of the unused bytes are unspecified and must be ignored.
	hash [64]byte
	// Size of the content in bytes.
	SizeBytes int64
}

func NewDigest(hash []byte, sizeBytes int64, algorithm Algorithm) Digest {
	if len(hash) != algorithm.SizeBytes() {
		panic("hash length does not match algorithm size")
	}
	out := Digest{SizeBytes: sizeBytes}
	copy(out.hash[:], hash)
	return out
}

func DigestFromHex(hexDigest string, sizeBytes int64, algorithm Algorithm) (Digest, error) {
	// The remote execution API encodes hashes as lowercase hexadecimal strings.
	hash, err := hex.DecodeString(hexDigest)
	if err != nil {
		return Digest{}, fmt.Errorf("failed to decode hex digest %q: %w", hexDigest, err)
	}
	if len(hash) != algorithm.SizeBytes() {
		return Digest{}, fmt.Errorf("unexpected hash size in hex digest %q: got %d, want %d", hexDigest, len(hash), algorithm.SizeBytes())
	}
	return NewDigest(hash, sizeBytes, algorithm), nil
}

func (d Digest) Equals(other Digest, algorithm Algorithm) bool {
	if d.Uninitialized() || other.Uninitialized() {
		// for safety, uninitialized digests are never equal to anything
		return false
	}
	if d.SizeBytes != other.SizeBytes {
		return false
	}
	sz := algorithm.SizeBytes()
	return bytes.Equal(d.hash[:sz], other.hash[:sz])
}

func (d Digest) Uninitialized() bool {
	return d.SizeBytes == 0 && d.hash == [64]byte{}
}

// CopyHashInto copies the hash into the destination buffer.
// The destination buffer must be at least the size of the hash.
func (d Digest) CopyHashInto(dest []byte, algorithm Algorithm) error {
	sz := algorithm.SizeBytes()
	if len(dest) < sz {
		return fmt.Errorf("destination buffer is too small: got %d, want %d", len(dest), sz)
	}
	copy(dest, d.hash[:sz])
	return nil
}

func (d Digest) Hex(algorithm Algorithm) string {
	sz := algorithm.SizeBytes()
	return hex.EncodeToString(d.hash[:sz])
}

// CheckContent reads all data from the reader and verifies that it
// hashes to this digest (and has the expected size).
func (d Digest) CheckContent(r io.Reader, algorithm Algorithm) error {
	h := algorithm.newHasher()
	n, err := io.Copy(h, r)
	if err != nil {
		return err
	}
	if n != d.SizeBytes {
		return fmt.Errorf("content size mismatch: got %d bytes, want %d", n, d.SizeBytes)
	}
	if !bytes.Equal(h.Sum(nil), d.hash[:algorithm.SizeBytes()]) {
		return errors.New("content hash mismatch")
	}
	return nil
}

// Checksum represents a single checksum of an artifact for a specific algorithm.
// It doesn't contain the size of the contents.
type Checksum struct {
	Algorithm Algorithm
	Hash      []byte
}

func ChecksumFromSRI(integrity string) (Checksum, error) {
	var checksum Checksum
	var expectedByteSize int
	if len(integrity) < 8 {
		return checksum, fmt.Errorf("sri too short: %q", integrity)
	}
	switch integrity[:7] {
	case "sha256-":
		checksum.Algorithm = SHA256
		expectedByteSize = 32
	case "sha384-":
		checksum.Algorithm = SHA384
		expectedByteSize = 48
	case "sha512-":
		checksum.Algorithm = SHA512
		expectedByteSize = 64
	default:
		return checksum, fmt.Errorf("unsupported algorithm in sri: %s", integrity)
	}

	hash, err := base64.StdEncoding.DecodeString(integrity[7:])
	if err != nil {
		return checksum, fmt.Errorf("failed to decode sri hash from base64 in %q: %w", integrity, err)
	}
	if len(hash) != expectedByteSize {
		return checksum, fmt.Errorf("unexpected hash size in sri %q: got %d, want %d", integrity, len(hash), expectedByteSize)
	}
	checksum.Hash = hash
	return checksum, nil
}

func ChecksumFromDigest(digest Digest, algorithm Algorithm) Checksum {
	return Checksum{Algorithm: algorithm, Hash: digest.hash[:algorithm.SizeBytes()]}
}

func (c Checksum) ToSRI() string {
	return fmt.Sprintf("%s-%s", c.Algorithm.String(), base64.StdEncoding.EncodeToString(c.Hash))
}

func (c Checksum) Hex() string {
	return hex.EncodeToString(c.Hash)
}

func (c Checksum) Equals(other Checksum) bool {
	return c.Algorithm == other.Algorithm && len(c.Hash) > 0 && len(other.Hash) > 0 && bytes.Equal(c.Hash, other.Hash)
}

// Empty returns true if the checksum is empty.
func (c Checksum) Empty() bool {
	return len(c.Hash) == 0
}

// Integrity represents the integrity of an artifact, including checksums for
// multiple algorithms.
// This representation is not space-efficient, but it doesn't require
// additional allocations for each checksum.
type Integrity struct {
	sha256 Checksum
	sha384 Checksum
	sha512 Checksum
}

func (i Integrity) Empty() bool {
	return i.sha256.Hash == nil && i.sha384.Hash == nil && i.sha512.Hash == nil
}

func (i Integrity) Items() iter.Seq[Checksum] {
	return func(yield func(Checksum) bool) {
		for _, alg := range KnownAlgorithms {
			if checksum, ok := i.ChecksumForAlgorithm(alg); ok {
				if !yield(checksum) {
					return
				}
			}
		}
	}
}

func IntegrityFromString(integrity ...string) (Integrity, error) {
	if len(integrity) == 0 {
		return Integrity{}, nil
	}
	out := Integrity{}
	for i, sri := range integrity {
		c, err := ChecksumFromSRI(sri)
		if err != nil {
			return Integrity{}, fmt.Errorf("parsing integrity string %d: %w", i, err)
		}
		switch c.Algorithm {
		case SHA256:
			if out.sha256.Hash != nil {
				return Integrity{}, errors.New("duplicate sha256 checksums in integrity strings")
			}
			out.sha256 = c
		case SHA384:
			if out.sha384.Hash != nil {
				return Integrity{}, errors.New("duplicate sha384 checksums in integrity strings")
			}
			out.sha384 = c
		case SHA512:
			if out.sha512.Hash != nil {
				return Integrity{}, errors.New("duplicate sha512 checksums in integrity strings")
			}
			out.sha512 = c
		default:
			return Integrity{}, fmt.Errorf("unsupported algorithm in integrity string: %s", c.Algorithm)
		}
	}
	return out, nil
}

func IntegrityFromChecksums(checksums ...Checksum) Integrity {
	i := Integrity{}
	for _, c := range checksums {
		switch c.Algorithm {
		case SHA256:
			i.sha256 = c
		case SHA384:
			i.sha384 = c
		case SHA512:
			i.sha512 = c
		}
	}
	return i
}

func (i Integrity) ChecksumForAlgorithm(alg Algorithm) (Checksum, bool) {
	switch alg {
	case SHA256:
		return i.sha256, i.sha256.Hash != nil
	case SHA384:
		return i.sha384, i.sha384.Hash != nil
	case SHA512:
		return i.sha512, i.sha512.Hash != nil
	}
	return Checksum{}, false
}

// BestSingleChecksum returns the best single checksum (with preference for the given algorithm).
func (i Integrity) BestSingleChecksum(alg Algorithm) (Checksum, bool) {
	// Always prefer the algorithm used for digests
	if c, ok := i.ChecksumForAlgorithm(alg); ok {
		return c, true
	}

	// Otherwise, we prefer SHA256 (most widely supported)
	if c, ok := i.ChecksumForAlgorithm(SHA256); ok {
		return c, true
	}

	// Otherwise, we try the most secure (SHA512)
	if c, ok := i.ChecksumForAlgorithm(SHA512); ok {
		return c, true
	}

	// Otherwise, we try the least used (SHA384)
	if c, ok := i.ChecksumForAlgorithm(SHA384); ok {
		return c, true
	}
	return Checksum{}, false
}

type Algorithm struct{ name string }

func (a Algorithm) String() string { return a.name }

func AlgorithmFromString(name string) (Algorithm, bool) {
	switch strings.ToLower(name) {
	case "sha256":
		return SHA256, true
	case "sha384":
		return SHA384, true
	case "sha512":
		return SHA512, true
	}
	return Algorithm{}, false
}

func (a Algorithm) SizeBytes() int {
	switch a {
	case SHA256:
		return 32
	case SHA384:
		return 48
	case SHA512:
		return 64
	}
	// Should be unreachable.
	panic("unsupported algorithm")
}

// Identifier returns a single byte identifying the algorithm,
// used as part of cache keys.
func (a Algorithm) Identifier() byte {
	switch a {
	case SHA256:
		return 1
	case SHA384:
		return 2
	case SHA512:
		return 3
	}
	panic("unsupported algorithm")
}

// CalculateDigest reads all data from the reader and returns its digest.
func (a Algorithm) CalculateDigest(r io.Reader) (Digest, error) {
	h := a.newHasher()
	n, err := io.Copy(h, r)
	if err != nil {
		return Digest{}, err
	}
	return NewDigest(h.Sum(nil), n, a), nil
}

func (a Algorithm) newHasher() hash.Hash {
	switch a {
	case SHA256:
		return sha256.New()
	case SHA384:
		return sha512.New384()
	case SHA512:
		return sha512.New()
	}
	panic("unsupported algorithm")
}

func SupportedAlgorithms() iter.Seq[Algorithm] {
	return func(yield func(Algorithm) bool) {
		for _, alg := range KnownAlgorithms {
			if !yield(alg) {
				return
			}
		}
	}
}

var (
	SHA256          Algorithm = Algorithm{"sha256"}
	SHA384          Algorithm = Algorithm{"sha384"}
	SHA512          Algorithm = Algorithm{"sha512"}
	KnownAlgorithms           = []Algorithm{SHA256, SHA384, SHA512}
)
