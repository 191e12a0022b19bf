package cas

import (
	"bytes"
	"context"
	"fmt"
	"io"

	remoteexecution_proto "github.com/bazelbuild/remote-apis/build/bazel/remote/execution/v2"
	"github.com/tweag/asset-shell/integrity"
	"github.com/tweag/asset-shell/service/internal/protohelper"
	"google.golang.org/genproto/googleapis/bytestream"
	"google.golang.org/grpc"
)

// Remote uses the remote execution API's ContentAddressableStorage service to store and retrieve blobs.
// See also: https://raw.githubusercontent.com/bazelbuild/remote-apis/refs/tags/v2.11.0-rc2/build/bazel/remote/execution/v2/remote_execution.proto
type Remote struct {
	casClient        remoteexecution_proto.ContentAddressableStorageClient
	byteStreamClient bytestream.ByteStreamClient
}

// NewRemote creates CAS and ByteStream clients on an established
// gRPC connection.
func NewRemote(conn *grpc.ClientConn) *Remote {
	return &Remote{
		casClient:        remoteexecution_proto.NewContentAddressableStorageClient(conn),
		byteStreamClient: bytestream.NewByteStreamClient(conn),
	}
}

func (r *Remote) FindMissingBlobs(ctx context.Context, blobDigests []integrity.Digest, digestFunction integrity.Algorithm) ([]integrity.Digest, error) {
	resp, err := r.casClient.FindMissingBlobs(ctx, protoFindMissingBlobsRequest(blobDigests, digestFunction))
	if err != nil {
		return nil, err
	}
	return fromProtoFindMissingBlobsResponse(resp, digestFunction)
}

func (r *Remote) BatchReadBlobs(ctx context.Context, blobDigests []integrity.Digest, digestFunction integrity.Algorithm) (BatchReadBlobsResponse, error) {
	resp, err := r.casClient.BatchReadBlobs(ctx, protoBatchReadBlobsRequest(blobDigests, digestFunction))
	if err != nil {
		return nil, err
	}
	return fromProtoBatchReadBlobsResponse(resp, digestFunction)
}

func (r *Remote) BatchUpdateBlobs(ctx context.Context, blobData DigestsAndData, digestFunction integrity.Algorithm) (BatchUpdateBlobsResponse, error) {
	// The remote CAS is only filled through the remote asset service.
	return nil, fmt.Errorf("writing to the remote CAS is not supported")
}

func (r *Remote) ReadStream(ctx context.Context, blobDigest integrity.Digest, digestFunction integrity.Algorithm, offset, limit int64) (io.ReadCloser, error) {
	ctx, cancel := context.WithCancel(ctx)

	stream, err := r.byteStreamClient.Read(ctx, protoReadRequest(blobDigest, digestFunction, offset, limit))
	if err != nil {
		cancel()
		return nil, err
	}
	return &byteStreamReadCloser{
		stream: stream,
		cancel: cancel,
	}, nil
}

func (r *Remote) WriteStream(ctx context.Context, blobDigest integrity.Digest, digestFunction integrity.Algorithm) (io.WriteCloser, error) {
	// The remote CAS is only filled through the remote asset service.
	return nil, fmt.Errorf("writing to the remote CAS is not supported")
}

type byteStreamReadCloser struct {
	stream bytestream.ByteStream_ReadClient
	buf    bytes.Buffer
	eof    bool
	cancel context.CancelFunc
}

func (b *byteStreamReadCloser) Read(p []byte) (n int, err error) {
	for b.buf.Len() == 0 && !b.eof {
		resp, err := b.stream.Recv()
		if err == io.EOF {
			b.eof = true
			break
		} else if err != nil {
			return 0, err
		}
		b.buf.Write(resp.Data)
	}
	if b.buf.Len() == 0 {
		return 0, io.EOF
	}
	return b.buf.Read(p)
}

func (b *byteStreamReadCloser) Close() error {
	// cancel the context to stop the stream from our side
	b.cancel()
	return nil
}

func protoFindMissingBlobsRequest(blobDigests []integrity.Digest, digestFunction integrity.Algorithm) *remoteexecution_proto.FindMissingBlobsRequest {
	req := &remoteexecution_proto.FindMissingBlobsRequest{
		BlobDigests:    make([]*remoteexecution_proto.Digest, len(blobDigests)),
		DigestFunction: protohelper.ProtoDigestFunction(digestFunction),
	}
	for i, blobDigest := range blobDigests {
		req.BlobDigests[i] = &remoteexecution_proto.Digest{
			Hash:      blobDigest.Hex(digestFunction),
			SizeBytes: blobDigest.SizeBytes,
		}
	}
	return req
}

func fromProtoFindMissingBlobsResponse(resp *remoteexecution_proto.FindMissingBlobsResponse, digestFunction integrity.Algorithm) ([]integrity.Digest, error) {
	missingDigests := make([]integrity.Digest, len(resp.MissingBlobDigests))
	for i, protoDigest := range resp.MissingBlobDigests {
		var decodeErr error
		missingDigests[i], decodeErr = integrity.DigestFromHex(protoDigest.Hash, protoDigest.SizeBytes, digestFunction)
		if decodeErr != nil {
			return nil, fmt.Errorf("failed to decode digest %d: %w", i, decodeErr)
		}
	}
	return missingDigests, nil
}

func protoBatchReadBlobsRequest(blobDigests []integrity.Digest, digestFunction integrity.Algorithm) *remoteexecution_proto.BatchReadBlobsRequest {
	req := &remoteexecution_proto.BatchReadBlobsRequest{
		DigestFunction: protohelper.ProtoDigestFunction(digestFunction),
	}
	for _, blobDigest := range blobDigests {
		req.Digests = append(req.Digests, &remoteexecution_proto.Digest{
			Hash:      blobDigest.Hex(digestFunction),
			SizeBytes: blobDigest.SizeBytes,
		})
	}
	return req
}

func fromProtoBatchReadBlobsResponse(resp *remoteexecution_proto.BatchReadBlobsResponse, digestFunction integrity.Algorithm) (BatchReadBlobsResponse, error) {
	readResponses := make(BatchReadBlobsResponse, len(resp.Responses))
	for i, protoResponse := range resp.Responses {
		var decodeErr error
		readResponses[i].Digest, decodeErr = integrity.DigestFromHex(protoResponse.Digest.Hash, protoResponse.Digest.SizeBytes, digestFunction)
		if decodeErr != nil {
			return nil, fmt.Errorf("failed to decode digest %d: %w", i, decodeErr)
		}
		readResponses[i].Status = protohelper.FromProtoStatus(protoResponse.Status)
		// we create a new slice to avoid sharing the underlying buffer
		readResponses[i].Data = make([]byte, len(protoResponse.Data))
		copy(readResponses[i].Data, protoResponse.Data)
	}
	return readResponses, nil
}

func protoReadRequest(blobDigest integrity.Digest, digestFunction integrity.Algorithm, offset, limit int64) *bytestream.ReadRequest {
	return &bytestream.ReadRequest{
		ReadOffset:   offset,
		ReadLimit:    limit,
		ResourceName: fmt.Sprintf("blobs/%s/%d", blobDigest.Hex(digestFunction), blobDigest.SizeBytes),
	}
}

var _ CAS = (*Remote)(nil)
