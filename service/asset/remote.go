package asset

import (
	"context"
	"errors"
	"fmt"
	"time"

	remoteasset_proto "github.com/bazelbuild/remote-apis/build/bazel/remote/asset/v1"
	"github.com/tweag/asset-shell/api"
	integritypkg "github.com/tweag/asset-shell/integrity"
	"github.com/tweag/asset-shell/service/internal/protohelper"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// RemoteAssetService uses the remote asset API to access assets via gRPC.
// See also: https://raw.githubusercontent.com/bazelbuild/remote-apis/refs/tags/v2.11.0-rc2/build/bazel/remote/asset/v1/remote_asset.proto
type RemoteAssetService struct {
	client remoteasset_proto.FetchClient
}

// NewRemote creates a Fetch client on an established gRPC connection.
func NewRemote(conn *grpc.ClientConn) *RemoteAssetService {
	return &RemoteAssetService{client: remoteasset_proto.NewFetchClient(conn)}
}

func (r *RemoteAssetService) FetchBlob(
	ctx context.Context, timeout time.Duration, oldestContentAccepted time.Time,
	asset api.Asset, digestFunction integritypkg.Algorithm,
) (FetchBlobResponse, error) {
	req, err := protoFetchBlobRequest(timeout, oldestContentAccepted, asset, digestFunction)
	if err != nil {
		return FetchBlobResponse{}, err
	}
	resp, err := r.client.FetchBlob(ctx, req)
	if err != nil {
		return FetchBlobResponse{}, err
	}

	out, err := fromProtoFetchBlobResponse(resp)
	if err != nil {
		return out, err
	}

	// perform some basic validation
	if knownChecksum, ok := asset.Integrity.ChecksumForAlgorithm(digestFunction); ok {
		// If the digest is known in advance, we can validate it.
		knownDigest := integritypkg.NewDigest(knownChecksum.Hash, out.BlobDigest.SizeBytes, digestFunction)
		if !knownDigest.Equals(out.BlobDigest, digestFunction) {
			return FetchBlobResponse{}, fmt.Errorf("remote asset api: FetchBlob returned an unexpected digest: expected %s, got %s", knownDigest.Hex(digestFunction), out.BlobDigest.Hex(digestFunction))
		}
	}

	return out, nil
}

func protoFetchBlobRequest(
	timeout time.Duration, oldestContentAccepted time.Time,
	asset api.Asset, digestFunction integritypkg.Algorithm,
) (*remoteasset_proto.FetchBlobRequest, error) {
	req := &remoteasset_proto.FetchBlobRequest{
		Uris:           asset.URIs,
		DigestFunction: protohelper.ProtoDigestFunction(digestFunction),
	}
	if timeout != 0 {
		req.Timeout = durationpb.New(timeout)
	}
	if !oldestContentAccepted.IsZero() {
		req.OldestContentAccepted = timestamppb.New(oldestContentAccepted)
	}

	// we need to merge integrity and qualifiers into a list of unique qualifiers
	uniqueQualifiers := make(map[string]string)
	for k, v := range asset.Qualifiers {
		uniqueQualifiers[k] = v
	}
	// Sending only the sri for the digest function is most widely supported
	// by concrete implementations of the remote asset API, with a hardcoded
	// preference order for the rest.
	checksum, ok := asset.Integrity.BestSingleChecksum(digestFunction)
	if !ok {
		return nil, errors.New("no checksum found in integrity")
	}
	uniqueQualifiers["checksum.sri"] = checksum.ToSRI()

	for k, v := range uniqueQualifiers {
		req.Qualifiers = append(req.Qualifiers, &remoteasset_proto.Qualifier{
			Name:  k,
			Value: v,
		})
	}

	return req, nil
}

func fromProtoFetchBlobResponse(resp *remoteasset_proto.FetchBlobResponse) (FetchBlobResponse, error) {
	if resp == nil {
		return FetchBlobResponse{}, errors.New("FetchBlobResponse is nil")
	}
	digestFunction := protohelper.FromProtoDigestFunction(resp.DigestFunction)
	digest, err := integritypkg.DigestFromHex(resp.BlobDigest.Hash, resp.BlobDigest.SizeBytes, digestFunction)
	if err != nil {
		return FetchBlobResponse{}, err
	}
	return FetchBlobResponse{
		Status:         protohelper.FromProtoStatus(resp.Status),
		URI:            resp.Uri,
		Qualifiers:     fromProtoQualifiers(resp.Qualifiers),
		ExpiresAt:      resp.ExpiresAt.AsTime(),
		BlobDigest:     digest,
		DigestFunction: digestFunction,
	}, nil
}

func fromProtoQualifiers(qualifiers []*remoteasset_proto.Qualifier) map[string]string {
	m := make(map[string]string, len(qualifiers))
	for _, q := range qualifiers {
		m[q.Name] = q.Value
	}
	return m
}

var _ Asset = &RemoteAssetService{}
