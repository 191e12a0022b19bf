// Package grpcutil dials the remote endpoint and injects per-connection
// metadata (parsed from repeated -o flags) into every outgoing RPC.
package grpcutil

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// NewClientConn connects to a grpc:// or grpcs:// endpoint.
// The headers are attached to every unary and stream call made on the
// connection.
func NewClientConn(endpoint string, headers metadata.MD) (*grpc.ClientConn, error) {
	scheme, hostport, ok := strings.Cut(endpoint, "://")
	if !ok {
		return nil, fmt.Errorf("remote endpoint %q must start with \"grpc://\" or \"grpcs://\"", endpoint)
	}

	var transport credentials.TransportCredentials
	switch scheme {
	case "grpc":
		transport = insecure.NewCredentials()
	case "grpcs":
		transport = credentials.NewTLS(&tls.Config{})
	default:
		return nil, fmt.Errorf("remote endpoint %q must start with \"grpc://\" or \"grpcs://\"", endpoint)
	}

	opts := []grpc.DialOption{grpc.WithTransportCredentials(transport)}
	if len(headers) > 0 {
		interceptor := &headerInterceptor{headers: headers}
		opts = append(opts,
			grpc.WithUnaryInterceptor(interceptor.unaryAddHeaders),
			grpc.WithStreamInterceptor(interceptor.streamAddHeaders),
		)
	}
	return grpc.NewClient(hostport, opts...)
}

type headerInterceptor struct {
	headers metadata.MD
}

// unaryAddHeaders injects headers into a unary gRPC call.
func (i *headerInterceptor) unaryAddHeaders(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	return invoker(i.withHeaders(ctx), method, req, reply, cc, opts...)
}

// streamAddHeaders injects headers into a stream gRPC call.
func (i *headerInterceptor) streamAddHeaders(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	return streamer(i.withHeaders(ctx), desc, cc, method, opts...)
}

func (i *headerInterceptor) withHeaders(ctx context.Context) context.Context {
	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		md = metadata.New(nil)
	}
	for k, vs := range i.headers {
		md.Append(k, vs...)
	}
	return metadata.NewOutgoingContext(ctx, md)
}
