package storage

import (
	"fmt"
	"net/url"
	"strings"
)

// Target is a parsed connection target of the form
// grpc(s)://host[:port][/path/within/the/volume].
// The path part is optional and used by the single-shot commands
// (e.g. asset-cat grpcs://remote.example.com/data/file.bin).
type Target struct {
	// Endpoint is the gRPC endpoint including the scheme
	// (e.g. "grpcs://remote.example.com").
	Endpoint string
	// Path is the path within the volume namespace, without leading slash.
	// Empty if the target only names the endpoint.
	Path string
}

// ParseTarget splits a connection target into endpoint and namespace path.
func ParseTarget(raw string) (Target, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, fmt.Errorf("parsing connection target %q: %w", raw, err)
	}
	if u.Scheme != "grpc" && u.Scheme != "grpcs" {
		return Target{}, fmt.Errorf("connection target %q must start with \"grpc://\" or \"grpcs://\"", raw)
	}
	if u.Host == "" {
		return Target{}, fmt.Errorf("connection target %q is missing a host", raw)
	}
	return Target{
		Endpoint: u.Scheme + "://" + u.Host,
		Path:     strings.TrimPrefix(u.Path, "/"),
	}, nil
}
