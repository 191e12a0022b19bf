package api

import (
	"errors"
	"strings"
)

// GlobalConfig is the configuration shared by the shell and all
// single-shot commands. It can be read from a JSON file or passed
// as command-line flags.
type GlobalConfig struct {
	// DigestFunction is the hash function used to compute the digest of a file.
	// It is also used by the remote- and local CAS to reference blobs.
	DigestFunction string `json:"digest_function,omitempty"`
	// The path to the manifest file describing the asset namespace.
	ManifestPath string `json:"manifest_path,omitempty"`
	// The path to the local (disk) cache directory.
	DiskCachePath string `json:"disk_cache,omitempty"`
	// Remote is the grpc(s) endpoint of the remote storage. Optional:
	// without it, content is served from the disk cache and plain HTTP
	// mirrors only.
	Remote string `json:"remote,omitempty"`
	// Log level. One of "error", "warning", "basic", "debug".
	// Note that some messages are always printed, regardless of the log level (e.g. errors).
	LogLevel string `json:"log_level,omitempty"`
}

func (c GlobalConfig) Validate() error {
	issues := []string{}
	switch c.DigestFunction {
	case "sha256", "sha384", "sha512": // allowed
	case "":
		issues = append(issues, `digest_function must be provided`)
	default:
		issues = append(issues, `digest_function must be one of "sha256", "sha384", "sha512"`)
	}
	if c.ManifestPath == "" {
		issues = append(issues, `manifest_path must be provided`)
	}
	if c.DiskCachePath == "" {
		issues = append(issues, `disk_cache must be provided`)
	}
	switch c.LogLevel {
	case "error", "warning", "basic", "debug": // allowed
	default:
		issues = append(issues, `log_level must be one of "error", "warning", "basic", "debug"`)
	}

	if len(issues) > 0 {
		return errors.New("config validation failed: \n  " + strings.Join(issues, "\n  "))
	}
	return nil
}

type ConfigReader interface {
	Read(baseConfig GlobalConfig) (GlobalConfig, error)
}

func ReadConfig(reader ConfigReader, config GlobalConfig) (GlobalConfig, error) {
	return reader.Read(config)
}

func DefaultConfig() GlobalConfig {
	return GlobalConfig{
		DigestFunction: "sha256",
		ManifestPath:   "manifest.json",
		DiskCachePath:  "~/.cache/asset-shell",
		LogLevel:       "basic",
	}
}

// ErrConfigNotFound is returned by a ConfigReader when the config
// file does not exist. Callers may treat this as non-fatal and fall
// back to defaults.
var ErrConfigNotFound = errors.New("config file not found")
