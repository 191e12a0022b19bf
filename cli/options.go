package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
	"github.com/tweag/asset-shell/api"
	"github.com/tweag/asset-shell/internal/logging"
)

const (
	toolName    = "asset-shell"
	toolVersion = "0.1.0"
)

const usageText = `Usage: asset-shell [OPTIONS] [TARGET]

Interactive shell for browsing and fetching manifest-described assets.
TARGET is a grpc:// or grpcs:// endpoint of a remote storage; without
it, the shell starts disconnected and content is served from the disk
cache and HTTP mirrors.

Options:
`

// optionSet is the outcome of parsing the global flag grammar. The
// parser never terminates the process itself: each call site decides
// whether an error, --help, or --version is fatal.
type optionSet struct {
	Options Options
	Config  api.GlobalConfig
	// Target is the residual connection target, "" if none was given.
	Target      string
	ShowHelp    bool
	ShowVersion bool
}

// parseGlobalOptions parses the global flag grammar from args (the
// argument vector without the program name). It is invoked once against
// the real process argv at startup and again for every `connect` typed
// inside the shell.
func parseGlobalOptions(args []string, output io.Writer) (optionSet, error) {
	flagSet := pflag.NewFlagSet(toolName, pflag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, usageText)
		fmt.Fprint(output, flagSet.FlagUsages())
	}

	var (
		rawXlatorOptions []string
		debug            bool
		showHelp         bool
		showVersion      bool
		configPath       string
		flagConfig       api.GlobalConfig
	)
	flagSet.StringArrayVarP(&rawXlatorOptions, "xlator-option", "o", nil, "Translator option KEY=VALUE, forwarded to the storage connection (repeatable)")
	flagSet.BoolVar(&debug, "debug", false, "Enable debug output")
	flagSet.BoolVar(&showHelp, "help", false, "Print usage and exit")
	flagSet.BoolVar(&showVersion, "version", false, "Print version information and exit")
	flagSet.StringVar(&configPath, "config", "", "Path to the config file")
	flagSet.StringVar(&flagConfig.DigestFunction, "digest_function", "", "Hash function used to compute the digest of a file. It is also used by the remote- and local CAS to reference blobs")
	flagSet.StringVar(&flagConfig.ManifestPath, "manifest", "", "Path to the manifest file")
	flagSet.StringVar(&flagConfig.DiskCachePath, "disk_cache", "", "Path to the local (disk) cache directory")
	flagSet.StringVar(&flagConfig.Remote, "remote", "", "grpc(s) endpoint of the remote storage, used when no TARGET is given")
	flagSet.StringVar(&flagConfig.LogLevel, "log_level", "", `Log level. One of "error", "warning", "basic", "debug"`)

	if err := flagSet.Parse(args); err != nil {
		return optionSet{}, err
	}
	if showHelp {
		flagSet.Usage()
		return optionSet{ShowHelp: true}, nil
	}
	if showVersion {
		fmt.Fprintf(output, "%s %s\n", toolName, toolVersion)
		return optionSet{ShowVersion: true}, nil
	}

	// Translator options are validated before anything is applied: a
	// single malformed value rejects the whole parse without leaving a
	// partially populated option list behind.
	options := Options{Debug: debug}
	for _, raw := range rawXlatorOptions {
		key, value, ok := strings.Cut(raw, "=")
		if !ok || key == "" {
			return optionSet{}, fmt.Errorf("invalid xlator option %q: expected KEY=VALUE", raw)
		}
		options.XlatorOptions = append(options.XlatorOptions, XlatorOption{Key: key, Value: value})
	}

	config, err := loadConfig(configPath, flagConfig)
	if err != nil {
		return optionSet{}, err
	}
	logging.SetLevel(logging.FromString(config.LogLevel))

	result := optionSet{Options: options, Config: config}
	if residual := flagSet.Args(); len(residual) > 0 {
		result.Target = residual[0]
	}
	return result, nil
}
