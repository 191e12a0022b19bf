package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseGlobalOptions(t *testing.T) {
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	result, err := parseGlobalOptions([]string{"--debug", "-o", "a.b=c", "-o", "d.e=f"}, &out)
	if err != nil {
		t.Fatalf("parseGlobalOptions: %v", err)
	}
	if !result.Options.Debug {
		t.Error("expected the debug flag to be set")
	}
	want := []XlatorOption{{Key: "a.b", Value: "c"}, {Key: "d.e", Value: "f"}}
	if len(result.Options.XlatorOptions) != len(want) {
		t.Fatalf("expected %d xlator options, got %d", len(want), len(result.Options.XlatorOptions))
	}
	for i, option := range result.Options.XlatorOptions {
		if option != want[i] {
			t.Errorf("xlator option %d: got %+v, want %+v", i, option, want[i])
		}
	}
}

func TestParseGlobalOptionsLongForm(t *testing.T) {
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	result, err := parseGlobalOptions([]string{"--xlator-option", "k=v"}, &out)
	if err != nil {
		t.Fatalf("parseGlobalOptions: %v", err)
	}
	if len(result.Options.XlatorOptions) != 1 || result.Options.XlatorOptions[0] != (XlatorOption{Key: "k", Value: "v"}) {
		t.Errorf("unexpected xlator options: %+v", result.Options.XlatorOptions)
	}
}

func TestParseGlobalOptionsMalformedXlatorOption(t *testing.T) {
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	for _, raw := range []string{"abc", "=v"} {
		result, err := parseGlobalOptions([]string{"-o", raw}, &out)
		if err == nil {
			t.Errorf("-o %q: expected an error", raw)
		}
		if len(result.Options.XlatorOptions) != 0 {
			t.Errorf("-o %q: options were mutated despite the error: %+v", raw, result.Options.XlatorOptions)
		}
	}
}

func TestParseGlobalOptionsUnknownFlag(t *testing.T) {
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	if _, err := parseGlobalOptions([]string{"--no-such-flag"}, &out); err == nil {
		t.Error("expected an error for an unknown flag")
	}
}

func TestParseGlobalOptionsTarget(t *testing.T) {
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	result, err := parseGlobalOptions([]string{"--debug", "grpc://cas.internal:9000"}, &out)
	if err != nil {
		t.Fatalf("parseGlobalOptions: %v", err)
	}
	if result.Target != "grpc://cas.internal:9000" {
		t.Errorf("unexpected target: %q", result.Target)
	}
}

func TestParseGlobalOptionsHelpAndVersion(t *testing.T) {
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	result, err := parseGlobalOptions([]string{"--help"}, &out)
	if err != nil {
		t.Fatalf("--help: %v", err)
	}
	if !result.ShowHelp {
		t.Error("--help did not set ShowHelp")
	}
	if !strings.Contains(out.String(), "Usage:") {
		t.Errorf("--help did not print usage, got: %q", out.String())
	}

	out.Reset()
	result, err = parseGlobalOptions([]string{"--version"}, &out)
	if err != nil {
		t.Fatalf("--version: %v", err)
	}
	if !result.ShowVersion {
		t.Error("--version did not set ShowVersion")
	}
	if !strings.Contains(out.String(), toolVersion) {
		t.Errorf("--version did not print the version, got: %q", out.String())
	}
}

func TestParseGlobalOptionsConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	result, err := parseGlobalOptions(nil, &out)
	if err != nil {
		t.Fatalf("parseGlobalOptions: %v", err)
	}
	if result.Config.DigestFunction != "sha256" {
		t.Errorf("unexpected default digest function: %q", result.Config.DigestFunction)
	}
	if result.Config.ManifestPath != "manifest.json" {
		t.Errorf("unexpected default manifest path: %q", result.Config.ManifestPath)
	}
}
