package cli

import (
	"context"
	"testing"
)

func TestResolveNameAndAlias(t *testing.T) {
	for _, name := range []string{"cat", "asset-cat"} {
		command, ok := Resolve(name)
		if !ok {
			t.Fatalf("Resolve(%q): not found", name)
		}
		if command.Name != "cat" {
			t.Errorf("Resolve(%q) resolved to %q", name, command.Name)
		}
	}
}

func TestResolveAllCommands(t *testing.T) {
	names := []string{
		"connect", "disconnect", "cat", "cp", "help", "ls",
		"mkdir", "mv", "quit", "rm", "stat", "tail",
	}
	for _, name := range names {
		command, ok := Resolve(name)
		if !ok {
			t.Errorf("Resolve(%q): not found", name)
			continue
		}
		if command.Name != name {
			t.Errorf("Resolve(%q) resolved to %q", name, command.Name)
		}
		if command.Execute == nil {
			t.Errorf("command %q has no handler", name)
		}
	}
}

func TestResolveUnknown(t *testing.T) {
	if _, ok := Resolve("bogus"); ok {
		t.Error("Resolve(\"bogus\") unexpectedly found a command")
	}
	if _, ok := Resolve(""); ok {
		t.Error("Resolve(\"\") unexpectedly found a command")
	}
	// lookup is case-sensitive
	if _, ok := Resolve("Cat"); ok {
		t.Error("Resolve(\"Cat\") unexpectedly found a command")
	}
}

func TestTrimmedTokenResolvesLikePlainName(t *testing.T) {
	fromTrimmed, ok := Resolve(TrimTrailing("quit \n"))
	if !ok {
		t.Fatal("trimmed token did not resolve")
	}
	fromPlain, _ := Resolve("quit")
	if fromTrimmed.Name != fromPlain.Name {
		t.Errorf("trimmed token resolved to %q, plain name to %q", fromTrimmed.Name, fromPlain.Name)
	}
}

func TestValidateCommandsRejectsDuplicates(t *testing.T) {
	noop := func(ctx context.Context, session *Session) int { return statusOK }

	cases := []struct {
		name  string
		table []Command
	}{
		{"duplicate name", []Command{
			{Name: "cat", Execute: noop},
			{Name: "cat", Execute: noop},
		}},
		{"alias shadows name", []Command{
			{Name: "cat", Execute: noop},
			{Name: "inspect", Alias: "cat", Execute: noop},
		}},
		{"duplicate alias", []Command{
			{Name: "a", Alias: "x", Execute: noop},
			{Name: "b", Alias: "x", Execute: noop},
		}},
		{"empty name", []Command{
			{Alias: "x", Execute: noop},
		}},
	}
	for _, tc := range cases {
		if err := validateCommands(tc.table); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}

	if err := validateCommands(commands); err != nil {
		t.Errorf("builtin command table failed validation: %v", err)
	}
}
