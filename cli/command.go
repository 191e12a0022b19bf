package cli

import (
	"context"
	"fmt"
)

// Exit statuses shared by all command handlers.
const (
	statusOK             = 0
	statusFailure        = 1
	statusNotImplemented = 2
)

// Command binds a command's canonical name, its optional single-shot
// alias (the basename the binary can be invoked under), and its handler.
type Command struct {
	Name  string
	Alias string
	// Execute runs the command against the session's current Argv and
	// returns an exit status.
	Execute func(ctx context.Context, session *Session) int
}

// commands is the full command table. Names and aliases are validated
// to be unique when the package is initialized.
var commands = mustCommands([]Command{
	{Name: "connect", Execute: runConnect},
	{Name: "disconnect", Execute: runDisconnect},
	{Name: "cat", Alias: "asset-cat", Execute: runCat},
	{Name: "cp", Alias: "asset-cp", Execute: runCopy},
	{Name: "help", Execute: runHelp},
	{Name: "ls", Alias: "asset-ls", Execute: runList},
	{Name: "mkdir", Alias: "asset-mkdir", Execute: runMkdir},
	{Name: "mv", Alias: "asset-mv", Execute: runMove},
	{Name: "quit", Execute: runQuit},
	{Name: "rm", Alias: "asset-rm", Execute: runRemove},
	{Name: "stat", Alias: "asset-stat", Execute: runStat},
	{Name: "tail", Alias: "asset-tail", Execute: runTail},
})

// Resolve finds a command by exact, case-sensitive match against its
// name or alias.
func Resolve(name string) (Command, bool) {
	return resolveIn(commands, name)
}

func resolveIn(table []Command, name string) (Command, bool) {
	for _, command := range table {
		if command.Name == name || (command.Alias != "" && command.Alias == name) {
			return command, true
		}
	}
	return Command{}, false
}

// validateCommands rejects tables where two entries share a name or
// alias. Lookup is first-match-wins, so a duplicate would shadow a
// command silently.
func validateCommands(table []Command) error {
	seen := make(map[string]string, 2*len(table))
	for _, command := range table {
		if command.Name == "" {
			return fmt.Errorf("command with empty name (alias %q)", command.Alias)
		}
		for _, key := range []string{command.Name, command.Alias} {
			if key == "" {
				continue
			}
			if previous, ok := seen[key]; ok {
				return fmt.Errorf("duplicate command name or alias %q (commands %s and %s)", key, previous, command.Name)
			}
			seen[key] = command.Name
		}
	}
	return nil
}

func mustCommands(table []Command) []Command {
	if err := validateCommands(table); err != nil {
		panic(err)
	}
	return table
}
