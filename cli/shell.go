package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/tweag/asset-shell/internal/logging"
)

type lineRead struct {
	text string
	err  error
}

// RunShell drives the interactive dispatch loop: prompt, read one line,
// tokenize, resolve the command, execute it with the session, repeat.
// It returns the exit status of the shell. The loop terminates on
// `quit`, end of input, a read error, or context cancellation (the
// interrupt path); cancellation counts as a clean, user-requested exit.
func RunShell(ctx context.Context, session *Session, input io.Reader, output io.Writer) int {
	defer dumpXlatorOptions(session)

	lines := make(chan lineRead)
	go readLines(input, lines)

	for {
		printPrompt(session, output)

		var line lineRead
		select {
		case <-ctx.Done():
			return statusOK
		case line = <-lines:
		}
		if line.err == io.EOF {
			if TrimTrailing(line.text) == "" {
				return statusOK
			}
			// fall through: execute the unterminated final line
		} else if line.err != nil {
			logging.Errorf("reading input: %v", line.err)
			return statusFailure
		}

		if TrimTrailing(line.text) == "" {
			continue
		}

		tokens := SplitArgs(line.text)
		name := commandToken(tokens)
		command, ok := Resolve(name)
		if !ok {
			fmt.Fprintf(output, "unknown command %q (type \"help\" for a list of commands)\n", name)
			continue
		}

		// The handler sees an argv shaped like a real process argv,
		// with argv[0] holding the command name. Leading empty tokens
		// (from leading spaces) are not part of it.
		argv := tokens
		for len(argv) > 0 && TrimTrailing(argv[0]) == "" {
			argv = argv[1:]
		}
		argv[0] = name

		session.Argv = argv
		status := command.Execute(ctx, session)
		// Cleared unconditionally: the argv belongs to this iteration
		// only, whether the handler succeeded or not.
		session.Argv = nil
		if status != statusOK {
			logging.Debugf("%s exited with status %d", name, status)
		}

		if session.quitRequested {
			return statusOK
		}
		if line.err == io.EOF {
			return statusOK
		}
	}
}

// readLines feeds the input line by line into the channel, so the
// dispatch loop can select between input and cancellation. It stops at
// the first read error (including EOF).
func readLines(input io.Reader, lines chan<- lineRead) {
	reader := bufio.NewReader(input)
	for {
		text, err := reader.ReadString('\n')
		lines <- lineRead{text: text, err: err}
		if err != nil {
			return
		}
	}
}

// printPrompt writes the prompt. The connection string in the prompt is
// the single indicator of connection state the user gets.
func printPrompt(session *Session, output io.Writer) {
	if session.ConnString != "" {
		fmt.Fprintf(output, "%s %s> ", toolName, session.ConnString)
		return
	}
	fmt.Fprintf(output, "%s> ", toolName)
}

func dumpXlatorOptions(session *Session) {
	if !session.Options.Debug {
		return
	}
	for _, option := range session.Options.XlatorOptions {
		logging.Debugf("xlator option: %s=%s", option.Key, option.Value)
	}
}
