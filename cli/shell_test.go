package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func newTestSession() (*Session, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	session := &Session{
		InShell: true,
		Stdout:  &stdout,
		Stderr:  &stderr,
	}
	return session, &stdout, &stderr
}

func TestShellHelpContinuesLoop(t *testing.T) {
	session, stdout, _ := newTestSession()
	status := RunShell(context.Background(), session, strings.NewReader("help\nquit\n"), stdout)
	if status != statusOK {
		t.Fatalf("unexpected status: %d", status)
	}
	output := stdout.String()
	if !strings.Contains(output, "Commands:") {
		t.Error("help did not print the command list")
	}
	// the loop prompted again after help, i.e. it was not terminated
	if got := strings.Count(output, "asset-shell> "); got != 2 {
		t.Errorf("expected 2 prompts, got %d in %q", got, output)
	}
}

func TestShellQuitTerminates(t *testing.T) {
	session, stdout, _ := newTestSession()
	status := RunShell(context.Background(), session, strings.NewReader("quit\nhelp\n"), stdout)
	if status != statusOK {
		t.Fatalf("unexpected status: %d", status)
	}
	if strings.Contains(stdout.String(), "Commands:") {
		t.Error("the loop kept running after quit")
	}
	if err := session.Close(); err != nil {
		t.Errorf("Close after quit: %v", err)
	}
}

func TestShellEndOfInputTerminates(t *testing.T) {
	session, stdout, _ := newTestSession()
	status := RunShell(context.Background(), session, strings.NewReader("help\n"), stdout)
	if status != statusOK {
		t.Fatalf("unexpected status: %d", status)
	}
}

func TestShellUnterminatedFinalLine(t *testing.T) {
	session, stdout, _ := newTestSession()
	status := RunShell(context.Background(), session, strings.NewReader("help"), stdout)
	if status != statusOK {
		t.Fatalf("unexpected status: %d", status)
	}
	if !strings.Contains(stdout.String(), "Commands:") {
		t.Error("the final line without a newline was not executed")
	}
}

func TestShellUnknownCommandContinues(t *testing.T) {
	session, stdout, _ := newTestSession()
	status := RunShell(context.Background(), session, strings.NewReader("bogus\nhelp\nquit\n"), stdout)
	if status != statusOK {
		t.Fatalf("unexpected status: %d", status)
	}
	output := stdout.String()
	if !strings.Contains(output, `unknown command "bogus"`) {
		t.Errorf("missing diagnostic for the unknown command in %q", output)
	}
	if !strings.Contains(output, "Commands:") {
		t.Error("the loop did not continue after the unknown command")
	}
}

func TestShellSkipsEmptyLines(t *testing.T) {
	session, stdout, _ := newTestSession()
	status := RunShell(context.Background(), session, strings.NewReader("\n\nquit\n"), stdout)
	if status != statusOK {
		t.Fatalf("unexpected status: %d", status)
	}
	if strings.Contains(stdout.String(), "unknown command") {
		t.Error("an empty line was dispatched as a command")
	}
	if got := strings.Count(stdout.String(), "asset-shell> "); got != 3 {
		t.Errorf("expected 3 prompts, got %d", got)
	}
}

func TestShellNotImplementedCommand(t *testing.T) {
	session, stdout, stderr := newTestSession()
	status := RunShell(context.Background(), session, strings.NewReader("mv a b\nquit\n"), stdout)
	if status != statusOK {
		t.Fatalf("a not-implemented command must not terminate the loop, got status %d", status)
	}
	if !strings.Contains(stderr.String(), "not implemented") {
		t.Errorf("missing not-implemented diagnostic in %q", stderr.String())
	}
}

func TestShellArgvClearedAfterDispatch(t *testing.T) {
	session, stdout, _ := newTestSession()
	RunShell(context.Background(), session, strings.NewReader("help\nquit\n"), stdout)
	if session.Argv != nil {
		t.Errorf("Argv was not cleared after dispatch: %#v", session.Argv)
	}
}

func TestShellPromptShowsConnection(t *testing.T) {
	session, stdout, _ := newTestSession()
	session.ConnString = "grpc://cas.internal:9000"
	RunShell(context.Background(), session, strings.NewReader("quit\n"), stdout)
	if !strings.Contains(stdout.String(), "asset-shell grpc://cas.internal:9000> ") {
		t.Errorf("prompt does not show the connection string: %q", stdout.String())
	}
}

func TestShellCancellationTerminatesCleanly(t *testing.T) {
	session, stdout, _ := newTestSession()
	// input that never produces a line, so only cancellation can end the loop
	blocked, _ := io.Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() {
		done <- RunShell(ctx, session, blocked, stdout)
	}()
	cancel()

	select {
	case status := <-done:
		if status != statusOK {
			t.Errorf("cancellation is a clean shutdown, got status %d", status)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("the loop did not observe cancellation")
	}
	if err := session.Close(); err != nil {
		t.Errorf("Close after cancellation: %v", err)
	}
}
