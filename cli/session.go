package cli

import (
	"io"
	"sync"

	"github.com/tweag/asset-shell/api"
	"github.com/tweag/asset-shell/storage"
)

// XlatorOption is one key/value configuration pair forwarded to the
// storage connection at setup time, parsed from a repeated -o flag.
type XlatorOption struct {
	Key   string
	Value string
}

// Options holds the global options accumulated by the option parser.
type Options struct {
	Debug bool
	// XlatorOptions are kept in insertion order.
	XlatorOptions []XlatorOption
}

// Session is the state shared by the dispatch loop and every command
// handler: the current connection, the parsed options, and the argument
// vector of the command being executed. It is owned by a single
// goroutine and never shared.
type Session struct {
	// ConnString is the target of the current connection, shown in the
	// shell prompt. Empty when not connected.
	ConnString string
	// Volume is the open storage connection, nil when not connected.
	Volume  *storage.Volume
	Options Options
	Config  api.GlobalConfig
	// Argv is the argument vector of the command currently being
	// dispatched, with Argv[0] naming the command. It is set right
	// before a handler runs and cleared right after it returns.
	Argv []string
	// InShell distinguishes the interactive loop from single-shot
	// alias invocation.
	InShell bool

	Stdout io.Writer
	Stderr io.Writer

	quitRequested bool

	closeOnce sync.Once
	closeErr  error
}

// Disconnect closes the current volume, if any. Unlike Close, the
// session remains usable and can connect again.
func (s *Session) Disconnect() error {
	if s.Volume == nil {
		return nil
	}
	err := s.Volume.Close()
	s.Volume = nil
	s.ConnString = ""
	return err
}

// Close tears the session down. It is safe to call multiple times and
// from both the normal exit path and the cancellation path: only the
// first call releases the connection.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.Disconnect()
	})
	return s.closeErr
}
