package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/tweag/asset-shell/api"
	"github.com/tweag/asset-shell/internal/logging"
	"github.com/tweag/asset-shell/storage"
)

// Run is the process entry point below main. It inspects the invocation
// name: a basename matching one of the single-shot aliases executes
// that command once against the real process argv and returns its
// status, any other name parses global flags and enters the shell.
func Run(ctx context.Context, args []string) int {
	setLogLevelFromEnv()
	if len(args) == 0 {
		logging.Errorf("empty argument vector")
		return statusFailure
	}

	basename := filepath.Base(args[0])
	if command, ok := Resolve(basename); ok && command.Alias == basename {
		argv := append([]string{basename}, args[1:]...)
		return runSingleShot(ctx, command, argv)
	}
	return runShellMode(ctx, args)
}

// runSingleShot executes one command non-interactively. The handler
// sees the process argv with argv[0] reduced to the alias basename, so
// its diagnostics carry the name the user invoked.
func runSingleShot(ctx context.Context, command Command, args []string) int {
	config, err := loadConfig("", api.GlobalConfig{})
	if err != nil {
		logging.Errorf("%v", err)
		return statusFailure
	}
	logging.SetLevel(logging.FromString(config.LogLevel))

	volume, err := storage.Connect(config.Remote, config, nil)
	if err != nil {
		logging.Errorf("%v", err)
		return statusFailure
	}

	session := &Session{
		ConnString: config.Remote,
		Volume:     volume,
		Config:     config,
		Argv:       args,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
	}
	defer session.Close()
	return command.Execute(ctx, session)
}

func runShellMode(ctx context.Context, args []string) int {
	result, err := parseGlobalOptions(args[1:], os.Stderr)
	if err != nil {
		logging.Errorf("%v\nTry '%s --help' for more information.", err, toolName)
		return statusFailure
	}
	if result.ShowHelp || result.ShowVersion {
		return statusOK
	}
	if result.Options.Debug {
		logging.SetLevel(logging.LogLevelDebug)
	}

	session := &Session{
		Options: result.Options,
		Config:  result.Config,
		InShell: true,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
	defer session.Close()

	// A connection target on the command line is honored eagerly: a
	// shell that silently dropped its requested connection would be
	// misleading, so a failure here is fatal.
	target := result.Target
	if target == "" {
		target = result.Config.Remote
	}
	if target != "" {
		volume, err := storage.Connect(target, result.Config, headersFromOptions(result.Options))
		if err != nil {
			logging.Errorf("connecting to %s: %v", target, err)
			return statusFailure
		}
		session.Volume = volume
		session.ConnString = target
	}

	return RunShell(ctx, session, os.Stdin, os.Stdout)
}

func setLogLevelFromEnv() {
	level, ok := os.LookupEnv(api.LogLevelEnv)
	if !ok {
		return
	}
	logging.SetLevel(logging.FromString(level))
}
