package logging

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarning
	LogLevelBasic
	LogLevelDebug
)

var (
	level           = LogLevelBasic
	out   io.Writer = os.Stderr
)

func SetLevel(l LogLevel) {
	level = l
}

func GetLevel() LogLevel {
	return level
}

// SetOutput redirects log output. The default is stderr.
func SetOutput(w io.Writer) {
	out = w
}

func FromString(s string) LogLevel {
	if numericLogLevel, err := strconv.Atoi(s); err == nil {
		return boundedLogLevel(numericLogLevel)
	}
	switch strings.ToLower(s) {
	case "error":
		return LogLevelError
	case "warning":
		return LogLevelWarning
	case "basic":
		return LogLevelBasic
	case "debug":
		return LogLevelDebug
	}

	return LogLevelBasic
}

func Debugf(format string, args ...any) {
	if level >= LogLevelDebug {
		fPrintOut(format, args...)
	}
}

func Warningf(format string, args ...any) {
	if level >= LogLevelWarning {
		fPrintOut(format, args...)
	}
}

func Basicf(format string, args ...any) {
	if level >= LogLevelBasic {
		fPrintOut(format, args...)
	}
}

func Errorf(format string, args ...any) {
	fPrintOut(format, args...)
}

func Fatalf(format string, args ...any) {
	fPrintOut(format, args...)
	os.Exit(1)
}

func boundedLogLevel(numericLevel int) LogLevel {
	if numericLevel < 0 {
		return LogLevelError
	}
	if numericLevel > 3 {
		return LogLevelDebug
	}
	return LogLevel(numericLevel)
}

func fPrintOut(format string, args ...any) {
	fmt.Fprint(out, fmtWithNewline(format, args...))
}

func fmtWithNewline(format string, args ...any) string {
	s := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(s, "\n") {
		return s + "\n"
	}
	return s
}
