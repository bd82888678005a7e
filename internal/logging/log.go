// Package logging owns the process-wide logging backend and hands out
// per-subsystem loggers, following the decred/slog backend-plus-subsystem
// convention used throughout this code's lineage.
package logging

import (
	"io"
	"os"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

const (
	defaultLogFilename = "sidechaind.log"
	defaultMaxRolls    = 8
)

var (
	backendLog = slog.NewBackend(os.Stdout)
	logRotator *rotator.Rotator

	// Sub is the registry of per-subsystem loggers, mirroring the
	// subsystem-tag-per-package convention this corpus uses.
	Sub = map[string]slog.Logger{
		"CNSS": backendLog.Logger("CNSS"), // blockchain driver
		"CCOK": backendLog.Logger("CCOK"), // certificate builder/verifier
		"HSCH": backendLog.Logger("HSCH"), // hash chain
		"NTWK": backendLog.Logger("NTWK"), // p2p message handler
		"RPCS": backendLog.Logger("RPCS"), // rpc ingress
		"STAT": backendLog.Logger("STAT"), // account/staking state
	}
)

// InitLogRotator creates a rotating log writer at logFile and redirects
// the backend to write to both stdout and the rotator.
func InitLogRotator(logFile string) error {
	r, err := rotator.New(logFile, 10*1024, false, defaultMaxRolls)
	if err != nil {
		return err
	}
	logRotator = r
	backendLog = slog.NewBackend(io.MultiWriter(os.Stdout, logWriter{}))
	for tag, lg := range Sub {
		lg.SetLevel(backendLog.Logger(tag).Level())
		Sub[tag] = backendLog.Logger(tag)
	}
	return nil
}

// logWriter is a small io.Writer adapter over the rotator so it satisfies
// io.MultiWriter's requirements without exposing the rotator type.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	if logRotator == nil {
		return len(p), nil
	}
	return logRotator.Write(p)
}

// SetLevel sets the log level for every registered subsystem.
func SetLevel(level slog.Level) {
	for _, lg := range Sub {
		lg.SetLevel(level)
	}
}

// SetLevelString parses a level name (trace, debug, info, warn, error,
// critical) and applies it to every subsystem, ignoring unrecognized
// names rather than failing node startup over a typo'd flag.
func SetLevelString(name string) {
	level, ok := slog.LevelFromString(name)
	if !ok {
		return
	}
	SetLevel(level)
}

// Logger returns the logger for tag, creating a discard logger if unknown.
func Logger(tag string) slog.Logger {
	if lg, ok := Sub[tag]; ok {
		return lg
	}
	return slog.Disabled
}
