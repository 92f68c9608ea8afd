// Package config assembles the proxy's settings from defaults, an optional
// TOML file, environment variable overrides, and CLI flags, in that order of
// increasing precedence.
//
// Grounded on cmd/keystorm/main.go's parseFlags()/Options shape (teacher) and
// the teacher's internal/engine/tracking.DiffOptions/DefaultDiffOptions for
// the diff-tuning knob names and defaults, layered on top of the already
// generic internal/config/loader subpackage (TOMLLoader + EnvLoader kept
// as-is from the teacher).
package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/dshills/lspdiffproxy/internal/config/loader"
	"github.com/dshills/lspdiffproxy/internal/logging"
)

// EnvPrefix is the environment variable prefix recognized by EnvLoader.
const EnvPrefix = "LSPDIFFPROXY_"

// Logging holds the proxy's logging settings.
type Logging struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string
	// ServerLogPath, if non-empty, mirrors the downstream server's stderr to
	// this file for tracing.
	ServerLogPath string
	// ProxyLogPath, if non-empty, writes the proxy's own structured log
	// lines to this file instead of stderr.
	ProxyLogPath string
}

// Downstream holds the settings needed to spawn the wrapped LSP server.
type Downstream struct {
	// Command is the downstream LSP server executable and its arguments,
	// e.g. ["gopls", "-mode=stdio"]. Populated from the CLI's trailing
	// "-- <server-command> [args...]" when given, else from config.
	Command []string
	// WorkDir is the working directory for the spawned process.
	WorkDir string
}

// Diff holds tuning knobs for the diff engine, mirroring the teacher's
// tracking.DiffOptions naming.
type Diff struct {
	// MaxDiffLines limits the maximum number of lines considered by the
	// line-level Myers diff. Above this, didChange falls back to a
	// whole-document replace instead of a computed diff. 0 disables the
	// limit.
	MaxDiffLines int
	// MaxDiffMemoryMB limits the estimated memory budget for diff
	// computation. Above this, didChange falls back to a whole-document
	// replace. 0 disables the limit.
	MaxDiffMemoryMB int
}

// DefaultMaxDiffLines and DefaultMaxDiffMemoryMB mirror the teacher's
// tracking.DefaultMaxDiffLines/DiffOptions.MaxMemoryMB defaults.
const (
	DefaultMaxDiffLines    = 10000
	DefaultMaxDiffMemoryMB = 100
)

// Settings is the fully resolved configuration for a proxy run.
type Settings struct {
	Logging    Logging
	Downstream Downstream
	Diff       Diff
}

// Default returns the built-in default settings.
func Default() Settings {
	return Settings{
		Logging: Logging{
			Level: "info",
		},
		Diff: Diff{
			MaxDiffLines:    DefaultMaxDiffLines,
			MaxDiffMemoryMB: DefaultMaxDiffMemoryMB,
		},
	}
}

// Flags are the parsed CLI flags, kept separate from Settings so the caller
// can tell "flag not given" apart from "flag given its zero value".
type Flags struct {
	ConfigPath    string
	ServerLogPath string
	ProxyLogPath  string
	LogLevel      string
	ShowVersion   bool
	ShowHelp      bool
	ServerCommand []string
}

// ParseFlags parses os.Args[1:] (or the provided args, for testing) into
// Flags. A "--" separator marks the start of the downstream server command,
// mirroring how the proxy is invoked: lspdiffproxy [flags] -- <cmd> [args...].
func ParseFlags(fs *flag.FlagSet, args []string) (Flags, error) {
	var f Flags

	fs.StringVar(&f.ConfigPath, "config", "", "Path to TOML configuration file")
	fs.StringVar(&f.ServerLogPath, "server-log", "", "Path to mirror the downstream server's stderr")
	fs.StringVar(&f.ProxyLogPath, "proxy-log", "", "Path to write the proxy's own structured log")
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.BoolVar(&f.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&f.ShowHelp, "help", false, "Show help message")

	cmdArgs, flagArgs := splitServerCommand(args)

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "lspdiffproxy - line-diff rewriting LSP proxy\n\n")
		fmt.Fprintf(fs.Output(), "Usage: lspdiffproxy [options] -- <server-command> [server-args...]\n\n")
		fmt.Fprintf(fs.Output(), "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(fs.Output(), "\nExample:\n")
		fmt.Fprintf(fs.Output(), "  lspdiffproxy -log-level debug -- gopls -mode=stdio\n")
	}

	if err := fs.Parse(flagArgs); err != nil {
		return f, err
	}

	f.ServerCommand = cmdArgs
	return f, nil
}

// splitServerCommand separates the leading flag arguments from the trailing
// "-- <command> [args...]" downstream server invocation.
func splitServerCommand(args []string) (cmd []string, flags []string) {
	for i, a := range args {
		if a == "--" {
			return args[i+1:], args[:i]
		}
	}
	return nil, args
}

// Load resolves Settings by layering, in order of increasing precedence:
// built-in defaults, an optional TOML file (Flags.ConfigPath), environment
// variables (LSPDIFFPROXY_*), and finally the parsed CLI flags.
func Load(f Flags, fsys loader.FileSystem) (Settings, error) {
	merged := map[string]any{}

	if f.ConfigPath != "" {
		tomlLoader := loader.NewTOMLLoaderWithFS(fsys, f.ConfigPath)
		fileData, err := tomlLoader.LoadWithIncludes(f.ConfigPath, 8)
		if err != nil {
			return Settings{}, fmt.Errorf("config: load %s: %w", f.ConfigPath, err)
		}
		merged = loader.DeepMerge(merged, fileData)
	}

	envData, err := loader.NewEnvLoader(EnvPrefix).Load()
	if err != nil {
		return Settings{}, fmt.Errorf("config: load env: %w", err)
	}
	merged = loader.DeepMerge(merged, envData)

	settings := Default()
	applyMap(&settings, merged)
	applyFlags(&settings, f)

	if settings.Logging.Level == "" {
		settings.Logging.Level = "info"
	}
	if _, ok := validLevels[settings.Logging.Level]; !ok {
		return Settings{}, fmt.Errorf("config: invalid log level %q (must be debug, info, warn, or error)", settings.Logging.Level)
	}
	if len(settings.Downstream.Command) == 0 {
		return Settings{}, ErrNoDownstreamCommand
	}

	return settings, nil
}

var validLevels = map[string]struct{}{
	"debug": {}, "info": {}, "warn": {}, "error": {},
}

// applyMap copies recognized keys out of a generic TOML/env-produced map
// into the typed Settings struct.
func applyMap(s *Settings, data map[string]any) {
	if logging, ok := data["logging"].(map[string]any); ok {
		if v, ok := logging["level"].(string); ok {
			s.Logging.Level = v
		}
		if v, ok := logging["serverLogPath"].(string); ok {
			s.Logging.ServerLogPath = v
		}
		if v, ok := logging["proxyLogPath"].(string); ok {
			s.Logging.ProxyLogPath = v
		}
	}
	if downstream, ok := data["downstream"].(map[string]any); ok {
		if v, ok := downstream["command"].(string); ok && v != "" {
			s.Downstream.Command = []string{v}
		}
		if v, ok := downstream["workDir"].(string); ok {
			s.Downstream.WorkDir = v
		}
	}
	if diff, ok := data["diff"].(map[string]any); ok {
		if v, ok := asInt(diff["maxDiffLines"]); ok {
			s.Diff.MaxDiffLines = v
		}
		if v, ok := asInt(diff["maxDiffMemoryMB"]); ok {
			s.Diff.MaxDiffMemoryMB = v
		}
	}
}

// asInt accepts the numeric types that TOML decoding and EnvLoader.parseValue
// may produce for an integer setting.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// applyFlags overlays CLI flags, which take precedence over file/env config.
func applyFlags(s *Settings, f Flags) {
	if f.LogLevel != "" {
		s.Logging.Level = f.LogLevel
	}
	if f.ServerLogPath != "" {
		s.Logging.ServerLogPath = f.ServerLogPath
	}
	if f.ProxyLogPath != "" {
		s.Logging.ProxyLogPath = f.ProxyLogPath
	}
	if len(f.ServerCommand) > 0 {
		s.Downstream.Command = f.ServerCommand
	}
}

// OpenLog opens a log destination path, or falls back to os.Stderr when path
// is empty.
func OpenLog(path string) (*os.File, error) {
	if path == "" {
		return os.Stderr, nil
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("config: open log %s: %w", path, err)
	}
	return file, nil
}

// NewLogger builds a logging.Logger from resolved Settings.
func NewLogger(s Settings) (*logging.Logger, error) {
	out, err := OpenLog(s.Logging.ProxyLogPath)
	if err != nil {
		return nil, err
	}
	cfg := logging.DefaultLoggerConfig()
	cfg.Level = logging.ParseLogLevel(s.Logging.Level)
	cfg.Output = out
	return logging.NewLogger(cfg), nil
}
