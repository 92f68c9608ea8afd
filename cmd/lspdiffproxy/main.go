// Command lspdiffproxy wraps a downstream LSP server and rewrites
// whole-document textDocument/didChange notifications into line-granularity
// edits before forwarding them, so servers that only see incremental sync
// never have to re-diff a document from scratch.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/lspdiffproxy/internal/config"
	"github.com/dshills/lspdiffproxy/internal/config/loader"
	"github.com/dshills/lspdiffproxy/internal/jsonrpc"
	"github.com/dshills/lspdiffproxy/internal/proxy"
	"github.com/dshills/lspdiffproxy/internal/supervisor"
)

func main() {
	os.Exit(run())
}

// run mirrors the teacher's cmd/keystorm/main.go run() int shape: parse
// flags, build the long-lived component, run it until shutdown, map the
// outcome to a process exit code.
func run() int {
	fs := flag.NewFlagSet("lspdiffproxy", flag.ContinueOnError)
	flags, err := config.ParseFlags(fs, os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if flags.ShowHelp {
		fs.Usage()
		return 0
	}
	if flags.ShowVersion {
		fmt.Println("lspdiffproxy (dev)")
		return 0
	}

	settings, err := config.Load(flags, loader.DefaultFS())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load configuration: %v\n", err)
		return 1
	}

	logger, err := config.NewLogger(settings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open log: %v\n", err)
		return 1
	}

	serverLog, err := config.OpenLog(settings.Logging.ServerLogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open server log: %v\n", err)
		return 1
	}
	if serverLog != os.Stderr {
		defer serverLog.Close()
	}

	sup := supervisor.New(supervisorConfig(settings, serverLog))
	client := jsonrpc.NewTransport(os.Stdin, os.Stdout, nil)
	p := proxy.New(client, sup, proxy.Limits{
		MaxDiffLines:    settings.Diff.MaxDiffLines,
		MaxDiffMemoryMB: settings.Diff.MaxDiffMemoryMB,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		logger.Info("received shutdown signal")
		cancel()
	}()

	if err := p.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		logger.Error("proxy exited: %v", err)
		return 1
	}

	return 0
}

// supervisorConfig builds the downstream process configuration from
// resolved settings, layering the defaults from supervisor.DefaultConfig.
// stderrLog receives a copy of the downstream server's stderr across restarts.
func supervisorConfig(s config.Settings, stderrLog *os.File) supervisor.Config {
	cfg := supervisor.DefaultConfig()
	cfg.WorkDir = s.Downstream.WorkDir
	cfg.StderrWriter = stderrLog
	if len(s.Downstream.Command) > 0 {
		cfg.Command = s.Downstream.Command[0]
		cfg.Args = s.Downstream.Command[1:]
	}
	return cfg
}
