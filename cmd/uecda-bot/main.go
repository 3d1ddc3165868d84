package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/uecdago/uecda-server/pkg/client"
	"github.com/uecdago/uecda-server/pkg/logging"
	"github.com/uecdago/uecda-server/pkg/protocol"
)

func main() {
	var (
		addr       string
		name       string
		logFile    string
		debugLevel string
	)
	flag.StringVar(&addr, "addr", fmt.Sprintf("127.0.0.1:%d", protocol.DefaultPort), "Server address")
	flag.StringVar(&name, "name", "default", "Player name sent during the handshake")
	flag.StringVar(&logFile, "logfile", "", "Rotated log file (empty logs to stdout only)")
	flag.StringVar(&debugLevel, "debuglevel", "info", "Logging level: trace, debug, info, warn, error")
	flag.Parse()

	logBackend, err := logging.NewLogBackend(logging.LogConfig{
		LogFile:    logFile,
		DebugLevel: debugLevel,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging error: %v\n", err)
		os.Exit(1)
	}
	defer logBackend.Close()
	log := logBackend.Logger("BOT")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.Dial(client.Config{Addr: addr, Name: name, Log: log})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	if err := c.Play(ctx, client.Lowest); err != nil {
		fmt.Fprintf(os.Stderr, "session failed: %v\n", err)
		os.Exit(1)
	}
}
