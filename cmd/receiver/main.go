package main

import (
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/xid"
	"github.com/spf13/pflag"

	"quicft/internal/config"
	"quicft/internal/endpoint"
	"quicft/internal/receiver"
	"quicft/pkg/logger"
)

const version = "1.0.0"

func main() {
	var (
		host       = pflag.StringP("host", "H", "", "bind host (overrides config)")
		port       = pflag.IntP("port", "p", 0, "bind port (overrides config)")
		configPath = pflag.StringP("config", "c", "", "path to a YAML receiver config file")
		outPath    = pflag.StringP("out", "o", "", "path to write the received file")
		delayMs    = pflag.Float64P("delay", "d", 0, "artificial per-batch ack delay override, milliseconds (0 keeps config default)")
		verbose    = pflag.BoolP("verbose", "v", false, "enable debug logging")
	)
	pflag.Parse()

	if *verbose {
		logger.SetLevel(logger.LevelDebug)
	}
	logger.Banner("quicft receiver", version)

	cfg, err := config.LoadReceiverConfig(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", "err", err)
	}
	if *host != "" {
		cfg.Host = *host
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *delayMs > 0 {
		cfg.AckDelay = time.Duration(*delayMs * float64(time.Millisecond))
	}

	if *outPath == "" {
		logger.Fatal("missing required -o/--out argument")
	}
	cfg.OutputPath = *outPath
	out, err := os.Create(*outPath)
	if err != nil {
		logger.Fatal("failed to create output file", "err", err)
	}
	defer out.Close()

	sessionID := xid.New()
	log := logger.With("session", sessionID.String())
	log.Info("binding", "host", cfg.Host, "port", cfg.Port)

	bindAddr := &net.UDPAddr{IP: net.ParseIP(cfg.Host), Port: cfg.Port}
	ep, err := endpoint.ListenUDP(bindAddr)
	if err != nil {
		logger.Fatal("failed to bind", "err", err)
	}
	defer ep.Close()

	sess := receiver.New(cfg, ep, out)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- sess.Run()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			logger.Fatal("transfer failed", "err", err)
		}
		log.Info("transfer complete")
	case sig := <-sigChan:
		log.Warn("received signal, shutting down", "signal", sig.String())
		ep.Close()
		os.Exit(0)
	}
}
