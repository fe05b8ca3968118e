package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/rs/xid"
	"github.com/spf13/pflag"

	"quicft/internal/config"
	"quicft/internal/endpoint"
	"quicft/internal/sender"
	"quicft/pkg/logger"
)

const (
	version = "1.0.0"
	author  = "quicft"
)

func main() {
	var (
		host        = pflag.StringP("host", "H", "", "receiver host (overrides config)")
		port        = pflag.IntP("port", "p", 0, "receiver port (overrides config)")
		configPath  = pflag.StringP("config", "c", "", "path to a YAML sender config file")
		filePath    = pflag.StringP("file", "f", "", "path to the file to send")
		timeLimit   = pflag.Float64P("time", "t", 0, "maximum seconds to run before aborting (0 disables)")
		packetLimit = pflag.IntP("number", "n", 0, "maximum file chunks to read and send before closing the transfer early (0 disables)")
		verbose     = pflag.BoolP("verbose", "v", false, "enable debug logging")
	)
	pflag.Parse()

	if *verbose {
		logger.SetLevel(logger.LevelDebug)
	}
	logger.Banner("quicft sender", version)

	cfg, err := config.LoadSenderConfig(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", "err", err)
	}
	if *host != "" {
		cfg.Host = *host
	}
	if *port != 0 {
		cfg.Port = *port
	}
	cfg.DurationSeconds = *timeLimit
	cfg.PacketCount = *packetLimit
	if err := config.ValidateSender(cfg); err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}

	if *filePath == "" {
		logger.Fatal("missing required -f/--file argument")
	}
	f, err := os.Open(*filePath)
	if err != nil {
		logger.Fatal("failed to open input file", "err", err)
	}
	defer f.Close()

	sessionID := xid.New()
	log := logger.With("session", sessionID.String())
	log.Info("dialing receiver", "host", cfg.Host, "port", cfg.Port)

	peerAddr := &net.UDPAddr{IP: net.ParseIP(cfg.Host), Port: cfg.Port}
	ep, err := endpoint.DialUDP(peerAddr)
	if err != nil {
		logger.Fatal("failed to dial receiver", "err", err)
	}
	defer ep.Close()

	sess := sender.New(cfg, ep, peerAddr)

	remainingReads := *packetLimit
	if remainingReads <= 0 {
		remainingReads = -1 // unlimited
	}
	done := make(chan error, 1)
	go func() {
		done <- sess.Run(&boundedReader{r: f, remainingReads: remainingReads})
	}()

	var timeout <-chan time.Time
	if *timeLimit > 0 {
		timer := time.NewTimer(time.Duration(*timeLimit * float64(time.Second)))
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case err := <-done:
		if err != nil {
			logger.Fatal("transfer failed", "err", err)
		}
		counters := sess.Counters()
		log.Info("transfer complete", "retransmissions", counters.Total,
			"time_threshold", counters.TimeThreshold, "reordering", counters.Reordering, "pto", counters.PTO)
	case <-timeout:
		logger.Fatal(fmt.Sprintf("transfer exceeded %v seconds, aborting", *timeLimit))
	}
}

// boundedReader caps the number of Read calls it will satisfy before
// reporting io.EOF, for the -n/--number CLI flag (each Read call in
// sender.Session.Run corresponds to one outbound packet). A negative
// remainingReads disables bounding; zero means the cap is reached and every
// further Read reports io.EOF.
type boundedReader struct {
	r              *os.File
	remainingReads int
}

func (b *boundedReader) Read(p []byte) (int, error) {
	if b.remainingReads == 0 {
		return 0, io.EOF
	}
	n, err := b.r.Read(p)
	if b.remainingReads > 0 {
		b.remainingReads--
	}
	return n, err
}
