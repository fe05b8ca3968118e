// Package config builds the sender and receiver configuration structs
// (spec §6) by layering defaults, an optional YAML file, and CLI flags, in
// that order, the same precedence the teacher's loadConfig establishes by
// hand in core/main.go.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"quicft/internal/xerr"
)

// SenderConfig holds the sender-side tunables from spec §6.
type SenderConfig struct {
	Host                string        `yaml:"host"`
	Port                int           `yaml:"port"`
	TimeThreshold       time.Duration `yaml:"time_threshold"`
	ReorderingThreshold int           `yaml:"reordering_threshold"`
	PTOTimeout          time.Duration `yaml:"pto_timeout"`
	HandshakeTimeout    time.Duration `yaml:"handshake_timeout"`
	HandshakeRetryLimit int           `yaml:"handshake_retry_limit"`
	MaxPacketBytes      int           `yaml:"max_packet_bytes"`
	DurationSeconds     float64       `yaml:"-"` // from -t/--time
	PacketCount         int           `yaml:"-"` // from -n/--number
	Verbose             bool          `yaml:"-"`
}

// ReceiverConfig holds the receiver-side tunables from spec §6.
type ReceiverConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	AckDelay       time.Duration `yaml:"ack_delay"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	RetransmitWait time.Duration `yaml:"retransmission_timeout"`
	MaxPacketBytes int           `yaml:"max_packet_bytes"`
	OutputPath     string        `yaml:"-"` // from -o/--out
	Verbose        bool          `yaml:"-"`
}

// DefaultSenderConfig returns spec §6's sender defaults.
func DefaultSenderConfig() SenderConfig {
	return SenderConfig{
		Host:                "127.0.0.1",
		Port:                9443,
		TimeThreshold:       100 * time.Millisecond,
		ReorderingThreshold: 10,
		PTOTimeout:          50 * time.Millisecond,
		HandshakeTimeout:    5 * time.Millisecond,
		HandshakeRetryLimit: 5,
		MaxPacketBytes:      2048,
	}
}

// DefaultReceiverConfig returns spec §6's receiver defaults.
func DefaultReceiverConfig() ReceiverConfig {
	return ReceiverConfig{
		Host:           "0.0.0.0",
		Port:           9443,
		AckDelay:       20 * time.Millisecond,
		IdleTimeout:    10 * time.Second,
		RetransmitWait: 10 * time.Millisecond,
		MaxPacketBytes: 2048,
	}
}

// senderFileOverrides and receiverFileOverrides are the subset of fields a
// YAML config file may set; they are decoded separately from
// SenderConfig/ReceiverConfig so the millisecond/second fields in the file
// can be expressed as plain numbers instead of time.Duration's "100ms"
// string form, and so an absent key leaves the default untouched.
type senderFileOverrides struct {
	Host                *string  `yaml:"host"`
	Port                *int     `yaml:"port"`
	TimeThresholdMs     *float64 `yaml:"time_threshold_ms"`
	ReorderingThreshold *int     `yaml:"reordering_threshold"`
	PTOTimeoutMs        *float64 `yaml:"pto_timeout_ms"`
	HandshakeTimeoutMs  *float64 `yaml:"handshake_timeout_ms"`
	HandshakeRetryLimit *int     `yaml:"handshake_retry_limit"`
	MaxPacketBytes      *int     `yaml:"max_packet_bytes"`
}

type receiverFileOverrides struct {
	Host            *string  `yaml:"host"`
	Port            *int     `yaml:"port"`
	AckDelayMs      *float64 `yaml:"ack_delay_ms"`
	IdleTimeoutS    *float64 `yaml:"idle_timeout_s"`
	RetransmitWaitS *float64 `yaml:"retransmission_timeout_s"`
	MaxPacketBytes  *int     `yaml:"max_packet_bytes"`
}

// LoadSenderConfig reads path (if non-empty) over DefaultSenderConfig. A
// missing path is not an error; an unreadable or malformed one is.
func LoadSenderConfig(path string) (SenderConfig, error) {
	cfg := DefaultSenderConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: failed to read sender config %q: %w", path, err)
	}
	var ov senderFileOverrides
	if err := yaml.Unmarshal(raw, &ov); err != nil {
		return cfg, fmt.Errorf("config: failed to parse sender config %q: %w", path, err)
	}
	if ov.Host != nil {
		cfg.Host = *ov.Host
	}
	if ov.Port != nil {
		cfg.Port = *ov.Port
	}
	if ov.TimeThresholdMs != nil {
		cfg.TimeThreshold = msToDuration(*ov.TimeThresholdMs)
	}
	if ov.ReorderingThreshold != nil {
		cfg.ReorderingThreshold = *ov.ReorderingThreshold
	}
	if ov.PTOTimeoutMs != nil {
		cfg.PTOTimeout = msToDuration(*ov.PTOTimeoutMs)
	}
	if ov.HandshakeTimeoutMs != nil {
		cfg.HandshakeTimeout = msToDuration(*ov.HandshakeTimeoutMs)
	}
	if ov.HandshakeRetryLimit != nil {
		cfg.HandshakeRetryLimit = *ov.HandshakeRetryLimit
	}
	if ov.MaxPacketBytes != nil {
		cfg.MaxPacketBytes = *ov.MaxPacketBytes
	}
	return cfg, nil
}

// LoadReceiverConfig reads path (if non-empty) over DefaultReceiverConfig.
func LoadReceiverConfig(path string) (ReceiverConfig, error) {
	cfg := DefaultReceiverConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: failed to read receiver config %q: %w", path, err)
	}
	var ov receiverFileOverrides
	if err := yaml.Unmarshal(raw, &ov); err != nil {
		return cfg, fmt.Errorf("config: failed to parse receiver config %q: %w", path, err)
	}
	if ov.Host != nil {
		cfg.Host = *ov.Host
	}
	if ov.Port != nil {
		cfg.Port = *ov.Port
	}
	if ov.AckDelayMs != nil {
		cfg.AckDelay = msToDuration(*ov.AckDelayMs)
	}
	if ov.IdleTimeoutS != nil {
		cfg.IdleTimeout = secToDuration(*ov.IdleTimeoutS)
	}
	if ov.RetransmitWaitS != nil {
		cfg.RetransmitWait = secToDuration(*ov.RetransmitWaitS)
	}
	if ov.MaxPacketBytes != nil {
		cfg.MaxPacketBytes = *ov.MaxPacketBytes
	}
	return cfg, nil
}

func msToDuration(ms float64) time.Duration { return time.Duration(ms * float64(time.Millisecond)) }
func secToDuration(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }

// ValidateSender checks the NoRecoveryAlgorithm invariant from spec §7:
// a sender with every loss detector disabled can never discover loss.
func ValidateSender(cfg SenderConfig) error {
	if cfg.TimeThreshold <= 0 && cfg.ReorderingThreshold <= 0 {
		return xerr.ErrNoRecoveryAlgorithm
	}
	return nil
}
