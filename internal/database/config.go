package database

import "time"

// Connect timeouts per operation class. Interactive operations get the
// longer budget; health and stat probes the shorter one.
const (
	DefaultConnectTimeout = 10 * time.Second
	ProbeConnectTimeout   = 5 * time.Second
)

// Config carries the dial parameters for one engine session. The password is
// already decrypted by the time a Config exists; Configs must never be
// persisted or logged.
type Config struct {
	Engine       Engine
	Host         string
	Port         int
	DatabaseName string
	Username     string
	Password     string
	SSLEnabled   bool

	// ConnectTimeout bounds session establishment. Zero means
	// DefaultConnectTimeout.
	ConnectTimeout time.Duration
}

// Timeout returns the effective connect timeout.
func (c Config) Timeout() time.Duration {
	if c.ConnectTimeout > 0 {
		return c.ConnectTimeout
	}
	return DefaultConnectTimeout
}

// EffectivePort returns the configured port, or the adapter default when
// unset.
func (c Config) EffectivePort(defaultPort int) int {
	if c.Port > 0 {
		return c.Port
	}
	return defaultPort
}
