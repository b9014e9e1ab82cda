// Package config derives a node's addressing and timing parameters from
// its positional startup arguments.
package config

import "fmt"

// RootID is the base UDP port; node i's gossip identity is RootID+i.
const RootID = 40000

// DefaultAntiEntropyInterval is the period T (seconds) between unconditional
// status broadcasts, per spec.
const DefaultAntiEntropyInterval = 5

// Config holds the addressing and timing parameters for a single node.
type Config struct {
	Index       int // node index in [0, ClusterSize)
	ClusterSize int // N, total number of nodes in the fixed topology
	TCPPort     int // local control-stream port

	// IntrospectPort optionally binds a read-only HTTP debug surface.
	// Zero disables it.
	IntrospectPort int

	// AntiEntropyIntervalSeconds is T in the periodic anti-entropy loop.
	AntiEntropyIntervalSeconds int
}

// New builds a Config with the anti-entropy interval defaulted, ready for
// Validate.
func New(index, clusterSize, tcpPort int) *Config {
	return &Config{
		Index:                      index,
		ClusterSize:                clusterSize,
		TCPPort:                    tcpPort,
		AntiEntropyIntervalSeconds: DefaultAntiEntropyInterval,
	}
}

// UDPPort is this node's gossip identity, the OriginId it emits under.
func (c *Config) UDPPort() int {
	return RootID + c.Index
}

// PeerUDPPort returns the gossip identity of node j.
func PeerUDPPort(j int) int {
	return RootID + j
}

// Validate checks the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.ClusterSize < 1 {
		return fmt.Errorf("cluster size must be at least 1, got %d", c.ClusterSize)
	}
	if c.Index < 0 || c.Index >= c.ClusterSize {
		return fmt.Errorf("index %d out of range [0,%d)", c.Index, c.ClusterSize)
	}
	if c.TCPPort <= 0 || c.TCPPort > 65535 {
		return fmt.Errorf("invalid tcp port: %d", c.TCPPort)
	}
	if c.IntrospectPort < 0 || c.IntrospectPort > 65535 {
		return fmt.Errorf("invalid introspect port: %d", c.IntrospectPort)
	}
	if c.AntiEntropyIntervalSeconds <= 0 {
		return fmt.Errorf("anti-entropy interval must be positive, got %d", c.AntiEntropyIntervalSeconds)
	}
	return nil
}
