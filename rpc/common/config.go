package common

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ErrInvalidConfig is returned (wrapped) by all Validate methods
var ErrInvalidConfig = errors.New("invalid configuration")

// --------------------------------------------------------------------------
// Transport configuration structs
// --------------------------------------------------------------------------

// SocketConf holds socket buffer settings (0 = OS default)
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds TCP specific socket settings
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int // 0 = disabled
	TCPLingerSec    int // < 0 = OS default
}

// ServerTransportConfig is the transport configuration of a replica
type ServerTransportConfig struct {
	// Endpoint is the address the replica listens on (e.g. 0.0.0.0:5001)
	Endpoint string
	SocketConf
	TCPConf
}

// ClientTransportConfig is the transport configuration used to dial replicas
type ClientTransportConfig struct {
	SocketConf
	TCPConf
}

// --------------------------------------------------------------------------
// Quorum configuration
// --------------------------------------------------------------------------

// QuorumPolicy decides when quorum members are drawn
type QuorumPolicy string

const (
	// QuorumPolicyFixed draws the read and write quorum once when the coordinator is created
	QuorumPolicyFixed QuorumPolicy = "fixed"
	// QuorumPolicyPerOperation draws a new quorum for every put and get
	QuorumPolicyPerOperation QuorumPolicy = "per-operation"
)

// ParseQuorumPolicy converts a string to a QuorumPolicy
func ParseQuorumPolicy(s string) (QuorumPolicy, error) {
	switch QuorumPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case QuorumPolicyFixed, "":
		return QuorumPolicyFixed, nil
	case QuorumPolicyPerOperation:
		return QuorumPolicyPerOperation, nil
	default:
		return "", fmt.Errorf("%w: unknown quorum policy %q (expected %s or %s)", ErrInvalidConfig, s, QuorumPolicyFixed, QuorumPolicyPerOperation)
	}
}

// QuorumConfig holds the replica roster and the quorum sizes
type QuorumConfig struct {
	// Replicas is the list of all replica addresses (host:port)
	Replicas []string
	// ReadQuorum is the number of replicas contacted by a read (R)
	ReadQuorum int
	// WriteQuorum is the number of replicas locked and written by a write (W)
	WriteQuorum int
	// Policy decides whether quorums are drawn once or per operation
	Policy QuorumPolicy
}

// Validate checks the roster and that W > N/2 and R + W > N hold
func (c *QuorumConfig) Validate() error {
	if err := ValidateReplicas(c.Replicas); err != nil {
		return err
	}

	n := len(c.Replicas)
	if c.ReadQuorum < 1 || c.ReadQuorum > n {
		return fmt.Errorf("%w: read quorum %d must be between 1 and %d", ErrInvalidConfig, c.ReadQuorum, n)
	}
	if c.WriteQuorum < 1 || c.WriteQuorum > n {
		return fmt.Errorf("%w: write quorum %d must be between 1 and %d", ErrInvalidConfig, c.WriteQuorum, n)
	}
	if 2*c.WriteQuorum <= n {
		return fmt.Errorf("%w: write quorum %d must be greater than half of the %d replicas", ErrInvalidConfig, c.WriteQuorum, n)
	}
	if c.ReadQuorum+c.WriteQuorum <= n {
		return fmt.Errorf("%w: read quorum %d + write quorum %d must be greater than the %d replicas", ErrInvalidConfig, c.ReadQuorum, c.WriteQuorum, n)
	}
	if _, err := ParseQuorumPolicy(string(c.Policy)); err != nil {
		return err
	}
	return nil
}

// ValidateReplicas checks that the roster is non-empty and that every address is a unique host:port pair
func ValidateReplicas(replicas []string) error {
	if len(replicas) == 0 {
		return fmt.Errorf("%w: no replicas configured", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(replicas))
	for i, replica := range replicas {
		if replica == "" {
			return fmt.Errorf("%w: replica %d has no address", ErrInvalidConfig, i+1)
		}
		if _, port, err := net.SplitHostPort(replica); err != nil || port == "" {
			return fmt.Errorf("%w: replica %d has an invalid address %q (expected host:port)", ErrInvalidConfig, i+1, replica)
		}
		if seen[replica] {
			return fmt.Errorf("%w: replica %q is configured twice", ErrInvalidConfig, replica)
		}
		seen[replica] = true
	}
	return nil
}

// --------------------------------------------------------------------------
// Anti-entropy configuration
// --------------------------------------------------------------------------

// AntiEntropyConfig configures the periodic repair process of a replica
type AntiEntropyConfig struct {
	// IntervalSecond is the time between two rounds
	IntervalSecond int
	// Fanout is the number of peers that receive the sampled key per round (capped at the number of peers)
	Fanout int
}

// Validate checks the anti-entropy settings
func (c *AntiEntropyConfig) Validate() error {
	if c.IntervalSecond <= 0 {
		return fmt.Errorf("%w: anti-entropy interval must be positive, got %d", ErrInvalidConfig, c.IntervalSecond)
	}
	if c.Fanout < 0 {
		return fmt.Errorf("%w: anti-entropy fanout must not be negative, got %d", ErrInvalidConfig, c.Fanout)
	}
	return nil
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters of a replica process.
type ServerConfig struct {
	// Replicas is the list of all replica addresses, used as anti-entropy peers
	Replicas []string
	// AntiEntropy configures the repair process
	AntiEntropy AntiEntropyConfig

	// Transport settings
	Transport ServerTransportConfig
	// TimeoutSecond is the read/write deadline per request (0 = none)
	TimeoutSecond int64

	// MetricsEndpoint is the address of the metrics http endpoint (empty = disabled)
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// Validate checks the server configuration
func (c *ServerConfig) Validate() error {
	if c.Transport.Endpoint == "" {
		return fmt.Errorf("%w: no endpoint configured", ErrInvalidConfig)
	}
	if err := ValidateReplicas(c.Replicas); err != nil {
		return err
	}
	if err := c.AntiEntropy.Validate(); err != nil {
		return err
	}
	if c.TimeoutSecond < 0 {
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalidConfig)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Peers returns the configured replicas without the replica itself
func (c *ServerConfig) Peers() []string {
	peers := make([]string, 0, len(c.Replicas))
	for _, replica := range c.Replicas {
		if !SameEndpoint(replica, c.Transport.Endpoint) {
			peers = append(peers, replica)
		}
	}
	return peers
}

// SameEndpoint reports whether two host:port addresses denote the same endpoint.
// Hosts match if they are equal or if both are local (loopback or wildcard).
// A wildcard host never matches a remote host, so 0.0.0.0:5001 does not match 10.0.0.2:5001.
func SameEndpoint(a, b string) bool {
	if a == b {
		return true
	}
	hostA, portA, errA := net.SplitHostPort(a)
	hostB, portB, errB := net.SplitHostPort(b)
	if errA != nil || errB != nil || portA != portB {
		return false
	}
	return hostA == hostB || (isLocalHost(hostA) && isLocalHost(hostB))
}

// isLocalHost reports whether h is a wildcard or loopback host
func isLocalHost(h string) bool {
	if h == "" || h == "localhost" {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && (ip.IsUnspecified() || ip.IsLoopback())
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("Replica Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("TCP No Delay", strconv.FormatBool(c.Transport.TCPNoDelay))
	if c.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.MetricsEndpoint)
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	// Anti-entropy
	addSection("Anti-Entropy")
	addField("Interval", fmt.Sprintf("%d sec", c.AntiEntropy.IntervalSecond))
	addField("Fanout", strconv.Itoa(c.AntiEntropy.Fanout))

	// Replicas
	addSection("Replicas")
	for i, replica := range c.Replicas {
		marker := ""
		if SameEndpoint(replica, c.Transport.Endpoint) {
			marker = " (self)"
		}
		addField(strconv.Itoa(i+1), replica+marker)
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds all configuration parameters of a quorum client
type ClientConfig struct {
	Quorum QuorumConfig
	// TimeoutSecond is the dial and read/write deadline per replica (0 = none)
	TimeoutSecond int
	Transport     ClientTransportConfig
}

// Validate checks the client configuration
func (c *ClientConfig) Validate() error {
	if c.TimeoutSecond < 0 {
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalidConfig)
	}
	return c.Quorum.Validate()
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Read Quorum", strconv.Itoa(c.Quorum.ReadQuorum))
	addField("Write Quorum", strconv.Itoa(c.Quorum.WriteQuorum))
	addField("Quorum Policy", string(c.Quorum.Policy))

	// Replicas
	addSection("Replicas")
	for i, replica := range c.Quorum.Replicas {
		addField(strconv.Itoa(i+1), replica)
	}

	return sb.String()
}
