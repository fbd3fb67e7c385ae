package common

import (
	"testing"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuorumConfigValidate(t *testing.T) {
	three := []string{"a:1", "b:1", "c:1"}

	tests := []struct {
		name  string
		conf  QuorumConfig
		valid bool
	}{
		{"majority", QuorumConfig{Replicas: three, ReadQuorum: 2, WriteQuorum: 2}, true},
		{"read one write all", QuorumConfig{Replicas: three, ReadQuorum: 1, WriteQuorum: 3}, true},
		{"single replica", QuorumConfig{Replicas: []string{"a:1"}, ReadQuorum: 1, WriteQuorum: 1}, true},
		{"per-operation policy", QuorumConfig{Replicas: three, ReadQuorum: 2, WriteQuorum: 2, Policy: QuorumPolicyPerOperation}, true},
		{"no replicas", QuorumConfig{ReadQuorum: 1, WriteQuorum: 1}, false},
		{"write not a majority", QuorumConfig{Replicas: []string{"a:1", "b:1", "c:1", "d:1"}, ReadQuorum: 3, WriteQuorum: 2}, false},
		{"read and write do not intersect", QuorumConfig{Replicas: three, ReadQuorum: 1, WriteQuorum: 2}, false},
		{"quorum larger than roster", QuorumConfig{Replicas: three, ReadQuorum: 4, WriteQuorum: 3}, false},
		{"zero read quorum", QuorumConfig{Replicas: three, ReadQuorum: 0, WriteQuorum: 3}, false},
		{"duplicate replica", QuorumConfig{Replicas: []string{"a:1", "a:1", "c:1"}, ReadQuorum: 2, WriteQuorum: 2}, false},
		{"missing port", QuorumConfig{Replicas: []string{"a", "b:1", "c:1"}, ReadQuorum: 2, WriteQuorum: 2}, false},
		{"empty address", QuorumConfig{Replicas: []string{"", "b:1", "c:1"}, ReadQuorum: 2, WriteQuorum: 2}, false},
		{"unknown policy", QuorumConfig{Replicas: three, ReadQuorum: 2, WriteQuorum: 2, Policy: "random"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.conf.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestAntiEntropyConfigValidate(t *testing.T) {
	assert.NoError(t, (&AntiEntropyConfig{IntervalSecond: 1, Fanout: 0}).Validate())
	assert.ErrorIs(t, (&AntiEntropyConfig{IntervalSecond: 0, Fanout: 1}).Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, (&AntiEntropyConfig{IntervalSecond: 1, Fanout: -1}).Validate(), ErrInvalidConfig)
}

func TestServerConfig(t *testing.T) {
	conf := ServerConfig{
		Replicas:    []string{"localhost:5001", "localhost:5002", "10.0.0.3:5001"},
		AntiEntropy: AntiEntropyConfig{IntervalSecond: 10, Fanout: 1},
		Transport:   ServerTransportConfig{Endpoint: "0.0.0.0:5001"},
		LogLevel:    "info",
	}
	require.NoError(t, conf.Validate())

	// the wildcard endpoint matches local hosts on the same port only
	assert.Equal(t, []string{"localhost:5002", "10.0.0.3:5001"}, conf.Peers())
	assert.Contains(t, conf.String(), "localhost:5001 (self)")

	conf.Transport.Endpoint = "127.0.0.1:5002"
	assert.Equal(t, []string{"localhost:5001", "10.0.0.3:5001"}, conf.Peers())

	conf.LogLevel = "loud"
	assert.ErrorIs(t, conf.Validate(), ErrInvalidConfig)

	conf.LogLevel = "info"
	conf.Transport.Endpoint = ""
	assert.ErrorIs(t, conf.Validate(), ErrInvalidConfig)
}

func TestPeersMultiHostSharedPort(t *testing.T) {
	conf := ServerConfig{
		Replicas:  []string{"10.0.0.1:5001", "10.0.0.2:5001", "10.0.0.3:5001"},
		Transport: ServerTransportConfig{Endpoint: "0.0.0.0:5001"},
	}

	// a wildcard endpoint cannot tell which remote host it is, every replica stays a peer
	assert.Equal(t, conf.Replicas, conf.Peers())

	conf.Transport.Endpoint = "10.0.0.2:5001"
	assert.Equal(t, []string{"10.0.0.1:5001", "10.0.0.3:5001"}, conf.Peers())
}

func TestSameEndpoint(t *testing.T) {
	assert.True(t, SameEndpoint("a:1", "a:1"))
	assert.True(t, SameEndpoint(":1", "localhost:1"))
	assert.True(t, SameEndpoint("[::]:1", "127.0.0.1:1"))
	assert.True(t, SameEndpoint("0.0.0.0:1", "[::1]:1"))
	assert.True(t, SameEndpoint("localhost:1", "127.0.0.1:1"))
	assert.False(t, SameEndpoint(":1", "a:1"))
	assert.False(t, SameEndpoint("[::]:1", "b:1"))
	assert.False(t, SameEndpoint("0.0.0.0:1", "10.0.0.2:1"))
	assert.False(t, SameEndpoint("a:1", "a:2"))
	assert.False(t, SameEndpoint("a:1", "b:1"))
	assert.False(t, SameEndpoint("not-an-address", "a:1"))
}

func TestParseQuorumPolicy(t *testing.T) {
	p, err := ParseQuorumPolicy("")
	require.NoError(t, err)
	assert.Equal(t, QuorumPolicyFixed, p)

	p, err = ParseQuorumPolicy(" Per-Operation ")
	require.NoError(t, err)
	assert.Equal(t, QuorumPolicyPerOperation, p)

	_, err = ParseQuorumPolicy("sometimes")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]logger.LogLevel{
		"debug":   logger.DEBUG,
		"INFO":    logger.INFO,
		"":        logger.INFO,
		"warn":    logger.WARNING,
		"warning": logger.WARNING,
		"error":   logger.ERROR,
	} {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	assert.ErrorIs(t, InitLoggers("verbose"), ErrInvalidConfig)
	assert.NoError(t, InitLoggers("error"))
}
