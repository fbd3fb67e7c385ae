package util

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ValentinKolb/qKV/rpc/common"
	"github.com/ValentinKolb/qKV/rpc/serializer"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables (e.g. QKV_READ_QUORUM)
	EnvPrefix = "qkv"

	// DefaultAntiEntropyInterval is the anti-entropy interval in seconds if none is configured
	DefaultAntiEntropyInterval = 10
	// DefaultAntiEntropyFanout is the number of peers per anti-entropy round if none is configured
	DefaultAntiEntropyFanout = 1
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// --------------------------------------------------------------------------
// Flags
// --------------------------------------------------------------------------

// SetupReplicaFlags adds the roster flag shared by the client and the replica
func SetupReplicaFlags(cmd *cobra.Command) {
	key := "replicas"
	cmd.PersistentFlags().String(key, "", WrapString("Comma-separated list of all replica addresses (host:port). Alternatively the legacy keys numReplicas and replica1..replicaN of a config file are used"))
}

// SetupTransportFlags adds the socket flags to a command
func SetupTransportFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.PersistentFlags().Int(key, 0, WrapString("Deadline in seconds for connecting and for every request (0 = no deadline)"))

	key = "transport-write-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket write buffer (in KB, 0 = OS default)"))

	key = "transport-read-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket read buffer (in KB, 0 = OS default)"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval (in seconds, 0 = disabled)"))

	key = "transport-tcp-linger"
	cmd.PersistentFlags().Int(key, -1, WrapString("The linger time (in seconds, -1 = OS default)"))
}

// SetupClientFlags adds the quorum flags and all connection flags to a command
func SetupClientFlags(cmd *cobra.Command) {
	SetupReplicaFlags(cmd)
	SetupTransportFlags(cmd)

	key := "read-quorum"
	cmd.PersistentFlags().Int(key, 0, WrapString("Number of replicas contacted by a read (R). Legacy key: readQuorum"))

	key = "write-quorum"
	cmd.PersistentFlags().Int(key, 0, WrapString("Number of replicas locked and written by a write (W). W > N/2 and R + W > N must hold. Legacy key: writeQuorum"))

	key = "quorum-policy"
	cmd.PersistentFlags().String(key, string(common.QuorumPolicyFixed), WrapString("When the quorums are drawn: fixed (once per client) or per-operation"))
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// --------------------------------------------------------------------------
// Config loading
// --------------------------------------------------------------------------

// InitConfig initializes configuration from .env files, environment variables and the config file
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// ReadConfigFile reads the file given by the config flag (if any).
// Files ending in .properties use the legacy key=value format, all other files
// are read by viper (yaml, json, toml, env).
func ReadConfigFile() error {
	path := viper.GetString("config")
	if path == "" {
		return nil
	}

	if strings.EqualFold(filepath.Ext(path), ".properties") {
		props, err := godotenv.Read(path)
		if err != nil {
			return fmt.Errorf("%w: failed to read %s: %v", common.ErrInvalidConfig, path, err)
		}
		for key, value := range props {
			viper.SetDefault(key, value)
		}
		return nil
	}

	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: failed to read %s: %v", common.ErrInvalidConfig, path, err)
	}
	return nil
}

// GetReplicas returns the replica roster from the replicas key or the legacy
// numReplicas + replica1..replicaN keys
func GetReplicas() ([]string, error) {
	if list := strings.TrimSpace(viper.GetString("replicas")); list != "" {
		var replicas []string
		for _, replica := range strings.Split(list, ",") {
			replicas = append(replicas, strings.TrimSpace(replica))
		}
		return replicas, nil
	}

	if !viper.IsSet("numReplicas") {
		return nil, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(viper.GetString("numReplicas")))
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%w: numReplicas must be a positive number", common.ErrInvalidConfig)
	}
	replicas := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		replica := strings.TrimSpace(viper.GetString("replica" + strconv.Itoa(i)))
		if replica == "" {
			return nil, fmt.Errorf("%w: replica%d is missing", common.ErrInvalidConfig, i)
		}
		replicas = append(replicas, replica)
	}
	return replicas, nil
}

// getInt returns the value of the first key that is set, or def if none is set.
// Unchanged flags do not count as set, so legacy keys of a config file apply.
func getInt(def int, keys ...string) (int, error) {
	for _, key := range keys {
		if !viper.IsSet(key) {
			continue
		}
		raw := strings.TrimSpace(viper.GetString(key))
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be a number, got %q", common.ErrInvalidConfig, key, raw)
		}
		return v, nil
	}
	return def, nil
}

// GetClientTransportConfig reads the socket settings from viper
func GetClientTransportConfig() common.ClientTransportConfig {
	return common.ClientTransportConfig{
		SocketConf: common.SocketConf{
			WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
			ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
		},
		TCPConf: common.TCPConf{
			TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
			TCPLingerSec:    viper.GetInt("transport-tcp-linger"),
			TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
		},
	}
}

// GetClientConfig reads the client configuration from viper and validates it
func GetClientConfig() (*common.ClientConfig, error) {
	replicas, err := GetReplicas()
	if err != nil {
		return nil, err
	}
	readQuorum, err := getInt(0, "read-quorum", "readQuorum")
	if err != nil {
		return nil, err
	}
	writeQuorum, err := getInt(0, "write-quorum", "writeQuorum")
	if err != nil {
		return nil, err
	}
	policy, err := common.ParseQuorumPolicy(viper.GetString("quorum-policy"))
	if err != nil {
		return nil, err
	}

	conf := &common.ClientConfig{
		Quorum: common.QuorumConfig{
			Replicas:    replicas,
			ReadQuorum:  readQuorum,
			WriteQuorum: writeQuorum,
			Policy:      policy,
		},
		TimeoutSecond: viper.GetInt("timeout"),
		Transport:     GetClientTransportConfig(),
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// GetServerConfig reads the replica configuration from viper and validates it
func GetServerConfig() (*common.ServerConfig, error) {
	replicas, err := GetReplicas()
	if err != nil {
		return nil, err
	}
	interval, err := getInt(DefaultAntiEntropyInterval, "anti-entropy-interval", "antiEntropyIntervalInSeconds")
	if err != nil {
		return nil, err
	}
	fanout, err := getInt(DefaultAntiEntropyFanout, "anti-entropy-fanout", "numReplicasToSendAntiEntropy")
	if err != nil {
		return nil, err
	}

	transport := GetClientTransportConfig()
	conf := &common.ServerConfig{
		Replicas: replicas,
		AntiEntropy: common.AntiEntropyConfig{
			IntervalSecond: interval,
			Fanout:         fanout,
		},
		Transport: common.ServerTransportConfig{
			Endpoint:   viper.GetString("endpoint"),
			SocketConf: transport.SocketConf,
			TCPConf:    transport.TCPConf,
		},
		TimeoutSecond:   viper.GetInt64("timeout"),
		MetricsEndpoint: viper.GetString("metrics-endpoint"),
		LogLevel:        viper.GetString("log-level"),
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	s, ok := serializer.New(viper.GetString("serializer"))
	if !ok {
		return nil, fmt.Errorf("%w: invalid serializer %s (expected text or json)", common.ErrInvalidConfig, viper.GetString("serializer"))
	}
	return s, nil
}
