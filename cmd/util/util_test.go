package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ValentinKolb/qKV/rpc/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestWrapString(t *testing.T) {
	wrapped := WrapString(strings.Repeat("word ", 30))
	for _, line := range strings.Split(wrapped, "\n") {
		assert.LessOrEqual(t, len(line), Wrap)
	}
	assert.Equal(t, "short text", WrapString("  short   text "))
	assert.Equal(t, "", WrapString(""))
}

func TestGetReplicasList(t *testing.T) {
	resetViper(t)
	viper.Set("replicas", "a:1, b:2 ,c:3")

	replicas, err := GetReplicas()
	require.NoError(t, err)
	assert.Equal(t, []string{"a:1", "b:2", "c:3"}, replicas)
}

func TestGetReplicasLegacy(t *testing.T) {
	resetViper(t)
	viper.Set("numReplicas", "2")
	viper.Set("replica1", "a:1")
	viper.Set("replica2", "b:2")

	replicas, err := GetReplicas()
	require.NoError(t, err)
	assert.Equal(t, []string{"a:1", "b:2"}, replicas)

	viper.Set("numReplicas", "3")
	_, err = GetReplicas()
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	viper.Set("numReplicas", "many")
	_, err = GetReplicas()
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestReadLegacyPropertiesFile(t *testing.T) {
	resetViper(t)
	path := writeFile(t, "config.properties", `# replicas
numReplicas=3
replica1=localhost:5001
replica2=localhost:5002
replica3=localhost:5003
readQuorum=2
writeQuorum=2
antiEntropyIntervalInSeconds=5
numReplicasToSendAntiEntropy=2
`)
	viper.Set("config", path)
	require.NoError(t, ReadConfigFile())

	conf, err := GetClientConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost:5001", "localhost:5002", "localhost:5003"}, conf.Quorum.Replicas)
	assert.Equal(t, 2, conf.Quorum.ReadQuorum)
	assert.Equal(t, 2, conf.Quorum.WriteQuorum)
	assert.Equal(t, common.QuorumPolicyFixed, conf.Quorum.Policy)

	viper.Set("endpoint", "0.0.0.0:5002")
	viper.Set("log-level", "info")
	serverConf, err := GetServerConfig()
	require.NoError(t, err)
	assert.Equal(t, 5, serverConf.AntiEntropy.IntervalSecond)
	assert.Equal(t, 2, serverConf.AntiEntropy.Fanout)
	assert.Equal(t, []string{"localhost:5001", "localhost:5003"}, serverConf.Peers())
}

func TestNewKeysWinOverLegacyKeys(t *testing.T) {
	resetViper(t)
	path := writeFile(t, "config.properties", "numReplicas=1\nreplica1=a:1\nreadQuorum=1\nwriteQuorum=1\n")
	viper.Set("config", path)
	require.NoError(t, ReadConfigFile())

	viper.Set("replicas", "a:1,b:1,c:1")
	viper.Set("read-quorum", 2)
	viper.Set("write-quorum", 2)

	conf, err := GetClientConfig()
	require.NoError(t, err)
	assert.Len(t, conf.Quorum.Replicas, 3)
	assert.Equal(t, 2, conf.Quorum.ReadQuorum)
}

func TestReadYAMLConfigFile(t *testing.T) {
	resetViper(t)
	path := writeFile(t, "qkv.yaml", `replicas: a:1,b:1,c:1
read-quorum: 1
write-quorum: 3
quorum-policy: per-operation
timeout: 2
`)
	viper.Set("config", path)
	require.NoError(t, ReadConfigFile())

	conf, err := GetClientConfig()
	require.NoError(t, err)
	assert.Equal(t, 1, conf.Quorum.ReadQuorum)
	assert.Equal(t, 3, conf.Quorum.WriteQuorum)
	assert.Equal(t, common.QuorumPolicyPerOperation, conf.Quorum.Policy)
	assert.Equal(t, 2, conf.TimeoutSecond)
}

func TestReadMissingConfigFile(t *testing.T) {
	resetViper(t)
	viper.Set("config", filepath.Join(t.TempDir(), "missing.properties"))
	assert.ErrorIs(t, ReadConfigFile(), common.ErrInvalidConfig)

	viper.Set("config", "")
	assert.NoError(t, ReadConfigFile())
}

func TestInvalidClientConfig(t *testing.T) {
	resetViper(t)

	// no replicas
	_, err := GetClientConfig()
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	// W <= N/2
	viper.Set("replicas", "a:1,b:1,c:1,d:1")
	viper.Set("read-quorum", 3)
	viper.Set("write-quorum", 2)
	_, err = GetClientConfig()
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	// R + W <= N
	viper.Set("read-quorum", 1)
	viper.Set("write-quorum", 3)
	_, err = GetClientConfig()
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	// not a number
	viper.Set("read-quorum", "two")
	_, err = GetClientConfig()
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	viper.Set("read-quorum", 2)
	viper.Set("quorum-policy", "sometimes")
	_, err = GetClientConfig()
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestServerConfigDefaults(t *testing.T) {
	resetViper(t)
	viper.Set("replicas", "localhost:5001,localhost:5002")
	viper.Set("endpoint", "localhost:5001")
	viper.Set("log-level", "debug")

	conf, err := GetServerConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultAntiEntropyInterval, conf.AntiEntropy.IntervalSecond)
	assert.Equal(t, DefaultAntiEntropyFanout, conf.AntiEntropy.Fanout)
	assert.Equal(t, []string{"localhost:5002"}, conf.Peers())

	viper.Set("anti-entropy-interval", 0)
	_, err = GetServerConfig()
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestGetSerializer(t *testing.T) {
	resetViper(t)

	s, err := GetSerializer()
	require.NoError(t, err)
	assert.Equal(t, "text", s.Name())

	viper.Set("serializer", "json")
	s, err = GetSerializer()
	require.NoError(t, err)
	assert.Equal(t, "json", s.Name())

	viper.Set("serializer", "gob")
	_, err = GetSerializer()
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}
