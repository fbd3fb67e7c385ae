package client

import (
	"github.com/ValentinKolb/qKV/cmd/util"
	"github.com/ValentinKolb/qKV/lib/quorum"
	"github.com/ValentinKolb/qKV/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	coordinator  quorum.ICoordinator
	clientConfig *common.ClientConfig
	// spacedValues is set if the serializer can carry values containing spaces
	spacedValues bool

	// ClientCommands represents the client command group.
	// Without a subcommand an interactive session is started.
	ClientCommands = &cobra.Command{
		Use:               "client",
		Short:             "Read and write keys through a read / write quorum",
		Long:              `Read and write keys through a read / write quorum. Without a subcommand an interactive session is started that accepts the commands put <key> <value>, get <key>, view, stats and exit.`,
		Args:              cobra.NoArgs,
		PersistentPreRunE: setupCoordinator,
		RunE:              runInteractive,
	}
)

func init() {
	// Add roster, transport and quorum flags
	util.SetupClientFlags(ClientCommands)

	// Add subcommands
	ClientCommands.AddCommand(putCmd)
	ClientCommands.AddCommand(getCmd)
	ClientCommands.AddCommand(viewCmd)
	ClientCommands.AddCommand(perfTestCmd)
}

// setupCoordinator reads the client configuration and creates the quorum coordinator
func setupCoordinator(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	if err := util.ReadConfigFile(); err != nil {
		return err
	}

	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return err
	}

	config, err := util.GetClientConfig()
	if err != nil {
		return err
	}
	clientConfig = config

	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	spacedValues = s.Name() == "json"

	// a nil dialer makes the coordinator dial replicas over tcp
	coordinator, err = quorum.NewCoordinator(*clientConfig, s, nil)
	return err
}
