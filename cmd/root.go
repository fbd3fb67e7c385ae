package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/qKV/cmd/client"
	"github.com/ValentinKolb/qKV/cmd/serve"
	"github.com/ValentinKolb/qKV/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "qkv",
		Short: "quorum-replicated key-value store",
		Long: fmt.Sprintf(`qKV (v%s)

A replicated key-value store written in Go. Clients write to a write quorum
under per-key locks and read from a read quorum, picking the highest version.
Replicas repair each other in the background with anti-entropy gossip.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of qKV",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("qKV v%s\n", Version)
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(client.ClientCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "text", util.WrapString("wire format to use (text, json). Replicas and clients must use the same format"))
	key = "config"
	RootCmd.PersistentFlags().String(key, "", util.WrapString("optional config file (yaml, json, toml, env or a legacy key=value .properties file)"))
	key = "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
