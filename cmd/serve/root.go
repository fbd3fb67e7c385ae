package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cmdUtil "github.com/ValentinKolb/qKV/cmd/util"
	"github.com/ValentinKolb/qKV/lib/antientropy"
	"github.com/ValentinKolb/qKV/lib/store/rstore"
	"github.com/ValentinKolb/qKV/rpc/client"
	"github.com/ValentinKolb/qKV/rpc/common"
	"github.com/ValentinKolb/qKV/rpc/server"
	"github.com/ValentinKolb/qKV/rpc/transport/tcp"
	"github.com/spf13/cobra"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start a qKV replica",
		Long:    `Start a qKV replica with the specified configuration. The configuration can be set via command line flags, a config file or environment variables. The format of the environment variables is QKV_<flag> (e.g. QKV_ANTI_ENTROPY_INTERVAL=15)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// add flags
	cmdUtil.SetupReplicaFlags(ServeCmd)
	cmdUtil.SetupTransportFlags(ServeCmd)

	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:5001", cmdUtil.WrapString("The address on which the replica will listen. The replica excludes the matching entry of the replica list from its anti-entropy peers"))

	key = "anti-entropy-interval"
	ServeCmd.PersistentFlags().Int(key, cmdUtil.DefaultAntiEntropyInterval, cmdUtil.WrapString("Seconds between two anti-entropy rounds. Legacy key: antiEntropyIntervalInSeconds"))

	key = "anti-entropy-fanout"
	ServeCmd.PersistentFlags().Int(key, cmdUtil.DefaultAntiEntropyFanout, cmdUtil.WrapString("Number of peers that receive the sampled key per round. Legacy key: numReplicasToSendAntiEntropy"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address of the Prometheus metrics endpoint (e.g. localhost:9101, empty = disabled)"))
}

// processConfig reads the configuration from the command line flags, the config file and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	if err := cmdUtil.ReadConfigFile(); err != nil {
		return err
	}

	config, err := cmdUtil.GetServerConfig()
	if err != nil {
		return err
	}
	*serveCmdConfig = *config

	// Init logger
	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// run starts the replica and blocks until it is stopped by a signal
func run(_ *cobra.Command, _ []string) error {
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	server.Logger.Infof("Replica configuration:%s", serveCmdConfig.String())

	store := rstore.NewReplicaStore()

	serv := server.NewRPCServer(
		*serveCmdConfig,
		store,
		tcp.NewTCPServerTransport(),
		s,
	)
	if err := serv.Listen(); err != nil {
		return err
	}

	// anti-entropy uses the same socket settings as the server
	dial := client.NewTCPDialer(
		common.ClientTransportConfig{
			SocketConf: serveCmdConfig.Transport.SocketConf,
			TCPConf:    serveCmdConfig.Transport.TCPConf,
		},
		time.Duration(serveCmdConfig.TimeoutSecond)*time.Second,
		s,
	)
	scheduler := antientropy.NewScheduler(serveCmdConfig.AntiEntropy, serveCmdConfig.Peers(), store, dial)
	scheduler.Start()
	defer scheduler.Stop()

	// metrics endpoint
	var metricsServer *http.Server
	if serveCmdConfig.MetricsEndpoint != "" {
		metricsServer = newMetricsServer(serveCmdConfig.MetricsEndpoint, serv, scheduler)
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				server.Logger.Errorf("Metrics endpoint failed: %v", err)
			}
		}()
	}

	// stop on SIGINT / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		server.Logger.Infof("Shutting down replica")
		if metricsServer != nil {
			_ = metricsServer.Close()
		}
		_ = serv.Close()
	}()

	if err := serv.Serve(); err != nil {
		return fmt.Errorf("replica stopped: %w", err)
	}
	return nil
}
