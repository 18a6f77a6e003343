package serve

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cmdUtil "github.com/ValentinKolb/shKV/cmd/util"
	"github.com/ValentinKolb/shKV/rpc/common"
	"github.com/ValentinKolb/shKV/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = common.DefaultServerConfig()
	ServeCmd       = &cobra.Command{
		Use:   "serve",
		Short: "Start the shKV server",
		Long: `Start the shKV server in the foreground. All data lives in this process and is lost when it exits.
The configuration can be set via a YAML file (--config), command line flags or environment variables.
Flags win over environment variables, which win over the file. The format of the environment variables
is SHKV_<flag> (e.g. SHKV_MAX_FRAME_SIZE=1048576)`,
		PreRunE: processConfig,
		RunE:    run,
	}

	// ConfigCmd prints the effective server configuration
	ConfigCmd = &cobra.Command{
		Use:     "config",
		Short:   "Print the effective server configuration as YAML",
		PreRunE: processConfig,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := serveCmdConfig.YAML()
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}
)

func init() {
	cobra.OnInitialize(cmdUtil.InitConfig)

	for _, cmd := range []*cobra.Command{ServeCmd, ConfigCmd} {
		setupServerFlags(cmd)
	}
}

func setupServerFlags(cmd *cobra.Command) {
	defaults := common.DefaultServerConfig()

	key := "config"
	cmd.Flags().String(key, "", cmdUtil.WrapString("Path of a YAML configuration file (see shkv config)"))

	key = "endpoint"
	cmd.Flags().String(key, defaults.Endpoint, cmdUtil.WrapString("The address on which the server will listen (e.g. 127.0.0.1:6666, /tmp/shkv.sock)"))

	key = "max-frame-size"
	cmd.Flags().Int(key, defaults.MaxFrameSize, cmdUtil.WrapString("The largest accepted request payload in bytes. Larger frames close the connection"))

	key = "read-buffer"
	cmd.Flags().Int(key, defaults.ReadBufferSize, cmdUtil.WrapString("Bytes read from a connection per readiness event"))

	key = "backlog"
	cmd.Flags().Int(key, defaults.Backlog, cmdUtil.WrapString("Requested listen backlog (informational, the OS default is used)"))

	key = "write-timeout"
	cmd.Flags().Int64(key, defaults.WriteTimeoutSecond, cmdUtil.WrapString("Seconds a response write may take before the connection is closed (must be positive)"))

	key = "metrics-endpoint"
	cmd.Flags().String(key, "", cmdUtil.WrapString("HTTP address for Prometheus metrics at /metrics (e.g. 127.0.0.1:9100), empty disables it"))

	key = "log-level"
	cmd.Flags().String(key, defaults.LogLevel, cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig merges config file, environment variables and flags into the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	// values from the file act as defaults, env and explicitly set flags override them
	if path := viper.GetString("config"); path != "" {
		fileConfig, err := common.LoadServerConfigFile(path)
		if err != nil {
			return err
		}
		viper.SetDefault("endpoint", fileConfig.Endpoint)
		viper.SetDefault("transport", fileConfig.Transport)
		viper.SetDefault("serializer", fileConfig.Serializer)
		viper.SetDefault("max-frame-size", fileConfig.MaxFrameSize)
		viper.SetDefault("read-buffer", fileConfig.ReadBufferSize)
		viper.SetDefault("backlog", fileConfig.Backlog)
		viper.SetDefault("write-timeout", fileConfig.WriteTimeoutSecond)
		viper.SetDefault("metrics-endpoint", fileConfig.MetricsEndpoint)
		viper.SetDefault("log-level", fileConfig.LogLevel)
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.Transport = viper.GetString("transport")
	serveCmdConfig.Serializer = viper.GetString("serializer")
	serveCmdConfig.MaxFrameSize = viper.GetInt("max-frame-size")
	serveCmdConfig.ReadBufferSize = viper.GetInt("read-buffer")
	serveCmdConfig.Backlog = viper.GetInt("backlog")
	serveCmdConfig.WriteTimeoutSecond = viper.GetInt64("write-timeout")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	return serveCmdConfig.Validate()
}

// run starts the shKV server and blocks until it is stopped by a signal
func run(_ *cobra.Command, _ []string) error {
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	t, err := cmdUtil.GetServerTransport()
	if err != nil {
		return err
	}

	serv := server.NewRPCServer(serveCmdConfig, t, s)
	if err := serv.Listen(); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", serveCmdConfig.Endpoint, err)
	}

	go waitForExit(func() {
		server.Logger.Infof("Shutting down server on %s", serv.Addr())
		serv.Close()
	})

	return serv.Serve()
}

// waitForExit calls onExit once the process is asked to terminate. SIGHUP is ignored
// so a server started from a terminal keeps running when the terminal goes away.
func waitForExit(onExit func()) {
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGHUP, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
	for s := range sc {
		switch s {
		case syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT:
			signal.Stop(sc)
			onExit()
			return
		default:
		}
	}
}
