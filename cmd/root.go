package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/shKV/cmd/kv"
	"github.com/ValentinKolb/shKV/cmd/queue"
	"github.com/ValentinKolb/shKV/cmd/serve"
	"github.com/ValentinKolb/shKV/cmd/util"
	"github.com/ValentinKolb/shKV/rpc/common"
	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "shkv",
		Short: "process-shared key-value store",
		Long: fmt.Sprintf(`shKV (v%s)

A local key-value and FIFO queue store shared by all processes on a host.
One process owns the data in memory and serves it over TCP or a unix socket,
every other process attaches as a client.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of shKV",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("shKV v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(serve.ConfigCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(queue.QueueCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, common.DefaultSerializer, util.WrapString("serializer to use (binary, json), must match the server"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, common.DefaultTransport, util.WrapString("transport to use (tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
