package queue

import (
	"fmt"

	"github.com/ValentinKolb/shKV/cmd/util"
	"github.com/ValentinKolb/shKV/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcStore client.IRPCStore

	// QueueCommands represents the queue command group
	QueueCommands = &cobra.Command{
		Use:   "queue",
		Short: "Perform FIFO queue operations",
		Long: `Perform FIFO queue operations. Queues live in their own namespace,
a queue and a key with the same name are independent.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := util.BindCommandFlags(cmd); err != nil {
				return err
			}
			var err error
			rpcStore, err = util.ConnectStore()
			return err
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if rpcStore == nil {
				return nil
			}
			return rpcStore.Close()
		},
	}

	putCmd = &cobra.Command{
		Use:   "put [queue] [value]",
		Short: "Appends a value to the tail of a queue",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcStore.QueuePut(args[0], []byte(args[1])); err != nil {
				return err
			}
			fmt.Println("put successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [queue]",
		Short: "Removes and prints the head of a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if value, ok, err := rpcStore.QueueGet(name); err != nil {
				return err
			} else {
				fmt.Printf("queue=%s, found=%t, value=%s\n", name, ok, value)
			}
			return nil
		},
	}
	sizeCmd = &cobra.Command{
		Use:   "size [queue]",
		Short: "Prints the number of items in a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if size, err := rpcStore.QueueSize(name); err != nil {
				return err
			} else {
				fmt.Printf("queue=%s, size=%d\n", name, size)
			}
			return nil
		},
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	util.SetupRPCClientFlags(QueueCommands)

	QueueCommands.AddCommand(putCmd)
	QueueCommands.AddCommand(getCmd)
	QueueCommands.AddCommand(sizeCmd)
}
