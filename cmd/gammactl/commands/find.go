package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/davidsha/gammarpc/pkg/client"
)

var findCmd = &cobra.Command{
	Use:   "find NAME",
	Short: "Check whether a handler is registered on the server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cl, err := client.Dial(serverHost, serverPort, client.DefaultConfig())
		if err != nil {
			return err
		}
		defer func() { _ = cl.Close() }()

		handle, err := cl.Find(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("handler %q is registered\n", handle.Name())
		return nil
	},
}
