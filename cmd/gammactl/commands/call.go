package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/davidsha/gammarpc/pkg/client"
	"github.com/davidsha/gammarpc/pkg/protocol"
)

var (
	callData1 int32
	callData2 string
)

var callCmd = &cobra.Command{
	Use:   "call NAME",
	Short: "Invoke a handler by name",
	Long: `Invoke a handler by name with a payload built from the flags.

The payload byte block is given as comma-separated byte values.

Examples:
  # call add2 with data1=1 and data2=[100]
  gammactl call add2 --data1 1 --data2 100

  # call with an empty byte block
  gammactl call ping --data1 7`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := buildPayload(callData1, callData2)
		if err != nil {
			return err
		}

		cl, err := client.Dial(serverHost, serverPort, client.DefaultConfig())
		if err != nil {
			return err
		}
		defer func() { _ = cl.Close() }()

		handle, err := cl.Find(args[0])
		if err != nil {
			return err
		}

		reply, err := cl.Call(handle, payload)
		if err != nil {
			return err
		}

		fmt.Printf("data1: %d\n", reply.Data1)
		if reply.Data2Len > 0 {
			fmt.Printf("data2: %v\n", reply.Data2)
		}
		return nil
	},
}

func init() {
	callCmd.Flags().Int32Var(&callData1, "data1", 0, "payload scalar")
	callCmd.Flags().StringVar(&callData2, "data2", "", "payload bytes, comma-separated (e.g. 100,200)")
}

// buildPayload parses the --data2 byte list into a well-formed payload.
func buildPayload(data1 int32, data2 string) (*protocol.Data, error) {
	payload := &protocol.Data{Data1: data1}
	if data2 == "" {
		return payload, nil
	}

	parts := strings.Split(data2, ",")
	bytes := make([]byte, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid data2 byte %q: %w", part, err)
		}
		bytes = append(bytes, byte(v))
	}
	payload.Data2 = bytes
	payload.Data2Len = len(bytes)
	return payload, nil
}
