package node

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nosan/embedded-cassandra-sub005/internal/models"
	"github.com/nosan/embedded-cassandra-sub005/internal/rpc"
)

var actionTimeout time.Duration

func actionCommand(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <node name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rpc.DefaultHTTPConfig()
			cfg.Timeout = actionTimeout
			client := rpc.NewHTTPClient(cfg)
			defer client.Close()
			return nodeAction(client, os.Stdout, action, args[0])
		},
	}
}

// nodeAction posts start or stop for name and prints the resulting state.
func nodeAction(client rpc.HTTPClient, out io.Writer, action, name string) error {
	resp, err := client.Post(fmt.Sprintf("/api/v1/nodes/%s/%s", name, action), nil)
	if err != nil {
		return err
	}
	var result models.NodeActionResponse
	if err := resp.Decode(&result); err != nil {
		return err
	}
	fmt.Fprintf(out, "Node %s is %s\n", result.Name, result.State)
	return nil
}

func init() {
	startCmd := actionCommand("start", "Start a node and wait until it is ready")
	stopCmd := actionCommand("stop", "Stop a node")
	for _, c := range []*cobra.Command{startCmd, stopCmd} {
		c.Flags().DurationVar(&actionTimeout, "timeout", 5*time.Minute, "request timeout")
		nodeCmd.AddCommand(c)
	}
}
