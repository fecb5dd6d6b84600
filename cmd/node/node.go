package node

import (
	"github.com/spf13/cobra"

	"github.com/nosan/embedded-cassandra-sub005/cmd/root"
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Node operations on a running server (list/start/stop)",
	Long:  `Node operations on a running server (list/start/stop)`,
}

const nodeExample = `  # start a configured node through the server
  embedded-cassandra node start primary`

func init() {
	root.RootCmd.AddCommand(nodeCmd)

	nodeCmd.Example = nodeExample
}
