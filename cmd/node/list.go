package node

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nosan/embedded-cassandra-sub005/internal/models"
	"github.com/nosan/embedded-cassandra-sub005/internal/rpc"
)

var listCmd = &cobra.Command{
	Use:   "list [node name]",
	Short: "List nodes and their state",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := rpc.NewHTTPClient(nil)
		defer client.Close()
		return listNodes(client, os.Stdout, args)
	},
}

func listNodes(client rpc.HTTPClient, out io.Writer, args []string) error {
	var nodes []models.NodeDetail
	if len(args) == 1 {
		resp, err := client.Get("/api/v1/nodes/"+args[0], nil)
		if err != nil {
			return err
		}
		var d models.NodeDetail
		if err := resp.Decode(&d); err != nil {
			return err
		}
		nodes = append(nodes, d)
	} else {
		resp, err := client.Get("/api/v1/nodes", nil)
		if err != nil {
			return err
		}
		if err := resp.Decode(&nodes); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tSTATE\tPID\tNATIVE\tSTORAGE\tJMX\tLAST ERROR")
	for _, d := range nodes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n", d.Name, d.Version, d.State, d.Pid,
			d.Ports.NativeTransport, d.Ports.Storage, d.Ports.JMX, firstLine(d.LastError))
	}
	return w.Flush()
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

func init() {
	nodeCmd.AddCommand(listCmd)
}
