package cmd

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/nosan/embedded-cassandra-sub005/cmd/root"
	"github.com/nosan/embedded-cassandra-sub005/internal/env"
)

// Set through -ldflags at build time
var SoftwareVer = ""
var BuildTime = ""
var BuildCommitId = ""

func writeVersion(w io.Writer) {
	fmt.Fprintf(w, "embedded-cassandra %s\n", env.Version)
	if BuildCommitId != "" {
		fmt.Fprintf(w, "  commit:   %s\n", BuildCommitId)
	}
	if BuildTime != "" {
		fmt.Fprintf(w, "  built:    %s\n", BuildTime)
	}
	fmt.Fprintf(w, "  go:       %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show orchestrator build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		writeVersion(cmd.OutOrStdout())
	},
}

func init() {
	if SoftwareVer != "" {
		env.Version = SoftwareVer
	}
	versionCmd.Example = `  embedded-cassandra version`
	root.RootCmd.AddCommand(versionCmd)
}
