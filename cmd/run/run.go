package run

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nosan/embedded-cassandra-sub005/cmd/root"
	"github.com/nosan/embedded-cassandra-sub005/internal/config"
	"github.com/nosan/embedded-cassandra-sub005/internal/logger"
	"github.com/nosan/embedded-cassandra-sub005/internal/models"
	"github.com/nosan/embedded-cassandra-sub005/services"
)

var (
	flagNode       config.NodeConfig
	flagNativePort int
	flagStopWait   time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run [node name]",
	Short: "Start one node in the foreground until interrupted",
	Long: `Start one node and keep it running until SIGINT or SIGTERM, then stop it.
The node is taken from the configuration when a name is given, otherwise it is built from flags.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		nc, err := resolveNode(args)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runNode(ctx, nc)
	},
}

func resolveNode(args []string) (*config.NodeConfig, error) {
	if len(args) == 1 {
		nc, ok := config.Config.FindNode(args[0])
		if !ok {
			return nil, fmt.Errorf("node '%s' is not defined in the configuration", args[0])
		}
		return nc, nil
	}
	nc := flagNode
	if nc.Name == "" {
		nc.Name = "cassandra"
	}
	if flagNativePort > 0 {
		nc.Ports = map[string]int{"native_transport_port": flagNativePort}
	}
	return &nc, nil
}

/**
 * Run a node until ctx ends or the node fails
 * @param {context.Context} ctx - Canceled by SIGINT/SIGTERM
 * @param {*config.NodeConfig} nc - Node definition
 * @returns {error} Start error, unexpected exit or stop error
 */
func runNode(ctx context.Context, nc *config.NodeConfig) error {
	nm := services.NewNodeManager(nil)
	n, err := nm.AddConfig(nc)
	if err != nil {
		return err
	}
	if err := n.Start(ctx); err != nil {
		return err
	}
	printDetail(n.Detail())

	var failure error
	select {
	case <-ctx.Done():
		logger.Infof("Received shutdown signal, stopping node '%s'", n.Name())
	case failure = <-n.Failures():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), flagStopWait)
	defer cancel()
	if err := n.Stop(stopCtx); err != nil {
		return err
	}
	return failure
}

func printDetail(d models.NodeDetail) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Node:\t%s\n", d.Name)
	fmt.Fprintf(w, "Version:\t%s\n", d.Version)
	fmt.Fprintf(w, "PID:\t%d\n", d.Pid)
	fmt.Fprintf(w, "Work dir:\t%s\n", d.WorkDir)
	fmt.Fprintf(w, "Native transport:\t%d\n", d.Ports.NativeTransport)
	fmt.Fprintf(w, "Storage:\t%d\n", d.Ports.Storage)
	fmt.Fprintf(w, "JMX:\t%d\n", d.Ports.JMX)
	w.Flush()
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&flagNode.Name, "name", "", "node name (default \"cassandra\")")
	f.StringVar(&flagNode.Version, "version", "", "server version of the distribution")
	f.StringVarP(&flagNode.Distribution, "distribution", "d", "", "directory holding the extracted distribution")
	f.StringVar(&flagNode.WorkDir, "work-dir", "", "parent directory of the runtime directory")
	f.BoolVar(&flagNode.DeleteWorkDirOnStop, "delete-work-dir", false, "delete the runtime directory after stop")
	f.StringVar(&flagNode.ListenAddress, "listen-address", "", "listen_address and rpc_address")
	f.IntVar(&flagNativePort, "native-port", 0, "fixed native transport port (default: allocated)")
	f.StringArrayVar(&flagNode.JVMOptions, "jvm-opt", nil, "JVM option, repeatable")
	f.StringArrayVar(&flagNode.SystemProperties, "sysprop", nil, "system property as key=value, repeatable")
	f.StringArrayVar(&flagNode.Env, "env", nil, "environment override as KEY=VALUE, repeatable")
	f.DurationVar(&flagNode.StartupTimeout, "startup-timeout", 0, "readiness timeout (default 2m)")
	f.DurationVar(&flagNode.StopGracePeriod, "stop-grace", 0, "grace period before the process group is killed (default 30s)")
	f.DurationVar(&flagStopWait, "stop-wait", time.Minute, "upper bound for stopping on shutdown")

	root.RootCmd.AddCommand(runCmd)
	runCmd.Example = `  embedded-cassandra run --version 4.1.3 -d /opt/apache-cassandra-4.1.3
  embedded-cassandra run primary -c ./config.yaml`
}
