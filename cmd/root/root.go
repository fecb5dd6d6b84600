package root

import (
	"github.com/spf13/cobra"

	"github.com/nosan/embedded-cassandra-sub005/internal/config"
	"github.com/nosan/embedded-cassandra-sub005/internal/logger"
)

// ConfigFile overrides the config.yaml search when set.
var ConfigFile string

var RootCmd = &cobra.Command{
	Use:   "embedded-cassandra",
	Short: "Local Cassandra node manager",
	Long:  `embedded-cassandra prepares, starts, watches and stops local Cassandra nodes from an extracted distribution`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if ConfigFile != "" {
			if err := config.ReloadConfig(ConfigFile); err != nil {
				return err
			}
		}
		logger.InitLogger(&config.Config.Log)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&ConfigFile, "config", "c", "", "configuration file (default: ./config.yaml, then $HOME/.embedded-cassandra/config.yaml)")
}
