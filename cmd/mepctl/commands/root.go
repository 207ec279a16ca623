package commands

import (
	"github.com/spf13/cobra"
)

// RootCmd is mepctl's entry point; subcommands attach themselves via init.
var RootCmd = &cobra.Command{
	Use:   "mepctl",
	Short: "Operate and simulate Media Endpoint subsystems",
}

var configFile string

func init() {
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a mepctl TOML config file")
}
