package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arcology-network/mep/version"
)

// VersionCmd prints the mepctl build version.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version info",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.MEPCoreSemVer)
	},
}

func init() {
	RootCmd.AddCommand(VersionCmd)
}
