package chunks

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	vName string
	vSub  string
)

const nameFlagName = "name"

// Root contains `chunks` command definition.
var Root = &cobra.Command{
	Use:   "chunks",
	Short: "Operations with chunks of the containers",
}

func init() {
	Root.AddCommand(
		listCMD,
		dumpCMD,
	)
}

func addNameFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&vName, nameFlagName, "", "Container name relative to the repository root, e.g. meta")
	err := cmd.MarkFlagRequired(nameFlagName)
	if err != nil {
		panic(fmt.Errorf("mark required flag %s failed: %w", nameFlagName, err))
	}
}
