package runs

import (
	"github.com/spf13/cobra"
)

var vHash string

// Root contains `runs` command definition.
var Root = &cobra.Command{
	Use:   "runs",
	Short: "Operations with runs of the repository",
}

func init() {
	Root.AddCommand(
		listCMD,
		getCMD,
	)
}
