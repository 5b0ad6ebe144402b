package repo

import (
	"github.com/spf13/cobra"
)

// Root contains `repo` command definition.
var Root = &cobra.Command{
	Use:   "repo",
	Short: "Operations with the repository",
}

func init() {
	Root.AddCommand(
		lsFilesCMD,
		recoverCMD,
		statsCMD,
	)
}
