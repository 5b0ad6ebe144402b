package repo

import (
	common "github.com/aimstack/aimstore/cmd/aim-lens/internal"
	"github.com/spf13/cobra"
)

var recoverCMD = &cobra.Command{
	Use:   "recover",
	Short: "Roll back unfinished writes",
	Long: `Roll back uncommitted writes left in the chunks by the dead writers. Chunks
held by live writers are skipped.`,
	Args: cobra.NoArgs,
	Run:  recoverFunc,
}

func recoverFunc(cmd *cobra.Command, _ []string) {
	r, closeRepo := common.OpenRepo(cmd, false)
	defer closeRepo()

	recovered, err := r.Recover()
	for _, p := range recovered {
		cmd.Println("recovered:", p)
	}
	common.ExitOnErr(cmd, common.Errf("could not recover repository: %w", err))

	if len(recovered) == 0 {
		cmd.Println("Nothing to recover")
	}
}
