package repo

import (
	"path/filepath"

	common "github.com/aimstack/aimstore/cmd/aim-lens/internal"
	"github.com/spf13/cobra"
)

var lsFilesCMD = &cobra.Command{
	Use:   "ls-files",
	Short: "List files of the repository",
	Long:  "List regular files of the repository relative to its root. Writer lock files are skipped.",
	Args:  cobra.NoArgs,
	Run:   lsFilesFunc,
}

func lsFilesFunc(cmd *cobra.Command, _ []string) {
	r, closeRepo := common.OpenRepo(cmd, true)
	defer closeRepo()

	files, err := r.LsFiles()
	common.ExitOnErr(cmd, err)

	for _, f := range files {
		rel, err := filepath.Rel(r.Path(), f)
		if err != nil {
			rel = f
		}
		cmd.Println(rel)
	}
}
