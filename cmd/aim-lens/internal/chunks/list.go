package chunks

import (
	"fmt"

	common "github.com/aimstack/aimstore/cmd/aim-lens/internal"
	"github.com/aimstack/aimstore/pkg/local_storage/union"
	"github.com/spf13/cobra"
)

var listCMD = &cobra.Command{
	Use:   "list",
	Short: "List chunks of the container",
	Long:  "List committed chunks of the container in the merge order. Chunks being written and corrupted chunks are skipped.",
	Args:  cobra.NoArgs,
	Run:   listFunc,
}

func init() {
	addNameFlag(listCMD)
}

func listFunc(cmd *cobra.Command, _ []string) {
	r, closeRepo := common.OpenRepo(cmd, true)
	defer closeRepo()

	c, err := r.GetContainer(vName, true, true)
	common.ExitOnErr(cmd, common.Errf("could not open container: %w", err))

	u, ok := c.(*union.Container)
	if !ok {
		common.ExitOnErr(cmd, fmt.Errorf("unexpected container type %T", c))
	}

	ids, err := u.Chunks()
	common.ExitOnErr(cmd, common.Errf("could not list chunks: %w", err))

	for _, id := range ids {
		cmd.Println(id)
	}
}
