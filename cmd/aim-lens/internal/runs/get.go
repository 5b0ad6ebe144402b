package runs

import (
	"fmt"

	common "github.com/aimstack/aimstore/cmd/aim-lens/internal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var getCMD = &cobra.Command{
	Use:   "get",
	Short: "Run inspection",
	Long:  `Print metadata of the specific run merged from all chunks of the repository.`,
	Args:  cobra.NoArgs,
	Run:   getFunc,
}

const hashFlagName = "hash"

func init() {
	getCMD.Flags().StringVar(&vHash, hashFlagName, "", "Run hash")
	err := getCMD.MarkFlagRequired(hashFlagName)
	if err != nil {
		panic(fmt.Errorf("mark required flag %s failed: %w", hashFlagName, err))
	}
}

func getFunc(cmd *cobra.Command, _ []string) {
	r, closeRepo := common.OpenRepo(cmd, true)
	defer closeRepo()

	run, err := r.Run(vHash)
	common.ExitOnErr(cmd, common.Errf("could not get run: %w", err))

	meta, err := run.Meta()
	common.ExitOnErr(cmd, common.Errf("could not read run metadata: %w", err))

	data, err := yaml.Marshal(meta)
	common.ExitOnErr(cmd, common.Errf("could not encode run metadata: %w", err))

	cmd.Print(string(data))
}
