package chunks

import (
	common "github.com/aimstack/aimstore/cmd/aim-lens/internal"
	storagecommon "github.com/aimstack/aimstore/pkg/local_storage/common"
	"github.com/aimstack/aimstore/pkg/local_storage/encoding"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var dumpCMD = &cobra.Command{
	Use:   "dump",
	Short: "Print contents of the container",
	Long: `Print contents of the container as a tree. Without --sub the union of all
chunks is printed, otherwise only the chunk sub is read.`,
	Args: cobra.NoArgs,
	Run:  dumpFunc,
}

var vRaw bool

func init() {
	addNameFlag(dumpCMD)
	dumpCMD.Flags().StringVar(&vSub, "sub", "", "Chunk identifier")
	dumpCMD.Flags().BoolVar(&vRaw, "raw", false, "Print decoded keys and raw values instead of the tree")
}

func dumpFunc(cmd *cobra.Command, _ []string) {
	r, closeRepo := common.OpenRepo(cmd, true)
	defer closeRepo()

	v, err := r.Request(vName, vSub, true, vSub == "")
	common.ExitOnErr(cmd, common.Errf("could not open container: %w", err))

	if vRaw {
		it, err := v.Range(nil)
		common.ExitOnErr(cmd, common.Errf("could not iterate container: %w", err))
		defer it.Close()

		for it.Next() {
			path, err := encoding.Decode(it.Key())
			if err != nil {
				cmd.Printf("%x: %x\n", it.Key(), it.Value())
				continue
			}
			cmd.Printf("%s: %x\n", path, it.Value())
		}
		common.ExitOnErr(cmd, common.Errf("could not iterate container: %w", it.Err()))

		return
	}

	tree, err := v.Tree().Resolve()
	if storagecommon.IsErrNotFound(err) {
		cmd.Println("Container is empty")
		return
	}
	common.ExitOnErr(cmd, common.Errf("could not read container tree: %w", err))

	data, err := yaml.Marshal(tree)
	common.ExitOnErr(cmd, common.Errf("could not encode container tree: %w", err))

	cmd.Print(string(data))
}
