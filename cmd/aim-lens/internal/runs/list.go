package runs

import (
	"errors"
	"strconv"
	"time"

	common "github.com/aimstack/aimstore/cmd/aim-lens/internal"
	storagecommon "github.com/aimstack/aimstore/pkg/local_storage/common"
	"github.com/aimstack/aimstore/pkg/local_storage/rundb"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var listCMD = &cobra.Command{
	Use:   "list",
	Short: "List runs of the repository",
	Long:  "List runs of the repository matching the query expression.",
	Args:  cobra.NoArgs,
	Run:   listFunc,
}

var vQuery string

func init() {
	listCMD.Flags().StringVarP(&vQuery, "query", "q", "", "Run filter expression, e.g. `run.experiment == \"baseline\"`")
}

func listFunc(cmd *cobra.Command, _ []string) {
	r, closeRepo := common.OpenRepo(cmd, true)
	defer closeRepo()

	runs, err := r.QueryRuns(vQuery)
	common.ExitOnErr(cmd, common.Errf("invalid query: %w", err))

	out := tablewriter.NewWriter(cmd.OutOrStdout())
	out.SetHeader([]string{"Hash", "Name", "Experiment", "Archived", "Created"})
	out.SetAutoWrapText(false)

	for run, err := range runs.Iter() {
		common.ExitOnErr(cmd, common.Errf("iterate runs: %w", err))
		common.ExitOnErr(cmd, cmd.Context().Err())

		name, err := run.Name()
		if err != nil && !storagecommon.IsErrNotFound(err) {
			common.ExitOnErr(cmd, common.Errf("read run name: %w", err))
		}

		row := []string{run.Hash(), name, "", "", ""}

		rec, err := r.RunDB().Run(run.Hash())
		switch {
		case err == nil:
			if rec.Name != "" {
				row[1] = rec.Name
			}
			row[2] = rec.Experiment
			row[3] = strconv.FormatBool(rec.Archived)
			row[4] = rec.CreatedAt.Format(time.RFC3339)
		case !errors.Is(err, rundb.ErrRunNotFound):
			common.ExitOnErr(cmd, common.Errf("read run record: %w", err))
		}

		out.Append(row)
	}

	out.Render()
}
