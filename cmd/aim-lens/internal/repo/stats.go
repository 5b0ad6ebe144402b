package repo

import (
	"fmt"
	"strings"

	common "github.com/aimstack/aimstore/cmd/aim-lens/internal"
	"github.com/aimstack/aimstore/misc"
	"github.com/aimstack/aimstore/pkg/local_storage/repo"
	"github.com/aimstack/aimstore/pkg/metrics"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var statsCMD = &cobra.Command{
	Use:   "stats",
	Short: "Print storage statistics",
	Long: `Read all runs of the repository and print storage metrics collected
while doing so.`,
	Args: cobra.NoArgs,
	Run:  statsFunc,
}

func statsFunc(cmd *cobra.Command, _ []string) {
	reg := prometheus.NewRegistry()
	m := metrics.NewStorageMetrics(reg, misc.Version)

	r, closeRepo := common.OpenRepo(cmd, true, repo.WithMetrics(m))
	defer closeRepo()

	var runs int
	for run, err := range r.IterRuns() {
		common.ExitOnErr(cmd, common.Errf("iterate runs: %w", err))
		common.ExitOnErr(cmd, cmd.Context().Err())

		_, err = run.Meta()
		common.ExitOnErr(cmd, common.Errf("read run metadata: %w", err))

		runs++
	}

	families, err := reg.Gather()
	common.ExitOnErr(cmd, common.Errf("gather metrics: %w", err))

	cmd.Printf("Runs: %d\n", runs)

	out := tablewriter.NewWriter(cmd.OutOrStdout())
	out.SetHeader([]string{"Metric", "Labels", "Value"})
	out.SetAutoWrapText(false)

	for _, f := range families {
		for _, metric := range f.GetMetric() {
			labels := make([]string, 0, len(metric.GetLabel()))
			for _, l := range metric.GetLabel() {
				if l.GetName() == "version" {
					continue
				}
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}

			var value string
			switch {
			case metric.GetCounter() != nil:
				value = fmt.Sprint(metric.GetCounter().GetValue())
			case metric.GetGauge() != nil:
				value = fmt.Sprint(metric.GetGauge().GetValue())
			case metric.GetHistogram() != nil:
				h := metric.GetHistogram()
				value = fmt.Sprintf("count=%d sum=%g", h.GetSampleCount(), h.GetSampleSum())
			}

			out.Append([]string{f.GetName(), strings.Join(labels, ","), value})
		}
	}

	out.Render()
}
