package main

import (
	"os"

	common "github.com/aimstack/aimstore/cmd/aim-lens/internal"
	"github.com/aimstack/aimstore/cmd/aim-lens/internal/chunks"
	"github.com/aimstack/aimstore/cmd/aim-lens/internal/repo"
	"github.com/aimstack/aimstore/cmd/aim-lens/internal/runs"
	"github.com/aimstack/aimstore/misc"
	"github.com/aimstack/aimstore/pkg/util/autocomplete"
	"github.com/aimstack/aimstore/pkg/util/grace"
	"github.com/spf13/cobra"
)

var command = &cobra.Command{
	Use:           "aim-lens",
	Short:         "Aim Repository Lens",
	Long:          `Aim Repository Lens provides tools to browse the contents of the Aim repository.`,
	RunE:          entryPoint,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func entryPoint(cmd *cobra.Command, _ []string) error {
	printVersion, _ := cmd.Flags().GetBool("version")
	if printVersion {
		cmd.Print(misc.BuildInfo("Aim Lens"))

		return nil
	}

	return cmd.Usage()
}

func init() {
	// use stdout as default output for cmd.Print()
	command.SetOut(os.Stdout)
	command.Flags().Bool("version", false, "Application version")
	common.AddPersistentFlags(command)
	command.AddCommand(
		runs.Root,
		chunks.Root,
		repo.Root,
		autocomplete.Command(command),
	)
}

func main() {
	ctx, cancel := grace.NewGracefulContext(nil)
	defer cancel()

	err := command.ExecuteContext(ctx)
	if err != nil {
		cancel()
		command.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
