package autocomplete_test

import (
	"bytes"
	"testing"

	"github.com/aimstack/aimstore/pkg/util/autocomplete"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			root := &cobra.Command{Use: "tool"}
			root.AddCommand(&cobra.Command{Use: "sub", Run: func(*cobra.Command, []string) {}})
			root.AddCommand(autocomplete.Command(root))

			var buf bytes.Buffer
			root.SetOut(&buf)
			root.SetArgs([]string{"completion", shell})

			require.NoError(t, root.Execute())
			require.Contains(t, buf.String(), "tool")
		})
	}

	t.Run("unknown shell", func(t *testing.T) {
		root := &cobra.Command{Use: "tool"}
		root.AddCommand(autocomplete.Command(root))
		root.SetOut(new(bytes.Buffer))
		root.SetErr(new(bytes.Buffer))
		root.SetArgs([]string{"completion", "tcsh"})

		require.Error(t, root.Execute())
	})
}
