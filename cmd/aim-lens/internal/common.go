package common

import (
	"fmt"
	"os"
	"runtime"

	"github.com/aimstack/aimstore/pkg/config"
	loggerconfig "github.com/aimstack/aimstore/pkg/config/logger"
	repoconfig "github.com/aimstack/aimstore/pkg/config/repo"
	"github.com/aimstack/aimstore/pkg/local_storage/compression"
	"github.com/aimstack/aimstore/pkg/local_storage/container"
	"github.com/aimstack/aimstore/pkg/local_storage/repo"
	"github.com/aimstack/aimstore/pkg/util"
	"github.com/aimstack/aimstore/pkg/util/logger"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
)

const (
	configFlagName = "config"
	repoFlagName   = "repo"
)

// Errf returns formatted error in errFmt format if err is not nil.
func Errf(errFmt string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf(errFmt, err)
}

// ExitOnErr calls exitOnErrCode with code 1.
func ExitOnErr(cmd *cobra.Command, err error) {
	exitOnErrCode(cmd, err, 1)
}

// exitOnErrCode prints error via cmd and calls os.Exit with passed exit code.
// Does nothing if err is nil.
func exitOnErrCode(cmd *cobra.Command, err error, code int) {
	if err != nil {
		cmd.PrintErrln(err)
		os.Exit(code)
	}
}

// AddPersistentFlags adds flags selecting the configuration file and the
// repository to the command and all its subcommands.
func AddPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP(configFlagName, "c", "", "Path to the configuration file")
	cmd.PersistentFlags().String(repoFlagName, "", "Path to the repository, overrides the configuration")
}

// ReadConfig reads the configuration selected by the command flags.
func ReadConfig(cmd *cobra.Command) *config.Config {
	path, _ := cmd.Flags().GetString(configFlagName)
	if path != "" {
		var err error
		path, err = homedir.Expand(path)
		ExitOnErr(cmd, Errf("invalid config path: %w", err))
	}

	c, err := config.New(config.Prm{}, config.WithConfigFile(path))
	ExitOnErr(cmd, err)

	return c
}

// OpenRepo opens the repository selected by the command flags and the
// configuration. Repository is opened read-only if either readOnly is set
// or the configuration demands it. Returned function releases all
// resources and must be called once the repository is no longer needed.
func OpenRepo(cmd *cobra.Command, readOnly bool, extra ...repo.Option) (*repo.Repo, func()) {
	c := ReadConfig(cmd)

	var prm logger.Prm
	ExitOnErr(cmd, Errf("invalid logger level: %w", prm.SetLevelString(loggerconfig.Level(c))))

	log, err := logger.NewLogger(&prm)
	ExitOnErr(cmd, err)

	path := repoconfig.Path(c)
	if p, _ := cmd.Flags().GetString(repoFlagName); p != "" {
		path = p
	}

	path, err = homedir.Expand(path)
	ExitOnErr(cmd, Errf("invalid repository path: %w", err))

	pool, err := util.NewWorkerPool(runtime.GOMAXPROCS(0), log.Logger)
	ExitOnErr(cmd, Errf("create worker pool: %w", err))

	opts := []repo.Option{
		repo.WithLogger(log.Logger),
		repo.WithWorkerPool(pool),
		repo.WithUnionCacheSize(repoconfig.UnionCacheSize(c)),
		repo.WithContainerOptions(
			container.WithOpenTimeout(repoconfig.OpenTimeout(c)),
			container.WithNoSync(repoconfig.NoSync(c)),
		),
	}

	var comp *compression.Config
	if repoconfig.Compress(c) {
		comp = &compression.Config{Enabled: true}
		ExitOnErr(cmd, Errf("init compression: %w", comp.Init()))

		opts = append(opts, repo.WithCompression(comp))
	}

	r, err := repo.NewRegistry(append(opts, extra...)...).FromPath(path, readOnly || repoconfig.ReadOnly(c))
	ExitOnErr(cmd, err)

	return r, func() {
		if err := r.Close(); err != nil {
			cmd.PrintErrln(err)
		}
		pool.Release()
		if comp != nil {
			_ = comp.Close()
		}
		_ = log.Sync()
	}
}
