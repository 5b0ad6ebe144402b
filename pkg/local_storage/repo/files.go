package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aimstack/aimstore/pkg/local_storage/common"
	"github.com/aimstack/aimstore/pkg/local_storage/container"
	"gopkg.in/yaml.v3"
)

// ConfigFile is a name of the repository config file.
const ConfigFile = "config.yaml"

// repoConfig is a structure of the repository config file.
type repoConfig struct {
	Remotes map[string]string `yaml:"remotes"`
}

// LsFiles returns paths of all regular files of the repository except the
// writer lock files, sorted lexically.
func (r *Repo) LsFiles() ([]string, error) {
	var res []string

	err := filepath.WalkDir(r.path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if d.Name() == container.LocksDir && p != r.path {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type().IsRegular() {
			res = append(res, p)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list repository files: %w", err)
	}

	return res, nil
}

// RemoteURL returns URL of the remote from the repository config file.
// Returns ErrRemoteNotFound if the remote is not configured.
func (r *Repo) RemoteURL(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(r.path, ConfigFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("remote %s: %w", name, ErrRemoteNotFound)
		}
		return "", fmt.Errorf("read repository config: %w", err)
	}

	var cfg repoConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("decode repository config: %w", err)
	}

	url, ok := cfg.Remotes[name]
	if !ok || url == "" {
		return "", fmt.Errorf("remote %s: %w", name, ErrRemoteNotFound)
	}

	return url, nil
}

// Recover rolls back uncommitted writes of the chunks left by dead writers
// in all containers of the repository. Chunks with live writers are
// skipped. Returns paths of the recovered chunks.
func (r *Repo) Recover() ([]string, error) {
	if r.readOnly {
		return nil, ErrRepoReadOnly
	}

	markers, err := filepath.Glob(filepath.Join(r.path, "*", container.ProgressDir, "*"))
	if err != nil {
		return nil, fmt.Errorf("list progress markers: %w", err)
	}

	var res []string

	for _, m := range markers {
		chunk := filepath.Join(filepath.Dir(filepath.Dir(m)), container.ChunksDir, filepath.Base(m))

		ok, err := container.Recover(chunk, container.WithLogger(r.log))
		if err != nil {
			if errors.Is(err, common.ErrWriteLockHeld) {
				continue
			}
			return res, err
		}

		if ok {
			res = append(res, chunk)
		}
	}

	return res, nil
}
