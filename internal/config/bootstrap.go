package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/adlio/asanadw/internal/errs"
)

// defaultBootstrapFile is the bootstrap file's name, read next to the
// database directory before the store is opened (spec.md §9, analogous to
// the teacher's config.yaml "startup settings read before the database is
// opened").
const defaultBootstrapFile = ".asanadw.toml"

// Bootstrap holds the small set of settings resolved once, before
// storage.Open, because they name where to find things rather than being
// operational state themselves (spec.md §6 "no sidecar files for
// operational state" — this file only tells the process where to look).
type Bootstrap struct {
	DatabasePath string `toml:"database_path"`
	PromptBundle string `toml:"prompt_bundle"`
}

// LoadBootstrap reads dir/.asanadw.toml if present, returning a zero-value
// Bootstrap (not an error) when the file is absent — the bootstrap file is
// always optional.
func LoadBootstrap(dir string) (Bootstrap, error) {
	path := filepath.Join(dir, defaultBootstrapFile)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Bootstrap{}, nil
	}
	if err != nil {
		return Bootstrap{}, errs.Wrap(errs.KindConfig, "read bootstrap file "+path, err)
	}

	var b Bootstrap
	if _, err := toml.Decode(string(raw), &b); err != nil {
		return Bootstrap{}, errs.Wrap(errs.KindConfig, "parse bootstrap file "+path, err)
	}
	return b, nil
}
