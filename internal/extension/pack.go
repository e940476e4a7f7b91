package extension

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/afero"
)

// Pack is one discovered expansion pack.
type Pack struct {
	// ID is the pack's directory name. It names the pack's source and its
	// output directory.
	ID     string
	Path   string
	Config PackConfig

	// Err is set when config.yaml could not be read or is invalid. The
	// pack is still listed so its targets can be reported as failed.
	Err error
}

// Title returns the configured display name, or the id.
func (p Pack) Title() string {
	if p.Config.ShortTitle != "" {
		return p.Config.ShortTitle
	}
	if p.Config.Name != "" {
		return p.Config.Name
	}
	return p.ID
}

// Discover lists the packs under root. Hidden directories and plain files
// are skipped; a missing root means no packs. A pack whose config.yaml is
// invalid is returned with Err set. Packs with an explicit priority come
// first, higher first, and the rest follow by id.
func Discover(fsys afero.Fs, root string) ([]Pack, error) {
	infos, err := afero.ReadDir(fsys, root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading packs directory %s: %w", root, err)
	}

	var packs []Pack
	for _, info := range infos {
		if !info.IsDir() || strings.HasPrefix(info.Name(), ".") {
			continue
		}
		dir := filepath.Join(root, info.Name())
		pack := Pack{ID: info.Name(), Path: dir}
		if cfg, err := LoadPackConfig(fsys, dir); err != nil {
			pack.Err = err
		} else {
			pack.Config = *cfg
		}
		packs = append(packs, pack)
	}

	sort.SliceStable(packs, func(i, j int) bool {
		pi, pj := packs[i].Config.Priority, packs[j].Config.Priority
		switch {
		case pi != nil && pj != nil && *pi != *pj:
			return *pi > *pj
		case pi != nil && pj == nil:
			return true
		case pi == nil && pj != nil:
			return false
		}
		return packs[i].ID < packs[j].ID
	})
	return packs, nil
}

// Compatible reports whether coreVersion satisfies the pack's requires-core
// constraint. A pack without a constraint, or a build without a known core
// version, is always compatible.
func (p Pack) Compatible(coreVersion string) (bool, error) {
	if p.Config.RequiresCore == "" || coreVersion == "" {
		return true, nil
	}
	c, err := semver.NewConstraint(p.Config.RequiresCore)
	if err != nil {
		return false, fmt.Errorf("pack %s: invalid requires-core %q: %w", p.ID, p.Config.RequiresCore, err)
	}
	v, err := semver.NewVersion(coreVersion)
	if err != nil {
		return false, fmt.Errorf("invalid core version %q: %w", coreVersion, err)
	}
	return c.Check(v), nil
}
