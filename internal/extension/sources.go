package extension

import (
	"path/filepath"

	"github.com/agentx-labs/webbundle/internal/registry"
)

// Tokens understood in a resolution order.
const (
	TokenPack = "pack"
	TokenCore = "core"
)

// BuildSources expands a resolution order into the source list for one
// build scope. "pack" becomes the scope's pack (skipped for the core
// scope); any other entry except "core" is an extra overlay root relative
// to repoRoot. The core source is always last, whether or not the order
// names it.
func BuildSources(order []string, core registry.Source, pack *Pack, repoRoot string) []registry.Source {
	var sources []registry.Source

	for _, entry := range order {
		switch entry {
		case TokenCore:
			// appended last below
		case TokenPack:
			if pack != nil {
				sources = append(sources, registry.Source{Name: pack.ID, BasePath: pack.Path})
			}
		default:
			basePath := entry
			if !filepath.IsAbs(basePath) {
				basePath = filepath.Join(repoRoot, entry)
			}
			sources = append(sources, registry.Source{Name: filepath.Base(entry), BasePath: basePath})
		}
	}

	return append(sources, core)
}
