// Package visibility decides which installed pieces a platform may
// use, based on the platform's filtered-piece configuration.
//
// All functions are pure: they read a config snapshot and never
// mutate it, so they are safe to call concurrently while an admin
// update replaces the stored record.
package visibility

import (
	"github.com/conveyor-cloud/conveyor/internal/models"
	"github.com/conveyor-cloud/conveyor/internal/piece"
)

// Config is an immutable snapshot of a platform's piece filter.
type Config struct {
	Behavior models.FilteredPieceBehavior
	Names    []string
}

// NewConfig builds a snapshot from the persisted record.
func NewConfig(c *models.PlatformPieceConfig) (Config, error) {
	names, err := c.Names()
	if err != nil {
		return Config{}, err
	}

	return Config{
		Behavior: c.FilteredPieceBehavior,
		Names:    names,
	}, nil
}

// Resolve returns the subset of candidates the platform may use.
//
// Under BLOCKED an empty name set means no restriction; under
// ALLOWED an empty name set means nothing is visible. That asymmetry
// is deliberate: an allow-list that names nothing allows nothing.
func Resolve(cfg Config, candidates []piece.Descriptor) []piece.Descriptor {
	if len(cfg.Names) == 0 && cfg.Behavior == models.FilteredPieceBehaviorBlocked {
		return append([]piece.Descriptor(nil), candidates...)
	}

	named := nameSet(cfg.Names)
	visible := make([]piece.Descriptor, 0, len(candidates))

	for _, candidate := range candidates {
		if IsVisibleName(cfg.Behavior, named, candidate.Name) {
			visible = append(visible, candidate)
		}
	}

	return visible
}

// IsVisible reports whether a single piece is usable under the
// config. Consistent with Resolve: IsVisible(cfg, name) is true iff
// a descriptor with that name would survive Resolve.
func IsVisible(cfg Config, pieceName string) bool {
	return IsVisibleName(cfg.Behavior, nameSet(cfg.Names), pieceName)
}

// IsVisibleName is the membership test shared by Resolve and
// IsVisible, taking a prebuilt name set.
func IsVisibleName(behavior models.FilteredPieceBehavior, named map[string]struct{}, pieceName string) bool {
	_, listed := named[pieceName]

	if behavior == models.FilteredPieceBehaviorAllowed {
		return listed
	}

	return !listed
}

// SetVisibility returns a config whose name set is mutated so that
// IsVisible(newCfg, pieceName) == visible, leaving every other
// piece's visibility untouched. When the piece is already in the
// desired state the input config is returned unchanged.
func SetVisibility(cfg Config, pieceName string, visible bool) Config {
	if IsVisible(cfg, pieceName) == visible {
		return cfg
	}

	// Under BLOCKED listing hides; under ALLOWED listing reveals.
	shouldList := visible == (cfg.Behavior == models.FilteredPieceBehaviorAllowed)

	names := make([]string, 0, len(cfg.Names)+1)
	for _, name := range cfg.Names {
		if name == pieceName {
			continue
		}
		names = append(names, name)
	}

	if shouldList {
		names = append(names, pieceName)
	}

	return Config{Behavior: cfg.Behavior, Names: names}
}

func nameSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}
