// Package manifest loads piece descriptors from YAML files on disk.
// Each file holds one or more descriptor documents; the daemon scans
// the manifest directory once at startup and registers what it finds.
package manifest

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/conveyor-cloud/conveyor/internal/piece"
	"github.com/conveyor-cloud/conveyor/pkg/log"
	"gopkg.in/yaml.v3"
)

// DefaultGlobs match any YAML file in the manifest tree.
var DefaultGlobs = []string{"**/*.yaml", "**/*.yml"}

// Load parses every matching manifest under dir and returns the
// declared descriptors. A missing directory is not an error: a
// deployment with only programmatically registered pieces has none.
func Load(dir string, globs ...string) ([]piece.Descriptor, error) {
	if len(globs) == 0 {
		globs = DefaultGlobs
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		log.Warn("piece manifest directory missing", "dir", dir)
		return nil, nil
	}

	var descriptors []piece.Descriptor

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		if !matches(globs, filepath.ToSlash(rel)) {
			return nil
		}

		docs, err := parseFile(path)
		if err != nil {
			return fmt.Errorf("manifest %s: %w", rel, err)
		}

		descriptors = append(descriptors, docs...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return descriptors, nil
}

// Register loads dir and registers every descriptor as a
// trigger-less piece, skipping names the registry already knows so
// code-registered pieces win over their manifest stubs.
func Register(registry *piece.Registry, dir string) error {
	descriptors, err := Load(dir)
	if err != nil {
		return err
	}

	for _, desc := range descriptors {
		if _, ok := registry.Get(desc.Name); ok {
			continue
		}
		if err := registry.Register(piece.Static(desc, nil)); err != nil {
			return err
		}
	}

	log.Info("piece manifests registered", "dir", dir, "count", len(descriptors))

	return nil
}

func matches(globs []string, rel string) bool {
	for _, pattern := range globs {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		ok, err := doublestar.PathMatch(pattern, rel)
		if err != nil {
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

func parseFile(path string) ([]piece.Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []piece.Descriptor

	dec := yaml.NewDecoder(f)
	for {
		var desc piece.Descriptor
		if err := dec.Decode(&desc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}

		if strings.TrimSpace(desc.Name) == "" {
			return nil, fmt.Errorf("descriptor missing name")
		}

		out = append(out, desc)
	}

	return out, nil
}
