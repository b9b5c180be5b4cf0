package foreign

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"

	npkerrors "github.com/nasforge/npk/pkg/npk/errors"
	"github.com/nasforge/npk/pkg/utils/permissions"
)

// Candidate is one executable found in an extracted tree, identified by its
// slash-separated path relative to the tree root.
type Candidate struct {
	Path string
	Mode fs.FileMode
}

// maxListed caps the candidates named in the ambiguity error message.
const maxListed = 10

// DiscoverExecutables walks an extracted tree and returns every regular file
// with any execute permission bit set, excluding shared objects and files
// under documentation or library subtrees. Results are sorted and unique.
func DiscoverExecutables(root string) ([]Candidate, error) {
	seen := make(map[string]Candidate)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if isSharedObject(filepath.Base(path)) || inExcludedSubtree(rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if !permissions.IsExecutable(uint16(info.Mode().Perm())) {
			return nil
		}

		seen[rel] = Candidate{Path: rel, Mode: info.Mode()}
		return nil
	})
	if err != nil {
		return nil, npkerrors.Resolution("discover executables", err)
	}

	candidates := make([]Candidate, 0, len(seen))
	for _, c := range seen {
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(a, b int) bool {
		return candidates[a].Path < candidates[b].Path
	})
	return candidates, nil
}

// isSharedObject matches libfoo.so and versioned libfoo.so.2 style names.
func isSharedObject(base string) bool {
	return strings.HasSuffix(base, ".so") || strings.Contains(base, ".so.")
}

// inExcludedSubtree reports whether rel sits under a documentation or
// library directory. Library subtrees below a bin segment stay eligible,
// so opt/runtime/bin/launcher is found even when a sibling lib/ is not.
func inExcludedSubtree(rel string) bool {
	segments := strings.Split(rel, "/")
	dirs := segments[:len(segments)-1]

	sawBin := false
	for _, seg := range dirs {
		switch {
		case seg == "bin" || seg == "sbin":
			sawBin = true
		case seg == "doc" || seg == "man" || seg == "share":
			return true
		case strings.HasPrefix(seg, "lib") && !sawBin:
			return true
		}
	}
	return false
}

// SelectExecutable applies the selection policy: a single candidate is
// chosen automatically, none is ErrNoExecutable, several require the caller
// to pick one by index.
func SelectExecutable(candidates []Candidate, choice int, logger hclog.Logger) (Candidate, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	switch {
	case len(candidates) == 0:
		return Candidate{}, npkerrors.Resolution("select executable", npkerrors.ErrNoExecutable)
	case len(candidates) == 1:
		logger.Info("🔍 auto-selected entry point", "executable", candidates[0].Path)
		return candidates[0], nil
	}

	if choice >= 0 && choice < len(candidates) {
		logger.Info("🔍 selected entry point", "executable", candidates[choice].Path, "index", choice)
		return candidates[choice], nil
	}

	return Candidate{}, npkerrors.Resolution("select executable",
		fmt.Errorf("%w: %d candidates: %s", npkerrors.ErrAmbiguousExecutable,
			len(candidates), listCandidates(candidates)))
}

func listCandidates(candidates []Candidate) string {
	names := make([]string, 0, maxListed)
	for i, c := range candidates {
		if i == maxListed {
			names = append(names, fmt.Sprintf("... %d more", len(candidates)-maxListed))
			break
		}
		names = append(names, c.Path)
	}
	return strings.Join(names, ", ")
}
