package store

import (
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/bjulian5/syncbridge/internal/entities"
)

// Tree is a read-only view over a directory hierarchy that Conversion can
// walk uniformly whether it is backed by a committed, immutable tree
// object or by a Transaction's mutable staging overlay — the capability
// interface spec.md §9 calls for in place of inheritance.
type Tree interface {
	ExistsFile(path string) (bool, error)
	ExistsDir(path string) (bool, error)
	ReadFile(path string) ([]byte, error)
	ReadDir(path string) ([]string, error)
	// Diff reports the path-level differences against another tree's
	// fully-resolved file set.
	Diff(other Tree) ([]entities.PathChange, error)
}

// commitTree is a Tree backed by a single immutable commit's tree object.
type commitTree struct {
	storer encodedObjectStorer
	files  map[string][]byte // fully resolved at construction time
	dirs   map[string]struct{}
}

func newCommitTree(storer encodedObjectStorer, treeHash plumbing.Hash) (*commitTree, error) {
	files := map[string][]byte{}
	dirs := map[string]struct{}{}
	if treeHash != plumbing.ZeroHash {
		if err := walkTreeObject(storer, treeHash, "", files, dirs); err != nil {
			return nil, err
		}
	}
	return &commitTree{storer: storer, files: files, dirs: dirs}, nil
}

func walkTreeObject(storer encodedObjectStorer, hash plumbing.Hash, prefix string, files map[string][]byte, dirs map[string]struct{}) error {
	obj, err := storer.EncodedObject(plumbing.TreeObject, hash)
	if err != nil {
		return fmt.Errorf("store: read tree %s: %w", hash, err)
	}
	tree := &object.Tree{}
	if err := tree.Decode(obj); err != nil {
		return fmt.Errorf("store: decode tree %s: %w", hash, err)
	}
	for _, entry := range tree.Entries {
		full := entry.Name
		if prefix != "" {
			full = prefix + "/" + entry.Name
		}
		if entry.Mode == filemode.Dir {
			dirs[full] = struct{}{}
			if err := walkTreeObject(storer, entry.Hash, full, files, dirs); err != nil {
				return err
			}
			continue
		}
		blobObj, err := storer.EncodedObject(plumbing.BlobObject, entry.Hash)
		if err != nil {
			return fmt.Errorf("store: read blob %s: %w", entry.Hash, err)
		}
		r, err := blobObj.Reader()
		if err != nil {
			return fmt.Errorf("store: open blob %s: %w", entry.Hash, err)
		}
		content, err := io.ReadAll(r)
		_ = r.Close()
		if err != nil {
			return fmt.Errorf("store: read blob content %s: %w", entry.Hash, err)
		}
		files[full] = content
	}
	return nil
}

func (t *commitTree) ExistsFile(p string) (bool, error) {
	_, ok := t.files[clean(p)]
	return ok, nil
}

func (t *commitTree) ExistsDir(p string) (bool, error) {
	p = clean(p)
	if p == "" {
		return true, nil
	}
	if _, ok := t.dirs[p]; ok {
		return true, nil
	}
	prefix := p + "/"
	for f := range t.files {
		if strings.HasPrefix(f, prefix) {
			return true, nil
		}
	}
	for d := range t.dirs {
		if strings.HasPrefix(d, prefix) {
			return true, nil
		}
	}
	return false, nil
}

func (t *commitTree) ReadFile(p string) ([]byte, error) {
	content, ok := t.files[clean(p)]
	if !ok {
		return nil, fmt.Errorf("store: file not found: %s", p)
	}
	return content, nil
}

func (t *commitTree) ReadDir(p string) ([]string, error) {
	return immediateChildren(t.files, t.dirs, clean(p)), nil
}

func (t *commitTree) Diff(other Tree) ([]entities.PathChange, error) {
	return diffFileSets(t.files, flatten(other))
}

// flatten pulls a full path->content map back out of any Tree
// implementation, so Diff can compare two Trees regardless of backing.
func flatten(t Tree) map[string][]byte {
	switch v := t.(type) {
	case *commitTree:
		return v.files
	case *transactionTree:
		return v.files()
	default:
		return nil
	}
}

// immediateChildren lists the direct children (files and dirs) of p given
// fully-resolved path sets.
func immediateChildren(files map[string][]byte, dirs map[string]struct{}, p string) []string {
	seen := map[string]struct{}{}
	var out []string
	prefix := ""
	if p != "" {
		prefix = p + "/"
	}
	add := func(full string) {
		rest := strings.TrimPrefix(full, prefix)
		if rest == full && prefix != "" {
			return
		}
		name := rest
		if idx := strings.Index(rest, "/"); idx >= 0 {
			name = rest[:idx]
		}
		if name == "" {
			return
		}
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	for f := range files {
		add(f)
	}
	for d := range dirs {
		add(d)
	}
	sort.Strings(out)
	return out
}

// diffFileSets computes Added/Removed/Updated path changes between two
// fully-resolved file maps.
func diffFileSets(from, to map[string][]byte) ([]entities.PathChange, error) {
	var out []entities.PathChange
	for p, content := range to {
		old, existed := from[p]
		if !existed {
			out = append(out, entities.PathChange{Path: p, Kind: entities.Added})
		} else if string(old) != string(content) {
			out = append(out, entities.PathChange{Path: p, Kind: entities.Updated})
		}
	}
	for p := range from {
		if _, stillThere := to[p]; !stillThere {
			out = append(out, entities.PathChange{Path: p, Kind: entities.Removed})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func clean(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return path.Clean(p)
}
