package store

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// dirNode is an in-memory, pre-encoding representation of one directory
// level while building a tree bottom-up from a flat path->content map.
type dirNode struct {
	files map[string][]byte
	dirs  map[string]*dirNode
}

func newDirNode() *dirNode {
	return &dirNode{files: map[string][]byte{}, dirs: map[string]*dirNode{}}
}

func (d *dirNode) insert(segments []string, content []byte) {
	if len(segments) == 1 {
		d.files[segments[0]] = content
		return
	}
	child, ok := d.dirs[segments[0]]
	if !ok {
		child = newDirNode()
		d.dirs[segments[0]] = child
	}
	child.insert(segments[1:], content)
}

// buildTreeFromFiles compiles a flat path->content map (the Transaction's
// fully-resolved staging overlay) into a chain of real go-git tree objects
// and returns the root tree's hash. An empty map yields the hash of an
// empty tree (a directory with no entries).
func buildTreeFromFiles(storer encodedObjectStorer, files map[string][]byte) (plumbing.Hash, error) {
	root := newDirNode()
	for path, content := range files {
		root.insert(strings.Split(path, "/"), content)
	}
	return encodeDirNode(storer, root)
}

func encodeDirNode(storer encodedObjectStorer, node *dirNode) (plumbing.Hash, error) {
	var entries []object.TreeEntry

	names := make([]string, 0, len(node.files))
	for name := range node.files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		hash, err := writeBlob(storer, node.files[name])
		if err != nil {
			return plumbing.ZeroHash, err
		}
		entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Regular, Hash: hash})
	}

	dirNames := make([]string, 0, len(node.dirs))
	for name := range node.dirs {
		dirNames = append(dirNames, name)
	}
	sort.Strings(dirNames)
	for _, name := range dirNames {
		hash, err := encodeDirNode(storer, node.dirs[name])
		if err != nil {
			return plumbing.ZeroHash, err
		}
		entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: hash})
	}

	// Git orders a tree's files and directories in one run by name,
	// comparing a directory's name as if it ended in "/".
	sortName := func(e object.TreeEntry) string {
		if e.Mode == filemode.Dir {
			return e.Name + "/"
		}
		return e.Name
	}
	sort.Slice(entries, func(i, j int) bool { return sortName(entries[i]) < sortName(entries[j]) })

	tree := &object.Tree{Entries: entries}
	obj := storer.NewEncodedObject()
	obj.SetType(plumbing.TreeObject)
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("store: encode tree: %w", err)
	}
	return storer.SetEncodedObject(obj)
}

func writeBlob(storer encodedObjectStorer, content []byte) (plumbing.Hash, error) {
	obj := storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("store: open blob writer: %w", err)
	}
	if _, err := w.Write(content); err != nil {
		_ = w.Close()
		return plumbing.ZeroHash, fmt.Errorf("store: write blob: %w", err)
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("store: close blob: %w", err)
	}
	return storer.SetEncodedObject(obj)
}

// writeCommit stores a commit object with the given tree and parents and
// returns its hash.
func writeCommit(storer encodedObjectStorer, treeHash plumbing.Hash, parents []plumbing.Hash, message string) (plumbing.Hash, error) {
	sig := object.Signature{Name: "sync-bridge", Email: "sync-bridge@localhost", When: commitClock()}
	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     treeHash,
		ParentHashes: parents,
	}
	obj := storer.NewEncodedObject()
	obj.SetType(plumbing.CommitObject)
	if err := commit.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("store: encode commit: %w", err)
	}
	return storer.SetEncodedObject(obj)
}

// encodedObjectStorer is the minimal go-git storer surface objects.go
// needs; satisfied by *memory.Storage.
type encodedObjectStorer interface {
	NewEncodedObject() plumbing.EncodedObject
	SetEncodedObject(plumbing.EncodedObject) (plumbing.Hash, error)
	EncodedObject(plumbing.ObjectType, plumbing.Hash) (plumbing.EncodedObject, error)
}

// commitClock is overridable in tests; production code uses the real wall
// clock. The Store never needs commit timestamps for correctness — only
// Conversion's tree *contents* are semantically meaningful — so
// determinism here is a testing convenience, not a spec requirement.
var commitClock = func() time.Time { return time.Now().UTC() }
