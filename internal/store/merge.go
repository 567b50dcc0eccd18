package store

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// readCommit decodes a commit object by hash.
func readCommit(storer encodedObjectStorer, id CommitID) (*object.Commit, error) {
	obj, err := storer.EncodedObject(plumbing.CommitObject, id)
	if err != nil {
		return nil, fmt.Errorf("store: read commit %s: %w", fmtHash(id), err)
	}
	c := &object.Commit{}
	if err := c.Decode(obj); err != nil {
		return nil, fmt.Errorf("store: decode commit %s: %w", fmtHash(id), err)
	}
	return c, nil
}

// ancestorSet returns id and every commit reachable from it by following
// parent links.
func ancestorSet(storer encodedObjectStorer, id CommitID) (map[CommitID]struct{}, error) {
	seen := map[CommitID]struct{}{}
	queue := []CommitID{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == ZeroCommitID {
			continue
		}
		if _, ok := seen[cur]; ok {
			continue
		}
		seen[cur] = struct{}{}
		c, err := readCommit(storer, cur)
		if err != nil {
			return nil, err
		}
		queue = append(queue, c.ParentHashes...)
	}
	return seen, nil
}

// isAncestor reports whether ancestor is descendant itself or reachable
// from descendant by following parent links (ZeroCommitID counts as an
// ancestor of every commit) — used by FastForward to confirm target is
// reachable from current without rewinding history.
func isAncestor(storer encodedObjectStorer, ancestor, descendant CommitID) (bool, error) {
	if ancestor == ZeroCommitID {
		return true, nil
	}
	set, err := ancestorSet(storer, descendant)
	if err != nil {
		return false, err
	}
	_, ok := set[ancestor]
	return ok, nil
}

// mergeBase finds a common ancestor of a and b by intersecting a's full
// ancestor set with a BFS over b's ancestors. Returns ZeroCommitID (the
// empty tree) if a and b share no history.
func mergeBase(storer encodedObjectStorer, a, b CommitID) (CommitID, error) {
	if a == ZeroCommitID || b == ZeroCommitID {
		return ZeroCommitID, nil
	}
	aAncestors, err := ancestorSet(storer, a)
	if err != nil {
		return ZeroCommitID, err
	}
	seen := map[CommitID]struct{}{}
	queue := []CommitID{b}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == ZeroCommitID {
			continue
		}
		if _, ok := seen[cur]; ok {
			continue
		}
		seen[cur] = struct{}{}
		if _, ok := aAncestors[cur]; ok {
			return cur, nil
		}
		c, err := readCommit(storer, cur)
		if err != nil {
			return ZeroCommitID, err
		}
		queue = append(queue, c.ParentHashes...)
	}
	return ZeroCommitID, nil
}

// ThreeWay exposes per-path read access into the "ours" and "theirs"
// sides of a merge, for conflict resolution policy to inspect both sides
// of a conflicting leaf path (spec.md §4.7's merge step).
type ThreeWay struct {
	ours   map[string][]byte
	theirs map[string][]byte
}

// Ours returns the content of path on our side, and whether it existed.
func (tw ThreeWay) Ours(path string) ([]byte, bool) {
	v, ok := tw.ours[clean(path)]
	return v, ok
}

// Theirs returns the content of path on their side, and whether it existed.
func (tw ThreeWay) Theirs(path string) ([]byte, bool) {
	v, ok := tw.theirs[clean(path)]
	return v, ok
}

func cloneFiles(m map[string][]byte) map[string][]byte {
	out := make(map[string][]byte, len(m))
	for k, v := range m {
		out[k] = append([]byte(nil), v...)
	}
	return out
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
