package convert

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/bjulian5/syncbridge/internal/entities"
	"github.com/bjulian5/syncbridge/internal/snapshot"
	"github.com/bjulian5/syncbridge/internal/store"
)

// dumpTree renders every file under tree as a sorted "path: content" line,
// so a fixed Snapshot's tree layout can be pinned in a golden file rather
// than re-derived path by path in assertions.
func dumpTree(t *testing.T, tree store.Tree, dir string) []string {
	t.Helper()
	names, err := tree.ReadDir(dir)
	require.NoError(t, err)

	var lines []string
	for _, name := range names {
		p := name
		if dir != "" {
			p = dir + "/" + name
		}
		isDir, err := tree.ExistsDir(p)
		require.NoError(t, err)
		if isDir {
			lines = append(lines, dumpTree(t, tree, p)...)
			continue
		}
		content, err := tree.ReadFile(p)
		require.NoError(t, err)
		lines = append(lines, fmt.Sprintf("%s: %q", p, string(content)))
	}
	sort.Strings(lines)
	return lines
}

// TestTreeLayoutGolden pins the exact tree layout WriteSnapshot produces
// for one PR, one status, and one ref against a checked-in fixture, so a
// change to the layout in paths.go/write.go shows up as a diff instead of
// silently changing every reader's assumptions.
func TestTreeLayoutGolden(t *testing.T) {
	ctx := context.Background()
	repo, err := entities.NewRepo("alice", "proj")
	require.NoError(t, err)

	pr := entities.PullRequest{Head: entities.Commit{Repo: repo, ID: "deadbeef"}, Number: 7, State: entities.PROpen, Title: "add x"}
	st := entities.Status{
		Commit:      pr.Head,
		Context:     entities.Context{"ci", "build"},
		State:       entities.StatusSuccess,
		Description: "d",
		URL:         "u",
	}
	ref := entities.Ref{Head: entities.Commit{Repo: repo, ID: "feedface"}, Name: entities.RefName{"heads", "main"}}
	s := snapshot.Empty().AddPR(pr).AddStatus(st).AddRef(ref)

	repository := store.NewRepository()
	br := repository.Branch("priv")
	tx, err := br.Transaction(ctx)
	require.NoError(t, err)
	require.NoError(t, WriteSnapshot(tx, s))
	_, err = tx.Commit(ctx, "sync")
	require.NoError(t, err)

	head, err := br.Head(ctx)
	require.NoError(t, err)
	tree, err := br.Tree(ctx, head)
	require.NoError(t, err)

	lines := dumpTree(t, tree, "")
	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"))
	g.Assert(t, "tree_layout", []byte(strings.Join(lines, "\n")+"\n"))
}
