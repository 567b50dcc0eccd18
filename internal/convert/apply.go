package convert

import (
	"path"
	"strconv"

	"github.com/bjulian5/syncbridge/internal/entities"
	"github.com/bjulian5/syncbridge/internal/snapshot"
	"github.com/bjulian5/syncbridge/internal/store"
)

// Snapshot is the top-level entry point of spec.md §4.3's
// "snapshot(old?, tree)": with no prior snapshot, do a full rebuild;
// otherwise apply diffs incrementally against old. Both paths must agree
// for the same tree — see convert_test.go's equivalence property.
func Snapshot(old *snapshot.Snapshot, tree store.Tree, diffs []entities.PathChange) (snapshot.Snapshot, error) {
	if old == nil {
		return ReadSnapshot(tree)
	}
	return ApplyDiff(*old, tree, diffs)
}

type changeKind int

const (
	changeIgnored changeKind = iota
	changePR
	changeStatus
	changeRef
	changeUnknown
)

type change struct {
	kind     changeKind
	repo     entities.Repo
	prNumber int
	commitID string
	ctx      []string
	refName  []string
}

// classify implements spec.md §4.3's diff-path classifier.
func classify(p string) change {
	segs := splitPath(p)
	if len(segs) < 3 {
		return change{kind: changeIgnored} // shallower than <u>/<r>/...
	}
	repo, err := entities.NewRepo(segs[0], segs[1])
	if err != nil {
		return change{kind: changeIgnored}
	}
	rest := segs[2:]

	switch rest[0] {
	case dirPR:
		if len(rest) >= 2 {
			if n, err := strconv.Atoi(rest[1]); err == nil {
				return change{kind: changePR, repo: repo, prNumber: n}
			}
		}
	case dirCommit:
		// A path under commit/<id>/ that is NOT under status/ is
		// deliberately classified Unknown, not as a commit-presence
		// event — spec.md §9's preserved quirk: toggling a bare commit
		// marker is invisible to snapshot.commits via this path.
		if len(rest) >= 4 && rest[2] == dirStatus {
			ctx := append([]string(nil), rest[3:len(rest)-1]...)
			return change{kind: changeStatus, repo: repo, commitID: rest[1], ctx: ctx}
		}
	case dirRef:
		if len(rest) >= 2 {
			name := append([]string(nil), rest[1:len(rest)-1]...)
			if len(name) > 0 {
				return change{kind: changeRef, repo: repo, refName: name}
			}
		}
	}
	return change{kind: changeUnknown, repo: repo}
}

// ApplyDiff implements spec.md §4.3's diff-apply: given a prior snapshot
// and a list of path diffs, re-read just the affected subtrees and fold
// the result into old.
func ApplyDiff(old snapshot.Snapshot, tree store.Tree, diffs []entities.PathChange) (snapshot.Snapshot, error) {
	s := old
	for _, d := range diffs {
		c := classify(d.Path)
		var err error
		switch c.kind {
		case changePR:
			s, err = applyPR(s, tree, c.repo, c.prNumber)
		case changeStatus:
			s, err = applyStatus(s, tree, c.repo, c.commitID, c.ctx)
		case changeRef:
			s, err = applyRef(s, tree, c.repo, c.refName)
		case changeUnknown:
			s = s.AddRepo(c.repo)
		}
		if err != nil {
			return snapshot.Snapshot{}, err
		}
	}
	return s, nil
}

func applyPR(s snapshot.Snapshot, tree store.Tree, repo entities.Repo, number int) (snapshot.Snapshot, error) {
	pr, ok, err := readOnePR(tree, repo, number)
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	if !ok {
		return s.RemovePR(repo, number), nil
	}
	return s.ReplacePR(pr), nil
}

func readOnePR(tree store.Tree, repo entities.Repo, number int) (entities.PullRequest, bool, error) {
	dir := prRoot(repo.User, repo.Name, number)
	hasHead, _ := tree.ExistsFile(path.Join(dir, leafHead))
	hasState, _ := tree.ExistsFile(path.Join(dir, leafState))
	if !hasHead || !hasState {
		return entities.PullRequest{}, false, nil
	}
	headBytes, err := tree.ReadFile(path.Join(dir, leafHead))
	if err != nil {
		return entities.PullRequest{}, false, conversionError("convert: read pr %d head: %v", number, err)
	}
	stateBytes, err := tree.ReadFile(path.Join(dir, leafState))
	if err != nil {
		return entities.PullRequest{}, false, conversionError("convert: read pr %d state: %v", number, err)
	}
	state, err := entities.ParsePRState(decodeLine(stateBytes))
	if err != nil {
		return entities.PullRequest{}, false, conversionError("convert: pr %d in %s: %v", number, repo, err)
	}
	title := ""
	if hasTitle, _ := tree.ExistsFile(path.Join(dir, leafTitle)); hasTitle {
		titleBytes, err := tree.ReadFile(path.Join(dir, leafTitle))
		if err != nil {
			return entities.PullRequest{}, false, conversionError("convert: read pr %d title: %v", number, err)
		}
		title = decodeLine(titleBytes)
	}
	return entities.PullRequest{
		Head:   entities.Commit{Repo: repo, ID: decodeLine(headBytes)},
		Number: number,
		State:  state,
		Title:  title,
	}, true, nil
}

func applyStatus(s snapshot.Snapshot, tree store.Tree, repo entities.Repo, commitID string, ctx []string) (snapshot.Snapshot, error) {
	commit := entities.Commit{Repo: repo, ID: commitID}
	st, ok, err := readOneStatus(tree, repo, commitID, ctx)
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	if ok {
		s = s.ReplaceStatus(st)
	} else {
		s = s.RemoveStatus(commit, entities.Context(ctx))
	}

	stillExists, err := tree.ExistsDir(commitRoot(repo.User, repo.Name, commitID))
	if err != nil {
		return snapshot.Snapshot{}, conversionError("convert: check commit %s: %v", commit, err)
	}
	if stillExists {
		s = s.ReplaceCommit(commit)
	} else {
		s = s.RemoveCommit(repo, commitID)
	}
	return s, nil
}

func readOneStatus(tree store.Tree, repo entities.Repo, commitID string, ctx []string) (entities.Status, bool, error) {
	dir := statusRoot(repo.User, repo.Name, commitID, ctx)
	hasState, _ := tree.ExistsFile(path.Join(dir, leafState))
	if !hasState {
		return entities.Status{}, false, nil
	}
	stateBytes, err := tree.ReadFile(path.Join(dir, leafState))
	if err != nil {
		return entities.Status{}, false, conversionError("convert: read status state: %v", err)
	}
	commit := entities.Commit{Repo: repo, ID: commitID}
	state, err := entities.ParseStatusState(decodeLine(stateBytes))
	if err != nil {
		return entities.Status{}, false, conversionError("convert: status %v on %s: %v", ctx, commit, err)
	}
	st := entities.Status{Commit: commit, Context: entities.Context(ctx), State: state}
	if hasDesc, _ := tree.ExistsFile(path.Join(dir, leafDescription)); hasDesc {
		b, err := tree.ReadFile(path.Join(dir, leafDescription))
		if err != nil {
			return entities.Status{}, false, conversionError("convert: read status description: %v", err)
		}
		st.Description = decodeLine(b)
	}
	if hasURL, _ := tree.ExistsFile(path.Join(dir, leafTargetURL)); hasURL {
		b, err := tree.ReadFile(path.Join(dir, leafTargetURL))
		if err != nil {
			return entities.Status{}, false, conversionError("convert: read status target_url: %v", err)
		}
		st.URL = decodeLine(b)
	}
	return st, true, nil
}

func applyRef(s snapshot.Snapshot, tree store.Tree, repo entities.Repo, name []string) (snapshot.Snapshot, error) {
	r, ok, err := readOneRef(tree, repo, name)
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	if !ok {
		return s.RemoveRef(repo, entities.RefName(name)), nil
	}
	return s.ReplaceRef(r), nil
}

func readOneRef(tree store.Tree, repo entities.Repo, name []string) (entities.Ref, bool, error) {
	dir := refRoot(repo.User, repo.Name, name)
	hasHead, _ := tree.ExistsFile(path.Join(dir, leafHead))
	if !hasHead {
		return entities.Ref{}, false, nil
	}
	headBytes, err := tree.ReadFile(path.Join(dir, leafHead))
	if err != nil {
		return entities.Ref{}, false, conversionError("convert: read ref head: %v", err)
	}
	return entities.Ref{Head: entities.Commit{Repo: repo, ID: decodeLine(headBytes)}, Name: entities.RefName(name)}, true, nil
}
