package convert

import (
	"path"

	"github.com/bjulian5/syncbridge/internal/entities"
	"github.com/bjulian5/syncbridge/internal/snapshot"
)

// Writer is the subset of *store.Transaction's capability this package
// needs to materialize a Snapshot into the Store's tree layout. Accepting
// an interface here (rather than *store.Transaction directly) keeps
// Conversion decoupled from the Store's concrete type, per spec.md §9's
// capability-passing note.
type Writer interface {
	CreateOrReplaceFile(path string, content []byte) error
	Remove(path string) error
}

// UpdatePR writes pr's subtree, or — if pr is Closed — removes it
// entirely. spec.md §4.3: "For a PR transitioning to Closed, the entire
// PR subtree is removed (Closed PRs are not persisted...)".
func UpdatePR(w Writer, repo entities.Repo, pr entities.PullRequest) error {
	dir := prRoot(repo.User, repo.Name, pr.Number)
	if pr.State == entities.PRClosed {
		return w.Remove(dir)
	}
	if err := w.CreateOrReplaceFile(path.Join(dir, leafHead), encodeLine(pr.Head.ID)); err != nil {
		return err
	}
	if err := w.CreateOrReplaceFile(path.Join(dir, leafState), encodeLine(pr.State.String())); err != nil {
		return err
	}
	if pr.Title == "" {
		return w.Remove(path.Join(dir, leafTitle))
	}
	return w.CreateOrReplaceFile(path.Join(dir, leafTitle), encodeLine(pr.Title))
}

// RemovePR deletes a PR's entire subtree.
func RemovePR(w Writer, repo entities.Repo, number int) error {
	return w.Remove(prRoot(repo.User, repo.Name, number))
}

// UpdateRef writes ref's head file.
func UpdateRef(w Writer, repo entities.Repo, r entities.Ref) error {
	return w.CreateOrReplaceFile(path.Join(refRoot(repo.User, repo.Name, r.Name), leafHead), encodeLine(r.Head.ID))
}

// RemoveRef deletes a ref's entire subtree.
func RemoveRef(w Writer, repo entities.Repo, name entities.RefName) error {
	return w.Remove(refRoot(repo.User, repo.Name, name))
}

// UpdateStatus writes a status's state and optional description/URL, and
// ensures the subject commit's marker exists.
func UpdateStatus(w Writer, repo entities.Repo, st entities.Status) error {
	dir := statusRoot(repo.User, repo.Name, st.Commit.ID, st.Context.Logical())
	if err := w.CreateOrReplaceFile(path.Join(dir, leafState), encodeLine(st.State.String())); err != nil {
		return err
	}
	if st.Description == "" {
		if err := w.Remove(path.Join(dir, leafDescription)); err != nil {
			return err
		}
	} else if err := w.CreateOrReplaceFile(path.Join(dir, leafDescription), encodeLine(st.Description)); err != nil {
		return err
	}
	if st.URL == "" {
		if err := w.Remove(path.Join(dir, leafTargetURL)); err != nil {
			return err
		}
	} else if err := w.CreateOrReplaceFile(path.Join(dir, leafTargetURL), encodeLine(st.URL)); err != nil {
		return err
	}
	return EnsureCommit(w, repo, st.Commit.ID)
}

// RemoveStatus deletes a single status's subtree, leaving the commit
// marker (and any other statuses on that commit) untouched.
func RemoveStatus(w Writer, repo entities.Repo, commitID string, ctx entities.Context) error {
	return w.Remove(statusRoot(repo.User, repo.Name, commitID, ctx.Logical()))
}

// EnsureCommit writes the commit-presence marker (spec.md §4.3's "marker
// directory for commit presence" — see paths.go's package doc for why
// this implementation needs an explicit file).
func EnsureCommit(w Writer, repo entities.Repo, id string) error {
	return w.CreateOrReplaceFile(path.Join(commitRoot(repo.User, repo.Name, id), leafExists), encodeLine(""))
}

// RemoveCommit deletes a commit's entire subtree, including any statuses
// still nested under it.
func RemoveCommit(w Writer, repo entities.Repo, id string) error {
	return w.Remove(commitRoot(repo.User, repo.Name, id))
}

// EnsureRepo registers repo in the tree with no PR, commit, ref, or
// status yet. It writes a bare marker file outside pr/commit/ref, which
// classify() in apply.go falls through to changeUnknown — the same path
// spec.md §9 documents as adding the repo to a snapshot without adding
// any other entity.
func EnsureRepo(w Writer, repo entities.Repo) error {
	return w.CreateOrReplaceFile(path.Join(repoRoot(repo.User, repo.Name), leafWatched), encodeLine(""))
}

// UpdatePRs, UpdateRefs, UpdateStatuses are the batch conveniences named
// in spec.md §4.3.
func UpdatePRs(w Writer, prs []entities.PullRequest) error {
	for _, pr := range prs {
		if err := UpdatePR(w, pr.Repo(), pr); err != nil {
			return err
		}
	}
	return nil
}

func UpdateRefs(w Writer, refs []entities.Ref) error {
	for _, r := range refs {
		if err := UpdateRef(w, r.Repo(), r); err != nil {
			return err
		}
	}
	return nil
}

func UpdateStatuses(w Writer, statuses []entities.Status) error {
	for _, st := range statuses {
		if err := UpdateStatus(w, st.Commit.Repo, st); err != nil {
			return err
		}
	}
	return nil
}

// WriteSnapshot materializes s into w in full: every PR (open ones
// written, closed ones have their subtree removed — never persisted), every ref,
// every tracked commit's marker, and every status. Used by the sync
// engine to (re)write a freshly imported or pruned snapshot onto a
// branch's transaction (spec.md §4.7 sync_repos steps 3-4).
func WriteSnapshot(w Writer, s snapshot.Snapshot) error {
	if err := UpdatePRs(w, s.PRs()); err != nil {
		return err
	}
	if err := UpdateRefs(w, s.Refs()); err != nil {
		return err
	}
	for _, c := range s.Commits() {
		if err := EnsureCommit(w, c.Repo, c.ID); err != nil {
			return err
		}
	}
	return UpdateStatuses(w, s.Statuses())
}
