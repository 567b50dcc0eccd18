// Package snapshot implements the Snapshot value type and its set
// algebra: the collected, de-duplicated view of Hub state (repos,
// commits, pull requests, statuses, refs) that the rest of the bridge
// reads and writes as an immutable value.
package snapshot

import (
	"sort"

	"github.com/bjulian5/syncbridge/internal/entities"
)

type prKey struct {
	repo   entities.Repo
	number int
}

type statusKey struct {
	commit  entities.Commit
	context string
}

type refKey struct {
	repo entities.Repo
	name string
}

// Snapshot is an immutable collection of five sets: repos, commits, prs,
// statuses, and refs. All mutator methods return a new Snapshot; the
// receiver is never modified. Snapshots are values — safe to share, copy,
// and compare across goroutines and sync ticks.
type Snapshot struct {
	repos    map[entities.Repo]struct{}
	commits  map[entities.Commit]struct{}
	prs      map[prKey]entities.PullRequest
	statuses map[statusKey]entities.Status
	refs     map[refKey]entities.Ref
}

// Empty returns the zero snapshot.
func Empty() Snapshot {
	return Snapshot{
		repos:    map[entities.Repo]struct{}{},
		commits:  map[entities.Commit]struct{}{},
		prs:      map[prKey]entities.PullRequest{},
		statuses: map[statusKey]entities.Status{},
		refs:     map[refKey]entities.Ref{},
	}
}

func (s Snapshot) clone() Snapshot {
	out := Snapshot{
		repos:    make(map[entities.Repo]struct{}, len(s.repos)),
		commits:  make(map[entities.Commit]struct{}, len(s.commits)),
		prs:      make(map[prKey]entities.PullRequest, len(s.prs)),
		statuses: make(map[statusKey]entities.Status, len(s.statuses)),
		refs:     make(map[refKey]entities.Ref, len(s.refs)),
	}
	for k, v := range s.repos {
		out.repos[k] = v
	}
	for k, v := range s.commits {
		out.commits[k] = v
	}
	for k, v := range s.prs {
		out.prs[k] = v
	}
	for k, v := range s.statuses {
		out.statuses[k] = v
	}
	for k, v := range s.refs {
		out.refs[k] = v
	}
	return out
}

func prIdentity(p entities.PullRequest) prKey {
	return prKey{repo: p.Repo(), number: p.Number}
}

func statusIdentity(s entities.Status) statusKey {
	return statusKey{commit: s.Commit, context: s.Context.Key()}
}

func refIdentity(r entities.Ref) refKey {
	return refKey{repo: r.Repo(), name: r.Name.Path()}
}

// Repos returns the repo set, in canonical order.
func (s Snapshot) Repos() []entities.Repo {
	out := make([]entities.Repo, 0, len(s.repos))
	for r := range s.repos {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Commits returns the commit set, in canonical order.
func (s Snapshot) Commits() []entities.Commit {
	out := make([]entities.Commit, 0, len(s.commits))
	for c := range s.commits {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// PRs returns the pull request set, in canonical order.
func (s Snapshot) PRs() []entities.PullRequest {
	out := make([]entities.PullRequest, 0, len(s.prs))
	for _, p := range s.prs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Statuses returns the status set, in canonical order.
func (s Snapshot) Statuses() []entities.Status {
	out := make([]entities.Status, 0, len(s.statuses))
	for _, v := range s.statuses {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Refs returns the ref set, in canonical order.
func (s Snapshot) Refs() []entities.Ref {
	out := make([]entities.Ref, 0, len(s.refs))
	for _, v := range s.refs {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// HasRepo, HasCommit, LookupPR/Status/Ref: membership/lookup helpers used
// throughout conversion and export.

func (s Snapshot) HasRepo(r entities.Repo) bool {
	_, ok := s.repos[r]
	return ok
}

func (s Snapshot) HasCommit(c entities.Commit) bool {
	_, ok := s.commits[c]
	return ok
}

func (s Snapshot) LookupPR(repo entities.Repo, number int) (entities.PullRequest, bool) {
	p, ok := s.prs[prKey{repo: repo, number: number}]
	return p, ok
}

func (s Snapshot) LookupStatus(commit entities.Commit, ctx entities.Context) (entities.Status, bool) {
	v, ok := s.statuses[statusKey{commit: commit, context: ctx.Key()}]
	return v, ok
}

func (s Snapshot) LookupRef(repo entities.Repo, name entities.RefName) (entities.Ref, bool) {
	v, ok := s.refs[refKey{repo: repo, name: name.Path()}]
	return v, ok
}

// --- Mutators: every one returns a new Snapshot. ---

func (s Snapshot) addRepo(r entities.Repo) Snapshot {
	if s.HasRepo(r) {
		return s
	}
	out := s.clone()
	out.repos[r] = struct{}{}
	return out
}

// AddRepo registers repo with no other entities. Conversion uses this for
// the diff classifier's Unknown case (spec.md §4.3): a path under a repo
// that matches none of the known subtrees still proves the repo is in
// play and must appear in snapshot.repos, even though nothing else about
// it is known from that path alone.
func (s Snapshot) AddRepo(r entities.Repo) Snapshot {
	return s.addRepo(r)
}

// AddCommit inserts c and its repo.
func (s Snapshot) AddCommit(c entities.Commit) Snapshot {
	out := s.addRepo(c.Repo)
	out = out.clone()
	out.commits[c] = struct{}{}
	return out
}

// RemoveCommit removes any commit with matching (repo, id). Does not
// touch dependents (PRs/statuses referencing it are left as-is).
func (s Snapshot) RemoveCommit(repo entities.Repo, id string) Snapshot {
	c := entities.Commit{Repo: repo, ID: id}
	if !s.HasCommit(c) {
		return s
	}
	out := s.clone()
	delete(out.commits, c)
	return out
}

// ReplaceCommit removes by identity then adds.
func (s Snapshot) ReplaceCommit(c entities.Commit) Snapshot {
	return s.RemoveCommit(c.Repo, c.ID).AddCommit(c)
}

// AddPR inserts pr, its head commit, and its head's repo.
func (s Snapshot) AddPR(pr entities.PullRequest) Snapshot {
	out := s.AddCommit(pr.Head)
	out = out.clone()
	out.prs[prIdentity(pr)] = pr
	return out
}

// RemovePR removes the PR identified by (repo, number), if present.
func (s Snapshot) RemovePR(repo entities.Repo, number int) Snapshot {
	k := prKey{repo: repo, number: number}
	if _, ok := s.prs[k]; !ok {
		return s
	}
	out := s.clone()
	delete(out.prs, k)
	return out
}

// ReplacePR removes by identity then adds.
func (s Snapshot) ReplacePR(pr entities.PullRequest) Snapshot {
	return s.RemovePR(pr.Repo(), pr.Number).AddPR(pr)
}

// AddStatus inserts s, its commit, and the commit's repo.
func (s Snapshot) AddStatus(st entities.Status) Snapshot {
	out := s.AddCommit(st.Commit)
	out = out.clone()
	out.statuses[statusIdentity(st)] = st
	return out
}

// RemoveStatus removes the status identified by (commit, context), if present.
func (s Snapshot) RemoveStatus(commit entities.Commit, ctx entities.Context) Snapshot {
	k := statusKey{commit: commit, context: ctx.Key()}
	if _, ok := s.statuses[k]; !ok {
		return s
	}
	out := s.clone()
	delete(out.statuses, k)
	return out
}

// ReplaceStatus removes by identity then adds.
func (s Snapshot) ReplaceStatus(st entities.Status) Snapshot {
	return s.RemoveStatus(st.Commit, st.Context).AddStatus(st)
}

// AddRef inserts r and its head's repo (not the commit — see Prune's doc
// on the pruning asymmetry: ref heads are tracked via the ref's own Head
// field, not via the shared commits set).
func (s Snapshot) AddRef(r entities.Ref) Snapshot {
	out := s.addRepo(r.Repo())
	out = out.clone()
	out.refs[refIdentity(r)] = r
	return out
}

// RemoveRef removes the ref identified by (repo, name), if present.
func (s Snapshot) RemoveRef(repo entities.Repo, name entities.RefName) Snapshot {
	k := refKey{repo: repo, name: name.Path()}
	if _, ok := s.refs[k]; !ok {
		return s
	}
	out := s.clone()
	delete(out.refs, k)
	return out
}

// ReplaceRef removes by identity then adds.
func (s Snapshot) ReplaceRef(r entities.Ref) Snapshot {
	return s.RemoveRef(r.Repo(), r.Name).AddRef(r)
}

// Union returns the set-wise union of a and b across all five sets.
func Union(a, b Snapshot) Snapshot {
	out := a.clone()
	for r := range b.repos {
		out.repos[r] = struct{}{}
	}
	for c := range b.commits {
		out.commits[c] = struct{}{}
	}
	for k, v := range b.prs {
		out.prs[k] = v
	}
	for k, v := range b.statuses {
		out.statuses[k] = v
	}
	for k, v := range b.refs {
		out.refs[k] = v
	}
	return out
}

// Equal reports whether a and b contain the same elements (structural
// equality, independent of insertion order).
func Equal(a, b Snapshot) bool {
	if len(a.repos) != len(b.repos) || len(a.commits) != len(b.commits) ||
		len(a.prs) != len(b.prs) || len(a.statuses) != len(b.statuses) ||
		len(a.refs) != len(b.refs) {
		return false
	}
	for r := range a.repos {
		if !b.HasRepo(r) {
			return false
		}
	}
	for c := range a.commits {
		if !b.HasCommit(c) {
			return false
		}
	}
	for k, v := range a.prs {
		if bv, ok := b.prs[k]; !ok || bv != v {
			return false
		}
	}
	for k, v := range a.statuses {
		if bv, ok := b.statuses[k]; !ok || !statusesEqual(v, bv) {
			return false
		}
	}
	for k, v := range a.refs {
		bv, ok := b.refs[k]
		if !ok || !refsEqual(v, bv) {
			return false
		}
	}
	return true
}

func refsEqual(a, b entities.Ref) bool {
	return a.Head == b.Head && a.Name.Equal(b.Name)
}

func statusesEqual(a, b entities.Status) bool {
	return a.Commit == b.Commit && a.Context.Equal(b.Context) &&
		a.URL == b.URL && a.Description == b.Description && a.State == b.State
}

// StatusDifference returns new.Statuses() \ old.Statuses() — statuses in
// new that are absent, or different, from old, keyed by identity and
// compared by full value (so an updated state counts as a difference).
func StatusDifference(oldS, newS Snapshot) []entities.Status {
	var out []entities.Status
	for k, v := range newS.statuses {
		if ov, ok := oldS.statuses[k]; !ok || !statusesEqual(ov, v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// PRDifference returns new.PRs() \ old.PRs(), by the same rule as
// StatusDifference.
func PRDifference(oldS, newS Snapshot) []entities.PullRequest {
	var out []entities.PullRequest
	for k, v := range newS.prs {
		if ov, ok := oldS.prs[k]; !ok || ov != v {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Validate checks the cross-set invariants documented in spec.md §3:
//   - every status's commit is in commits, and that commit's repo is in repos
//   - every PR's head is in commits, and that commit's repo is in repos
//   - every ref's head's repo is in repos (the ref's commit itself need not
//     be tracked — see the pruning asymmetry note on AddRef)
func (s Snapshot) Validate() error {
	for _, st := range s.statuses {
		if !s.HasCommit(st.Commit) {
			return invariantError("status %v references untracked commit %v", st, st.Commit)
		}
		if !s.HasRepo(st.Commit.Repo) {
			return invariantError("status %v references untracked repo %v", st, st.Commit.Repo)
		}
	}
	for _, p := range s.prs {
		if !s.HasCommit(p.Head) {
			return invariantError("pr %v references untracked commit %v", p, p.Head)
		}
		if !s.HasRepo(p.Head.Repo) {
			return invariantError("pr %v references untracked repo %v", p, p.Head.Repo)
		}
	}
	for _, r := range s.refs {
		if !s.HasRepo(r.Repo()) {
			return invariantError("ref %v references untracked repo %v", r, r.Repo())
		}
	}
	return nil
}
