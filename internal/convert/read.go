package convert

import (
	"path"
	"strconv"
	"strings"

	"github.com/bjulian5/syncbridge/internal/entities"
	"github.com/bjulian5/syncbridge/internal/snapshot"
	"github.com/bjulian5/syncbridge/internal/store"
)

// ReadSnapshot performs a full rebuild of a Snapshot from tree, per
// spec.md §4.3's snapshot_of_tree: enumerate users, then repos, then for
// each repo read its PRs, commit markers, refs, and statuses. Any
// malformed enum value aborts the whole rebuild with a ConversionError.
func ReadSnapshot(tree store.Tree) (snapshot.Snapshot, error) {
	s := snapshot.Empty()

	users, err := tree.ReadDir("")
	if err != nil {
		return snapshot.Snapshot{}, conversionError("convert: list users: %v", err)
	}
	for _, user := range users {
		repoNames, err := tree.ReadDir(user)
		if err != nil {
			return snapshot.Snapshot{}, conversionError("convert: list repos for %q: %v", user, err)
		}
		for _, repoName := range repoNames {
			repo, err := entities.NewRepo(user, repoName)
			if err != nil {
				return snapshot.Snapshot{}, conversionError("convert: %v", err)
			}
			s = s.AddRepo(repo)

			prs, err := readPRs(tree, repo)
			if err != nil {
				return snapshot.Snapshot{}, err
			}
			for _, pr := range prs {
				s = s.AddPR(pr)
			}

			commits, err := readCommitIDs(tree, repo)
			if err != nil {
				return snapshot.Snapshot{}, err
			}
			for _, id := range commits {
				s = s.AddCommit(entities.Commit{Repo: repo, ID: id})
			}

			refs, err := readRefs(tree, repo)
			if err != nil {
				return snapshot.Snapshot{}, err
			}
			for _, r := range refs {
				s = s.AddRef(r)
			}

			for _, id := range commits {
				statuses, err := readStatuses(tree, repo, id)
				if err != nil {
					return snapshot.Snapshot{}, err
				}
				for _, st := range statuses {
					s = s.AddStatus(st)
				}
			}
		}
	}
	return s, nil
}

func readPRs(tree store.Tree, repo entities.Repo) ([]entities.PullRequest, error) {
	base := path.Join(repo.User, repo.Name, dirPR)
	exists, err := tree.ExistsDir(base)
	if err != nil || !exists {
		return nil, nil
	}
	names, err := tree.ReadDir(base)
	if err != nil {
		return nil, conversionError("convert: list PRs for %s: %v", repo, err)
	}

	var out []entities.PullRequest
	for _, name := range names {
		dir := path.Join(base, name)
		hasHead, _ := tree.ExistsFile(path.Join(dir, leafHead))
		hasState, _ := tree.ExistsFile(path.Join(dir, leafState))
		if !hasHead || !hasState {
			continue // spec.md §4.3: skip entries missing head or state
		}
		number, err := strconv.Atoi(name)
		if err != nil {
			return nil, conversionError("convert: invalid pr directory %q in %s: %v", name, repo, err)
		}
		headBytes, err := tree.ReadFile(path.Join(dir, leafHead))
		if err != nil {
			return nil, conversionError("convert: read pr %d head: %v", number, err)
		}
		stateBytes, err := tree.ReadFile(path.Join(dir, leafState))
		if err != nil {
			return nil, conversionError("convert: read pr %d state: %v", number, err)
		}
		state, err := entities.ParsePRState(decodeLine(stateBytes))
		if err != nil {
			return nil, conversionError("convert: pr %d in %s: %v", number, repo, err)
		}
		title := ""
		if hasTitle, _ := tree.ExistsFile(path.Join(dir, leafTitle)); hasTitle {
			titleBytes, err := tree.ReadFile(path.Join(dir, leafTitle))
			if err != nil {
				return nil, conversionError("convert: read pr %d title: %v", number, err)
			}
			title = decodeLine(titleBytes)
		}
		out = append(out, entities.PullRequest{
			Head:   entities.Commit{Repo: repo, ID: decodeLine(headBytes)},
			Number: number,
			State:  state,
			Title:  title,
		})
	}
	return out, nil
}

func readCommitIDs(tree store.Tree, repo entities.Repo) ([]string, error) {
	base := path.Join(repo.User, repo.Name, dirCommit)
	exists, err := tree.ExistsDir(base)
	if err != nil || !exists {
		return nil, nil
	}
	ids, err := tree.ReadDir(base)
	if err != nil {
		return nil, conversionError("convert: list commits for %s: %v", repo, err)
	}
	return ids, nil
}

func readRefs(tree store.Tree, repo entities.Repo) ([]entities.Ref, error) {
	base := path.Join(repo.User, repo.Name, dirRef)
	exists, err := tree.ExistsDir(base)
	if err != nil || !exists {
		return nil, nil
	}
	dirs, err := walkLeafDirs(tree, base, leafHead)
	if err != nil {
		return nil, conversionError("convert: walk refs for %s: %v", repo, err)
	}
	var out []entities.Ref
	for _, dir := range dirs {
		rel := strings.TrimPrefix(dir, base+"/")
		name := entities.RefName(splitPath(rel))
		headBytes, err := tree.ReadFile(path.Join(dir, leafHead))
		if err != nil {
			return nil, conversionError("convert: read ref %s head: %v", name.Path(), err)
		}
		ref := entities.Ref{Head: entities.Commit{Repo: repo, ID: decodeLine(headBytes)}, Name: name}
		if err := ref.Validate(); err != nil {
			return nil, conversionError("convert: ref in %s: %v", repo, err)
		}
		out = append(out, ref)
	}
	return out, nil
}

func readStatuses(tree store.Tree, repo entities.Repo, commitID string) ([]entities.Status, error) {
	base := path.Join(repo.User, repo.Name, dirCommit, commitID, dirStatus)
	exists, err := tree.ExistsDir(base)
	if err != nil || !exists {
		return nil, nil
	}
	dirs, err := walkLeafDirs(tree, base, leafState)
	if err != nil {
		return nil, conversionError("convert: walk statuses for %s/%s: %v", repo, commitID, err)
	}
	commit := entities.Commit{Repo: repo, ID: commitID}
	var out []entities.Status
	for _, dir := range dirs {
		rel := strings.TrimPrefix(dir, base+"/")
		ctx := entities.Context(splitPath(rel))

		stateBytes, err := tree.ReadFile(path.Join(dir, leafState))
		if err != nil {
			return nil, conversionError("convert: read status %s state: %v", ctx.Path(), err)
		}
		state, err := entities.ParseStatusState(decodeLine(stateBytes))
		if err != nil {
			return nil, conversionError("convert: status %s on %s: %v", ctx.Path(), commit, err)
		}

		st := entities.Status{Commit: commit, Context: ctx, State: state}
		if hasDesc, _ := tree.ExistsFile(path.Join(dir, leafDescription)); hasDesc {
			b, err := tree.ReadFile(path.Join(dir, leafDescription))
			if err != nil {
				return nil, conversionError("convert: read status %s description: %v", ctx.Path(), err)
			}
			st.Description = decodeLine(b)
		}
		if hasURL, _ := tree.ExistsFile(path.Join(dir, leafTargetURL)); hasURL {
			b, err := tree.ReadFile(path.Join(dir, leafTargetURL))
			if err != nil {
				return nil, conversionError("convert: read status %s target_url: %v", ctx.Path(), err)
			}
			st.URL = decodeLine(b)
		}
		out = append(out, st)
	}
	return out, nil
}

// walkLeafDirs implements the walk contract of spec.md §4.3: depth-first
// traversal under root, collecting every directory that contains leaf,
// recursively. A directory's own match (if any) and its children's
// matches are both collected — this is a plain recursive "find all
// matches" rather than an early-exit search (spec.md §9 calls for normal
// short-circuit iteration in place of the source's exception-based
// control flow; here there is nothing to short-circuit, every match
// matters).
func walkLeafDirs(tree store.Tree, root, leaf string) ([]string, error) {
	var out []string
	var visit func(dir string) error
	visit = func(dir string) error {
		hasLeaf, err := tree.ExistsFile(path.Join(dir, leaf))
		if err != nil {
			return err
		}
		if hasLeaf {
			out = append(out, dir)
		}
		children, err := tree.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, name := range children {
			child := path.Join(dir, name)
			isDir, err := tree.ExistsDir(child)
			if err != nil {
				return err
			}
			if isDir {
				if err := visit(child); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := visit(root); err != nil {
		return nil, err
	}
	return out, nil
}
