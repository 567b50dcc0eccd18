package engine

import (
	"sort"

	"github.com/bjulian5/syncbridge/internal/entities"
)

// unionRepos returns the deduplicated, canonically-ordered union of a and b.
func unionRepos(a, b []entities.Repo) []entities.Repo {
	set := map[entities.Repo]struct{}{}
	for _, r := range a {
		set[r] = struct{}{}
	}
	for _, r := range b {
		set[r] = struct{}{}
	}
	return sortedRepos(set)
}

// symmetricDifferenceUnion computes (oldA △ newA) ∪ (oldB △ newB), the
// repo set spec.md §4.7's sync_once step 2 feeds into sync_repos.
func symmetricDifferenceUnion(oldA, newA, oldB, newB []entities.Repo) []entities.Repo {
	set := map[entities.Repo]struct{}{}
	symmetricDifferenceInto(set, oldA, newA)
	symmetricDifferenceInto(set, oldB, newB)
	return sortedRepos(set)
}

func symmetricDifferenceInto(set map[entities.Repo]struct{}, old, new []entities.Repo) {
	oldSet := map[entities.Repo]struct{}{}
	for _, r := range old {
		oldSet[r] = struct{}{}
	}
	newSet := map[entities.Repo]struct{}{}
	for _, r := range new {
		newSet[r] = struct{}{}
	}
	for r := range oldSet {
		if _, ok := newSet[r]; !ok {
			set[r] = struct{}{}
		}
	}
	for r := range newSet {
		if _, ok := oldSet[r]; !ok {
			set[r] = struct{}{}
		}
	}
}

func sortedRepos(set map[entities.Repo]struct{}) []entities.Repo {
	out := make([]entities.Repo, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
