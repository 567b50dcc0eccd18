package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bjulian5/syncbridge/internal/entities"
	"github.com/bjulian5/syncbridge/internal/snapshot"
)

// statusStyleFor maps a Status's state to the PR-state palette this
// package already uses for open/draft/closed, so a snapshot render uses
// the same color vocabulary as the rest of the CLI.
func statusStyleFor(state entities.StatusState) string {
	switch state {
	case entities.StatusSuccess:
		return "open"
	case entities.StatusPending:
		return "draft"
	case entities.StatusFailure, entities.StatusError:
		return "closed"
	default:
		return "local"
	}
}

// RenderSnapshot renders a Snapshot as PRs grouped by repo, each with its
// ref heads and the status states on its head commit.
func RenderSnapshot(s snapshot.Snapshot) string {
	repos := s.Repos()
	if len(repos) == 0 {
		return RenderPanel(Dim("No repositories tracked."))
	}
	sort.Slice(repos, func(i, j int) bool { return repos[i].Less(repos[j]) })

	statusesByCommit := map[entities.Commit][]entities.Status{}
	for _, st := range s.Statuses() {
		statusesByCommit[st.Commit] = append(statusesByCommit[st.Commit], st)
	}

	var out strings.Builder
	out.WriteString(RenderTitle("Sync bridge snapshot"))
	out.WriteString("\n\n")

	for _, repo := range repos {
		var panel strings.Builder
		panel.WriteString(BoldStyle.Render(repo.String()))
		panel.WriteString("\n")

		prs := prsForRepo(s, repo)
		if len(prs) == 0 {
			panel.WriteString(Dim("  no open pull requests\n"))
		}
		for _, pr := range prs {
			panel.WriteString(renderPRLine(pr, statusesByCommit[pr.Head]))
			panel.WriteString("\n")
		}

		refs := refsForRepo(s, repo)
		if len(refs) > 0 {
			panel.WriteString(Dim("  refs:\n"))
			for _, r := range refs {
				panel.WriteString(fmt.Sprintf("    %s -> %s\n", Muted(r.Name.Path()), shortCommit(r.Head.ID)))
			}
		}

		out.WriteString(RenderBox("", strings.TrimRight(panel.String(), "\n")))
		out.WriteString("\n\n")
	}

	return out.String()
}

func prsForRepo(s snapshot.Snapshot, repo entities.Repo) []entities.PullRequest {
	var out []entities.PullRequest
	for _, pr := range s.PRs() {
		if pr.Repo() == repo {
			out = append(out, pr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func refsForRepo(s snapshot.Snapshot, repo entities.Repo) []entities.Ref {
	var out []entities.Ref
	for _, r := range s.Refs() {
		if r.Repo() == repo {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func renderPRLine(pr entities.PullRequest, statuses []entities.Status) string {
	title := pr.Title
	if title == "" {
		title = Dim("(untitled)")
	}
	line := fmt.Sprintf("  #%d %s", pr.Number, title)

	if len(statuses) == 0 {
		return line
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Less(statuses[j]) })

	var badges []string
	for _, st := range statuses {
		style := GetStatusStyle(statusStyleFor(st.State))
		badges = append(badges, style.Render(st.Context.Path()+":"+st.State.String()))
	}
	return line + "  [" + strings.Join(badges, " ") + "]"
}

func shortCommit(id string) string {
	if len(id) > 10 {
		return id[:10]
	}
	return id
}
