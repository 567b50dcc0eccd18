// Package hub implements the Hub client contract of spec.md §6 against a
// real code-hosting service, by shelling out to the gh CLI — the same
// os/exec + encoding/json idiom the teacher's internal/gh package uses,
// generalized from PR-only operations to the full contract (refs,
// statuses, events) via "gh api" for endpoints gh's own subcommands don't
// cover.
//
// This package is explicitly out of the engine's core per spec.md §1:
// only the Client interface below is consumed by the sync engine. Swap
// in a fake Client in tests; production code wires *CLIClient.
package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/bjulian5/syncbridge/internal/entities"
)

// Client is the Hub client contract from spec.md §6. Every call takes a
// token explicitly (even though the CLI implementation below threads it
// through an environment variable) so the interface matches the spec's
// pseudocode and so a fake implementation in tests can assert on it.
type Client interface {
	UserExists(ctx context.Context, token, user string) (bool, error)
	RepoExists(ctx context.Context, token string, repo entities.Repo) (bool, error)
	Repos(ctx context.Context, token, user string) ([]entities.Repo, error)
	Status(ctx context.Context, token string, commit entities.Commit) ([]entities.Status, error)
	SetStatus(ctx context.Context, token string, status entities.Status) error
	SetPR(ctx context.Context, token string, pr entities.PullRequest) error
	PRs(ctx context.Context, token string, repo entities.Repo) ([]entities.PullRequest, error)
	Refs(ctx context.Context, token string, repo entities.Repo) ([]entities.Ref, error)
	Events(ctx context.Context, token string, repo entities.Repo) ([]entities.Event, error)
}

// CLIClient implements Client by shelling out to the gh CLI.
type CLIClient struct{}

// NewCLIClient constructs a gh-CLI-backed Client.
func NewCLIClient() *CLIClient { return &CLIClient{} }

func (c *CLIClient) UserExists(ctx context.Context, token, user string) (bool, error) {
	_, err := c.execGH(ctx, token, "api", "users/"+user)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("hub: user exists %q: %w", user, err)
	}
	return true, nil
}

func (c *CLIClient) RepoExists(ctx context.Context, token string, repo entities.Repo) (bool, error) {
	_, err := c.execGH(ctx, token, "api", "repos/"+slug(repo))
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("hub: repo exists %q: %w", repo, err)
	}
	return true, nil
}

type repoJSON struct {
	Name  string `json:"name"`
	Owner struct {
		Login string `json:"login"`
	} `json:"owner"`
}

func (c *CLIClient) Repos(ctx context.Context, token, user string) ([]entities.Repo, error) {
	out, err := c.execGH(ctx, token, "api", "--paginate", "users/"+user+"/repos")
	if err != nil {
		return nil, fmt.Errorf("hub: repos for %q: %w", user, err)
	}
	var raw []repoJSON
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("hub: parse repos for %q: %w", user, err)
	}
	repos := make([]entities.Repo, 0, len(raw))
	for _, r := range raw {
		owner := r.Owner.Login
		if owner == "" {
			owner = user
		}
		repo, err := entities.NewRepo(owner, r.Name)
		if err != nil {
			continue
		}
		repos = append(repos, repo)
	}
	return repos, nil
}

type statusJSON struct {
	State       string `json:"state"`
	Context     string `json:"context"`
	TargetURL   string `json:"target_url"`
	Description string `json:"description"`
}

func (c *CLIClient) Status(ctx context.Context, token string, commit entities.Commit) ([]entities.Status, error) {
	out, err := c.execGH(ctx, token, "api", fmt.Sprintf("repos/%s/commits/%s/statuses", slug(commit.Repo), commit.ID))
	if err != nil {
		return nil, fmt.Errorf("hub: status for %s: %w", commit, err)
	}
	var raw []statusJSON
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("hub: parse status for %s: %w", commit, err)
	}

	// The API returns one entry per historical update to a context;
	// keep only the most recent per context (entries are newest-first).
	seen := map[string]bool{}
	var out2 []entities.Status
	for _, s := range raw {
		if seen[s.Context] {
			continue
		}
		seen[s.Context] = true
		state, err := entities.ParseStatusState(strings.ToLower(s.State))
		if err != nil {
			continue
		}
		out2 = append(out2, entities.Status{
			Commit:      commit,
			Context:     splitContext(s.Context),
			URL:         s.TargetURL,
			Description: s.Description,
			State:       state,
		})
	}
	return out2, nil
}

func (c *CLIClient) SetStatus(ctx context.Context, token string, status entities.Status) error {
	args := []string{
		"api", "--method", "POST",
		fmt.Sprintf("repos/%s/statuses/%s", slug(status.Commit.Repo), status.Commit.ID),
		"-f", "state=" + status.State.String(),
		"-f", "context=" + status.Context.Path(),
	}
	if status.URL != "" {
		args = append(args, "-f", "target_url="+status.URL)
	}
	if status.Description != "" {
		args = append(args, "-f", "description="+status.Description)
	}
	_, err := c.execGH(ctx, token, args...)
	if err != nil {
		return fmt.Errorf("hub: set status on %s: %w", status.Commit, err)
	}
	return nil
}

func (c *CLIClient) SetPR(ctx context.Context, token string, pr entities.PullRequest) error {
	existing, err := c.prByNumber(ctx, token, pr.Repo(), pr.Number)
	if err != nil {
		return fmt.Errorf("hub: set pr #%d: %w", pr.Number, err)
	}
	if existing == nil {
		return fmt.Errorf("hub: set pr #%d: not found (PRs are created on the Hub side; the bridge only edits title/state)", pr.Number)
	}
	if pr.Title != "" && pr.Title != existing.Title {
		if _, err := c.execGH(ctx, token, "api", "--method", "PATCH",
			fmt.Sprintf("repos/%s/pulls/%d", slug(pr.Repo()), pr.Number),
			"-f", "title="+pr.Title); err != nil {
			return fmt.Errorf("hub: update pr #%d title: %w", pr.Number, err)
		}
	}
	if pr.State == entities.PRClosed && existing.State != "closed" {
		if _, err := c.execGH(ctx, token, "api", "--method", "PATCH",
			fmt.Sprintf("repos/%s/pulls/%d", slug(pr.Repo()), pr.Number),
			"-f", "state=closed"); err != nil {
			return fmt.Errorf("hub: close pr #%d: %w", pr.Number, err)
		}
	}
	return nil
}

type prJSON struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
	Head   struct {
		SHA string `json:"sha"`
	} `json:"head"`
}

func (c *CLIClient) prByNumber(ctx context.Context, token string, repo entities.Repo, number int) (*prJSON, error) {
	out, err := c.execGH(ctx, token, "api", fmt.Sprintf("repos/%s/pulls/%d", slug(repo), number))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var p prJSON
	if err := json.Unmarshal(out, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *CLIClient) PRs(ctx context.Context, token string, repo entities.Repo) ([]entities.PullRequest, error) {
	out, err := c.execGH(ctx, token, "api", "--paginate", fmt.Sprintf("repos/%s/pulls?state=open", slug(repo)))
	if err != nil {
		return nil, fmt.Errorf("hub: prs for %s: %w", repo, err)
	}
	var raw []prJSON
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("hub: parse prs for %s: %w", repo, err)
	}
	prs := make([]entities.PullRequest, 0, len(raw))
	for _, p := range raw {
		prs = append(prs, entities.PullRequest{
			Head:   entities.Commit{Repo: repo, ID: p.Head.SHA},
			Number: p.Number,
			State:  entities.PROpen,
			Title:  p.Title,
		})
	}
	return prs, nil
}

type refJSON struct {
	Ref    string `json:"ref"`
	Object struct {
		SHA string `json:"sha"`
	} `json:"object"`
}

func (c *CLIClient) Refs(ctx context.Context, token string, repo entities.Repo) ([]entities.Ref, error) {
	out, err := c.execGH(ctx, token, "api", "--paginate", fmt.Sprintf("repos/%s/git/refs", slug(repo)))
	if err != nil {
		return nil, fmt.Errorf("hub: refs for %s: %w", repo, err)
	}
	var raw []refJSON
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("hub: parse refs for %s: %w", repo, err)
	}
	refs := make([]entities.Ref, 0, len(raw))
	for _, r := range raw {
		name := strings.TrimPrefix(r.Ref, "refs/")
		refs = append(refs, entities.Ref{
			Head: entities.Commit{Repo: repo, ID: r.Object.SHA},
			Name: entities.RefName(strings.Split(name, "/")),
		})
	}
	return refs, nil
}

type eventJSON struct {
	Type string `json:"type"`
}

func (c *CLIClient) Events(ctx context.Context, token string, repo entities.Repo) ([]entities.Event, error) {
	out, err := c.execGH(ctx, token, "api", fmt.Sprintf("repos/%s/events", slug(repo)))
	if err != nil {
		return nil, fmt.Errorf("hub: events for %s: %w", repo, err)
	}
	var raw []eventJSON
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("hub: parse events for %s: %w", repo, err)
	}
	events := make([]entities.Event, 0, len(raw))
	for _, e := range raw {
		switch e.Type {
		case "PullRequestEvent":
			events = append(events, entities.Event{Kind: entities.EventPR})
		case "StatusEvent":
			events = append(events, entities.Event{Kind: entities.EventStatus})
		case "PushEvent", "CreateEvent", "DeleteEvent":
			events = append(events, entities.Event{Kind: entities.EventRef})
		default:
			events = append(events, entities.Event{Kind: entities.EventOther, Other: e.Type})
		}
	}
	return events, nil
}

func (c *CLIClient) execGH(ctx context.Context, token string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "gh", args...)
	if token != "" {
		cmd.Env = append(os.Environ(), "GH_TOKEN="+token)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("gh %s: %s", strings.Join(args, " "), strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("gh %s: %w", strings.Join(args, " "), err)
	}
	return out, nil
}

func isNotFound(err error) bool {
	return strings.Contains(err.Error(), "404") || strings.Contains(strings.ToLower(err.Error()), "not found")
}

func slug(r entities.Repo) string {
	return r.User + "/" + r.Name
}

func splitContext(s string) entities.Context {
	if s == "" {
		return entities.Context{}
	}
	return entities.Context(strings.Split(s, "/"))
}

