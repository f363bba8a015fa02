package vcsdriver

import (
	"context"
	"regexp"
	"strings"
)

// Worktree is one entry from `git worktree list --porcelain`.
type Worktree struct {
	Path     string
	Head     string
	Branch   string // "" when detached
	Detached bool
}

// ListWorktrees parses the null-separated `git worktree list --porcelain -z`
// stream. Records begin at "worktree <path>" and close on an empty token;
// "HEAD <oid>" and "branch <full-ref>" attach to the current record, and the
// literal token "detached" marks branchless entries. Token-based rather
// than line-based, since the -z form null-separates fields instead of
// newline-separating them.
func (d *Driver) ListWorktrees(ctx context.Context, repoRoot string) ([]Worktree, error) {
	res, err := d.Run(ctx, repoRoot, []string{"worktree", "list", "--porcelain", "-z"}, true)
	if err != nil {
		return nil, err
	}

	var out []Worktree
	var cur *Worktree
	flush := func() {
		if cur != nil {
			out = append(out, *cur)
			cur = nil
		}
	}

	for _, tok := range strings.Split(res.Stdout, "\x00") {
		switch {
		case tok == "":
			flush()
		case strings.HasPrefix(tok, "worktree "):
			flush()
			cur = &Worktree{Path: strings.TrimPrefix(tok, "worktree ")}
		case strings.HasPrefix(tok, "HEAD "):
			if cur != nil {
				cur.Head = strings.TrimPrefix(tok, "HEAD ")
			}
		case strings.HasPrefix(tok, "branch "):
			if cur != nil {
				full := strings.TrimPrefix(tok, "branch ")
				cur.Branch = strings.TrimPrefix(full, "refs/heads/")
			}
		case tok == "detached":
			if cur != nil {
				cur.Detached = true
			}
		}
	}
	flush()
	return out, nil
}

// AddWorktree runs `git worktree add [-b newBranch] path startPoint`.
func (d *Driver) AddWorktree(ctx context.Context, repoRoot, path, branch, startPoint string, createBranch bool) error {
	args := []string{"worktree", "add"}
	if createBranch {
		args = append(args, "-b", branch)
		args = append(args, path)
		if startPoint != "" {
			args = append(args, startPoint)
		}
	} else {
		args = append(args, path, branch)
	}
	_, err := d.Run(ctx, repoRoot, args, true)
	return err
}

// RemoveWorktree runs `git worktree remove [--force] path`.
func (d *Driver) RemoveWorktree(ctx context.Context, repoRoot, path string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, path)
	_, err := d.Run(ctx, repoRoot, args, true)
	return err
}

// MoveWorktree runs `git worktree move oldPath newPath`.
func (d *Driver) MoveWorktree(ctx context.Context, repoRoot, oldPath, newPath string) error {
	_, err := d.Run(ctx, repoRoot, []string{"worktree", "move", oldPath, newPath}, true)
	return err
}

// RenameBranch runs `git branch -m old new` in cwd.
func (d *Driver) RenameBranch(ctx context.Context, cwd, oldName, newName string) error {
	_, err := d.Run(ctx, cwd, []string{"branch", "-m", oldName, newName}, true)
	return err
}

// DeleteBranch runs `git branch -d|-D name`.
func (d *Driver) DeleteBranch(ctx context.Context, repoRoot, name string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	_, err := d.Run(ctx, repoRoot, []string{"branch", flag, name}, true)
	return err
}

// Checkout runs `git checkout [--ignore-other-worktrees] ref` in cwd.
func (d *Driver) Checkout(ctx context.Context, cwd, ref string, ignoreOtherWorktrees bool) error {
	args := []string{"checkout"}
	if ignoreOtherWorktrees {
		args = append(args, "--ignore-other-worktrees")
	}
	args = append(args, ref)
	_, err := d.Run(ctx, cwd, args, true)
	return err
}

// StashPush runs `git stash push -m message` in cwd. Returns true if a
// stash was actually created (false when the tree was already clean).
func (d *Driver) StashPush(ctx context.Context, cwd, message string) (bool, error) {
	res, err := d.Run(ctx, cwd, []string{"stash", "push", "-m", message}, true)
	if err != nil {
		return false, err
	}
	return !strings.Contains(res.Stdout, "No local changes to save"), nil
}

// StashPop runs `git stash pop` in cwd.
func (d *Driver) StashPop(ctx context.Context, cwd string) error {
	_, err := d.Run(ctx, cwd, []string{"stash", "pop"}, true)
	return err
}

// Upstream describes a branch's tracking remote and ahead/behind distance.
type Upstream struct {
	Remote string
	Ahead  *int
	Behind *int
}

// ResolveUpstream returns the @{upstream} ref name and ahead/behind counts
// for branch in cwd. Any probe failure yields nil scalars.
func (d *Driver) ResolveUpstream(ctx context.Context, cwd, branch string) *Upstream {
	ref, err := d.Run(ctx, cwd, []string{"rev-parse", "--abbrev-ref", branch + "@{upstream}"}, false)
	if err != nil || ref.ExitCode != 0 {
		return &Upstream{}
	}
	remote := strings.TrimSpace(ref.Stdout)

	counts, err := d.Run(ctx, cwd, []string{"rev-list", "--left-right", "--count", branch + "..." + remote}, false)
	if err != nil || counts.ExitCode != 0 {
		return &Upstream{Remote: remote}
	}
	fields := strings.Fields(strings.TrimSpace(counts.Stdout))
	if len(fields) != 2 {
		return &Upstream{Remote: remote}
	}
	ahead := parseIntOrNil(fields[0])
	behind := parseIntOrNil(fields[1])
	return &Upstream{Remote: remote, Ahead: ahead, Behind: behind}
}

func parseIntOrNil(s string) *int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return nil
		}
		n = n*10 + int(c-'0')
	}
	return &n
}

var reflogWorkEntry = regexp.MustCompile(`^(commit(?:\s\([^)]*\))?|cherry-pick|revert|rebase \(pick\)|merge):`)

// ReflogWorkHeads scans `git reflog` for branch and returns, in order, the
// commit ids of entries whose message matches a work-creating action
// (commit, cherry-pick, revert, rebase pick, merge).
func (d *Driver) ReflogWorkHeads(ctx context.Context, cwd, branch string) ([]string, error) {
	res, err := d.Run(ctx, cwd, []string{"reflog", "show", branch, "--format=%H\t%gs"}, true)
	if err != nil {
		return nil, err
	}
	var heads []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			continue
		}
		if reflogWorkEntry.MatchString(parts[1]) {
			heads = append(heads, parts[0])
		}
	}
	return heads, nil
}

// FetchBranch runs `git fetch remote branch` in repoRoot.
func (d *Driver) FetchBranch(ctx context.Context, repoRoot, remote, branch string) error {
	_, err := d.Run(ctx, repoRoot, []string{"fetch", remote, branch}, true)
	return err
}

// RemoteExists checks whether remote is configured.
func (d *Driver) RemoteExists(ctx context.Context, repoRoot, remote string) bool {
	res, err := d.Run(ctx, repoRoot, []string{"remote", "get-url", remote}, false)
	return err == nil && res.ExitCode == 0
}

// CreateTrackingBranch runs `git branch --track local remote/branch`.
func (d *Driver) CreateTrackingBranch(ctx context.Context, repoRoot, local, remoteRef string) error {
	_, err := d.Run(ctx, repoRoot, []string{"branch", "--track", local, remoteRef}, true)
	return err
}
