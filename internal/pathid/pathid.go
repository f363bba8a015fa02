// Package pathid derives the managed directory layout, per-branch worktree
// identifiers, and repo-relative path validation. It performs no I/O beyond
// what callers pass it; repo-root discovery lives in internal/vcsdriver.
package pathid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/vde-tools/worktree/internal/wterr"
)

// RepoContext is the immutable per-invocation description of where the
// command is running: the main repository root, the linked-worktree common
// dir (when the VCS reports one distinct from repoRoot), and the working
// tree the process was invoked from.
type RepoContext struct {
	RepoRoot              string
	CurrentWorkingTreeRoot string
	VCSCommonDir          string
}

const (
	// DefaultWorktreeRoot is the managed root holding linked working trees.
	DefaultWorktreeRoot = ".worktree"
	// MetaRoot holds all persisted tool state.
	MetaRoot = ".vde/worktree"
)

var slugCollapse = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases a branch name, collapses runs of non-alphanumeric
// characters to a single '-', trims leading/trailing '-', and truncates to
// 48 characters.
func Slug(branch string) string {
	s := strings.ToLower(branch)
	s = slugCollapse.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 48 {
		s = s[:48]
	}
	return s
}

// WorktreeID derives the stable per-branch identifier used for lock and
// lifecycle filenames: slug(branch) + "--" + first 12 hex chars of
// sha256(branch). Falls back to the raw branch name when the slug is empty.
func WorktreeID(branch string) string {
	slug := Slug(branch)
	if slug == "" {
		slug = branch
	}
	sum := sha256.Sum256([]byte(branch))
	return slug + "--" + hex.EncodeToString(sum[:])[:12]
}

// EnsurePathInsideRoot validates that candidate (an absolute path) is
// strictly inside root (also absolute). Returns PATH_OUTSIDE_REPO otherwise.
func EnsurePathInsideRoot(root, candidate string) error {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return wterr.Wrap(wterr.PathOutsideRepo, "path cannot be made relative to root", err)
	}
	if rel == "." {
		return wterr.New(wterr.PathOutsideRepo, "path equals root")
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || strings.HasPrefix(rel, "../") {
		return wterr.New(wterr.PathOutsideRepo, "path escapes managed root: "+candidate)
	}
	return nil
}

// BranchToWorktreePath maps a branch name to its working-tree filesystem
// path under worktreeRoot: forward-slash segments of the branch name become
// directory segments. The result is validated to stay inside worktreeRoot.
func BranchToWorktreePath(worktreeRoot, branch string) (string, error) {
	if branch == "" {
		return "", wterr.New(wterr.InvalidArgument, "branch must not be empty")
	}
	segments := strings.Split(branch, "/")
	parts := append([]string{worktreeRoot}, segments...)
	candidate := filepath.Join(parts...)

	absRoot, err := filepath.Abs(worktreeRoot)
	if err != nil {
		return "", wterr.Wrap(wterr.InternalError, "resolving worktree root", err)
	}
	absCandidate, err := filepath.Abs(candidate)
	if err != nil {
		return "", wterr.Wrap(wterr.InternalError, "resolving candidate path", err)
	}
	if err := EnsurePathInsideRoot(absRoot, absCandidate); err != nil {
		return "", err
	}
	return candidate, nil
}

// ResolveRepoRelativePath rejects absolute or ".."-escaping relative paths,
// returning the cleaned path unchanged otherwise.
func ResolveRepoRelativePath(repoRoot, input string) (string, error) {
	if filepath.IsAbs(input) {
		return "", wterr.New(wterr.PathOutsideRepo, "absolute paths are not allowed: "+input)
	}
	cleaned := filepath.Clean(input)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") || cleaned == "." && strings.HasPrefix(input, "..") {
		return "", wterr.New(wterr.PathOutsideRepo, "path escapes repository root: "+input)
	}
	joined := filepath.Join(repoRoot, cleaned)
	absRoot, err := filepath.Abs(repoRoot)
	if err != nil {
		return "", wterr.Wrap(wterr.InternalError, "resolving repo root", err)
	}
	absJoined, err := filepath.Abs(joined)
	if err != nil {
		return "", wterr.Wrap(wterr.InternalError, "resolving joined path", err)
	}
	if absJoined != absRoot {
		if err := EnsurePathInsideRoot(absRoot, absJoined); err != nil {
			return "", err
		}
	}
	return cleaned, nil
}

// ManagedWorktreeRoot returns the absolute managed worktree root for repoRoot.
func ManagedWorktreeRoot(repoRoot, worktreeRootName string) string {
	if worktreeRootName == "" {
		worktreeRootName = DefaultWorktreeRoot
	}
	return filepath.Join(repoRoot, worktreeRootName)
}

// ManagedMetaRoot returns the absolute metadata root for repoRoot.
func ManagedMetaRoot(repoRoot string) string {
	return filepath.Join(repoRoot, MetaRoot)
}

// LockPath returns the path to a branch's advisory lock file.
func LockPath(repoRoot, branch string) string {
	return filepath.Join(ManagedMetaRoot(repoRoot), "locks", WorktreeID(branch)+".json")
}

// LifecyclePath returns the path to a branch's lifecycle record.
func LifecyclePath(repoRoot, branch string) string {
	return filepath.Join(ManagedMetaRoot(repoRoot), "state", "branches", WorktreeID(branch)+".json")
}

// RepoLockSentinelPath returns the path to the repo-wide mutation sentinel,
// preferring metaRoot/state/repo.lock when metaRoot exists, falling back to
// a path under the VCS private directory otherwise.
func RepoLockSentinelPath(repoRoot, vcsPrivateDir string, metaRootExists bool) string {
	if metaRootExists {
		return filepath.Join(ManagedMetaRoot(repoRoot), "state", "repo.lock")
	}
	return filepath.Join(vcsPrivateDir, "wt.init.lock")
}

// HooksDir returns the directory holding pre/post hook scripts.
func HooksDir(repoRoot string) string {
	return filepath.Join(ManagedMetaRoot(repoRoot), "hooks")
}

// LogsDir returns the directory holding hook invocation logs.
func LogsDir(repoRoot string) string {
	return filepath.Join(ManagedMetaRoot(repoRoot), "logs")
}
