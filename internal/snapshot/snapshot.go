// Package snapshot gathers every managed working tree's derived facets
// (dirty, lock, merged, PR, upstream) in parallel, reconciling three
// independent evidence sources into a single merge verdict. This is the
// coordination centerpiece of the tool.
package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/vde-tools/worktree/internal/lifecycle"
	"github.com/vde-tools/worktree/internal/lockrecord"
	"github.com/vde-tools/worktree/internal/prstatus"
	"github.com/vde-tools/worktree/internal/vcsdriver"
)

// Tri is a tri-state boolean: true, false, or unknown (nil).
type Tri = *bool

func triTrue() Tri  { v := true; return &v }
func triFalse() Tri { v := false; return &v }

// LockFacet is a working tree's advisory lock state.
type LockFacet struct {
	Value  bool
	Reason string
	Owner  string
}

// UpstreamFacet is a working tree's tracking-branch distance.
type UpstreamFacet struct {
	Ahead  *int
	Behind *int
	Remote string
}

// PRFacet is a working tree's pull-request status.
type PRFacet struct {
	Status string
	URL    string
}

// MergedFacet is the reconciled three-way merge verdict.
type MergedFacet struct {
	ByAncestry  Tri
	ByPR        Tri
	ByLifecycle Tri
	Overall     Tri
}

// Status bundles one working tree with its derived facets.
type Status struct {
	vcsdriver.Worktree
	Dirty    bool
	Lock     LockFacet
	Upstream UpstreamFacet
	PR       PRFacet
	Merged   MergedFacet
}

// Options configures one snapshot collection.
type Options struct {
	BaseBranch string
	GhEnabled  bool
	NoGh       bool
}

// Snapshot is the full fleet view at one point in time.
type Snapshot struct {
	RepoRoot   string
	BaseBranch string
	Worktrees  []Status
}

// Dependencies lets callers substitute fakes in tests.
type Dependencies struct {
	VCS *vcsdriver.Driver
	PR  *prstatus.Resolver
	Now func() time.Time
}

// Collect gathers the full fleet snapshot: every managed working tree's
// path/branch pair plus its dirty/lock/merged/PR/upstream facets.
func Collect(ctx context.Context, repoRoot string, opts Options, deps Dependencies) (*Snapshot, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	trees, err := deps.VCS.ListWorktrees(ctx, repoRoot)
	if err != nil {
		return nil, err
	}

	branches := make([]string, 0, len(trees))
	for _, t := range trees {
		if t.Branch != "" && t.Branch != opts.BaseBranch {
			branches = append(branches, t.Branch)
		}
	}

	prEnabled := opts.GhEnabled && !opts.NoGh
	prMap := deps.PR.ResolvePrStateByBranchBatch(ctx, prstatus.Params{
		RepoRoot:   repoRoot,
		BaseBranch: opts.BaseBranch,
		Branches:   branches,
		Enabled:    prEnabled,
	})

	statuses := make([]Status, len(trees))
	var wg sync.WaitGroup
	for i, t := range trees {
		wg.Add(1)
		go func(i int, t vcsdriver.Worktree) {
			defer wg.Done()
			statuses[i] = collectOne(ctx, repoRoot, t, opts, deps, prMap)
		}(i, t)
	}
	wg.Wait()

	return &Snapshot{RepoRoot: repoRoot, BaseBranch: opts.BaseBranch, Worktrees: statuses}, nil
}

func collectOne(ctx context.Context, repoRoot string, t vcsdriver.Worktree, opts Options, deps Dependencies, prMap map[string]prstatus.Info) Status {
	s := Status{Worktree: t}

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		out, err := deps.VCS.Status(ctx, t.Path)
		s.Dirty = err == nil && out != ""
	}()

	go func() {
		defer wg.Done()
		s.Lock = collectLock(repoRoot, t.Branch)
	}()

	go func() {
		defer wg.Done()
		if t.Branch != "" {
			up := deps.VCS.ResolveUpstream(ctx, t.Path, t.Branch)
			s.Upstream = UpstreamFacet{Ahead: up.Ahead, Behind: up.Behind, Remote: up.Remote}
		}
	}()

	wg.Wait()

	if t.Branch == "" || t.Branch == opts.BaseBranch {
		s.PR = PRFacet{}
	} else if info, ok := prMap[t.Branch]; ok {
		s.PR = PRFacet{Status: string(info.Status), URL: info.URL}
	} else {
		s.PR = PRFacet{Status: string(prstatus.StatusNone)}
	}

	if t.Branch != "" && t.Branch != opts.BaseBranch && opts.BaseBranch != "" {
		s.Merged = resolveMerged(ctx, repoRoot, t, opts.BaseBranch, s.PR, deps)
	}

	return s
}

func collectLock(repoRoot, branch string) LockFacet {
	if branch == "" {
		return LockFacet{}
	}
	rec, valid, err := lockrecord.Read(repoRoot, branch)
	if err != nil {
		return LockFacet{}
	}
	if !valid {
		return LockFacet{Value: true, Reason: "invalid lock metadata", Owner: ""}
	}
	if rec == nil {
		return LockFacet{}
	}
	return LockFacet{Value: true, Reason: rec.Reason, Owner: rec.Owner}
}

// resolveMerged reconciles ancestry, PR status, and lifecycle evidence into
// one merged verdict for a working tree's branch.
func resolveMerged(ctx context.Context, repoRoot string, t vcsdriver.Worktree, baseBranch string, pr PRFacet, deps Dependencies) MergedFacet {
	byAncestry := ancestryVerdict(ctx, repoRoot, baseBranch, t.Branch, deps)
	byPR := prVerdict(pr)

	byLifecycle := lifecycleVerdict(ctx, repoRoot, t, baseBranch, byAncestry, byPR, deps)

	overall := resolveMergedOverall(byAncestry, byPR, byLifecycle)
	return MergedFacet{ByAncestry: byAncestry, ByPR: byPR, ByLifecycle: byLifecycle, Overall: overall}
}

func ancestryVerdict(ctx context.Context, repoRoot, baseBranch, branch string, deps Dependencies) Tri {
	val, ok := deps.VCS.IsAncestor(ctx, repoRoot, branch, baseBranch)
	if !ok {
		return nil
	}
	if val {
		return triTrue()
	}
	return triFalse()
}

func prVerdict(pr PRFacet) Tri {
	switch prstatus.Status(pr.Status) {
	case prstatus.StatusMerged:
		return triTrue()
	case prstatus.StatusNone, prstatus.StatusOpen, prstatus.StatusClosedUnmerged:
		return triFalse()
	default:
		return nil
	}
}

func lifecycleVerdict(ctx context.Context, repoRoot string, t vcsdriver.Worktree, baseBranch string, byAncestry, byPR Tri, deps Dependencies) Tri {
	if baseBranch == "" {
		return nil
	}

	var observed *string
	if byAncestry != nil && !*byAncestry {
		head := t.Head
		observed = &head
	}
	if _, err := lifecycle.Upsert(repoRoot, t.Branch, baseBranch, observed, deps.Now()); err != nil {
		// Non-fatal: lifecycle persistence failure degrades this facet to
		// unknown rather than aborting the whole snapshot.
		return nil
	}

	switch {
	case byAncestry != nil && !*byAncestry:
		return triFalse()
	case byAncestry != nil && *byAncestry:
		rec, rerr := lifecycle.Read(repoRoot, t.Branch)
		if rerr == nil && rec != nil && rec.EverDiverged && rec.LastDivergedHead != nil {
			val, ok := deps.VCS.IsAncestor(ctx, repoRoot, *rec.LastDivergedHead, baseBranch)
			if !ok {
				return nil
			}
			if val {
				return triTrue()
			}
			return triFalse()
		}
		if byPR != nil && *byPR {
			return nil
		}
		return scanReflogForDivergence(ctx, repoRoot, t, baseBranch, deps)
	default:
		return nil
	}
}

// scanReflogForDivergence implements the reflog fallback: the first
// reflog-referenced head contained in base yields merged=true; a probe
// error yields unknown with the latest work head still recorded; exhausting
// without a true yields merged=false.
func scanReflogForDivergence(ctx context.Context, repoRoot string, t vcsdriver.Worktree, baseBranch string, deps Dependencies) Tri {
	heads, err := deps.VCS.ReflogWorkHeads(ctx, repoRoot, t.Branch)
	if err != nil {
		return nil
	}
	if len(heads) == 0 {
		return triFalse()
	}

	var verdict Tri
	var divergedHead *string
	for _, head := range heads {
		val, ok := deps.VCS.IsAncestor(ctx, repoRoot, head, baseBranch)
		if !ok {
			h := head
			divergedHead = &h
			verdict = nil
			break
		}
		if val {
			h := head
			divergedHead = &h
			verdict = triTrue()
			break
		}
	}
	if divergedHead == nil {
		h := heads[0]
		divergedHead = &h
		if verdict == nil {
			verdict = triFalse()
		}
	}

	if divergedHead != nil {
		_, _ = lifecycle.Upsert(repoRoot, t.Branch, baseBranch, divergedHead, deps.Now())
	}
	return verdict
}

// resolveMergedOverall applies the merge-decision precedence rule: true iff
// byPR or byLifecycle is true; false iff any of byAncestry/byPR/byLifecycle
// is false (a single false overrides everything except a true from
// PR/lifecycle); unknown otherwise.
func resolveMergedOverall(byAncestry, byPR, byLifecycle Tri) Tri {
	if byPR != nil && *byPR {
		return triTrue()
	}
	if byLifecycle != nil && *byLifecycle {
		return triTrue()
	}
	if byAncestry != nil && !*byAncestry {
		return triFalse()
	}
	if byPR != nil && !*byPR {
		return triFalse()
	}
	if byLifecycle != nil && !*byLifecycle {
		return triFalse()
	}
	return nil
}
