package bvh

import (
	"runtime"
	"time"

	"github.com/achilleasa/qbvh/types"
	"golang.org/x/sync/errgroup"
)

// A range that is completed independently of the others during a
// scheduled build. It owns the points in [Start, Start+Length) and the
// node indices in [FirstNodeIndex, NodeLimit).
type Branch struct {
	Range

	FirstNodeIndex int32
	NodeLimit      int32
}

// BuildJob tracks a scheduled build. The tree must not be read until
// Complete returns.
type BuildJob struct {
	tree      *Tree
	aabbs     []types.Aabb
	heuristic SplitHeuristic

	branches []Branch
	offsets  [MaxNumTreeBranches]int32

	// One past the last node allocated while growing the first levels.
	backboneLimit int32
	usedNodes     []int32

	group     *errgroup.Group
	startedAt time.Time
	nodeCount int
	completed bool
}

// Split the build into up to MaxNumTreeBranches independent branches and
// start completing them in the background using at most workers
// goroutines. A non-positive workers value selects GOMAXPROCS.
//
// points is reordered in place and must not be touched until Complete
// returns. The tree must hold at least NodeCapacity(len(aabbs)) nodes.
func (t *Tree) ScheduleBuild(points []PointAndIndex, aabbs []types.Aabb, heuristic SplitHeuristic, workers int) *BuildJob {
	checkBuildInput(points, aabbs)

	job := &BuildJob{
		tree:      t,
		aabbs:     aabbs,
		heuristic: heuristic,
		group:     new(errgroup.Group),
		startedAt: time.Now(),
	}
	for i := range job.offsets {
		job.offsets[i] = -1
	}

	t.Nodes[0] = EmptyNode()
	t.Nodes[rootNodeIndex] = EmptyNode()
	if len(aabbs) == 0 {
		job.backboneLimit = rootNodeIndex + 1
		return job
	}

	b := newBuilder(t.Nodes, points, aabbs, heuristic, rootNodeIndex+1, int32(len(t.Nodes)))
	levels := b.buildFirstNLevels(Range{
		Start:  0,
		Length: len(points),
		Root:   rootNodeIndex,
		Domain: b.pointDomain(&Range{Start: 0, Length: len(points)}),
	})
	job.backboneLimit = b.freeNodeIndex
	job.assignNodeWindows(levels)

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	job.group.SetLimit(workers)
	job.usedNodes = make([]int32, len(job.branches))
	for index := range job.branches {
		index := index
		job.group.Go(func() error {
			job.usedNodes[index] = job.completeBranch(points, &job.branches[index])
			return nil
		})
	}

	return job
}

// Get the branches produced by the first build phase sorted by
// descending primitive count.
func (j *BuildJob) Branches() []Branch {
	return j.branches
}

// Get the first free node index of each branch. Unused entries are -1.
func (j *BuildJob) BranchNodeOffsets() [MaxNumTreeBranches]int32 {
	return j.offsets
}

// Wait for all branches to complete, refit the nodes above them and
// return the number of nodes used by the tree.
func (j *BuildJob) Complete() int {
	if j.completed {
		return j.nodeCount
	}

	// Branch workers never return errors; a failed contract check panics.
	_ = j.group.Wait()

	if len(j.aabbs) == 0 {
		j.nodeCount = 2
		j.completed = true
		return j.nodeCount
	}

	backboneLast := j.backboneLimit
	nodeCount := j.backboneLimit
	for index, branch := range j.branches {
		backboneLast = min(backboneLast, branch.FirstNodeIndex)
		nodeCount = max(nodeCount, j.usedNodes[index])
	}
	j.tree.Refit(j.aabbs, int(rootNodeIndex), int(backboneLast)-1)

	j.nodeCount = int(nodeCount)
	j.completed = true

	buildLogger.Debugf(
		"built %s tree for %d primitives in %d ms (%d nodes, %d branches)",
		j.heuristic, len(j.aabbs), time.Since(j.startedAt).Nanoseconds()/1e6, j.nodeCount, len(j.branches),
	)
	return j.nodeCount
}

// Build a tree using a scheduled build and wait for it to complete.
func (t *Tree) BuildParallel(points []PointAndIndex, aabbs []types.Aabb, heuristic SplitHeuristic, workers int) int {
	return t.ScheduleBuild(points, aabbs, heuristic, workers).Complete()
}

// Grow the branch subtree inside its node window and return one past the
// last node index it used.
func (j *BuildJob) completeBranch(points []PointAndIndex, branch *Branch) int32 {
	b := newBuilder(j.tree.Nodes, points, j.aabbs, j.heuristic, branch.FirstNodeIndex, branch.NodeLimit)
	b.build(branch.Range)

	j.tree.Refit(j.aabbs, int(branch.FirstNodeIndex), int(b.freeNodeIndex)-1)
	j.tree.RefitNode(int(branch.Root))

	// Nodes left over in the window may hold stale data from a previous build.
	empty := EmptyNode()
	for index := b.freeNodeIndex; index < branch.NodeLimit; index++ {
		j.tree.Nodes[index] = empty
	}
	return b.freeNodeIndex
}

// Sort the branches by descending length and hand out consecutive node
// windows starting after the backbone. A subtree over L primitives never
// needs more than 2L-1 nodes below its root so each window holds 2L nodes.
func (j *BuildJob) assignNodeWindows(levels []Range) {
	j.branches = make([]Branch, len(levels))
	for index, r := range levels {
		j.branches[index] = Branch{Range: r}
	}
	sortBranches(j.branches)

	offset := j.backboneLimit
	for index := range j.branches {
		branch := &j.branches[index]
		branch.FirstNodeIndex = offset
		branch.NodeLimit = offset + int32(2*branch.Length)
		j.offsets[index] = offset
		offset = branch.NodeLimit
	}
}

// Insertion-sort branches by descending length. Equal lengths keep their
// discovery order.
func sortBranches(branches []Branch) {
	for i := 1; i < len(branches); i++ {
		value := branches[i]
		j := i
		for j > 0 && branches[j-1].Length < value.Length {
			branches[j] = branches[j-1]
			j--
		}
		branches[j] = value
	}
}

// Split ranges level by level until no range qualifies for splitting or
// the branch budget would be exceeded. The returned ranges have their
// root node allocated and become the build branches. Ranges with at most
// 4 items are packed into leaves right away and are not returned.
func (b *builder) buildFirstNLevels(base Range) []Range {
	current := newRangeStack(MaxNumTreeBranches)
	next := newRangeStack(MaxNumTreeBranches)

	if base.Length <= 4 {
		b.createChildren([]Range{base}, base.Root, &next)
		return nil
	}

	current.push(base)
	for level := 0; ; level++ {
		next.reset()
		split := false
		largest := 0

		for index, r := range current.items {
			remaining := current.len() - index - 1
			canSplit := r.Depth <= MaxTreeDepth &&
				r.Length > SmallRangeSize &&
				next.len()+remaining+4 <= MaxNumTreeBranches
			if !canSplit {
				next.push(r)
				largest = max(largest, r.Length)
				continue
			}

			subRanges := b.processLargeRange(&r)
			b.createChildren(subRanges[:], r.Root, &next)
			for _, sub := range subRanges {
				largest = max(largest, sub.Length)
			}
			split = true
		}

		current, next = next, current
		buildLogger.Debugf("level %d: %d ranges, largest range %d", level, current.len(), largest)
		if !split || largest <= SmallRangeSize {
			break
		}
	}

	return append([]Range(nil), current.items...)
}
