package bvh

import (
	"math"
	"time"

	"github.com/polaris-rt/pathtracer/log"
	"github.com/polaris-rt/pathtracer/types"
)

type Axis uint8

const (
	XAxis Axis = iota
	YAxis
	ZAxis

	// The BVH builder will not attempt to calculate split candidates
	// if the node bbox along an axis is less than this threshold.
	minSideLength float32 = 1e-4

	// The number of split candidates evaluated per axis at the root. Deeper
	// nodes evaluate maxSplitCandidates / (depth + 1) candidates.
	maxSplitCandidates = 1024
)

var (
	// A split scoring strategy that uses the surface area heuristic (SAH).
	SurfaceAreaHeuristic = surfaceAreaHeuristic{}
)

// The BoundedVolume interface is implemented by all primitives/instances that
// can be partitioned by the bvh builder.
type BoundedVolume interface {
	BBox() types.AABB
	Center() types.Vec3
}

// A callback that is called whenever the BVH builder creates a new leaf.
type LeafCallback func(leaf *Node, itemList []BoundedVolume)

// A split scoring strategy.
type ScoreStrategy interface {
	// Calculate a score for splitting workList at splitPoint along a particular Axis.
	ScoreSplit(workList []BoundedVolume, splitAxis Axis, splitPoint float32) (leftCount, rightCount int, score float32)

	// Calculate a score for all items in workList.
	ScorePartition(workList []BoundedVolume) (score float32)
}

// Statistics collected while building a BVH tree.
type Stats struct {
	Items     int
	Nodes     int
	Leafs     int
	MaxDepth  int
	BuildTime time.Duration
}

type splitScore struct {
	axis       Axis
	splitPoint float32

	leftCount, rightCount int
	score                 float32
}

// Returns true if s is a better split than other. Ties are resolved using the
// axis and split point so that the selected split never depends on the order
// in which the concurrently computed scores arrive.
func (s *splitScore) betterThan(other *splitScore) bool {
	if s.score != other.score {
		return s.score < other.score
	}
	if s.axis != other.axis {
		return s.axis < other.axis
	}
	return s.splitPoint < other.splitPoint
}

type builder struct {
	logger log.Logger

	// Bvh nodes stored as a contiguous list
	nodes []Node

	// A callback invoked to set up BVH leafs depending on the type of
	// partitioned bounding volume
	leafCb LeafCallback

	// The minimum number of items that are required for creating a leaf.
	minLeafItems int

	// A channel for receiving score results.
	scoreChan chan splitScore

	// The split scoring strategy to use.
	scoreStrategy ScoreStrategy

	stats Stats
}

// Construct a BVH from a set of bounded volumes.
//
// The minLeafItems param should be used to specified the minimum number of
// items that can form a leaf. The BVH builder will automatically generate leafs
// if the incoming work length is <= minLeafItems.
//
// An empty work list produces an empty node list. For the same work list the
// builder always produces the same tree.
func Build(workList []BoundedVolume, minLeafItems int, leafCb LeafCallback, scoreStrategy ScoreStrategy) ([]Node, Stats) {
	b := &builder{
		logger:        log.New("bvh builder"),
		nodes:         make([]Node, 0, 2*len(workList)),
		leafCb:        leafCb,
		minLeafItems:  minLeafItems,
		scoreChan:     make(chan splitScore),
		scoreStrategy: scoreStrategy,
		stats: Stats{
			Items: len(workList),
		},
	}

	if len(workList) == 0 {
		return b.nodes, b.stats
	}

	start := time.Now()
	b.partition(workList, 0)
	b.stats.BuildTime = time.Since(start)
	b.logger.Debugf(
		"BVH tree build time: %d ms, items: %d, maxDepth: %d, nodes: %d, leafs: %d",
		b.stats.BuildTime.Nanoseconds()/1e6,
		b.stats.Items, b.stats.MaxDepth, b.stats.Nodes, b.stats.Leafs,
	)
	return b.nodes, b.stats
}

// Partition worklist and return node index.
func (b *builder) partition(workList []BoundedVolume, depth int) uint32 {
	if depth > b.stats.MaxDepth {
		b.stats.MaxDepth = depth
	}

	node := Node{BBox: types.EmptyAABB()}

	// Calculate bounding box for node
	for _, item := range workList {
		node.BBox = node.BBox.Union(item.BBox())
	}

	// Do we have enough items for partitioning? If not create a leaf
	if len(workList) <= b.minLeafItems {
		return b.createLeaf(&node, workList)
	}

	// Calc current node score
	bestSplit := splitScore{score: b.scoreStrategy.ScorePartition(workList)}
	foundSplit := false

	// Try partioning along each axis and select the split with best score
	pendingScores := 0

	// We want the split steps to become more granular the deeper we go
	numCandidates := maxSplitCandidates / (depth + 1)

	// Run axis split tests in parallel
	side := node.BBox.Size()
	for axis := XAxis; axis <= ZAxis; axis++ {
		// Skip axis if bbox dimension is too small
		if side[axis] < minSideLength {
			continue
		}

		for candidate := 1; candidate < numCandidates; candidate++ {
			splitPoint := node.BBox[0][axis] + side[axis]*float32(candidate)/float32(numCandidates)
			pendingScores++
			go func(axis Axis, splitPoint float32) {
				lCount, rCount, score := b.scoreStrategy.ScoreSplit(workList, axis, splitPoint)
				b.scoreChan <- splitScore{
					axis:       axis,
					splitPoint: splitPoint,

					leftCount:  lCount,
					rightCount: rCount,
					score:      score,
				}
			}(axis, splitPoint)
		}
	}

	// Process all scores and pick the best split
	for ; pendingScores > 0; pendingScores-- {
		candidate := <-b.scoreChan
		if candidate.score >= math.MaxFloat32 {
			continue
		}
		if !foundSplit && candidate.score < bestSplit.score || foundSplit && candidate.betterThan(&bestSplit) {
			bestSplit = candidate
			foundSplit = true
		}
	}

	// If we can't find a split that improves the current node score create a leaf
	if !foundSplit {
		return b.createLeaf(&node, workList)
	}

	// split work list into two sets
	leftWorkList := make([]BoundedVolume, 0, bestSplit.leftCount)
	rightWorkList := make([]BoundedVolume, 0, bestSplit.rightCount)
	for _, item := range workList {
		center := item.Center()
		if center[bestSplit.axis] < bestSplit.splitPoint {
			leftWorkList = append(leftWorkList, item)
		} else {
			rightWorkList = append(rightWorkList, item)
		}
	}

	// Add node to list
	nodeIndex := len(b.nodes)
	b.nodes = append(b.nodes, node)
	b.stats.Nodes++

	// Partition children and update node indices
	leftNodeIndex := b.partition(leftWorkList, depth+1)
	rightNodeIndex := b.partition(rightWorkList, depth+1)
	b.nodes[nodeIndex].SetChildNodes(leftNodeIndex, rightNodeIndex)

	return uint32(nodeIndex)
}

// Setup the given node item as a leaf node containing all items in the work list.
// Returns the index to the node in the bvh node array.
func (b *builder) createLeaf(node *Node, workList []BoundedVolume) uint32 {
	b.leafCb(node, workList)

	// append node to list
	nodeIndex := len(b.nodes)
	b.nodes = append(b.nodes, *node)

	b.stats.Nodes++
	b.stats.Leafs++

	return uint32(nodeIndex)
}

// A score implementation that uses surface area heuristic for calculating split scores.
type surfaceAreaHeuristic struct{}

// Score a BVH split based on the surface area heuristic. The SAH calculates
// the split score using the formula (lower score is better):
//
// left count * left BBOX area + rightCount * right BBOX area.
//
// SAH avoids splits that generate empty partitions by assigning the worst
// possible score (MaxFloat32) when it enounters such cases.
func (h surfaceAreaHeuristic) ScoreSplit(workList []BoundedVolume, axis Axis, splitPoint float32) (leftCount, rightCount int, score float32) {
	lbox := types.EmptyAABB()
	rbox := types.EmptyAABB()

	for _, item := range workList {
		center := item.Center()
		if center[axis] < splitPoint {
			leftCount++
			lbox = lbox.Union(item.BBox())
		} else {
			rightCount++
			rbox = rbox.Union(item.BBox())
		}
	}

	// Make sure that we don't generate empty partitions
	if leftCount == 0 || rightCount == 0 {
		return leftCount, rightCount, math.MaxFloat32
	}

	score = float32(leftCount)*halfArea(lbox) + float32(rightCount)*halfArea(rbox)
	return leftCount, rightCount, score
}

// Calculate score for a partitioned workList using formula:
// count * BBOX area
//
// If the workList is empty, then this method returns the worst possible
// score (MaxFloat32).
func (h surfaceAreaHeuristic) ScorePartition(workList []BoundedVolume) (score float32) {
	if len(workList) == 0 {
		return math.MaxFloat32
	}

	box := types.EmptyAABB()
	for _, item := range workList {
		box = box.Union(item.BBox())
	}

	return float32(len(workList)) * halfArea(box)
}

func halfArea(b types.AABB) float32 {
	return 0.5 * b.SurfaceArea()
}
