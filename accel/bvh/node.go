package bvh

import "github.com/polaris-rt/pathtracer/types"

// Bvh nodes are comprised of a bounding box and two multipurpose int32
// parameters whose value depends on the node type:
//
//   - For interior nodes they are both > 0 and point to the L/R child nodes.
//     Children are always stored after their parent so index 0 (the root)
//     can never be a child.
//   - For leafs LData is <= 0 and holds the negated index of the first leaf
//     item while RData contains the number of leaf items.
type Node struct {
	BBox  types.AABB
	LData int32
	RData int32
}

// Returns true if this is a leaf node.
func (n *Node) IsLeaf() bool {
	return n.LData <= 0
}

// Set left and right child node indices.
func (n *Node) SetChildNodes(left, right uint32) {
	n.LData = int32(left)
	n.RData = int32(right)
}

// Get left and right child node indices.
func (n *Node) GetChildNodes() (left, right uint32) {
	return uint32(n.LData), uint32(n.RData)
}

// Set item index and count.
func (n *Node) SetItems(firstItemIndex, count uint32) {
	n.LData = -int32(firstItemIndex)
	n.RData = int32(count)
}

// Get item index and count.
func (n *Node) GetItems() (firstItemIndex, count uint32) {
	return uint32(-n.LData), uint32(n.RData)
}
