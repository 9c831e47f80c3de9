package nav

import "container/heap"

// nodeHeap is a binary min-heap of arena indices ordered by F, then H.
// Each queued node records its heap position so relaxed nodes can be
// re-prioritised in place.
type nodeHeap struct {
	nodes []PathNode
	items []int
}

func newNodeHeap(nodes []PathNode) *nodeHeap {
	return &nodeHeap{nodes: nodes, items: make([]int, 0, 64)}
}

func (h *nodeHeap) Len() int { return len(h.items) }

func (h *nodeHeap) Less(i, j int) bool {
	a := &h.nodes[h.items[i]]
	b := &h.nodes[h.items[j]]
	fa, fb := a.F(), b.F()
	if fa == fb {
		return a.H < b.H
	}
	return fa < fb
}

func (h *nodeHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.nodes[h.items[i]].heapIndex = i
	h.nodes[h.items[j]].heapIndex = j
}

func (h *nodeHeap) Push(x any) {
	idx := x.(int)
	h.nodes[idx].heapIndex = len(h.items)
	h.items = append(h.items, idx)
}

func (h *nodeHeap) Pop() any {
	n := len(h.items)
	idx := h.items[n-1]
	h.items = h.items[:n-1]
	h.nodes[idx].heapIndex = -1
	return idx
}

// insert queues a node.
func (h *nodeHeap) insert(idx int) {
	heap.Push(h, idx)
}

// popMin removes and returns the node with the lowest F.
func (h *nodeHeap) popMin() int {
	return heap.Pop(h).(int)
}

// update restores heap order after a queued node's cost decreased.
func (h *nodeHeap) update(idx int) {
	if i := h.nodes[idx].heapIndex; i >= 0 {
		heap.Fix(h, i)
	}
}

// contains reports whether a node is currently queued.
func (h *nodeHeap) contains(idx int) bool {
	return h.nodes[idx].heapIndex >= 0
}
