package dijkstra

import "container/heap"

// item is a tentative distance for a node handle. Ordering is total:
// distance, then external node id, then discovery sequence.
type item struct {
	node int
	id   int64
	dist float64
	seq  uint64
}

type queue []item

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	if q[i].id != q[j].id {
		return q[i].id < q[j].id
	}
	return q[i].seq < q[j].seq
}

func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *queue) Push(x any) { *q = append(*q, x.(item)) }

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}

func (q *queue) push(it item) { heap.Push(q, it) }

func (q *queue) pop() item { return heap.Pop(q).(item) }
