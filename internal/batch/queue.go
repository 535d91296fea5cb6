package batch

import (
	"container/heap"

	"github.com/tanadol/reelforge/internal/models"
)

// queuedJob is a heap entry. seq preserves submission order so equal
// priorities dispatch first-in first-out.
type queuedJob struct {
	job      *models.BatchJob
	priority int
	seq      uint64
	index    int
}

// jobQueue is a max-heap over job priority. A job's priority is the highest
// priority among its pending items at submission time.
type jobQueue []*queuedJob

func (q jobQueue) Len() int { return len(q) }

func (q jobQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority > q[j].priority
	}
	return q[i].seq < q[j].seq
}

func (q jobQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *jobQueue) Push(x any) {
	entry := x.(*queuedJob)
	entry.index = len(*q)
	*q = append(*q, entry)
}

func (q *jobQueue) Pop() any {
	old := *q
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	entry.index = -1
	*q = old[:n-1]
	return entry
}

func (q *jobQueue) push(job *models.BatchJob, priority int, seq uint64) {
	heap.Push(q, &queuedJob{job: job, priority: priority, seq: seq})
}

func (q *jobQueue) pop() *models.BatchJob {
	if q.Len() == 0 {
		return nil
	}
	return heap.Pop(q).(*queuedJob).job
}
