package main

import (
	"container/heap"
	"time"
)

// Task keys. Per-session keys are suffixed with the connection id.
const (
	taskGrace     = "grace:"
	taskRespawn   = "respawn:"
	taskSweep     = "sweep"
	taskHeartbeat = "heartbeat"
)

type task struct {
	key   string
	at    time.Time
	seq   uint64
	fn    func(now time.Time)
	index int
}

type taskHeap []*task

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}
func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *taskHeap) Push(x any) {
	t := x.(*task)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// Scheduler holds keyed one-shot tasks. It does not run anything on its own:
// the owner calls RunDue from its loop, so tasks never run concurrently with
// event handling.
type Scheduler struct {
	tasks taskHeap
	byKey map[string]*task
	seq   uint64
}

// NewScheduler creates an empty scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{byKey: make(map[string]*task)}
}

// Schedule registers fn to run at the given time, replacing any task with the same key
func (s *Scheduler) Schedule(key string, at time.Time, fn func(now time.Time)) {
	s.Cancel(key)
	s.seq++
	t := &task{key: key, at: at, seq: s.seq, fn: fn}
	heap.Push(&s.tasks, t)
	s.byKey[key] = t
}

// Cancel forgets the task with the given key
func (s *Scheduler) Cancel(key string) bool {
	t, ok := s.byKey[key]
	if !ok {
		return false
	}
	heap.Remove(&s.tasks, t.index)
	delete(s.byKey, key)
	return true
}

// Pending reports whether a task with the given key is scheduled
func (s *Scheduler) Pending(key string) bool {
	_, ok := s.byKey[key]
	return ok
}

// Len returns the number of scheduled tasks
func (s *Scheduler) Len() int {
	return len(s.tasks)
}

// RunDue runs every task due at or before now, in deadline order. Tasks
// scheduled by a running task are eligible in the same call if already due.
func (s *Scheduler) RunDue(now time.Time) int {
	n := 0
	for len(s.tasks) > 0 && !s.tasks[0].at.After(now) {
		t := heap.Pop(&s.tasks).(*task)
		delete(s.byKey, t.key)
		t.fn(now)
		n++
	}
	return n
}
