package alarm

import "container/heap"

// pendingList is the deadline-ordered container of currently-armed
// alarms. It is implemented as a binary heap rather than an intrusive
// linked list, generalized to support removal of an arbitrary element by
// index rather than just peeking or popping the minimum.
//
// Ties (equal deadlines) are broken by insertion sequence number, so
// insertion order is preserved without the heap ever needing to
// special-case equal keys.
type pendingList struct {
	items []*Alarm
	seq   []uint64 // parallel to items; insertion sequence for tie-breaking
	next  uint64
}

func newPendingList() *pendingList {
	return &pendingList{}
}

func (p *pendingList) Len() int { return len(p.items) }

func (p *pendingList) Less(i, j int) bool {
	if p.items[i].deadlineMS != p.items[j].deadlineMS {
		return p.items[i].deadlineMS < p.items[j].deadlineMS
	}
	return p.seq[i] < p.seq[j]
}

func (p *pendingList) Swap(i, j int) {
	p.items[i], p.items[j] = p.items[j], p.items[i]
	p.seq[i], p.seq[j] = p.seq[j], p.seq[i]
	p.items[i].pendingIndex = i
	p.items[j].pendingIndex = j
}

func (p *pendingList) Push(x any) {
	a := x.(*Alarm)
	a.pendingIndex = len(p.items)
	p.items = append(p.items, a)
	p.seq = append(p.seq, p.next)
	p.next++
}

func (p *pendingList) Pop() any {
	n := len(p.items)
	a := p.items[n-1]
	p.items[n-1] = nil
	p.items = p.items[:n-1]
	p.seq = p.seq[:n-1]
	a.pendingIndex = -1
	return a
}

// insert arms a into the list, in heap order. a.deadlineMS must already be
// set by the caller.
func (p *pendingList) insert(a *Alarm) {
	heap.Push(p, a)
}

// remove detaches a from the list if present. No-op if a is not currently
// in the list.
func (p *pendingList) remove(a *Alarm) {
	if a.pendingIndex < 0 || a.pendingIndex >= len(p.items) || p.items[a.pendingIndex] != a {
		return
	}
	heap.Remove(p, a.pendingIndex)
}

// front returns the earliest-deadline alarm, or nil if the list is empty.
func (p *pendingList) front() *Alarm {
	if len(p.items) == 0 {
		return nil
	}
	return p.items[0]
}

// isEmpty reports whether the list has no armed alarms.
func (p *pendingList) isEmpty() bool {
	return len(p.items) == 0
}

// popFront removes and returns the earliest-deadline alarm.
func (p *pendingList) popFront() *Alarm {
	if p.isEmpty() {
		return nil
	}
	return heap.Pop(p).(*Alarm)
}
