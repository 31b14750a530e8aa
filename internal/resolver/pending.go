// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package resolver

// pendingSet is an insertion-ordered set of record IDs waiting for the pump. It is not
// safe for concurrent use; the Resolver guards it with its mutex.
type pendingSet struct {
	order []string
	index map[string]struct{}
}

func newPendingSet() *pendingSet {
	return &pendingSet{index: make(map[string]struct{})}
}

// add enqueues id unless it is already pending and reports whether it was added.
func (p *pendingSet) add(id string) bool {
	if _, ok := p.index[id]; ok {
		return false
	}
	p.index[id] = struct{}{}
	p.order = append(p.order, id)
	return true
}

func (p *pendingSet) contains(id string) bool {
	_, ok := p.index[id]
	return ok
}

// take removes and returns up to n IDs in insertion order.
func (p *pendingSet) take(n int) []string {
	if n > len(p.order) {
		n = len(p.order)
	}
	if n <= 0 {
		return nil
	}
	ids := make([]string, n)
	copy(ids, p.order[:n])
	for _, id := range ids {
		delete(p.index, id)
	}
	p.order = p.order[n:]
	if len(p.order) == 0 {
		p.order = nil
	}
	return ids
}

func (p *pendingSet) clear() {
	p.order = nil
	clear(p.index)
}

func (p *pendingSet) len() int {
	return len(p.order)
}
