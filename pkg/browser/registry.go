package browser

import (
	"sync"

	"github.com/go-rod/rod/lib/proto"
)

// registry hands out small stable integer ids for CDP target ids, which are
// opaque strings. Ids are never reused within a process.
type registry struct {
	mu    sync.Mutex
	next  int
	byID  map[int]proto.TargetTargetID
	byTgt map[proto.TargetTargetID]int
}

func newRegistry() *registry {
	return &registry{
		next:  1,
		byID:  make(map[int]proto.TargetTargetID),
		byTgt: make(map[proto.TargetTargetID]int),
	}
}

func (r *registry) id(target proto.TargetTargetID) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byTgt[target]; ok {
		return id
	}
	id := r.next
	r.next++
	r.byID[id] = target
	r.byTgt[target] = id
	return id
}

func (r *registry) target(id int) (proto.TargetTargetID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	return t, ok
}

// forget drops targets that are no longer open.
func (r *registry) forget(live map[proto.TargetTargetID]bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for t, id := range r.byTgt {
		if !live[t] {
			delete(r.byTgt, t)
			delete(r.byID, id)
		}
	}
}
