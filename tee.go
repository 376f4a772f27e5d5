package scopez

import (
	"sync"
	"sync/atomic"
)

// teeSubscriber fans notifications out to several subscribers behind
// the dispatch context's single-slot contract. It mints its own
// canonical identifiers and translates them per branch, since each
// branch assigns ids independently.
type teeSubscriber struct {
	subs   []Subscriber
	nextID atomic.Uint64
	mu     sync.Mutex
	ids    map[ID][]ID
	// Translations for closed spans are kept in a bounded ring so that
	// follows-from links to completed work - the normal handoff case -
	// still translate. Oldest entries are evicted first.
	closed      map[ID][]ID
	closedOrder []ID
}

// teeClosedRetention bounds how many closed-span translations a tee
// keeps for late follows-from links.
const teeClosedRetention = 4096

// Tee wraps several subscribers as one. Enabled answers true when any
// branch says true; interest contributions fold with the same
// precedence the interest cache applies, so one eager branch upgrades
// the verdict for all.
func Tee(subs ...Subscriber) Subscriber {
	return &teeSubscriber{
		subs:   subs,
		ids:    make(map[ID][]ID),
		closed: make(map[ID][]ID),
	}
}

func (t *teeSubscriber) Enabled(meta *Metadata) bool {
	for _, s := range t.subs {
		if s.Enabled(meta) {
			return true
		}
	}
	return false
}

func (t *teeSubscriber) RegisterCallsite(meta *Metadata) Interest {
	verdict := InterestNever
	for _, s := range t.subs {
		contribution := InterestNever
		if reg, ok := s.(CallsiteRegistrar); ok {
			contribution = reg.RegisterCallsite(meta)
		} else if s.Enabled(meta) {
			contribution = InterestSometimes
		}
		verdict = combine(verdict, contribution)
	}
	return verdict
}

func (t *teeSubscriber) NewSpan(meta *Metadata, parent ID) ID {
	id := ID(t.nextID.Add(1))

	parents := t.branch(parent)
	branch := make([]ID, len(t.subs))

	for i, s := range t.subs {
		p := ID(0)
		if parents != nil {
			p = parents[i]
		}
		branch[i] = s.NewSpan(meta, p)
	}

	t.mu.Lock()
	t.ids[id] = branch
	t.mu.Unlock()
	return id
}

func (t *teeSubscriber) branch(id ID) []ID {
	t.mu.Lock()
	defer t.mu.Unlock()
	if b, ok := t.ids[id]; ok {
		return b
	}
	return t.closed[id]
}

func (t *teeSubscriber) Record(id ID, field Field, value any) {
	for i, bid := range t.branch(id) {
		t.subs[i].Record(bid, field, value)
	}
}

func (t *teeSubscriber) RecordDebug(id ID, field Field, debug string) {
	for i, bid := range t.branch(id) {
		t.subs[i].RecordDebug(bid, field, debug)
	}
}

// RecordFollowsFrom translates both ends of the link. A follows id
// with no translation left (evicted, or never minted by this tee) is
// dropped entirely rather than forwarded as the invalid zero id.
func (t *teeSubscriber) RecordFollowsFrom(id, follows ID) {
	fb := t.branch(follows)
	if fb == nil {
		return
	}
	for i, bid := range t.branch(id) {
		t.subs[i].RecordFollowsFrom(bid, fb[i])
	}
}

func (t *teeSubscriber) Enter(id ID) {
	for i, bid := range t.branch(id) {
		t.subs[i].Enter(bid)
	}
}

func (t *teeSubscriber) Exit(id ID) {
	for i, bid := range t.branch(id) {
		t.subs[i].Exit(bid)
	}
}

func (t *teeSubscriber) ObserveEvent(event *Event) {
	for i, bid := range t.branch(event.id) {
		// Each branch sees the event under the id it assigned.
		ev := *event
		ev.id = bid
		t.subs[i].ObserveEvent(&ev)
	}
}

func (t *teeSubscriber) CloseSpan(id ID) {
	branch := t.branch(id)
	for i, bid := range branch {
		t.subs[i].CloseSpan(bid)
	}

	t.mu.Lock()
	if b, ok := t.ids[id]; ok {
		delete(t.ids, id)
		t.closed[id] = b
		t.closedOrder = append(t.closedOrder, id)
		if len(t.closedOrder) > teeClosedRetention {
			delete(t.closed, t.closedOrder[0])
			t.closedOrder = t.closedOrder[1:]
		}
	}
	t.mu.Unlock()
}
