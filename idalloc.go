package scopez

import (
	"sync"

	"github.com/rs/xid"
)

// UIDPool manages a pool of pre-minted export identifiers to amortize
// generation overhead on the record-closing path.
type UIDPool struct {
	factory func() string
	ids     chan string
	stopCh  chan struct{}
	mu      sync.Mutex
	closed  bool
}

// NewUIDPool creates a pool of xid-based identifiers with the
// specified capacity.
func NewUIDPool(capacity int) *UIDPool {
	return NewUIDPoolWithFactory(capacity, func() string {
		return xid.New().String()
	})
}

// NewUIDPoolWithFactory creates a pool with a custom generator.
func NewUIDPoolWithFactory(capacity int, factory func() string) *UIDPool {
	pool := &UIDPool{
		ids:     make(chan string, capacity),
		factory: factory,
		stopCh:  make(chan struct{}),
	}
	// Start background refill goroutine.
	go pool.refill()
	return pool
}

// Get retrieves an identifier from the pool, generating one directly
// if the pool is momentarily empty under burst load.
func (p *UIDPool) Get() string {
	select {
	case id := <-p.ids:
		return id
	default:
		return p.factory()
	}
}

// refill maintains the pool by generating identifiers in background.
func (p *UIDPool) refill() {
	for {
		select {
		case <-p.stopCh:
			return
		default:
			select {
			case p.ids <- p.factory():
				// Successfully added an identifier to the pool.
			case <-p.stopCh:
				return
			}
		}
	}
}

// Close shuts down the pool gracefully.
func (p *UIDPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed {
		close(p.stopCh)
		p.closed = true
	}
}
