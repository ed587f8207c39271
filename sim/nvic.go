package sim

import (
	"sync"

	"noiser/core"
)

// NVIC is a software interrupt controller. Raised lines stay pending until
// they are unmasked and dispatched; lower numbers run first.
type NVIC struct {
	mu       sync.Mutex
	pending  map[core.IRQ]bool
	unmasked map[core.IRQ]bool
	handlers map[core.IRQ]func()
	counts   map[core.IRQ]uint64
}

func newNVIC() *NVIC {
	return &NVIC{
		pending:  make(map[core.IRQ]bool),
		unmasked: make(map[core.IRQ]bool),
		handlers: make(map[core.IRQ]func()),
		counts:   make(map[core.IRQ]uint64),
	}
}

// Bind sets the handler for irq
func (n *NVIC) Bind(irq core.IRQ, handler func()) {
	n.mu.Lock()
	n.handlers[irq] = handler
	n.mu.Unlock()
}

// Unmask implements core.InterruptController
func (n *NVIC) Unmask(irq core.IRQ) {
	n.mu.Lock()
	n.unmasked[irq] = true
	n.mu.Unlock()
}

func (n *NVIC) Unmasked(irq core.IRQ) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.unmasked[irq]
}

// Raise marks irq pending
func (n *NVIC) Raise(irq core.IRQ) {
	n.mu.Lock()
	n.pending[irq] = true
	n.mu.Unlock()
}

// Count returns how many times irq has been serviced
func (n *NVIC) Count(irq core.IRQ) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.counts[irq]
}

// next pops the highest priority deliverable line
func (n *NVIC) next() (func(), bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	best := core.IRQ(0)
	found := false
	for irq, p := range n.pending {
		if !p || !n.unmasked[irq] || n.handlers[irq] == nil {
			continue
		}
		if !found || irq < best {
			best, found = irq, true
		}
	}
	if !found {
		return nil, false
	}
	n.pending[best] = false
	n.counts[best]++
	return n.handlers[best], true
}

// dispatch runs handlers until nothing deliverable is pending. Handlers run
// without the NVIC lock so they may raise further lines.
func (n *NVIC) dispatch() {
	for {
		handler, ok := n.next()
		if !ok {
			return
		}
		handler()
	}
}
