package chat

import (
	"sync"

	"ChatRelay/logger"
)

// Broadcaster pushes the roster to every registered connection, anonymous ones
// included (they see who is online without appearing in the list). Announce is
// triggered on every bind and every removal; bursts collapse through a
// capacity-1 trigger channel so churn cannot pile up goroutines.
type Broadcaster struct {
	reg *Registry

	trigger  chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

func NewBroadcaster(reg *Registry) *Broadcaster {
	return &Broadcaster{
		reg:     reg,
		trigger: make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
}

func (b *Broadcaster) Start() { go b.run() }

func (b *Broadcaster) Close() {
	b.stopOnce.Do(func() { close(b.stop) })
}

// Announce schedules a roster broadcast. Coalesces with a pending one.
func (b *Broadcaster) Announce() {
	select {
	case b.trigger <- struct{}{}:
	default:
	}
}

func (b *Broadcaster) run() {
	for {
		select {
		case <-b.stop:
			return
		case <-b.trigger:
			b.BroadcastNow()
		}
	}
}

// BroadcastNow computes the snapshot and fans it out synchronously.
func (b *Broadcaster) BroadcastNow() {
	payload := BuildPresence(b.reg.Roster())
	for _, c := range b.reg.ListAll() {
		if !c.Enqueue(payload) {
			logger.Warnf("[presence] send queue full, drop roster conn=%s", c.ConnID)
		}
	}
}
