package client

import (
	"sync"
	"time"
)

// Prober keeps an open channel warm so intermediaries don't time out an
// idle connection. It is bound to one channel: when that channel goes away
// the prober is stopped with it, never re-armed.
type Prober struct {
	stop     chan struct{}
	stopOnce sync.Once
}

func startProber(interval time.Duration, ping func()) *Prober {
	p := &Prober{stop: make(chan struct{})}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				ping()
			case <-p.stop:
				return
			}
		}
	}()
	return p
}

// Stop is idempotent.
func (p *Prober) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}
