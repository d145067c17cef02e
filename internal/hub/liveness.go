package hub

import (
	"sync"
	"time"

	"mindspark/realtime/internal/metrics"

	"go.uber.org/zap"
)

type livenessMonitor struct {
	hub      *Hub
	interval time.Duration
	quit     chan struct{}
	done     chan struct{}
	once     sync.Once
}

func startLivenessMonitor(h *Hub, interval time.Duration) *livenessMonitor {
	m := &livenessMonitor{
		hub:      h,
		interval: interval,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *livenessMonitor) run() {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.quit:
			return
		case <-ticker.C:
			m.hub.checkLiveness()
		}
	}
}

func (m *livenessMonitor) stop() {
	m.once.Do(func() { close(m.quit) })
	<-m.done
}

// checkLiveness runs one liveness round. Connections that did not answer the
// previous round are terminated; the rest are marked and pinged.
func (h *Hub) checkLiveness() int {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	terminated := 0
	for _, c := range conns {
		if !c.alive.Swap(false) {
			if h.terminate(c) {
				terminated++
				metrics.LivenessTerminations.Inc()
				h.logger.Info("terminated unresponsive connection", zap.String("remote", c.remoteAddr))
			}
			continue
		}
		c.ping()
	}
	return terminated
}
