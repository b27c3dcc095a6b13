package main

import (
	"sync"
	"time"

	"github.com/Readm/i2c_verif/tb"
)

type metricsCollector struct {
	mu             sync.Mutex
	interval       time.Duration
	log            *Logger
	lastCycle      uint64
	cycleCount     uint64
	items          uint64
	lastItems      uint64
	lastReportTime time.Time
}

func newMetricsCollector(interval time.Duration, log *Logger) *metricsCollector {
	return &metricsCollector{
		interval:       interval,
		log:            log,
		lastReportTime: time.Now(),
	}
}

// RecordProgress accounts the cycles and round trips since the previous frame.
func (m *metricsCollector) RecordProgress(p tb.Progress) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	if p.Cycle > m.lastCycle {
		m.cycleCount += p.Cycle - m.lastCycle
		m.lastCycle = p.Cycle
	}
	if p.Items > m.lastItems {
		m.items += p.Items - m.lastItems
		m.lastItems = p.Items
	}
	m.emitIfNeeded(p)
	m.mu.Unlock()
	return nil
}

func (m *metricsCollector) emitIfNeeded(p tb.Progress) {
	now := time.Now()
	if now.Sub(m.lastReportTime) < m.interval && !p.Done {
		return
	}
	duration := now.Sub(m.lastReportTime).Seconds()
	throughput := float64(m.cycleCount)
	if duration > 0 {
		throughput = throughput / duration
	}
	m.log.Infof("Throughput %.0f cycles/s, %d round trips, coverage %.2f%%", throughput, m.items, p.Percent)
	m.cycleCount = 0
	m.items = 0
	m.lastReportTime = now
}
