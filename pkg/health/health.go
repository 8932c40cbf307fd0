// Package health tracks process and component health for the node,
// adapted from the teacher's health-check pattern (spec SPEC_FULL.md
// section 2.2).
package health

import (
	"sync"
	"time"
)

// Check monitors node health across its components.
type Check struct {
	config    *Config
	status    *Status
	lastCheck time.Time
	startTime time.Time
	mu        sync.RWMutex
}

// Config holds health check configuration.
type Config struct {
	Enabled          bool
	CheckInterval    time.Duration
	WatchdogEnabled  bool
	WatchdogTimeout  time.Duration
	RestartOnFailure bool
}

// Status represents the node's overall health.
type Status struct {
	Healthy           bool
	Timestamp         time.Time
	UptimeSeconds     int64
	ResourcesTracked  int64
	SendersActive     int64
	ReceiversActive   int64
	HeartbeatFailures int64
	LastError         string
	ComponentStatus   map[string]ComponentStatus
}

// ComponentStatus is the status of one component ("discovery",
// "node-api", "connection-engine").
type ComponentStatus struct {
	Name      string
	Healthy   bool
	Message   string
	LastCheck time.Time
}

// NewCheck creates a health Check. If config.Enabled, a background
// loop refreshes uptime and overall health on CheckInterval; if
// config.WatchdogEnabled, a second loop panics if the check loop
// stalls past WatchdogTimeout and RestartOnFailure is set.
func NewCheck(config *Config) *Check {
	h := &Check{
		config:    config,
		startTime: time.Now(),
		lastCheck: time.Now(),
		status: &Status{
			Healthy:         true,
			Timestamp:       time.Now(),
			ComponentStatus: make(map[string]ComponentStatus),
		},
	}

	if config.Enabled && config.CheckInterval > 0 {
		go h.checkLoop()
	}
	if config.WatchdogEnabled && config.WatchdogTimeout > 0 {
		go h.watchdogLoop()
	}

	return h
}

// GetStatus returns a snapshot of the current health status.
func (h *Check) GetStatus() *Status {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cp := *h.status
	cp.ComponentStatus = make(map[string]ComponentStatus, len(h.status.ComponentStatus))
	for k, v := range h.status.ComponentStatus {
		cp.ComponentStatus[k] = v
	}
	return &cp
}

// UpdateComponentStatus records a component's health and recomputes
// the overall status.
func (h *Check) UpdateComponentStatus(name string, healthy bool, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.status.ComponentStatus[name] = ComponentStatus{
		Name:      name,
		Healthy:   healthy,
		Message:   message,
		LastCheck: time.Now(),
	}
	h.updateOverallHealth()
}

// RecordResourceCount updates the tracked resource gauges, read from
// resource.Store.Iter lengths by the caller.
func (h *Check) RecordResourceCount(resources, senders, receivers int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status.ResourcesTracked = resources
	h.status.SendersActive = senders
	h.status.ReceiversActive = receivers
}

// RecordHeartbeatFailure increments the registry heartbeat failure
// counter and records the error (spec section 4.7 "heartbeat
// failures escalate").
func (h *Check) RecordHeartbeatFailure(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status.HeartbeatFailures++
	h.status.LastError = err.Error()
}

func (h *Check) checkLoop() {
	ticker := time.NewTicker(h.config.CheckInterval)
	defer ticker.Stop()

	for range ticker.C {
		h.mu.Lock()
		h.status.Timestamp = time.Now()
		h.status.UptimeSeconds = int64(time.Since(h.startTime).Seconds())
		h.lastCheck = time.Now()
		h.updateOverallHealth()
		h.mu.Unlock()
	}
}

func (h *Check) watchdogLoop() {
	ticker := time.NewTicker(h.config.WatchdogTimeout / 2)
	defer ticker.Stop()

	for range ticker.C {
		h.mu.RLock()
		stalled := time.Since(h.lastCheck) > h.config.WatchdogTimeout
		h.mu.RUnlock()

		if stalled && h.config.RestartOnFailure {
			panic("health: check loop stalled past watchdog timeout")
		}
	}
}

func (h *Check) updateOverallHealth() {
	h.status.Healthy = true
	for _, c := range h.status.ComponentStatus {
		if !c.Healthy {
			h.status.Healthy = false
			return
		}
	}
}

// IsHealthy reports the current overall health.
func (h *Check) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status.Healthy
}
