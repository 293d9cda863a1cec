package tpmsp

import (
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters for the Notification and TPM
// services. It is the concrete Observer most callers wire in; tests can
// substitute a NoOpObserver or their own implementation instead.
type Metrics struct {
	Registrations      atomic.Uint64
	RegistrationErrors atomic.Uint64
	Unregistrations    atomic.Uint64
	Raises             atomic.Uint64
	RaiseErrors        atomic.Uint64

	CommandsIdle     atomic.Uint64
	CommandsReady    atomic.Uint64
	CommandsComplete atomic.Uint64
	CommandErrors    atomic.Uint64

	LocalityGrants  atomic.Uint64
	LocalityDenials atomic.Uint64

	StartTime atomic.Int64
}

// NewMetrics creates a zeroed metrics instance with StartTime set to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

func (m *Metrics) ObserveMapping(op string, success bool) {
	switch op {
	case "register":
		m.Registrations.Add(1)
		if !success {
			m.RegistrationErrors.Add(1)
		}
	case "unregister":
		m.Unregistrations.Add(1)
	}
}

func (m *Metrics) ObserveNotify(success bool) {
	m.Raises.Add(1)
	if !success {
		m.RaiseErrors.Add(1)
	}
}

func (m *Metrics) ObserveCommand(state string, success bool) {
	switch state {
	case "idle":
		m.CommandsIdle.Add(1)
	case "ready":
		m.CommandsReady.Add(1)
	case "complete":
		m.CommandsComplete.Add(1)
	}
	if !success {
		m.CommandErrors.Add(1)
	}
}

func (m *Metrics) ObserveLocalityTransition(locality uint8, granted bool) {
	if granted {
		m.LocalityGrants.Add(1)
	} else {
		m.LocalityDenials.Add(1)
	}
}

// MetricsSnapshot is a point-in-time copy of Metrics, safe to log or export.
type MetricsSnapshot struct {
	Registrations      uint64
	RegistrationErrors uint64
	Unregistrations    uint64
	Raises             uint64
	RaiseErrors        uint64
	CommandsIdle       uint64
	CommandsReady      uint64
	CommandsComplete   uint64
	CommandErrors      uint64
	LocalityGrants     uint64
	LocalityDenials    uint64
	UptimeNs           uint64
}

// Snapshot returns a consistent-enough copy of the counters for reporting.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Registrations:      m.Registrations.Load(),
		RegistrationErrors: m.RegistrationErrors.Load(),
		Unregistrations:    m.Unregistrations.Load(),
		Raises:             m.Raises.Load(),
		RaiseErrors:        m.RaiseErrors.Load(),
		CommandsIdle:       m.CommandsIdle.Load(),
		CommandsReady:      m.CommandsReady.Load(),
		CommandsComplete:   m.CommandsComplete.Load(),
		CommandErrors:      m.CommandErrors.Load(),
		LocalityGrants:     m.LocalityGrants.Load(),
		LocalityDenials:    m.LocalityDenials.Load(),
		UptimeNs:           uint64(time.Now().UnixNano() - m.StartTime.Load()),
	}
}

// Reset zeroes all counters; useful in tests.
func (m *Metrics) Reset() {
	m.Registrations.Store(0)
	m.RegistrationErrors.Store(0)
	m.Unregistrations.Store(0)
	m.Raises.Store(0)
	m.RaiseErrors.Store(0)
	m.CommandsIdle.Store(0)
	m.CommandsReady.Store(0)
	m.CommandsComplete.Store(0)
	m.CommandErrors.Store(0)
	m.LocalityGrants.Store(0)
	m.LocalityDenials.Store(0)
	m.StartTime.Store(time.Now().UnixNano())
}
