// Package state tracks which video is active and the per-operation status
// surfaced for it.
package state

import (
	"sync"
	"time"

	"ai-video-companion/internal/pkg/logger"
	"ai-video-companion/pkg/store"
)

const logModule = "VideoState"

// ChangeType identifies what a Change describes.
type ChangeType string

const (
	ChangeSelected  ChangeType = "selected"
	ChangeStatus    ChangeType = "status"
	ChangeReady     ChangeType = "ready"
	ChangeComposing ChangeType = "composing"
)

// Change is emitted after every surfaced transition. Seq grows by one per
// change and observers receive changes in Seq order.
type Change struct {
	Seq       uint64           `json:"seq"`
	Type      ChangeType       `json:"type"`
	Locator   string           `json:"locator"`
	Task      store.TaskKind   `json:"task,omitempty"`
	Status    store.TaskStatus `json:"status,omitempty"`
	Ready     bool             `json:"ready"`
	Composing bool             `json:"composing"`
	At        time.Time        `json:"at"`
}

// Snapshot is a copy of the state presentation code may render.
type Snapshot struct {
	ActiveLocator string                              `json:"active_locator"`
	ActiveMeta    *store.VideoMeta                    `json:"active_meta"`
	Statuses      map[store.TaskKind]store.TaskStatus `json:"statuses"`
	Ready         bool                                `json:"ready"`
	Composing     bool                                `json:"composing"`
}

// Manager owns the active-video state. Every "...If" method applies its
// transition only while the given locator is still the active one, which is
// how results of operations started for another video are kept off screen.
type Manager struct {
	mu            sync.Mutex
	activeLocator string
	activeMeta    *store.VideoMeta
	statuses      map[store.TaskKind]store.TaskStatus
	ready         bool
	composing     bool
	seq           uint64

	// emitMu is taken before mu is released so delivery follows commit order.
	emitMu sync.Mutex

	logger   logger.ILogger
	onChange func(Change)
}

func NewManager(log logger.ILogger) *Manager {
	m := &Manager{logger: log}
	m.resetLocked("", nil)
	return m
}

// OnChange registers the single observer of surfaced transitions. It is
// called outside the state lock, one change at a time, and must not call
// back into the Manager.
func (m *Manager) OnChange(fn func(Change)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

func (m *Manager) resetLocked(locator string, meta *store.VideoMeta) {
	m.activeLocator = locator
	m.activeMeta = meta
	m.statuses = make(map[store.TaskKind]store.TaskStatus, len(store.TaskKinds))
	for _, kind := range store.TaskKinds {
		m.statuses[kind] = store.StatusIdle
	}
	m.ready = false
	m.composing = false
}

// unlockAndEmit stamps change, releases mu and delivers it. Must be called
// with mu held.
func (m *Manager) unlockAndEmit(change Change) {
	m.seq++
	change.Seq = m.seq
	change.At = time.Now()
	notify := m.onChange

	m.emitMu.Lock()
	m.mu.Unlock()
	defer m.emitMu.Unlock()

	if notify != nil {
		notify(change)
	}
}

// Activate makes locator the active video and resets statuses, readiness
// and the composing flag. An empty locator means nothing is selected.
func (m *Manager) Activate(locator string, meta *store.VideoMeta) {
	m.mu.Lock()
	m.resetLocked(locator, meta)
	m.logger.Info(logModule, "Active video changed", map[string]interface{}{"locator": locator, "has_meta": meta != nil})
	m.unlockAndEmit(Change{Type: ChangeSelected, Locator: locator})
}

// DeactivateIf clears the selection when locator is the active one.
func (m *Manager) DeactivateIf(locator string) bool {
	return m.Retire(locator, nil)
}

// Retire clears the selection when locator is the active one and then runs
// fn under the same lock, whether or not it was active. No Guard for
// locator can pass while fn runs or after Retire returns, unless locator
// is activated again.
func (m *Manager) Retire(locator string, fn func()) bool {
	m.mu.Lock()
	deactivated := locator != "" && m.activeLocator == locator
	if deactivated {
		m.resetLocked("", nil)
	}
	if fn != nil {
		fn()
	}
	if !deactivated {
		m.mu.Unlock()
		return false
	}
	m.logger.Info(logModule, "Active video cleared", map[string]interface{}{"locator": locator})
	m.unlockAndEmit(Change{Type: ChangeSelected, Locator: ""})
	return true
}

func (m *Manager) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeLocator
}

func (m *Manager) IsActive(locator string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeLocator == locator
}

func (m *Manager) Status(kind store.TaskKind) store.TaskStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statuses[kind]
}

// IsReady reports whether the conversation producer is set up for locator.
func (m *Manager) IsReady(locator string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeLocator == locator && m.ready
}

func (m *Manager) SetStatusIf(locator string, kind store.TaskKind, status store.TaskStatus) bool {
	m.mu.Lock()
	if m.activeLocator != locator {
		m.mu.Unlock()
		m.logger.Debug(logModule, "Dropped status for inactive video", map[string]interface{}{
			"locator": locator, "task": kind, "status": status,
		})
		return false
	}
	m.statuses[kind] = status
	m.unlockAndEmit(Change{Type: ChangeStatus, Locator: locator, Task: kind, Status: status})
	return true
}

func (m *Manager) SetReadyIf(locator string, ready bool) bool {
	m.mu.Lock()
	if m.activeLocator != locator {
		m.mu.Unlock()
		return false
	}
	m.ready = ready
	m.unlockAndEmit(Change{Type: ChangeReady, Locator: locator, Ready: ready})
	return true
}

func (m *Manager) SetComposingIf(locator string, composing bool) bool {
	m.mu.Lock()
	if m.activeLocator != locator {
		m.mu.Unlock()
		return false
	}
	m.composing = composing
	m.unlockAndEmit(Change{Type: ChangeComposing, Locator: locator, Composing: composing})
	return true
}

// Guard runs fn under the state lock when locator is active. Callers use it
// to make a check-then-write against shared data atomic with navigation.
func (m *Manager) Guard(locator string, fn func()) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeLocator != locator {
		return false
	}
	fn()
	return true
}

// GuardReady is Guard that also requires the conversation to be ready.
func (m *Manager) GuardReady(locator string, fn func()) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeLocator != locator || !m.ready {
		return false
	}
	fn()
	return true
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	statuses := make(map[store.TaskKind]store.TaskStatus, len(m.statuses))
	for k, v := range m.statuses {
		statuses[k] = v
	}
	return Snapshot{
		ActiveLocator: m.activeLocator,
		ActiveMeta:    m.activeMeta,
		Statuses:      statuses,
		Ready:         m.ready,
		Composing:     m.composing,
	}
}
