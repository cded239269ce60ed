// Package testutil provides test utilities for progress tracking.
package testutil

import "sync"

// MockProgressTracker is a mock implementation of ProgressTracker for testing.
// It is safe for concurrent use.
type MockProgressTracker struct {
	mu             sync.Mutex
	updates        []ProgressUpdate
	completeCalled bool
	errorCalled    bool
	lastError      error
}

// ProgressUpdate represents a single progress update event.
type ProgressUpdate struct {
	Transferred int64
	Total       int64
}

// Update records a progress update.
func (m *MockProgressTracker) Update(bytesTransferred, totalBytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, ProgressUpdate{
		Transferred: bytesTransferred,
		Total:       totalBytes,
	})
}

// Complete marks the operation as complete.
func (m *MockProgressTracker) Complete() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeCalled = true
}

// Error records an error.
func (m *MockProgressTracker) Error(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCalled = true
	m.lastError = err
}

// Snapshot returns a copy of the recorded updates.
func (m *MockProgressTracker) Snapshot() []ProgressUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ProgressUpdate, len(m.updates))
	copy(out, m.updates)
	return out
}

// Last returns the most recent update, or a zero value if none was recorded.
func (m *MockProgressTracker) Last() ProgressUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.updates) == 0 {
		return ProgressUpdate{}
	}
	return m.updates[len(m.updates)-1]
}

// Completed reports whether Complete was called.
func (m *MockProgressTracker) Completed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completeCalled
}

// Failed reports whether Error was called, and with which error.
func (m *MockProgressTracker) Failed() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errorCalled, m.lastError
}
