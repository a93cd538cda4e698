// Package formfill bridges the login forms of one loaded document to a host
// credential store.
//
// A Manager is created per document. Initialize scans the forms present at
// that moment and observes submissions of every form holding a
// username/password pair, forwarding the entered values to the host bridge.
// Autofill writes a stored credential into the first qualifying form.
//
// Submission callbacks and Autofill are serialized by the Manager, so
// adapters may deliver submission events from their own goroutines. A
// Bridge must not call back into the Manager that invoked it.
package formfill

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/v0xg/credbridge/internal/page"
	"github.com/v0xg/credbridge/internal/scanner"
)

var (
	// ErrNoBridge is returned when Initialize is given no bridge
	ErrNoBridge = errors.New("bridge unavailable")
	// ErrAlreadyInitialized is returned by a second Initialize on the same document
	ErrAlreadyInitialized = errors.New("document already initialized")
	// ErrCaptureFailed wraps bridge failures in CaptureResult.Err
	ErrCaptureFailed = errors.New("credential capture failed")
)

// Bridge is the host side receiving captured credentials
type Bridge interface {
	CaptureCredentials(username, password string) error
}

// BridgeFunc adapts a function to Bridge
type BridgeFunc func(username, password string) error

// CaptureCredentials calls f
func (f BridgeFunc) CaptureCredentials(username, password string) error {
	return f(username, password)
}

// Handshake establishes the channel to the host and yields its bridge
type Handshake func(ctx context.Context) (Bridge, error)

// Logger receives diagnostics. Passwords are never passed to it.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// Options configures a Manager
type Options struct {
	Logger Logger
	// OnCapture is called after every submission of an observed form
	OnCapture func(CaptureResult)
}

// Manager holds the capture and autofill state of one document
type Manager struct {
	mu          sync.Mutex
	doc         page.Document
	bridge      Bridge
	initialized bool
	observed    []int
	log         Logger
	onCapture   func(CaptureResult)
}

// New creates a Manager for doc
func New(doc page.Document, opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = nopLogger{}
	}
	return &Manager{
		doc:       doc,
		log:       log,
		onCapture: opts.OnCapture,
	}
}

// Initialize scans the forms currently in the document and attaches a
// submission observer to each form with a field pair. Forms added to the
// document afterwards are never observed.
func (m *Manager) Initialize(bridge Bridge) error {
	if bridge == nil {
		return ErrNoBridge
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return ErrAlreadyInitialized
	}

	forms, err := m.doc.Forms()
	if err != nil {
		return fmt.Errorf("failed to list forms: %w", err)
	}

	m.bridge = bridge
	m.initialized = true

	for i, form := range forms {
		pair, err := scanner.Scan(form)
		if err != nil {
			m.log.Warnf("form %d: %v", i, err)
			continue
		}
		if pair == nil {
			continue
		}
		if err := form.OnSubmit(m.observer(i, pair)); err != nil {
			m.log.Warnf("form %d: failed to observe submissions: %v", i, err)
			continue
		}
		m.observed = append(m.observed, i)
	}

	m.log.Debugf("initialized: %d forms, %d observed", len(forms), len(m.observed))
	return nil
}

// InitializeAsync runs handshake on its own goroutine and continues with
// Initialize once the bridge is ready. The returned channel receives exactly
// one result and is then closed.
func (m *Manager) InitializeAsync(ctx context.Context, handshake Handshake) <-chan error {
	done := make(chan error, 1)

	go func() {
		defer close(done)

		type ready struct {
			bridge Bridge
			err    error
		}
		ch := make(chan ready, 1)
		go func() {
			b, err := handshake(ctx)
			ch <- ready{bridge: b, err: err}
		}()

		select {
		case <-ctx.Done():
			done <- ctx.Err()
		case r := <-ch:
			if r.err != nil {
				done <- fmt.Errorf("bridge handshake failed: %w", r.err)
				return
			}
			done <- m.Initialize(r.bridge)
		}
	}()

	return done
}

// Initialized reports whether Initialize has succeeded
func (m *Manager) Initialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

// Observed returns the document indexes of the forms being observed
func (m *Manager) Observed() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.observed...)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{})  {}
