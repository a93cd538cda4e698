package formfill

import (
	"fmt"

	"github.com/v0xg/credbridge/internal/page"
)

// CaptureResult is the outcome of one submission of an observed form
type CaptureResult struct {
	Form       int
	Credential page.Credential
	// Captured is true when the bridge accepted the credential
	Captured bool
	// Err is set when a field could not be read or the bridge failed.
	// Empty fields are not an error.
	Err error
}

// observer builds the submission callback for form. The pair is the one
// found at Initialize; values are read when the form is submitted.
func (m *Manager) observer(form int, pair *page.FieldPair) func() {
	return func() {
		m.mu.Lock()
		res := m.capture(form, pair)
		hook := m.onCapture
		m.mu.Unlock()

		if hook != nil {
			hook(res)
		}
	}
}

func (m *Manager) capture(form int, pair *page.FieldPair) CaptureResult {
	res := CaptureResult{Form: form}

	username, err := pair.Username.Value()
	if err != nil {
		res.Err = fmt.Errorf("failed to read username field: %w", err)
		return res
	}
	password, err := pair.Password.Value()
	if err != nil {
		res.Err = fmt.Errorf("failed to read password field: %w", err)
		return res
	}

	res.Credential = page.Credential{Username: username, Password: password}
	if res.Credential.Empty() {
		m.log.Debugf("form %d submitted with an empty field, nothing to capture", form)
		return res
	}

	// One attempt only. The submission itself is never held back.
	if err := callBridge(m.bridge, res.Credential); err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrCaptureFailed, err)
		m.log.Warnf("form %d: %v", form, res.Err)
		return res
	}

	res.Captured = true
	m.log.Debugf("form %d: captured credentials for %q", form, username)
	return res
}

func callBridge(b Bridge, c page.Credential) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bridge panicked: %v", r)
		}
	}()
	return b.CaptureCredentials(c.Username, c.Password)
}
