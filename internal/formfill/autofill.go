package formfill

import (
	"fmt"

	"github.com/v0xg/credbridge/internal/page"
	"github.com/v0xg/credbridge/internal/scanner"
)

// Autofill writes username and password into the first form, in document
// order, that has a field pair, and returns that pair. Forms are scanned
// afresh on every call. It returns nil when no form qualifies.
func (m *Manager) Autofill(username, password string) (*page.FieldPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	forms, err := m.doc.Forms()
	if err != nil {
		return nil, fmt.Errorf("failed to list forms: %w", err)
	}

	for i, form := range forms {
		pair, err := scanner.Scan(form)
		if err != nil {
			m.log.Warnf("form %d: %v", i, err)
			continue
		}
		if pair == nil {
			continue
		}

		if err := pair.Username.SetValue(username); err != nil {
			return nil, fmt.Errorf("failed to fill username field of form %d: %w", i, err)
		}
		if err := pair.Password.SetValue(password); err != nil {
			return nil, fmt.Errorf("failed to fill password field of form %d: %w", i, err)
		}

		m.log.Debugf("autofilled form %d for %q", i, username)
		return pair, nil
	}

	m.log.Debugf("autofill: no qualifying form among %d", len(forms))
	return nil, nil
}
