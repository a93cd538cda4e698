package vault

import "fmt"

// Recorder is the host end of the credential bridge. It stores captured
// credentials under the URL of the page they were submitted from.
type Recorder struct {
	Vault *Vault
	// PageURL returns the URL of the page the capture came from
	PageURL func() string
	// Enabled gates recording, mirroring the autofill toggle
	Enabled bool
}

// CaptureCredentials records a login when recording is enabled
func (r *Recorder) CaptureCredentials(username, password string) error {
	if !r.Enabled {
		return nil
	}
	if r.Vault == nil {
		return fmt.Errorf("vault not initialized")
	}

	login := Login{Username: username, Password: password}
	if r.PageURL != nil {
		login.URL = r.PageURL()
	}
	if err := r.Vault.AddLogin(login); err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	return nil
}
