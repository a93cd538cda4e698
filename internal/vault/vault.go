// Package vault stores logins in a file encrypted with a master password.
//
// The file is a 16-byte salt followed by a Fernet token of the JSON
// document. The Fernet key is PBKDF2-HMAC-SHA256 of the master password
// and the salt. Every save draws a fresh salt.
package vault

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fernet/fernet-go"
	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	iterations = 100000
)

var (
	// ErrWrongPassword is returned when the vault cannot be decrypted
	ErrWrongPassword = errors.New("wrong master password or corrupt vault")
	// ErrNotFound is returned for a login or API key index outside the vault
	ErrNotFound = errors.New("no such entry")
)

// Login is a stored credential for a page
type Login struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// APIKey is a stored service key
type APIKey struct {
	Service string `json:"service"`
	Key     string `json:"key"`
}

// Data is the decrypted vault document
type Data struct {
	Logins  []Login  `json:"logins"`
	APIKeys []APIKey `json:"api_keys"`
}

// Vault is an unlocked vault file
type Vault struct {
	mu     sync.Mutex
	path   string
	master []byte
	data   Data
}

// Open unlocks the vault at path, or creates an empty one if the file does
// not exist
func Open(path, master string) (*Vault, error) {
	v := &Vault{
		path:   path,
		master: []byte(master),
		data:   Data{Logins: []Login{}, APIKeys: []APIKey{}},
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := v.Save(); err != nil {
			return nil, err
		}
		return v, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read vault: %w", err)
	}

	if err := v.unlock(raw); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *Vault) unlock(raw []byte) error {
	if len(raw) <= saltSize {
		return ErrWrongPassword
	}

	key := deriveKey(v.master, raw[:saltSize])
	msg := fernet.VerifyAndDecrypt(raw[saltSize:], 0, []*fernet.Key{key})
	if msg == nil {
		return ErrWrongPassword
	}

	var data Data
	if err := json.Unmarshal(msg, &data); err != nil {
		return fmt.Errorf("failed to decode vault: %w", err)
	}
	if data.Logins == nil {
		data.Logins = []Login{}
	}
	if data.APIKeys == nil {
		data.APIKeys = []APIKey{}
	}
	v.data = data
	return nil
}

func deriveKey(master, salt []byte) *fernet.Key {
	var k fernet.Key
	copy(k[:], pbkdf2.Key(master, salt, iterations, len(k), sha256.New))
	return &k
}

// Save encrypts the vault under a fresh salt and replaces the file
func (v *Vault) Save() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.save()
}

func (v *Vault) save() error {
	msg, err := json.Marshal(v.data)
	if err != nil {
		return fmt.Errorf("failed to encode vault: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	tok, err := fernet.EncryptAndSign(msg, deriveKey(v.master, salt))
	if err != nil {
		return fmt.Errorf("failed to encrypt vault: %w", err)
	}

	dir := filepath.Dir(v.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create vault directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".vault-*")
	if err != nil {
		return fmt.Errorf("failed to write vault: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(salt, tok...)); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write vault: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write vault: %w", err)
	}
	if err := os.Rename(tmp.Name(), v.path); err != nil {
		return fmt.Errorf("failed to replace vault: %w", err)
	}
	return nil
}

// Path returns the vault file path
func (v *Vault) Path() string {
	return v.path
}

// Verify reports whether password is the master password
func (v *Vault) Verify(password string) bool {
	return subtle.ConstantTimeCompare(v.master, []byte(password)) == 1
}

// Logins returns a copy of the stored logins in insertion order
func (v *Vault) Logins() []Login {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Login(nil), v.data.Logins...)
}

// AddLogin stores l and saves the vault. A login with the same URL and
// username has its password replaced and moves to the end.
func (v *Vault) AddLogin(l Login) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	logins := v.data.Logins[:0:0]
	for _, existing := range v.data.Logins {
		if existing.URL == l.URL && existing.Username == l.Username {
			continue
		}
		logins = append(logins, existing)
	}
	v.data.Logins = append(logins, l)
	return v.save()
}

// DeleteLogin removes the i-th login and saves the vault
func (v *Vault) DeleteLogin(i int) (Login, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if i < 0 || i >= len(v.data.Logins) {
		return Login{}, fmt.Errorf("%w: %d", ErrNotFound, i)
	}
	removed := v.data.Logins[i]
	v.data.Logins = append(v.data.Logins[:i:i], v.data.Logins[i+1:]...)
	return removed, v.save()
}

// Lookup returns the most recently stored login whose URL has the same
// origin as pageURL
func (v *Vault) Lookup(pageURL string) (Login, bool) {
	want, ok := origin(pageURL)
	if !ok {
		return Login{}, false
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	for i := len(v.data.Logins) - 1; i >= 0; i-- {
		if got, ok := origin(v.data.Logins[i].URL); ok && got == want {
			return v.data.Logins[i], true
		}
	}
	return Login{}, false
}

// APIKey returns the key stored for service
func (v *Vault) APIKey(service string) (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, k := range v.data.APIKeys {
		if k.Service == service {
			return k.Key, true
		}
	}
	return "", false
}

// APIKeys returns a copy of the stored API keys in insertion order
func (v *Vault) APIKeys() []APIKey {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]APIKey(nil), v.data.APIKeys...)
}

// AddAPIKey stores k and saves the vault. A key for the same service is
// replaced.
func (v *Vault) AddAPIKey(k APIKey) error {
	if k.Service == "" || k.Key == "" {
		return errors.New("service and key are required")
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	keys := v.data.APIKeys[:0:0]
	for _, existing := range v.data.APIKeys {
		if existing.Service == k.Service {
			continue
		}
		keys = append(keys, existing)
	}
	v.data.APIKeys = append(keys, k)
	return v.save()
}

// DeleteAPIKey removes the i-th API key and saves the vault
func (v *Vault) DeleteAPIKey(i int) (APIKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if i < 0 || i >= len(v.data.APIKeys) {
		return APIKey{}, fmt.Errorf("%w: %d", ErrNotFound, i)
	}
	removed := v.data.APIKeys[i]
	v.data.APIKeys = append(v.data.APIKeys[:i:i], v.data.APIKeys[i+1:]...)
	return removed, v.save()
}

// origin returns scheme://host[:port] in lowercase
func origin(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return strings.ToLower(u.Scheme + "://" + u.Host), true
}
