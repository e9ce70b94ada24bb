// Package auth stores the portal session between runs.
package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const fileName = "auth.json"

// Credentials is the stored portal session. The password is never kept.
type Credentials struct {
	PortalURL string    `json:"portal_url"`
	Username  string    `json:"username"`
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// LoggedIn reports whether a session is present
func (c *Credentials) LoggedIn() bool {
	return c != nil && c.SessionID != ""
}

// Path returns the credentials file in dataDir
func Path(dataDir string) string {
	return filepath.Join(dataDir, fileName)
}

// Load reads credentials from dataDir. A missing file returns nil, nil.
func Load(dataDir string) (*Credentials, error) {
	data, err := os.ReadFile(Path(dataDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parse %s: %w", fileName, err)
	}
	return &creds, nil
}

// Save writes credentials with 0600 permissions using a temp file and
// rename.
func Save(dataDir string, creds *Credentials) error {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dataDir, "auth-*.json.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, Path(dataDir)); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// Clear removes the credentials file.
func Clear(dataDir string) error {
	err := os.Remove(Path(dataDir))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
