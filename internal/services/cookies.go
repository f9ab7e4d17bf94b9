package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// Cookie represents an HTTP cookie as persisted in the cookie file
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

// CookieJar persists the browser cookie set as a JSON array
type CookieJar struct {
	path   string
	logger *logrus.Logger
	mu     sync.Mutex
}

// NewCookieJar creates a jar backed by path
func NewCookieJar(path string, logger *logrus.Logger) *CookieJar {
	return &CookieJar{path: path, logger: logger}
}

// Path returns the file the jar reads and writes
func (j *CookieJar) Path() string { return j.path }

// Load reads the persisted cookies. A missing file yields no cookies and no error.
func (j *CookieJar) Load() ([]Cookie, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	data, err := os.ReadFile(j.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cookie file: %w", err)
	}

	var cookies []Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("failed to parse cookie file %s: %w", j.path, err)
	}

	j.logger.WithFields(logrus.Fields{
		"path":    j.path,
		"cookies": len(cookies),
	}).Debug("Cookies loaded")
	return cookies, nil
}

// Save replaces the cookie file with cookies
func (j *CookieJar) Save(cookies []Cookie) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if cookies == nil {
		cookies = []Cookie{}
	}
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cookies: %w", err)
	}

	if dir := filepath.Dir(j.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create cookie directory: %w", err)
		}
	}

	tmp := j.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write cookie file: %w", err)
	}
	if err := os.Rename(tmp, j.path); err != nil {
		return fmt.Errorf("failed to replace cookie file: %w", err)
	}

	j.logger.WithFields(logrus.Fields{
		"path":    j.path,
		"cookies": len(cookies),
	}).Debug("Cookies saved")
	return nil
}
