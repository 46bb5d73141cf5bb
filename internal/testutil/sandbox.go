// Package testutil provides small helpers shared by dcx's test suites.
package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

// Sandbox is an isolated temporary directory, used by the durable-store
// tests so SQLite databases never touch the working directory.
type Sandbox struct {
	Root string
}

// NewSandbox creates a Sandbox rooted at a fresh temporary directory. The
// caller owns Cleanup.
func NewSandbox() (*Sandbox, error) {
	dir, err := os.MkdirTemp("", "dcx_sandbox")
	if err != nil {
		return nil, err
	}
	return &Sandbox{Root: dir}, nil
}

// NewTestSandbox creates a Sandbox whose lifetime is bound to the test:
// it fails the test on setup errors and removes itself on cleanup.
func NewTestSandbox(t testing.TB) *Sandbox {
	t.Helper()
	s, err := NewSandbox()
	if err != nil {
		t.Fatalf("testutil: new sandbox: %v", err)
	}
	t.Cleanup(func() { _ = s.Cleanup() })
	return s
}

// Path returns the absolute path for a file within the sandbox.
func (s *Sandbox) Path(name string) string {
	return filepath.Join(s.Root, name)
}

// WriteFile writes data to the named file inside the sandbox using the
// provided permissions.
func (s *Sandbox) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(s.Path(name), data, perm)
}

// ReadFile reads and returns data from the named file inside the sandbox.
func (s *Sandbox) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(s.Path(name))
}

// Cleanup removes all files within the sandbox and deletes the root
// directory.
func (s *Sandbox) Cleanup() error {
	return os.RemoveAll(s.Root)
}
