//go:build e2e

// Package framework provides the E2E test infrastructure for forkadmin.
package framework

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
)

// Environment is an isolated working directory for one forkadmin run.
type Environment struct {
	t          *testing.T
	rootDir    string
	binaryPath string
}

var (
	buildOnce  sync.Once
	binaryPath string
	buildErr   error
)

// findProjectRoot locates the project root directory.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// buildBinary builds the forkadmin binary once per test run.
func buildBinary(t *testing.T) (string, error) {
	buildOnce.Do(func() {
		projectRoot, err := findProjectRoot()
		if err != nil {
			buildErr = err
			return
		}

		binaryPath = filepath.Join(os.TempDir(), "forkadmin-e2e-test")

		cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/forkadmin")
		cmd.Dir = projectRoot

		var stderr bytes.Buffer
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			buildErr = err
			t.Logf("Build stderr: %s", stderr.String())
		}
	})

	return binaryPath, buildErr
}

// NewEnvironment creates a new isolated test environment.
func NewEnvironment(t *testing.T) *Environment {
	t.Helper()

	binary, err := buildBinary(t)
	if err != nil {
		t.Fatalf("Failed to build binary: %v", err)
	}

	return &Environment{
		t:          t,
		rootDir:    t.TempDir(),
		binaryPath: binary,
	}
}

// RootDir returns the working directory commands run in.
func (e *Environment) RootDir() string {
	return e.rootDir
}

// BinaryPath returns the path to the built binary.
func (e *Environment) BinaryPath() string {
	return e.binaryPath
}

// WriteFile writes content to a file in the test environment.
func (e *Environment) WriteFile(path, content string) string {
	e.t.Helper()

	fullPath := filepath.Join(e.rootDir, path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		e.t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
		e.t.Fatalf("Failed to write file %s: %v", fullPath, err)
	}
	return fullPath
}

// WriteConfig writes forkadmin.yaml, picked up without --config.
func (e *Environment) WriteConfig(content string) string {
	e.t.Helper()
	return e.WriteFile("forkadmin.yaml", content)
}

// InstallModule creates the module directory that makes name allowed.
func (e *Environment) InstallModule(name string) {
	e.t.Helper()

	if err := os.MkdirAll(filepath.Join(e.rootDir, "modules", name), 0o755); err != nil {
		e.t.Fatalf("Failed to install module %s: %v", name, err)
	}
}

// FileExists checks if a file exists in the test environment.
func (e *Environment) FileExists(path string) bool {
	_, err := os.Stat(filepath.Join(e.rootDir, path))
	return err == nil
}

// ReadFile reads a file from the test environment.
func (e *Environment) ReadFile(path string) string {
	e.t.Helper()

	content, err := os.ReadFile(filepath.Join(e.rootDir, path))
	if err != nil {
		e.t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
