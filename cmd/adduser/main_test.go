package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Success(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test_success.db")

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	stdin := new(bytes.Buffer)

	args := []string{"-name", "A", "-email", "a@x.com", "-password", "secret1", "-db", dbPath}
	err := run(args, stdin, stdout, stderr)
	require.NoError(t, err)

	output := stdout.String()
	assert.Contains(t, output, "User A <a@x.com> created successfully")
}

func TestRun_DuplicateEmail(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test_duplicate.db")
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	stdin := new(bytes.Buffer)

	args := []string{"-name", "A", "-email", "a@x.com", "-password", "secret1", "-db", dbPath}

	// First run
	err := run(args, stdin, stdout, stderr)
	require.NoError(t, err, "first run should succeed")

	// Second run with the same email
	stdout.Reset()
	stderr.Reset()
	args = []string{"-name", "B", "-email", "a@x.com", "-password", "secret2", "-db", dbPath}
	err = run(args, stdin, stdout, stderr)
	require.Error(t, err, "expected error on duplicate email")
	assert.Contains(t, err.Error(), "already exists")
}

func TestRun_MissingFlags(t *testing.T) {
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	stdin := new(bytes.Buffer)

	err := run([]string{"-name", "A"}, stdin, stdout, stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required flags")
}

func TestRun_PasswordFromStdin(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test_stdin.db")

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	stdin := bytes.NewBufferString("secret1\n")

	args := []string{"-name", "A", "-email", "a@x.com", "-db", dbPath}
	err := run(args, stdin, stdout, stderr)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "created successfully")
}

func TestRun_ShortPassword(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test_short.db")

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	stdin := new(bytes.Buffer)

	args := []string{"-name", "A", "-email", "a@x.com", "-password", "abc", "-db", dbPath}
	err := run(args, stdin, stdout, stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 6 characters")
}
