// Package database provides connection setup for MariaDB and Redis.
// This file validates migration SQL files to catch schema mismatches early.
package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// migrationsDir returns the absolute path to db/migrations/ from the project root.
func migrationsDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	require.True(t, ok, "cannot determine test file path")

	// thisFile is internal/database/migrate_test.go, project root is two dirs up.
	dir := filepath.Join(filepath.Dir(thisFile), "..", "..", "db", "migrations")
	_, err := os.Stat(dir)
	require.NoError(t, err, "migrations directory not found at %s", dir)
	return dir
}

// TestMigrations_UpDownPairs ensures every .up.sql has a matching .down.sql.
func TestMigrations_UpDownPairs(t *testing.T) {
	dir := migrationsDir(t)
	upFiles, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, upFiles, "no migration files found")

	for _, up := range upFiles {
		down := strings.Replace(up, ".up.sql", ".down.sql", 1)
		_, err := os.Stat(down)
		assert.NoError(t, err, "missing down migration for %s", filepath.Base(up))
	}
}

// TestMigrations_SequentialVersions catches duplicate or skipped version
// numbers, which golang-migrate reports only at startup.
func TestMigrations_SequentialVersions(t *testing.T) {
	dir := migrationsDir(t)
	upFiles, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	require.NoError(t, err)
	sort.Strings(upFiles)

	versionPattern := regexp.MustCompile(`^(\d{6})_[a-z0-9_]+\.up\.sql$`)
	for i, f := range upFiles {
		m := versionPattern.FindStringSubmatch(filepath.Base(f))
		require.NotNil(t, m, "badly named migration %s", filepath.Base(f))

		version, err := strconv.Atoi(m[1])
		require.NoError(t, err)
		assert.Equal(t, i+1, version, "migration %s out of sequence", filepath.Base(f))
	}
}

// TestMigrations_EnumsMatchCode keeps the ENUM columns in sync with the
// values the application writes.
func TestMigrations_EnumsMatchCode(t *testing.T) {
	dir := migrationsDir(t)
	all := readAll(t, dir)

	for _, pattern := range []string{
		`role\s+ENUM\('user', 'admin'\)`,
		`status\s+ENUM\('unread', 'read'\)`,
		`type\s+ENUM\('Banner', 'FAQ', 'Categories'\)`,
		`UNIQUE KEY uq_users_email \(email\)`,
	} {
		assert.Regexp(t, regexp.MustCompile(pattern), all)
	}
}

func TestRetryUntilReady_RetriesThenSucceeds(t *testing.T) {
	calls := 0
	err := retryUntilReady(context.Background(), "test", time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryUntilReady_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retryUntilReady(ctx, "test", time.Millisecond, func(context.Context) error {
		calls++
		if calls == 2 {
			cancel()
		}
		return errors.New("connection refused")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls)
}

func readAll(t *testing.T, dir string) string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	require.NoError(t, err)
	var b strings.Builder
	for _, f := range files {
		data, err := os.ReadFile(f)
		require.NoError(t, err)
		b.Write(data)
	}
	return b.String()
}
