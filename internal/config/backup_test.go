package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func withTempXDG(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)
	return tmpDir
}

func TestBackupUserConfigNoConfigExists(t *testing.T) {
	withTempXDG(t)

	backupPath, err := BackupUserConfig()
	require.NoError(t, err)
	require.Empty(t, backupPath)
}

func TestBackupUserConfigCreatesTimestampedCopy(t *testing.T) {
	withTempXDG(t)

	configPath := GetUserConfigPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0755))
	require.NoError(t, os.WriteFile(configPath, []byte("version: 1\n"), 0644))

	backupPath, err := BackupUserConfig()
	require.NoError(t, err)
	require.FileExists(t, backupPath)

	data, err := os.ReadFile(backupPath)
	require.NoError(t, err)
	require.Equal(t, "version: 1\n", string(data))
}

func TestCleanupOldBackupsKeepsOnlyMaxBackups(t *testing.T) {
	withTempXDG(t)

	configPath := GetUserConfigPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0755))

	// Synthesize MaxBackups+2 distinctly-named backup files directly,
	// bypassing BackupUserConfig's second-resolution timestamp to avoid
	// collisions within a single fast test run.
	total := MaxBackups + 2
	for i := 0; i < total; i++ {
		backupPath := configPath + BackupSuffix + ".2026010" + string(rune('0'+i))
		require.NoError(t, os.WriteFile(backupPath, []byte("version: 1\n"), 0644))
	}

	require.NoError(t, cleanupOldBackups(configPath))

	backups, err := ListUserConfigBackups()
	require.NoError(t, err)
	require.Len(t, backups, MaxBackups)
}

func TestListUserConfigBackupsReturnsNilWhenDirMissing(t *testing.T) {
	withTempXDG(t)

	backups, err := ListUserConfigBackups()
	require.NoError(t, err)
	require.Nil(t, backups)
}

func TestRestoreUserConfigWritesBackupContent(t *testing.T) {
	withTempXDG(t)

	configPath := GetUserConfigPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0755))
	require.NoError(t, os.WriteFile(configPath, []byte("version: 1\n"), 0644))

	backupPath, err := BackupUserConfig()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(configPath, []byte("version: 2\n"), 0644))

	require.NoError(t, RestoreUserConfig(backupPath))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	require.Equal(t, "version: 1\n", string(data))
}

func TestRestoreUserConfigErrorsOnMissingBackup(t *testing.T) {
	withTempXDG(t)

	err := RestoreUserConfig(filepath.Join(t.TempDir(), "nonexistent.bak"))
	require.Error(t, err)
}
