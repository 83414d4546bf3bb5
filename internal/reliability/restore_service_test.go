package reliability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/networth/pkg/logger"
)

func stagePendingRestore(t *testing.T, dataDir string, files map[string]string) {
	pending := filepath.Join(dataDir, "pending-restore")
	require.NoError(t, os.MkdirAll(pending, 0o755))

	meta := BackupMetadata{ID: "test"}
	for name, content := range files {
		filename := name + ".db"
		require.NoError(t, os.WriteFile(filepath.Join(pending, filename), []byte(content), 0o644))
		meta.Databases = append(meta.Databases, DatabaseMetadata{Name: name, Filename: filename})
	}
	require.NoError(t, writeMetadata(filepath.Join(pending, "backup-metadata.json"), meta))
}

func TestApplyPendingRestore(t *testing.T) {
	dataDir := t.TempDir()
	svc := NewRestoreService(nil, dataDir, logger.Disabled())

	require.False(t, svc.HasPending())
	stagePendingRestore(t, dataDir, map[string]string{"finance": "restored-finance", "rates": "restored-rates"})
	require.True(t, svc.HasPending())

	require.NoError(t, svc.ApplyPending())

	finance, err := os.ReadFile(filepath.Join(dataDir, "finance.db"))
	require.NoError(t, err)
	assert.Equal(t, "restored-finance", string(finance))

	assert.False(t, svc.HasPending())
}

func TestApplyPendingRemovesStaleWAL(t *testing.T) {
	dataDir := t.TempDir()
	svc := NewRestoreService(nil, dataDir, logger.Disabled())

	// A WAL file from the replaced database must not survive the swap.
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "finance.db-wal"), []byte("stale"), 0o644))
	stagePendingRestore(t, dataDir, map[string]string{"finance": "restored"})

	require.NoError(t, svc.ApplyPending())

	_, err := os.Stat(filepath.Join(dataDir, "finance.db-wal"))
	assert.True(t, os.IsNotExist(err))
}
