package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// RestoreService downloads and unpacks a backup archive into the data
// directory. It must run before any database connection is opened.
type RestoreService struct {
	s3      *S3Client
	dataDir string
	log     zerolog.Logger
}

func NewRestoreService(s3 *S3Client, dataDir string, log zerolog.Logger) *RestoreService {
	return &RestoreService{
		s3:      s3,
		dataDir: dataDir,
		log:     log.With().Str("service", "restore").Logger(),
	}
}

// RestoreIfEmpty restores the latest backup when the data directory has
// no databases yet. A populated directory is never overwritten.
func (s *RestoreService) RestoreIfEmpty(ctx context.Context) (bool, error) {
	existing, err := filepath.Glob(filepath.Join(s.dataDir, "*.db"))
	if err != nil {
		return false, fmt.Errorf("failed to scan data directory: %w", err)
	}
	if len(existing) > 0 {
		return false, nil
	}

	backups, err := (&BackupService{s3: s.s3, log: s.log}).ListBackups(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		s.log.Info().Msg("No remote backups found, starting with empty databases")
		return false, nil
	}

	latest := backups[0]
	s.log.Info().Str("archive", latest.Filename).Msg("Restoring latest backup")

	if err := s.RestoreFromArchive(ctx, latest.Filename); err != nil {
		return false, err
	}
	return true, nil
}

// RestoreFromArchive downloads the named archive, verifies it and moves
// the database files into place. Only safe while no database connection
// is open; a running server must use Stage plus a restart instead.
func (s *RestoreService) RestoreFromArchive(ctx context.Context, filename string) error {
	stagingDir, err := s.stage(ctx, filename)
	if err != nil {
		return err
	}
	defer os.RemoveAll(stagingDir)
	return s.moveIntoPlace(stagingDir)
}

// Stage downloads and verifies an archive into the pending-restore
// directory. The staged files are applied on the next startup, before
// any database connection is opened.
func (s *RestoreService) Stage(ctx context.Context, filename string) error {
	pendingDir := s.pendingDir()
	if err := os.RemoveAll(pendingDir); err != nil {
		return fmt.Errorf("failed to clear pending restore: %w", err)
	}
	stagingDir, err := s.stage(ctx, filename)
	if err != nil {
		return err
	}
	if err := os.Rename(stagingDir, pendingDir); err != nil {
		os.RemoveAll(stagingDir)
		return fmt.Errorf("failed to mark restore as pending: %w", err)
	}
	s.log.Info().Str("archive", filename).Msg("Restore staged, will apply on next startup")
	return nil
}

// HasPending reports whether a staged restore is waiting to be applied.
func (s *RestoreService) HasPending() bool {
	info, err := os.Stat(s.pendingDir())
	return err == nil && info.IsDir()
}

// ApplyPending moves a previously staged restore into place. Call
// before opening any database.
func (s *RestoreService) ApplyPending() error {
	pendingDir := s.pendingDir()
	if err := s.moveIntoPlace(pendingDir); err != nil {
		return err
	}
	return os.RemoveAll(pendingDir)
}

func (s *RestoreService) pendingDir() string {
	return filepath.Join(s.dataDir, "pending-restore")
}

// stage downloads the archive into a fresh staging directory, extracts
// it and verifies every checksum. The caller owns the returned
// directory. A corrupt or truncated download never leaves partial
// database files behind.
func (s *RestoreService) stage(ctx context.Context, filename string) (string, error) {
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	stagingDir := filepath.Join(s.dataDir, "restore-staging")
	if err := os.RemoveAll(stagingDir); err != nil {
		return "", fmt.Errorf("failed to clear staging directory: %w", err)
	}
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}

	archivePath := filepath.Join(stagingDir, filename)
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to create archive file: %w", err)
	}

	err = s.s3.Download(ctx, filename, archiveFile)
	archiveFile.Close()
	if err != nil {
		return "", err
	}

	if err := extractArchive(archivePath, stagingDir); err != nil {
		return "", fmt.Errorf("failed to extract archive: %w", err)
	}
	if err := os.Remove(archivePath); err != nil {
		return "", fmt.Errorf("failed to remove downloaded archive: %w", err)
	}

	metadata, err := readMetadata(filepath.Join(stagingDir, "backup-metadata.json"))
	if err != nil {
		return "", fmt.Errorf("failed to read backup metadata: %w", err)
	}

	for _, db := range metadata.Databases {
		extracted := filepath.Join(stagingDir, db.Filename)
		checksum, err := fileChecksum(extracted)
		if err != nil {
			return "", fmt.Errorf("failed to checksum %s: %w", db.Name, err)
		}
		if checksum != db.Checksum {
			return "", fmt.Errorf("checksum mismatch for %s: expected %s, got %s", db.Name, db.Checksum, checksum)
		}
	}

	return stagingDir, nil
}

// moveIntoPlace moves the verified database files from a staged
// directory into the data directory, overwriting what is there.
func (s *RestoreService) moveIntoPlace(stagedDir string) error {
	metadata, err := readMetadata(filepath.Join(stagedDir, "backup-metadata.json"))
	if err != nil {
		return fmt.Errorf("failed to read staged metadata: %w", err)
	}

	for _, db := range metadata.Databases {
		if err := os.Rename(filepath.Join(stagedDir, db.Filename), filepath.Join(s.dataDir, db.Filename)); err != nil {
			return fmt.Errorf("failed to move %s into place: %w", db.Name, err)
		}
		// Stale WAL or SHM files from the replaced database must not
		// be replayed over the restored file.
		os.Remove(filepath.Join(s.dataDir, db.Filename+"-wal"))
		os.Remove(filepath.Join(s.dataDir, db.Filename+"-shm"))
	}

	s.log.Info().
		Str("backup_id", metadata.ID).
		Int("databases", len(metadata.Databases)).
		Msg("Restore completed")
	return nil
}

func readMetadata(path string) (*BackupMetadata, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var metadata BackupMetadata
	if err := json.NewDecoder(file).Decode(&metadata); err != nil {
		return nil, err
	}
	return &metadata, nil
}

func extractArchive(archivePath, destDir string) error {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer archiveFile.Close()

	gzipReader, err := gzip.NewReader(archiveFile)
	if err != nil {
		return err
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		// Reject path traversal in archive entries
		name := filepath.Clean(header.Name)
		if strings.Contains(name, "..") || filepath.IsAbs(name) {
			return fmt.Errorf("unsafe path in archive: %s", header.Name)
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}

		outFile, err := os.Create(filepath.Join(destDir, name))
		if err != nil {
			return err
		}
		if _, err := io.Copy(outFile, tarReader); err != nil {
			outFile.Close()
			return err
		}
		outFile.Close()
	}
	return nil
}
