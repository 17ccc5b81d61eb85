package file

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	domain "github.com/mohammadpnp/record-exchange/internal/domain/record"
)

// ArtifactStore holds finished export files and mints HMAC-signed download
// URLs. The signature covers the export id and the expiry, so a leaked URL
// stops working once its window closes.
type ArtifactStore struct {
	baseDir string
	baseURL string
	secret  []byte
}

func NewArtifactStore(baseDir, baseURL string, secret []byte) *ArtifactStore {
	if baseDir == "" {
		baseDir = "exports"
	}
	return &ArtifactStore{baseDir: baseDir, baseURL: baseURL, secret: secret}
}

func (s *ArtifactStore) Create(exportID string, format domain.Format) (io.WriteCloser, string, error) {
	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create artifact dir: %w", err)
	}

	path := s.artifactPath(exportID, format)
	f, err := os.Create(path)
	if err != nil {
		return nil, "", fmt.Errorf("create artifact %s: %w", path, err)
	}
	return f, path, nil
}

func (s *ArtifactStore) Open(exportID string, format domain.Format) (io.ReadCloser, error) {
	f, err := os.Open(s.artifactPath(exportID, format))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrArtifactNotAvailable
		}
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	return f, nil
}

func (s *ArtifactStore) DownloadURL(exportID string, format domain.Format, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("download ttl must be positive")
	}
	expires := time.Now().Add(ttl).Unix()
	return fmt.Sprintf("%s/api/v1/exports/%s/download?expires=%d&sig=%s",
		s.baseURL, exportID, expires, s.sign(exportID, expires)), nil
}

// Verify checks the signature first so an attacker learns nothing about
// expiry handling from a forged request.
func (s *ArtifactStore) Verify(exportID string, expires int64, sig string) error {
	if !hmac.Equal([]byte(s.sign(exportID, expires)), []byte(sig)) {
		return domain.ErrArtifactNotAvailable
	}
	if time.Now().Unix() > expires {
		return domain.ErrArtifactNotAvailable
	}
	return nil
}

func (s *ArtifactStore) sign(exportID string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s:%d", exportID, expires)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *ArtifactStore) artifactPath(exportID string, format domain.Format) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s.%s", exportID, format))
}

// ContentType maps an export format to its download media type.
func ContentType(format domain.Format) string {
	if format == domain.FormatCSV {
		return "text/csv"
	}
	return "application/json"
}
