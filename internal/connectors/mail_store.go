package connectors

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"quotedesk/internal"
)

// MailStore archives fetched raw messages on disk, content-addressed so a
// refetch of the same message never writes twice.
type MailStore struct {
	rawMailDir string
}

func NewMailStore(rawMailDir string) *MailStore {
	return &MailStore{rawMailDir: rawMailDir}
}

// Store writes the raw message and returns its archive path.
func (s *MailStore) Store(msg internal.FetchedMailMessage) (string, error) {
	hashBytes := sha256.Sum256(msg.Raw)
	hash := hex.EncodeToString(hashBytes[:])

	if err := os.MkdirAll(s.rawMailDir, 0o755); err != nil {
		return "", err
	}

	rawPath := filepath.Join(s.rawMailDir, hash+".eml")
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, msg.Raw, 0o644); err != nil {
			return "", err
		}
	}

	return rawPath, nil
}
