package api

import (
	"os"
	"sync"
	"time"

	"github.com/thehamish555/49SQN-Automation/internal/auth"
)

const downloadTTL = 5 * time.Minute

// download is a short-lived token for fetching one file without auth
// headers, so browser navigation can trigger the download directly.
// Transient files exist only for the token's sake (rendered exports) and
// are removed once the token is spent or expires; non-transient entries
// point at library files that outlive the token.
type download struct {
	Path        string
	Name        string
	ContentType string
	Transient   bool
	expiresAt   time.Time
}

type downloadStore struct {
	mu    sync.Mutex
	items map[string]download
}

func newDownloadStore() *downloadStore {
	return &downloadStore{items: make(map[string]download)}
}

// Put registers a file for download and returns its token.
func (s *downloadStore) Put(path, name, contentType string, transient bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked(time.Now())

	token := auth.NewRandomToken(18)
	s.items[token] = download{
		Path:        path,
		Name:        name,
		ContentType: contentType,
		Transient:   transient,
		expiresAt:   time.Now().Add(downloadTTL),
	}
	return token
}

// Take redeems a token. Tokens are single use. The caller serves the file
// and, for transient entries, removes it afterwards.
func (s *downloadStore) Take(token string) (download, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked(time.Now())

	d, ok := s.items[token]
	if !ok {
		return download{}, false
	}
	delete(s.items, token)
	return d, true
}

func (s *downloadStore) purgeExpiredLocked(now time.Time) {
	for token, d := range s.items {
		if now.After(d.expiresAt) {
			if d.Transient {
				_ = os.Remove(d.Path)
			}
			delete(s.items, token)
		}
	}
}
