package core

// Disk-backed BlockStore. Every block is a file named by its hex checksum
// under dir; the oldest block is evicted once maxEntries is exceeded.

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

const defaultDiskStoreCapacity = 10_000

// DiskBlockStore persists blocks as individual files under a directory.
type DiskBlockStore struct {
	mu         sync.RWMutex
	dir        string
	blockSize  int
	sessionID  string
	maxEntries int
	order      []Checksum // insertion order, oldest first, for eviction + sampling
	present    map[Checksum]struct{}
	log        *logrus.Logger
}

// NewDiskBlockStore creates a store rooted at dir. maxEntries <= 0 falls
// back to defaultDiskStoreCapacity. Reopening a directory with existing
// block files is not supported; dir is freed on Close.
func NewDiskBlockStore(dir string, blockSize int, sessionID string, maxEntries int) (*DiskBlockStore, error) {
	if maxEntries <= 0 {
		maxEntries = defaultDiskStoreCapacity
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("brightchain: diskstore mkdir: %w", err)
	}
	return &DiskBlockStore{
		dir:        dir,
		blockSize:  blockSize,
		sessionID:  sessionID,
		maxEntries: maxEntries,
		present:    make(map[Checksum]struct{}),
		log:        logrus.StandardLogger(),
	}, nil
}

func (s *DiskBlockStore) BlockSize() int    { return s.blockSize }
func (s *DiskBlockStore) SessionID() string { return s.sessionID }

func (s *DiskBlockStore) path(id Checksum) string {
	return filepath.Join(s.dir, id.Hex())
}

func (s *DiskBlockStore) Put(payload []byte) (Checksum, error) {
	if len(payload) != s.blockSize {
		return Checksum{}, fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, len(payload), s.blockSize)
	}
	id := ComputeChecksum(payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.present[id]; ok {
		return Checksum{}, fmt.Errorf("%w: block %s", ErrAlreadyExists, id.Hex())
	}
	if len(s.present) >= s.maxEntries && len(s.order) > 0 {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.present, oldest)
		_ = os.Remove(s.path(oldest))
		zap.L().Sugar().Warnf("diskstore[%s]: evicted %s at capacity %d", s.sessionID, oldest.Hex(), s.maxEntries)
	}
	if err := os.WriteFile(s.path(id), payload, 0o644); err != nil {
		return Checksum{}, fmt.Errorf("brightchain: diskstore write: %w", err)
	}
	s.present[id] = struct{}{}
	s.order = append(s.order, id)
	s.log.Debugf("diskstore[%s]: put %s (%d bytes)", s.sessionID, id.Hex(), len(payload))
	return id, nil
}

func (s *DiskBlockStore) Has(id Checksum) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.present[id]
	return ok
}

func (s *DiskBlockStore) Get(id Checksum) (RawBlock, error) {
	s.mu.RLock()
	_, ok := s.present[id]
	path := s.path(id)
	s.mu.RUnlock()
	if !ok {
		return RawBlock{}, fmt.Errorf("%w: block %s", ErrNotFound, id.Hex())
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		return RawBlock{}, fmt.Errorf("%w: block %s: %v", ErrNotFound, id.Hex(), err)
	}
	return RawBlock{IDChecksum: id, Payload: payload}, nil
}

func (s *DiskBlockStore) Delete(id Checksum) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.present[id]; !ok {
		return fmt.Errorf("%w: block %s", ErrNotFound, id.Hex())
	}
	delete(s.present, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("brightchain: diskstore remove: %w", err)
	}
	return nil
}

func (s *DiskBlockStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.present)
}

func (s *DiskBlockStore) GetRandom(count int) ([]Checksum, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.order)
	if count > n {
		count = n
	}
	pool := make([]Checksum, n)
	copy(pool, s.order)

	out := make([]Checksum, 0, count)
	for i := 0; i < count; i++ {
		remaining := n - i
		idxBig, err := rand.Int(rand.Reader, big.NewInt(int64(remaining)))
		if err != nil {
			return nil, fmt.Errorf("brightchain: random sample: %w", err)
		}
		j := int(idxBig.Int64())
		out = append(out, pool[j])
		pool[j] = pool[remaining-1]
	}
	return out, nil
}

// Close frees the entire session's contents.
func (s *DiskBlockStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return os.RemoveAll(s.dir)
}
