package core

// Block store — content-addressed mapping Checksum -> RawBlock. Every block
// gets both its native Checksum and a CIDv1 view so the pool stays
// interoperable with IPFS-style tooling without a gateway round-trip.

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
	"github.com/sirupsen/logrus"
)

// RawBlock is a fixed-length payload together with its content-derived id.
type RawBlock struct {
	IDChecksum Checksum
	Payload    []byte
}

// CID returns the IPFS-style CIDv1 (raw codec, BLAKE2b-512 multihash over
// the already-computed digest) for this block.
func (b RawBlock) CID() (cid.Cid, error) {
	digest, err := mh.Encode(b.IDChecksum[:], mh.BLAKE2B_MIN+63)
	if err != nil {
		return cid.Cid{}, err
	}
	return cid.NewCidV1(cid.Raw, digest), nil
}

// BlockStore is the content-addressed pool contract. Implementations must
// guarantee identifier uniqueness, atomicity of put/delete with respect to
// concurrent has/get, and that any successful get returns a payload
// byte-identical to the one originally inserted.
type BlockStore interface {
	// Put inserts a new block, returning its checksum. Fails with
	// ErrAlreadyExists if the computed id is already present, or
	// ErrSizeMismatch if len(payload) != BlockSize().
	Put(payload []byte) (Checksum, error)

	// Has reports whether id is present.
	Has(id Checksum) bool

	// Get retrieves the block with the given id, failing with
	// ErrNotFound if absent.
	Get(id Checksum) (RawBlock, error)

	// Delete removes the block with the given id, failing with
	// ErrNotFound if absent.
	Delete(id Checksum) error

	// GetRandom returns up to min(count, Size()) distinct checksums
	// sampled uniformly without replacement, using a cryptographic PRNG.
	GetRandom(count int) ([]Checksum, error)

	// Size returns the number of blocks currently stored.
	Size() int

	// BlockSize returns this store's fixed payload length.
	BlockSize() int

	// SessionID identifies this store instance; distinct instances never
	// share state.
	SessionID() string
}

// MemoryBlockStore is the reference, in-memory BlockStore implementation.
// One writer, multiple readers: all mutations hold the write lock; has/get
// hold only the read lock.
type MemoryBlockStore struct {
	mu        sync.RWMutex
	blockSize int
	sessionID string
	blocks    map[Checksum]RawBlock
	order     []Checksum // insertion order, for GetRandom's sampling pool
	log       *logrus.Logger
}

// NewMemoryBlockStore creates an empty store fixed at blockSize bytes per
// block, tagged with sessionID for isolation between instances.
func NewMemoryBlockStore(blockSize int, sessionID string) *MemoryBlockStore {
	return &MemoryBlockStore{
		blockSize: blockSize,
		sessionID: sessionID,
		blocks:    make(map[Checksum]RawBlock),
		log:       logrus.StandardLogger(),
	}
}

func (s *MemoryBlockStore) BlockSize() int    { return s.blockSize }
func (s *MemoryBlockStore) SessionID() string { return s.sessionID }

func (s *MemoryBlockStore) Put(payload []byte) (Checksum, error) {
	if len(payload) != s.blockSize {
		return Checksum{}, fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, len(payload), s.blockSize)
	}
	id := ComputeChecksum(payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blocks[id]; ok {
		return Checksum{}, fmt.Errorf("%w: block %s", ErrAlreadyExists, id.Hex())
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	s.blocks[id] = RawBlock{IDChecksum: id, Payload: cp}
	s.order = append(s.order, id)
	s.log.Debugf("blockstore[%s]: put %s (%d bytes)", s.sessionID, id.Hex(), len(payload))
	return id, nil
}

func (s *MemoryBlockStore) Has(id Checksum) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blocks[id]
	return ok
}

func (s *MemoryBlockStore) Get(id Checksum) (RawBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blocks[id]
	if !ok {
		return RawBlock{}, fmt.Errorf("%w: block %s", ErrNotFound, id.Hex())
	}
	out := make([]byte, len(b.Payload))
	copy(out, b.Payload)
	return RawBlock{IDChecksum: b.IDChecksum, Payload: out}, nil
}

func (s *MemoryBlockStore) Delete(id Checksum) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blocks[id]; !ok {
		return fmt.Errorf("%w: block %s", ErrNotFound, id.Hex())
	}
	delete(s.blocks, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.log.Debugf("blockstore[%s]: delete %s", s.sessionID, id.Hex())
	return nil
}

func (s *MemoryBlockStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blocks)
}

func (s *MemoryBlockStore) GetRandom(count int) ([]Checksum, error) {
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
