package core

// Whitening engine — the OFF-system protocol. Pads a CBL, XOR-splits it
// against a randomizer drawn from the pool (or freshly generated when the
// pool is empty), and stores both halves as independent, individually
// meaningless blocks. Randomizer selection uses crypto/rand so an observer
// cannot predict which pool block whitens a given CBL.

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

const lengthPrefixSize = 4

// padCBL builds the padded block: a 4-byte big-endian length prefix, the CBL
// bytes, and cryptographically-random filler out to blockSize.
func padCBL(cbl []byte, blockSize int) ([]byte, error) {
	if blockSize < len(cbl)+lengthPrefixSize {
		return nil, fmt.Errorf("%w: block size %d too small for %d-byte cbl", ErrConfigInvalid, blockSize, len(cbl))
	}
	padded := make([]byte, blockSize)
	binary.BigEndian.PutUint32(padded[0:lengthPrefixSize], uint32(len(cbl)))
	copy(padded[lengthPrefixSize:], cbl)
	filler := padded[lengthPrefixSize+len(cbl):]
	if _, err := rand.Read(filler); err != nil {
		return nil, fmt.Errorf("brightchain: generate padding: %w", err)
	}
	return padded, nil
}

// selectWhitener picks the randomizer block R. If the store holds any
// blocks, one is chosen uniformly at random via a cryptographic PRNG and
// truncated/zero-extended to blockSize; any already-present block qualifies,
// reusing bytes across users per the OFF-system policy. Otherwise R is
// generated fresh from the CSPRNG. preexisting reports whether R was drawn
// from the store (true) or freshly generated (false).
func selectWhitener(store BlockStore, blockSize int) (randomizer []byte, preexisting bool, err error) {
	if store.Size() > 0 {
		ids, err := store.GetRandom(1)
		if err != nil {
			return nil, false, fmt.Errorf("brightchain: select whitener: %w", err)
		}
		if len(ids) == 1 {
			block, err := store.Get(ids[0])
			if err != nil {
				return nil, false, fmt.Errorf("brightchain: select whitener: %w", err)
			}
			r := make([]byte, blockSize)
			copy(r, block.Payload)
			return r, true, nil
		}
	}
	r := make([]byte, blockSize)
	if _, err := rand.Read(r); err != nil {
		return nil, false, fmt.Errorf("brightchain: generate whitener: %w", err)
	}
	return r, false, nil
}

func xorBytes(a, b []byte) []byte {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// WhitenedResult is the outcome of an EncodeWhitened call.
type WhitenedResult struct {
	R1        Checksum // id of the randomizer block
	R2        Checksum // id of the XOR'd (ciphertext) block
	BlockSize int
	MagnetURL string
}

// EncodeWhitened pads cbl, selects a randomizer from store (or generates one
// if the store is empty), XORs the two, and persists both halves. If the
// second insert fails and the first block was newly created by this
// operation (not pre-existing), it is rolled back to keep the store
// consistent.
func EncodeWhitened(store BlockStore, cbl []byte, encrypted bool) (WhitenedResult, error) {
	blockSize := store.BlockSize()
	padded, err := padCBL(cbl, blockSize)
	if err != nil {
		return WhitenedResult{}, err
	}

	randomizer, preexisting, err := selectWhitener(store, blockSize)
	if err != nil {
		return WhitenedResult{}, err
	}
	ciphertext := xorBytes(padded, randomizer)

	var r1 Checksum
	newlyCreated := false
	if preexisting {
		r1 = ComputeChecksum(randomizer)
	} else {
		r1, err = store.Put(randomizer)
		if err != nil {
			return WhitenedResult{}, fmt.Errorf("brightchain: persist randomizer: %w", err)
		}
		newlyCreated = true
	}

	r2, err := store.Put(ciphertext)
	if err != nil {
		if newlyCreated {
			if delErr := store.Delete(r1); delErr != nil {
				return WhitenedResult{}, fmt.Errorf("brightchain: persist ciphertext: %w (rollback also failed: %v)", err, delErr)
			}
		}
		return WhitenedResult{}, fmt.Errorf("brightchain: persist ciphertext: %w", err)
	}

	magnetURL := GenerateWhitenedMagnetURL(blockSize, r1, r2, nil, nil, encrypted)
	return WhitenedResult{R1: r1, R2: r2, BlockSize: blockSize, MagnetURL: magnetURL}, nil
}

// DecodeWhitened retrieves both halves and reverses the XOR. Order does not
// matter (XOR is commutative): decoding (id1, id2) and (id2, id1) return the
// same result.
func DecodeWhitened(store BlockStore, id1, id2 Checksum) ([]byte, error) {
	b1, err := store.Get(id1)
	if err != nil {
		return nil, fmt.Errorf("brightchain: decode whitened: %w", err)
	}
	b2, err := store.Get(id2)
	if err != nil {
		return nil, fmt.Errorf("brightchain: decode whitened: %w", err)
	}
	padded := xorBytes(b1.Payload, b2.Payload)
	if len(padded) < lengthPrefixSize {
		return nil, fmt.Errorf("%w: padded buffer shorter than length prefix", ErrIntegrity)
	}
	length := binary.BigEndian.Uint32(padded[0:lengthPrefixSize])
	if int(length) > len(padded)-lengthPrefixSize {
		return nil, fmt.Errorf("%w: declared length %d exceeds payload capacity %d", ErrIntegrity, length, len(padded)-lengthPrefixSize)
	}
	out := make([]byte, length)
	copy(out, padded[lengthPrefixSize:lengthPrefixSize+int(length)])
	return out, nil
}
