package core

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// ChecksumSize is the length in bytes of a Checksum: a BLAKE2b-512 digest.
const ChecksumSize = 64

// HexSize is the length of a Checksum's hex-encoded form.
const HexSize = ChecksumSize * 2

// Checksum identifies a block by the hash of its payload. Equality is byte
// equality; the hex form is always exactly 128 lowercase characters.
type Checksum [ChecksumSize]byte

// ComputeChecksum hashes payload with BLAKE2b-512.
func ComputeChecksum(payload []byte) Checksum {
	return Checksum(blake2b.Sum512(payload))
}

// Hex renders the checksum as 128 lowercase hex characters.
func (c Checksum) Hex() string {
	return hex.EncodeToString(c[:])
}

// String satisfies fmt.Stringer.
func (c Checksum) String() string { return c.Hex() }

// MarshalText renders the checksum as hex, so JSON and YAML encodings carry
// the canonical 128-character form rather than a byte array.
func (c Checksum) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

// UnmarshalText parses the canonical hex form.
func (c *Checksum) UnmarshalText(text []byte) error {
	parsed, err := ParseChecksum(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// IsZero reports whether c is the zero checksum.
func (c Checksum) IsZero() bool {
	return c == Checksum{}
}

// ParseChecksum decodes a 128-character lowercase hex string into a Checksum.
// It fails with ErrInvalidFormat on any other length or encoding.
func ParseChecksum(s string) (Checksum, error) {
	var c Checksum
	if len(s) != HexSize {
		return c, fmt.Errorf("%w: checksum must be %d hex chars, got %d", ErrInvalidFormat, HexSize, len(s))
	}
	if !isLowerHex(s) {
		return c, fmt.Errorf("%w: checksum contains non-lowercase-hex characters", ErrInvalidFormat)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return c, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	copy(c[:], b)
	return c, nil
}

func isLowerHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}
