package core

// CBL codec — the Constituent Block List is the authoritative manifest for
// reassembling a file from blocks. The wire format is a UTF-8 JSON header;
// only version 1 exists.

import (
	"encoding/json"
	"errors"
	"fmt"
)

// CBLVersion is the only version this codec emits or accepts.
const CBLVersion = 1

// BlockInfo is one entry in a CBL's ordered block list.
type BlockInfo struct {
	ID   string `json:"id"`
	Size uint32 `json:"size"`
}

// CBLHeader is the parsed form of a CBL's JSON header.
type CBLHeader struct {
	Version      int         `json:"version"`
	FileName     string      `json:"fileName"`
	OriginalSize uint64      `json:"originalSize"`
	BlockCount   int         `json:"blockCount"`
	Blocks       []BlockInfo `json:"blocks"`
}

// EncodeCBL builds the UTF-8 JSON header for a file split into blocks whose
// checksums and original (possibly short, for the last block) sizes are
// given in order.
func EncodeCBL(blocks []BlockInfo, originalSize uint64, fileName string) ([]byte, error) {
	header := CBLHeader{
		Version:      CBLVersion,
		FileName:     fileName,
		OriginalSize: originalSize,
		BlockCount:   len(blocks),
		Blocks:       blocks,
	}
	out, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("brightchain: encode cbl: %w", err)
	}
	return out, nil
}

// DecodeCBL parses and validates a CBL header. It fails with
// ErrInvalidFormat if the bytes are not valid JSON, required fields are
// missing, blockCount disagrees with len(blocks), the declared sizes don't
// sum to originalSize, or any block id is not 128 lowercase-hex characters.
func DecodeCBL(data []byte) (CBLHeader, error) {
	var h CBLHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return CBLHeader{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if h.Version != CBLVersion {
		return CBLHeader{}, fmt.Errorf("%w: unsupported cbl version %d", ErrInvalidFormat, h.Version)
	}
	if h.FileName == "" {
		return CBLHeader{}, fmt.Errorf("%w: cbl missing fileName", ErrInvalidFormat)
	}
	if h.BlockCount != len(h.Blocks) {
		return CBLHeader{}, fmt.Errorf("%w: blockCount %d disagrees with %d blocks", ErrInvalidFormat, h.BlockCount, len(h.Blocks))
	}
	var sum uint64
	for i, b := range h.Blocks {
		if _, err := ParseChecksum(b.ID); err != nil {
			return CBLHeader{}, fmt.Errorf("%w: blocks[%d].id: %v", ErrInvalidFormat, i, err)
		}
		sum += uint64(b.Size)
	}
	if sum != h.OriginalSize {
		return CBLHeader{}, fmt.Errorf("%w: sum of block sizes %d != originalSize %d", ErrInvalidFormat, sum, h.OriginalSize)
	}
	return h, nil
}

// StoreFile chops data into blockSize-byte chunks, zero-pads a short last
// chunk to blockSize, puts each into store, and returns the resulting CBL
// header bytes; each CBL entry records the chunk's unpadded length.
func StoreFile(store BlockStore, data []byte, fileName string) ([]byte, error) {
	blockSize := store.BlockSize()
	if blockSize <= 0 {
		return nil, fmt.Errorf("%w: store block size must be positive", ErrConfigInvalid)
	}
	infos := make([]BlockInfo, 0, (len(data)+blockSize-1)/blockSize)
	for offset := 0; offset < len(data); offset += blockSize {
		end := offset + blockSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[offset:end]
		padded := chunk
		if len(chunk) < blockSize {
			padded = make([]byte, blockSize)
			copy(padded, chunk)
		}
		id, err := store.Put(padded)
		if errors.Is(err, ErrAlreadyExists) {
			// Repeated content within one file hashes to a block already
			// in the pool; the existing block serves both positions.
			id = ComputeChecksum(padded)
		} else if err != nil {
			return nil, fmt.Errorf("brightchain: store block %d: %w", len(infos), err)
		}
		infos = append(infos, BlockInfo{ID: id.Hex(), Size: uint32(len(chunk))})
	}
	return EncodeCBL(infos, uint64(len(data)), fileName)
}

// RetrieveFile reassembles the original bytes described by a CBL header,
// fetching each block from store in order and truncating the last slice to
// its declared size.
func RetrieveFile(store BlockStore, header CBLHeader) ([]byte, error) {
	out := make([]byte, 0, header.OriginalSize)
	for i, info := range header.Blocks {
		id, err := ParseChecksum(info.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: blocks[%d].id: %v", ErrInvalidFormat, i, err)
		}
		block, err := store.Get(id)
		if err != nil {
			return nil, fmt.Errorf("brightchain: retrieve block %d: %w", i, err)
		}
		if int(info.Size) > len(block.Payload) {
			return nil, fmt.Errorf("%w: block %d declares size %d but payload is %d bytes", ErrIntegrity, i, info.Size, len(block.Payload))
		}
		out = append(out, block.Payload[:info.Size]...)
	}
	return out, nil
}
