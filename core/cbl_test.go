package core_test

import (
	"bytes"
	"errors"
	"testing"

	core "brightchain/core"
)

func TestStoreFileRetrieveFileRoundTrip(t *testing.T) {
	s := core.NewMemoryBlockStore(4, "session-1")
	data := []byte("hello brightchain world") // not a multiple of 4

	cblBytes, err := core.StoreFile(s, data, "greeting.txt")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	header, err := core.DecodeCBL(cblBytes)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if header.FileName != "greeting.txt" {
		t.Fatalf("fileName = %q", header.FileName)
	}
	if header.OriginalSize != uint64(len(data)) {
		t.Fatalf("originalSize = %d, want %d", header.OriginalSize, len(data))
	}

	out, err := core.RetrieveFile(s, header)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Fatalf("round trip mismatch: got %q, want %q", out, data)
	}
}

func TestStoreFileDeduplicatesRepeatedChunks(t *testing.T) {
	s := core.NewMemoryBlockStore(4, "session-1")
	data := []byte("abcdabcdabcd") // three identical chunks

	cblBytes, err := core.StoreFile(s, data, "repeat.bin")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if s.Size() != 1 {
		t.Fatalf("store size = %d, want 1 (identical chunks share a block)", s.Size())
	}
	header, err := core.DecodeCBL(cblBytes)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if header.BlockCount != 3 {
		t.Fatalf("blockCount = %d, want 3", header.BlockCount)
	}
	out, err := core.RetrieveFile(s, header)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Fatalf("round trip mismatch: got %q, want %q", out, data)
	}
}

func TestDecodeCBLRejectsBlockCountMismatch(t *testing.T) {
	_, err := core.DecodeCBL([]byte(`{"version":1,"fileName":"x","originalSize":0,"blockCount":1,"blocks":[]}`))
	if !errors.Is(err, core.ErrInvalidFormat) {
		t.Fatalf("got %v, want ErrInvalidFormat", err)
	}
}

func TestDecodeCBLRejectsSizeMismatch(t *testing.T) {
	id := core.ComputeChecksum([]byte("x")).Hex()
	body := `{"version":1,"fileName":"x","originalSize":99,"blockCount":1,"blocks":[{"id":"` + id + `","size":1}]}`
	_, err := core.DecodeCBL([]byte(body))
	if !errors.Is(err, core.ErrInvalidFormat) {
		t.Fatalf("got %v, want ErrInvalidFormat", err)
	}
}

func TestDecodeCBLRejectsUnsupportedVersion(t *testing.T) {
	_, err := core.DecodeCBL([]byte(`{"version":2,"fileName":"x","originalSize":0,"blockCount":0,"blocks":[]}`))
	if !errors.Is(err, core.ErrInvalidFormat) {
		t.Fatalf("got %v, want ErrInvalidFormat", err)
	}
}

func TestRetrieveFileFailsOnMissingBlock(t *testing.T) {
	s := core.NewMemoryBlockStore(4, "session-1")
	missingID := core.ComputeChecksum([]byte("never-stored")).Hex()
	header := core.CBLHeader{
		Version:      core.CBLVersion,
		FileName:     "x",
		OriginalSize: 4,
		BlockCount:   1,
		Blocks:       []core.BlockInfo{{ID: missingID, Size: 4}},
	}
	if _, err := core.RetrieveFile(s, header); err == nil {
		t.Fatalf("expected error retrieving a file with a missing block")
	}
}
