package services

// BlockService wraps core block-storage, whitening and magnet operations
// for the HTTP API.

import (
	"brightchain/core"
)

type BlockService struct {
	store core.BlockStore
}

func NewService(store core.BlockStore) *BlockService { return &BlockService{store: store} }

func (bs *BlockService) StoreFile(data []byte, fileName string) ([]byte, error) {
	return core.StoreFile(bs.store, data, fileName)
}

func (bs *BlockService) RetrieveFile(cblBytes []byte) ([]byte, error) {
	header, err := core.DecodeCBL(cblBytes)
	if err != nil {
		return nil, err
	}
	return core.RetrieveFile(bs.store, header)
}

func (bs *BlockService) WhitenEncode(cblBytes []byte, encrypted bool) (core.WhitenedResult, error) {
	return core.EncodeWhitened(bs.store, cblBytes, encrypted)
}

func (bs *BlockService) WhitenDecode(id1, id2 core.Checksum) ([]byte, error) {
	return core.DecodeWhitened(bs.store, id1, id2)
}

func (bs *BlockService) Size() int { return bs.store.Size() }
