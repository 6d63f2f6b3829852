package controllers

// BlockController provides HTTP handlers for block-store, whitening and
// magnet operations: decode request, call service, encode response.

import (
	"encoding/json"
	"io"
	"net/http"

	"brightchain/blockserver/services"
	"brightchain/core"
)

type BlockController struct {
	svc *services.BlockService
}

func NewBlockController(svc *services.BlockService) *BlockController {
	return &BlockController{svc: svc}
}

// Store handles POST /api/block/store?name=<fileName>, storing the request
// body as blocks and returning the resulting CBL header as JSON.
func (bc *BlockController) Store(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	name := r.URL.Query().Get("name")
	cbl, err := bc.svc.StoreFile(data, name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(cbl)
}

// Retrieve handles POST /api/block/retrieve, accepting a CBL header as the
// request body and streaming back the reassembled file.
func (bc *BlockController) Retrieve(w http.ResponseWriter, r *http.Request) {
	cblBytes, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	data, err := bc.svc.RetrieveFile(cblBytes)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Write(data)
}

// WhitenEncode handles POST /api/block/whiten/encode?encrypted=true,
// whitening the CBL header in the request body and returning the whitened
// result (both block ids, block size and magnet URL) as JSON.
func (bc *BlockController) WhitenEncode(w http.ResponseWriter, r *http.Request) {
	cblBytes, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	encrypted := r.URL.Query().Get("encrypted") == "true"
	result, err := bc.svc.WhitenEncode(cblBytes, encrypted)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(result)
}

// WhitenDecode handles GET /api/block/whiten/decode?id1=<hex>&id2=<hex>.
func (bc *BlockController) WhitenDecode(w http.ResponseWriter, r *http.Request) {
	id1, err := core.ParseChecksum(r.URL.Query().Get("id1"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id2, err := core.ParseChecksum(r.URL.Query().Get("id2"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	data, err := bc.svc.WhitenDecode(id1, id2)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Write(data)
}

// MagnetParse handles GET /api/block/magnet?url=<magnetURL>.
func (bc *BlockController) MagnetParse(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if wm, err := core.ParseWhitenedMagnetURL(raw); err == nil {
		json.NewEncoder(w).Encode(wm)
		return
	}
	fr, err := core.ParseFileReceiptMagnetURL(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	json.NewEncoder(w).Encode(fr)
}

// Size handles GET /api/block/size.
func (bc *BlockController) Size(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]int{"size": bc.svc.Size()})
}
