package controllers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"brightchain/blockserver/controllers"
	"brightchain/blockserver/routes"
	"brightchain/blockserver/services"
	"brightchain/core"
)

func newTestServer() *httptest.Server {
	store := core.NewMemoryBlockStore(256, "test-session")
	svc := services.NewService(store)
	ctrl := controllers.NewBlockController(svc)
	r := mux.NewRouter()
	routes.Register(r, ctrl)
	return httptest.NewServer(r)
}

func TestStoreRetrieveRoundTrip(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	body := []byte("hello world")
	resp, err := http.Post(srv.URL+"/api/block/store?name=hi.txt", "application/octet-stream", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("store status = %d", resp.StatusCode)
	}
	var header core.CBLHeader
	if err := json.NewDecoder(resp.Body).Decode(&header); err != nil {
		t.Fatalf("decode cbl: %v", err)
	}
	if header.BlockCount != 1 || header.Blocks[0].Size != 11 {
		t.Fatalf("unexpected cbl header: %+v", header)
	}

	cblBytes, err := json.Marshal(header)
	if err != nil {
		t.Fatalf("marshal cbl: %v", err)
	}
	resp2, err := http.Post(srv.URL+"/api/block/retrieve", "application/json", bytes.NewReader(cblBytes))
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	defer resp2.Body.Close()
	var out bytes.Buffer
	if _, err := out.ReadFrom(resp2.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !bytes.Equal(out.Bytes(), body) {
		t.Fatalf("round trip mismatch: got %q, want %q", out.Bytes(), body)
	}
}

func TestWhitenEncodeDecodeRoundTrip(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	cbl := []byte(`{"version":1,"fileName":"x","originalSize":0,"blockCount":0,"blocks":[]}`)
	resp, err := http.Post(srv.URL+"/api/block/whiten/encode", "application/octet-stream", bytes.NewReader(cbl))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("encode status = %d", resp.StatusCode)
	}
	var result core.WhitenedResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode result: %v", err)
	}

	resp2, err := http.Get(srv.URL + "/api/block/whiten/decode?id1=" + result.R1.Hex() + "&id2=" + result.R2.Hex())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	defer resp2.Body.Close()
	var out bytes.Buffer
	if _, err := out.ReadFrom(resp2.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !bytes.Equal(out.Bytes(), cbl) {
		t.Fatalf("whiten round trip mismatch: got %q, want %q", out.Bytes(), cbl)
	}
}

func TestMagnetParseEndpointRejectsGarbage(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/block/magnet?url=not-a-magnet")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
