package main

// blockserver is the HTTP ingestion front-end for a BrightChain node:
// load config, build services, register routes, serve. Configuration is
// shared with the node via pkg/config.

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"brightchain/blockserver/controllers"
	"brightchain/blockserver/routes"
	"brightchain/blockserver/services"
	"brightchain/core"
	pkgconfig "brightchain/pkg/config"
)

func buildStore(cfg *pkgconfig.Config) (core.BlockStore, error) {
	switch cfg.Store.Backend {
	case "disk":
		return core.NewDiskBlockStore(cfg.Store.DiskDir, cfg.Store.BlockSize, cfg.Network.NodeID, cfg.Store.MaxEntries)
	default:
		return core.NewMemoryBlockStore(cfg.Store.BlockSize, cfg.Network.NodeID), nil
	}
}

func main() {
	cfg, err := pkgconfig.Load(os.Getenv("BRIGHTCHAIN_ENV"))
	if err != nil {
		logrus.Fatal(err)
	}

	store, err := buildStore(cfg)
	if err != nil {
		logrus.Fatal(err)
	}

	svc := services.NewService(store)
	ctrl := controllers.NewBlockController(svc)

	r := mux.NewRouter()
	routes.Register(r, ctrl)

	addr := cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8088"
	}
	logrus.Infof("blockserver listening on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		logrus.Fatal(err)
	}
}
