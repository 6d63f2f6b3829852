package routes

import (
	"github.com/gorilla/mux"

	"brightchain/blockserver/controllers"
	"brightchain/blockserver/middleware"
)

func Register(r *mux.Router, bc *controllers.BlockController) {
	r.Use(middleware.Logger)
	r.HandleFunc("/api/block/store", bc.Store).Methods("POST")
	r.HandleFunc("/api/block/retrieve", bc.Retrieve).Methods("POST")
	r.HandleFunc("/api/block/whiten/encode", bc.WhitenEncode).Methods("POST")
	r.HandleFunc("/api/block/whiten/decode", bc.WhitenDecode).Methods("GET")
	r.HandleFunc("/api/block/magnet", bc.MagnetParse).Methods("GET")
	r.HandleFunc("/api/block/size", bc.Size).Methods("GET")
}
