package main

import (
	"net/http"
	"os"

	"yaniv/internal/broadcast"
	"yaniv/internal/logging"
	"yaniv/internal/room"
	"yaniv/internal/server"
	"yaniv/internal/store"
)

var log = logging.ForComponent("main")

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "5174"
	}

	st := store.Open(os.Getenv("DATABASE_URL"))
	hub := broadcast.NewHub()
	mgr := room.NewManager(st, hub)
	mgr.Bootstrap()

	router := server.NewRouter(mgr)

	log.Printf("listening on :%s", port)
	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
