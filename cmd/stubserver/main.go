package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/comanda-pos/client/internal/backend"
	"github.com/comanda-pos/client/internal/config"
	"github.com/comanda-pos/client/internal/enum"
	"github.com/comanda-pos/client/internal/ws"
)

func main() {
	cfg := config.Load()
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "stubserver").Logger()

	store := backend.NewStore(nil)

	// Demo staff so the manager surface works out of the box.
	if err := store.AddStaff("manager", "manager", "demo-restaurant", "main-hall", enum.RoleManager); err != nil {
		log.Fatal().Err(err).Msg("seed staff")
	}

	hub := ws.NewHub()
	go hub.Run()

	router := backend.NewRouter(cfg.JWTSecret, store, hub, log)

	log.Info().Str("port", cfg.Port).Msg("stub backend listening")
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), router); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
