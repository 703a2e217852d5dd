// Command tabletop is a terminal walkthrough of the guest flow against a
// running backend: bind a table, submit an order, cancel an item, request
// the bill split three ways.
package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/comanda-pos/client/internal/api"
	"github.com/comanda-pos/client/internal/cache"
	"github.com/comanda-pos/client/internal/checkout"
	"github.com/comanda-pos/client/internal/config"
	"github.com/comanda-pos/client/internal/enum"
	"github.com/comanda-pos/client/internal/guest"
	"github.com/comanda-pos/client/internal/ledger"
	"github.com/comanda-pos/client/internal/session"
)

func main() {
	cfg := config.Load()
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	var store cache.Store = cache.NewMemory()
	if cfg.RedisAddr != "" {
		store = cache.NewRedis(cfg.RedisAddr, 12*time.Hour)
	}

	guests := guest.NewProvider(store, nil)
	sess := session.New()
	sess.Bind("demo-restaurant", "table-7", "main-hall")

	client := api.New(cfg.BackendURL, cfg.HTTPTimeout)
	led := ledger.New(client, guests, sess, store, nil, log)
	co := checkout.New(led, log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := led.LoadCached(ctx); err != nil {
		log.Warn().Err(err).Msg("cache load")
	}

	if err := led.StartPolling(cfg.PollInterval); err != nil {
		log.Warn().Err(err).Msg("start polling")
	}
	defer led.StopPolling()

	submitted, err := led.Submit(ctx, ledger.Draft{
		GuestName: "Ana",
		OrderType: enum.OrderTypeLocal,
		Items: []ledger.DraftItem{
			{ProductID: "moqueca", Name: "Moqueca de camarão", Price: decimal.NewFromInt(30), Quantity: 2},
			{ProductID: "guarana", Name: "Guaraná", Price: decimal.NewFromInt(30), Quantity: 1},
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("submit")
	}
	log.Info().Str("order", submitted.ID).Str("total", submitted.TotalAmount.String()).Msg("order placed")

	if err := led.CancelItem(ctx, submitted.ID, submitted.Items[1].ID); err != nil {
		log.Fatal().Err(err).Msg("cancel item")
	}
	for _, o := range led.Orders() {
		log.Info().Str("order", o.ID).Str("total", o.TotalAmount.String()).Str("status", o.Status).Msg("after cancel")
	}

	if err := co.RequestCheckout(ctx, 3); err != nil {
		log.Fatal().Err(err).Msg("request checkout")
	}
	perPerson, err := co.AmountPerPerson(3)
	if err != nil {
		log.Fatal().Err(err).Msg("split")
	}
	log.Info().Str("per_person", perPerson.String()).Msg("bill requested")
}
