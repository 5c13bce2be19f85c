package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thesimplekid/cashu-payment-backend/internal/cashu"
	"github.com/thesimplekid/cashu-payment-backend/internal/pos"
	"github.com/thesimplekid/cashu-payment-backend/internal/quotestore"
	"github.com/thesimplekid/cashu-payment-backend/internal/quotestore/pg"
	"github.com/thesimplekid/cashu-payment-backend/internal/wallet"
	"github.com/thesimplekid/cashu-payment-backend/internal/wallet/mintclient"
)

var (
	commit    string
	buildDate string
)

func main() {
	ctx := context.Background()

	configPath := flag.String("config", "", "location of config file. If none is specified config will be loaded from the environment")
	flag.Parse()

	log.Printf("build info: commit: %v date: %v\n", commit, buildDate)

	var (
		cfg Config
		err error
	)
	if *configPath != "" {
		log.Printf("loading config from file %q\n", *configPath)
		err = cfg.Load(*configPath)
	} else {
		log.Println("loading config from env")
		err = cfg.LoadFromEnv()
	}
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}

	acceptedMints := make([]cashu.MintURL, 0, len(cfg.AcceptedMints))
	for _, m := range cfg.AcceptedMints {
		mint, err := cashu.ParseMintURL(m)
		if err != nil {
			log.Printf("accepted mint %q: %v\n", m, err)
			os.Exit(1)
		}
		acceptedMints = append(acceptedMints, mint)
	}

	// Quote store setup
	var store quotestore.Store
	switch cfg.QuoteDBDriver {
	case "sqlite":
		store, err = quotestore.New(cfg.QuoteDB)
	case "postgres":
		store, err = pg.New(cfg.QuoteDB)
	}
	if err != nil {
		log.Printf("quote store err: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	// One wallet per accepted mint and unit
	wallets := wallet.NewMultiMintWallet()
	for _, mint := range acceptedMints {
		for _, unit := range []cashu.Unit{cashu.Sat, cashu.Usd} {
			wallets.Add(mint, unit, mintclient.New(mint, unit, store))
		}
	}

	svc := pos.New(store, wallets, acceptedMints, cfg.PaymentURL)

	// Re-commit any settlement that was redeemed but never marked paid.
	repaired, err := svc.RepairPending(ctx)
	if err != nil {
		log.Printf("repair pending settlements: %v\n", err)
		os.Exit(1)
	}
	if repaired > 0 {
		log.Printf("repaired %d pending settlements\n", repaired)
	}

	h := handlers{
		config: cfg,
		pos:    svc,
	}

	r := newRouter(&h)

	port := fmt.Sprintf(":%d", cfg.Port)

	log.Printf("pos listening on %v\n", port)

	http.ListenAndServe(port, r)
}

func newRouter(h *handlers) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(metricsMiddleware)

	r.Get("/create", h.handleCreateQuote)
	r.Post("/payment", h.handleReceivePayment)
	r.Get("/check/{id}", h.handleCheckQuote)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
