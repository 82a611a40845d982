package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/globaltrack/go-logistics-client/internal/config"
	"github.com/globaltrack/go-logistics-client/internal/httpx"
	"github.com/globaltrack/go-logistics-client/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional tracking cache
	rdb := redisx.New(ctx, cfg.RedisAddr)
	if rdb != nil {
		defer rdb.Close()
		log.Printf("tracking cache enabled at %s", cfg.RedisAddr)
	}

	st := &httpx.State{}
	st.SeedDefaults()

	router := httpx.NewRouter()
	h := &httpx.Handler{State: st, Redis: rdb}
	h.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("mock API listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
}
