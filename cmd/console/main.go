package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/globaltrack/go-logistics-client/internal/api"
	"github.com/globaltrack/go-logistics-client/internal/auth"
	"github.com/globaltrack/go-logistics-client/internal/config"
	"github.com/globaltrack/go-logistics-client/internal/session"
	"github.com/globaltrack/go-logistics-client/internal/store"
	"github.com/globaltrack/go-logistics-client/internal/view"
)

// Headless demo of the client core: log in, poll the shipment API, and
// print the role-scoped dashboard whenever the store changes.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := api.New(cfg.APIBaseURL)
	identity := auth.NewContext(client, &session.File{Path: cfg.SessionFile})
	st := store.New(client, identity)

	if identity.CurrentUser() == nil {
		if _, err := identity.Login(ctx, cfg.LoginEmail, cfg.LoginPass); err != nil {
			log.Fatalf("login: %v", err)
		}
	}
	u := identity.CurrentUser()
	log.Printf("logged in as %s (%s)", u.Username, u.Role)

	st.Subscribe(func() {
		u := identity.CurrentUser()
		if u == nil {
			return
		}
		p := view.For(*u, st.Snapshot())
		log.Printf("%d shipments | pending=%d in_transit=%d delivered=%d unpaid=%d",
			p.Stats.Total, p.Stats.PendingCount, p.Stats.InTransitCount,
			p.Stats.CompletedCount, p.Stats.UnpaidCount)
		for _, s := range p.Shipments {
			driver := "-"
			if s.DriverID != nil {
				driver = strconv.Itoa(*s.DriverID)
			}
			log.Printf("  #%d %-10s %s -> %s [%s/%s] driver=%s",
				s.ID, s.TrackingCode, s.Origin, s.Destination, s.Status, s.PaymentStatus, driver)
		}
	})

	if err := st.Load(ctx); err != nil {
		log.Fatalf("initial load: %v", err)
	}
	st.StartPolling(ctx, cfg.PollInterval, func(err error) {
		log.Printf("poll: %v", err)
	})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("bye")
	cancel()
}
