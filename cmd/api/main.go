package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/audit"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/auth"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/contract"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/httpapi"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/integration"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/obs"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/offer"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/order"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/request"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/store/memory"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/store/pg"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/tenancy"
)

var version = "0.3.1"

// stores is the slice of the persistence layer the services consume; both
// the memory and Postgres stores satisfy it.
type stores interface {
	tenancy.Store
	contract.Store
	request.Store
	offer.Store
	order.Store
}

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("BUILD_COMMIT"))

	var (
		st    stores
		ready httpapi.ReadyProbe
	)
	if dsn := os.Getenv("PMS_PG_DSN"); dsn != "" {
		pgStore, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer pgStore.Close()
		st = pgStore
		ready = httpapi.ReadyProbe{DB: pgStore.DB()}
	} else {
		// No DSN: run fully in-process. Useful for local development only.
		log.Println("PMS_PG_DSN not set, using in-memory store")
		st = memory.New()
	}

	tenants, err := tenancy.NewService(st)
	if err != nil {
		log.Fatalf("tenancy service: %v", err)
	}
	contracts, err := contract.NewRegistry(st)
	if err != nil {
		log.Fatalf("contract registry: %v", err)
	}
	requests, err := request.NewService(st, st, tenants)
	if err != nil {
		log.Fatalf("request service: %v", err)
	}
	offers, err := offer.NewService(st, st, st, tenants)
	if err != nil {
		log.Fatalf("offer service: %v", err)
	}
	orders, err := order.NewService(st, tenants)
	if err != nil {
		log.Fatalf("order service: %v", err)
	}
	sync, err := integration.NewSync(contracts, requests)
	if err != nil {
		log.Fatalf("integration sync: %v", err)
	}

	apiKey := os.Getenv("PMS_INTEGRATION_API_KEY")
	var outbound *integration.Client
	if g2, g3 := os.Getenv("PMS_GROUP2_URL"), os.Getenv("PMS_GROUP3_URL"); g2 != "" || g3 != "" {
		outbound = integration.NewClient(g2, g3, apiKey)
	}

	api := httpapi.New(httpapi.Config{
		Sessions:  auth.NewSessions(st),
		Contracts: contracts,
		Requests:  requests,
		Offers:    offers,
		Orders:    orders,
		Sync:      sync,
		Outbound:  outbound,
		Trail:     audit.NewTrail(),
		Ready:     ready,
		APIKey:    apiKey,
		Version:   version,
	})

	addr := os.Getenv("SERVER_ADDRESS")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting provider-management-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}
