package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nazeru/storefront-core-go/internal/address"
	"github.com/nazeru/storefront-core-go/internal/cart"
	"github.com/nazeru/storefront-core-go/internal/catalog"
	"github.com/nazeru/storefront-core-go/internal/checkout"
	"github.com/nazeru/storefront-core-go/internal/httpapi"
	"github.com/nazeru/storefront-core-go/internal/identity"
	"github.com/nazeru/storefront-core-go/internal/inventory"
	"github.com/nazeru/storefront-core-go/internal/order"
	"github.com/nazeru/storefront-core-go/internal/payment"
	"github.com/nazeru/storefront-core-go/pkg/kafka"
	"github.com/nazeru/storefront-core-go/pkg/metrics"
	"github.com/nazeru/storefront-core-go/pkg/outbox"
)

type cfg struct {
	Port           string
	DatabaseURL    string
	JWTSecret      string
	PaymentBaseURL string
	PaymentTimeout time.Duration
	KafkaBrokers   string
	RelayInterval  time.Duration
	RelayBatch     int
}

func readCfg() (cfg, error) {
	port := getenv("PORT", "8080")
	db := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if db == "" {
		return cfg{}, errors.New("DATABASE_URL is required")
	}
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		return cfg{}, errors.New("JWT_SECRET is required")
	}
	payTimeoutMS, _ := strconv.Atoi(getenv("PAYMENT_TIMEOUT_MS", "2500"))
	relayMS, _ := strconv.Atoi(getenv("OUTBOX_RELAY_INTERVAL_MS", "1000"))
	relayBatch, _ := strconv.Atoi(getenv("OUTBOX_RELAY_BATCH", "100"))

	return cfg{
		Port:           port,
		DatabaseURL:    db,
		JWTSecret:      secret,
		PaymentBaseURL: strings.TrimRight(getenv("PAYMENT_BASE_URL", "http://localhost:8081"), "/"),
		PaymentTimeout: time.Duration(payTimeoutMS) * time.Millisecond,
		KafkaBrokers:   getenv("KAFKA_BROKERS", ""),
		RelayInterval:  time.Duration(relayMS) * time.Millisecond,
		RelayBatch:     relayBatch,
	}, nil
}

func main() {
	cfg, err := readCfg()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("db ping error: %v", err)
	}

	orderStore := order.NewPGStore(pool)
	durableCarts := cart.NewPGStore(pool)
	srv := &httpapi.Server{
		Identity:  identity.NewProvider(cfg.JWTSecret),
		Carts:     cart.NewService(cart.NewMemStore(), durableCarts),
		Catalog:   catalog.NewPGGetter(pool),
		Addresses: address.NewPGBook(pool),
		Inventory: inventory.NewPGLedger(pool),
		Checkout:  checkout.NewManager(),
		Orders:    orderStore,
		Placer:    order.NewCoordinator(orderStore),
		Charger:   payment.NewHTTPCharger(cfg.PaymentBaseURL, cfg.PaymentTimeout),
		Metrics:   metrics.NewServerMetrics("storefront"),
	}

	kafkaClient := kafka.NewClient(cfg.KafkaBrokers)
	if kafkaClient.Enabled() {
		writer := kafkaClient.NewWriter(order.EventsTopic)
		defer writer.Close()
		relay := &outbox.Relay{
			Pool: pool,
			Publish: func(ctx context.Context, rec outbox.Record) error {
				return kafka.PublishJSON(ctx, writer, rec.Key, rec.Payload)
			},
			Interval: cfg.RelayInterval,
			Batch:    cfg.RelayBatch,
		}
		go func() {
			if err := relay.Run(context.Background()); err != nil {
				log.Printf("outbox relay stopped: %v", err)
			}
		}()
	}

	httpSrv := &http.Server{Addr: ":" + cfg.Port, Handler: srv.Router(), ReadHeaderTimeout: 5 * time.Second}
	log.Printf("storefront-service listening on :%s", cfg.Port)
	log.Fatal(httpSrv.ListenAndServe())
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
