package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"log/slog"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/Alejandro-Bernal-M/tienda-back/internal/events"
	apphttp "github.com/Alejandro-Bernal-M/tienda-back/internal/http"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/http/handlers"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/http/middleware"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/mailer"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/cart"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/catalog"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/orders"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/payments"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/users"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/storage"
)

func main() {
	// .env is optional; prod uses real env vars.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	ctx := context.Background()

	store, err := storage.FromEnv(ctx)
	if err != nil {
		log.Fatalf("storage init failed: %v", err)
	}
	logger.Info("storage ready", "driver", store.Driver)

	catalogRepo := catalog.NewRepo(db)
	catalogSvc := catalog.NewService(catalogRepo)
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		catalogSvc.SetRedisClient(redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		}))
		logger.Info("product cache enabled", "addr", addr)
	}

	userSvc := users.NewService(db)
	cartRepo := cart.NewRepo(db)
	orderRepo := orders.NewRepo(db)
	orderSvc := orders.NewService(db)

	provider := buildProvider()
	ledger := payments.NewProvisionalLedger(db, intentTTL())

	intentSvc := payments.NewIntentService(catalogSvc, provider, ledger)
	intentSvc.SetLogger(logger)

	engine := payments.NewEngine(provider.Name(), ledger, orderRepo)
	engine.SetLogger(logger)

	if amqpURL := os.Getenv("AMQP_URL"); amqpURL != "" {
		pub, err := events.NewPublisher(amqpURL, envOr("AMQP_EXCHANGE", "shop.events"))
		if err != nil {
			log.Fatalf("amqp init failed: %v", err)
		}
		defer pub.Close()
		pub.SetLogger(logger)
		engine.SetPublisher(pub)
		logger.Info("event publisher ready")
	}

	if host := os.Getenv("SMTP_HOST"); host != "" {
		m := mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:          host,
			Port:          envOr("SMTP_PORT", "1025"),
			User:          os.Getenv("SMTP_USER"),
			Pass:          os.Getenv("SMTP_PASS"),
			TLSMode:       envOr("SMTP_TLS_MODE", "none"),
			SkipVerifyTLS: os.Getenv("SMTP_TLS_SKIP_VERIFY") == "true",
		})
		engine.SetMailer(m, envOr("MAIL_FROM", "no-reply@local.test"))
		logger.Info("order confirmation mail enabled")
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	sweeper := payments.NewSweeper(ledger, sweepInterval())
	sweeper.SetLogger(logger)
	go sweeper.Run(sweepCtx)

	sessCfg := middleware.SessionCfg{DB: db, TTL: 30 * 24 * time.Hour}

	localUploads := ""
	if store.Driver == "local" {
		localUploads = envOr("LOCAL_UPLOAD_DIR", "./storage/uploads")
	}

	r := apphttp.NewRouter(apphttp.RouterDeps{
		Logger:  logger,
		SessCfg: sessCfg,

		Auth:         handlers.NewAuthHandlers(userSvc, sessCfg),
		Products:     handlers.NewProductHandlers(catalogRepo, catalogSvc, store.Storage),
		Categories:   handlers.NewCategoryHandlers(catalogRepo),
		HomeSections: handlers.NewHomeSectionHandlers(catalogRepo),
		Cart:         handlers.NewCartHandlers(cartRepo, catalogSvc),
		Orders:       handlers.NewOrderHandlers(orderRepo, orderSvc),
		Checkout:     handlers.NewCheckoutHandlers(intentSvc, cartRepo, shippingCents()),
		Webhooks:     handlers.NewWebhookHandlers(provider, engine, logger),

		LocalUploadsDir: localUploads,
	})

	addr := envOr("HTTP_ADDR", ":8080")
	logger.Info("listening", "addr", addr, "provider", provider.Name())
	if err := r.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

// buildProvider selects the active payment gateway from the
// environment. Exactly one is live per deployment.
func buildProvider() payments.Provider {
	switch envOr("PAYMENT_PROVIDER", "mercadopago") {
	case "mercadopago":
		token := os.Getenv("MP_ACCESS_TOKEN")
		if token == "" {
			log.Fatal("MP_ACCESS_TOKEN environment variable is required")
		}
		return payments.NewMercadoPago(payments.MercadoPagoConfig{
			AccessToken: token,
			BaseURL:     os.Getenv("MP_BASE_URL"),
			NotifyURL:   os.Getenv("MP_NOTIFY_URL"),
			BackURLBase: os.Getenv("MP_BACK_URL_BASE"),
		})
	case "checkout_session":
		secret := os.Getenv("CS_SECRET_KEY")
		whSecret := os.Getenv("CS_WEBHOOK_SECRET")
		if secret == "" || whSecret == "" {
			log.Fatal("CS_SECRET_KEY and CS_WEBHOOK_SECRET are required")
		}
		return payments.NewCheckoutSession(payments.CheckoutSessionConfig{
			SecretKey:     secret,
			WebhookSecret: whSecret,
			BaseURL:       os.Getenv("CS_BASE_URL"),
			SuccessURL:    os.Getenv("CS_SUCCESS_URL"),
			CancelURL:     os.Getenv("CS_CANCEL_URL"),
		})
	default:
		log.Fatalf("unknown PAYMENT_PROVIDER: %s", os.Getenv("PAYMENT_PROVIDER"))
		return nil
	}
}

func intentTTL() time.Duration {
	if v := os.Getenv("INTENT_TTL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Minute
		}
	}
	return payments.DefaultIntentTTL
}

func sweepInterval() time.Duration {
	if v := os.Getenv("SWEEP_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Minute
		}
	}
	return 0 // sweeper default
}

func shippingCents() int {
	if v := os.Getenv("SHIPPING_CENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return 0
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
