package routes

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/peerwallet/internal/auth"
	"github.com/congo-pay/peerwallet/internal/config"
	"github.com/congo-pay/peerwallet/internal/funding"
	"github.com/congo-pay/peerwallet/internal/identity"
	"github.com/congo-pay/peerwallet/internal/metrics"
	"github.com/congo-pay/peerwallet/internal/middleware"
	"github.com/congo-pay/peerwallet/internal/notification"
	"github.com/congo-pay/peerwallet/internal/transfer"
	"github.com/congo-pay/peerwallet/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	Cache   *redis.Client
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	store, err := walletStore(d)
	if err != nil {
		return err
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(cors.New(cors.Config{AllowOrigins: d.Cfg.CORSAllowOrigins}))
	app.Use(middleware.Metrics(d.Metrics))
	if d.Cfg.IsDev() {
		// [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)
	app.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))

	var identityRepo identity.Repository
	if d.DB != nil {
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		identityRepo = identity.NewMemoryRepository()
	}
	retry := wallet.RetryPolicy{MaxRetries: d.Cfg.TransferMaxRetries, Backoff: d.Cfg.TransferRetryBackoff}

	identitySvc := identity.NewService(identityRepo, auth.NewBcryptHasher(d.Cfg.BcryptCost), store, d.Logger)
	tokens := auth.NewService(d.Cfg.JWTSecret, d.Cfg.TokenTTL)
	fundingSvc := funding.NewService(store, retry, d.Metrics, d.Logger)
	transferSvc := transfer.NewService(identityRepo, store, retry, notification.NewLoggerNotifier(d.Logger), d.Metrics, d.Logger)

	// Public routes
	RegisterIdentityRoutes(app, identity.NewHandler(identitySvc))
	RegisterAuthRoutes(app, auth.NewHandler(identitySvc, tokens))

	// Protected routes
	protected := app.Group("", middleware.JWTAuth(tokens))
	RegisterProfileRoute(protected, identitySvc, store)
	RegisterWalletRoutes(protected, funding.NewHandler(fundingSvc), transfer.NewHandler(transferSvc))

	return nil
}

func walletStore(d Deps) (wallet.Store, error) {
	switch d.Cfg.WalletStore {
	case config.StorePostgres:
		if d.DB == nil {
			return nil, fmt.Errorf("wallet store %q requires a database connection", d.Cfg.WalletStore)
		}
		return wallet.NewPostgresStore(d.DB), nil
	case config.StoreRedis:
		if d.Cache == nil {
			return nil, fmt.Errorf("wallet store %q requires a redis connection", d.Cfg.WalletStore)
		}
		if d.DB == nil {
			return nil, fmt.Errorf("wallet store %q requires a database for accounts", d.Cfg.WalletStore)
		}
		return wallet.NewRedisStore(d.Cache), nil
	case config.StoreMemory, "":
		if d.DB != nil {
			return nil, fmt.Errorf("wallet store %q cannot back accounts stored in the database", config.StoreMemory)
		}
		return wallet.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown wallet store %q", d.Cfg.WalletStore)
	}
}
