package main // Entry point package

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/quickbite/order-api/internal/config"
	"github.com/quickbite/order-api/internal/database"
	"github.com/quickbite/order-api/internal/handler"
	"github.com/quickbite/order-api/internal/middleware"
	"github.com/quickbite/order-api/internal/queue"
	"github.com/quickbite/order-api/internal/repository"
	"github.com/quickbite/order-api/internal/router"
	"github.com/quickbite/order-api/internal/service"
	"github.com/quickbite/order-api/internal/session"
	"github.com/quickbite/order-api/internal/token"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg := config.Load()
	rlCfg := config.LoadRateLimitConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	issuer := token.Issuer{
		AccessSecret:  cfg.AccessSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     time.Duration(cfg.AccessTTLHours) * time.Hour,
		RefreshTTL:    time.Duration(cfg.RefreshTTLDays) * 24 * time.Hour,
	}

	// Redis backs the limiter counters and the session mirror; when it is
	// unreachable both fall back to in-process storage so the API stays up.
	var (
		counters middleware.CounterStore
		sessions session.Store
	)
	if rdb := config.NewRedisClient(); rdb != nil {
		counters = middleware.NewRedisCounter(rdb)
		sessions = session.NewRedisStore(rdb)
	} else {
		log.Println("redis unavailable, using in-process counters and sessions")
		counters = middleware.NewMemoryCounter()
		sessions = session.NewMemoryStore()
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	resets := repository.NewResetRepo(db)

	auth := service.NewAuth(users, tokens, resets, sessions, issuer,
		cfg.BcryptCost, time.Duration(cfg.ResetTTLMin)*time.Minute, queue.Publish)

	// Audit consumer tails auth.events into logs/auth.log; it reconnects
	// on broker failures and never takes the server down.
	go func() {
		if err := queue.StartAuthConsumer(); err != nil {
			log.Printf("auth consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.Register(e, handler.NewAuthHandler(auth, issuer.RefreshTTL), issuer, rlCfg, counters)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
