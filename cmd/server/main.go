package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/aurex/exchange/internal/api"
	"github.com/aurex/exchange/internal/auth"
	"github.com/aurex/exchange/internal/cache"
	"github.com/aurex/exchange/internal/config"
	"github.com/aurex/exchange/internal/ledger"
	"github.com/aurex/exchange/internal/market"
	"github.com/aurex/exchange/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

type WSClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

var (
	clients   = make(map[*WSClient]bool)
	clientsMu sync.RWMutex
)

func broadcastQuotes(feed *market.Feed, logger *zap.Logger) {
	data, err := json.Marshal(feed.Snapshot())
	if err != nil {
		logger.Error("marshal quotes", zap.Error(err))
		return
	}

	clientsMu.RLock()
	stale := make([]*WSClient, 0)
	for client := range clients {
		client.mu.Lock()
		err := client.conn.WriteMessage(websocket.TextMessage, data)
		client.mu.Unlock()
		if err != nil {
			stale = append(stale, client)
		}
	}
	clientsMu.RUnlock()

	if len(stale) > 0 {
		clientsMu.Lock()
		for _, client := range stale {
			delete(clients, client)
		}
		clientsMu.Unlock()
	}
}

func handleWebSocket(feed *market.Feed, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade", zap.Error(err))
			return
		}

		client := &WSClient{conn: conn}
		clientsMu.Lock()
		clients[client] = true
		clientsMu.Unlock()

		// Send the current snapshot immediately, then on every tick.
		broadcastQuotes(feed, logger)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				clientsMu.Lock()
				delete(clients, client)
				clientsMu.Unlock()
				break
			}
		}
	}
}

// Main entry point: wires the price feed, the in-memory ledger, and the
// HTTP/WebSocket server. Everything lives in process memory and dies with it.
func main() {
	// Running without a .env file is normal.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Price feed and market snapshot cache.
	feed := market.NewFeed()
	marketCache, err := cache.NewMarketCache(cfg.MarketTTL)
	if err != nil {
		logger.Fatal("cache", zap.Error(err))
	}

	// In-memory sessions and the ledger state machine.
	store := session.NewStore()
	svc := ledger.NewService(store, feed, ledger.Latencies{
		Login:    cfg.LoginLatency,
		Signup:   cfg.SignupLatency,
		Deposit:  cfg.DepositLatency,
		Withdraw: cfg.WithdrawLatency,
		Trade:    cfg.TradeLatency,
	}, cfg.DeclineRate, logger)

	authService := auth.NewAuthService(svc, cfg.JWTSecret, cfg.TokenTTL)
	handler := api.NewHandler(svc, authService, feed, marketCache, logger)

	// Tick the feed for as long as the process runs; each tick drops the
	// cached market payload and pushes fresh quotes to websocket clients.
	go func() {
		ticker := time.NewTicker(cfg.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				feed.Tick()
				marketCache.Invalidate()
				broadcastQuotes(feed, logger)
			}
		}
	}()

	// Market caps drift from the moving price; reconcile them hourly.
	reconciler := cron.New()
	if _, err := reconciler.AddFunc("@hourly", func() {
		feed.ReconcileMarketCaps()
		marketCache.Invalidate()
		logger.Info("market caps reconciled")
	}); err != nil {
		logger.Fatal("cron", zap.Error(err))
	}
	reconciler.Start()
	defer reconciler.Stop()

	// Set up HTTP router
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// WebSocket quote stream
	r.Get("/ws", handleWebSocket(feed, logger))

	// Public endpoints
	r.Post("/auth/register", handler.Register)
	r.Post("/auth/login", handler.Login)
	r.Get("/market", handler.GetMarket)
	r.Get("/market/{symbol}", handler.GetQuote)

	// Protected endpoints (require JWT)
	r.Group(func(r chi.Router) {
		r.Use(handler.JWTAuthMiddleware)
		r.Post("/auth/logout", handler.Logout)
		r.Post("/deposit", handler.Deposit)
		r.Post("/withdraw", handler.Withdraw)
		r.Post("/trade", handler.Trade)
		r.Get("/account", handler.GetAccount)
		r.Get("/transactions", handler.GetTransactions)
		r.Get("/portfolio", handler.GetPortfolio)
	})

	server := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Info("http listening", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http", zap.Error(err))
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	cancel()

	ctxShut, cancelShut := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShut()
	_ = server.Shutdown(ctxShut)
	logger.Info("shutdown complete")
}
