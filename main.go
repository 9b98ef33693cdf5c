package main

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/go-kit/log/level"
	"github.com/julienschmidt/httprouter"
	"github.com/oklog/run"
	"github.com/rs/cors"

	"tripgenie/booking"
	"tripgenie/config"
	"tripgenie/db"
	"tripgenie/itinerary"
	"tripgenie/live"
	"tripgenie/logger"
	"tripgenie/metrics"
	"tripgenie/middleware"
	"tripgenie/models"
	"tripgenie/mq"
	"tripgenie/pay"
	"tripgenie/pricing"
	"tripgenie/profile"
	"tripgenie/ratelim"
	"tripgenie/rdx"
	"tripgenie/reviews"
	"tripgenie/routes"
	"tripgenie/tickets"
	"tripgenie/utils"
)

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// XSS, content sniffing, framing
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		// HSTS (must be on HTTPS)
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		next.ServeHTTP(w, r)
	})
}

// statusWriter remembers the status code for the access log. It passes
// Hijack through so websocket upgrades still work behind it.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// loggingMiddleware logs each request method, path, remote address, status
// and duration, and feeds the latency histogram.
func loggingMiddleware(m *metrics.Metrics, next http.Handler) http.Handler {
	log := logger.With("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		elapsed := time.Since(start)
		m.ObserveRequest(r.Method, sw.status, elapsed)
		level.Debug(log).Log("method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr, "status", sw.status, "took", elapsed)
	})
}

// Reference currencies for the in-memory store; a mongo deployment carries
// its own collection.
var seedCurrencies = []models.Currency{
	{ID: "egp", Code: "EGP", Symbol: "E£", Name: "Egyptian Pound"},
	{ID: "usd", Code: "USD", Symbol: "$", Name: "US Dollar"},
	{ID: "eur", Code: "EUR", Symbol: "€", Name: "Euro"},
}

func openStore(ctx context.Context, cfg config.Config) (db.Store, func(), error) {
	if cfg.Store == "memory" {
		mem := db.NewMemory()
		for _, c := range seedCurrencies {
			if err := mem.InsertCurrency(ctx, c); err != nil {
				return nil, nil, err
			}
		}
		level.Warn(logger.Log).Log("msg", "using the in-memory store; data is lost on exit")
		return mem, func() {}, nil
	}

	mongo, err := db.Connect(ctx, db.Options{
		URI:          cfg.MongoURI,
		Database:     cfg.MongoDB,
		Transactions: cfg.MongoTransactions,
	})
	if err != nil {
		return nil, nil, err
	}
	return mongo, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongo.Close(ctx); err != nil {
			level.Error(logger.Log).Log("msg", "closing mongo", "err", err)
		}
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		level.Error(logger.Log).Log("msg", "loading config", "err", err)
		os.Exit(1)
	}

	startup, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	store, closeStore, err := openStore(startup, cfg)
	if err != nil {
		level.Error(logger.Log).Log("msg", "opening store", "err", err)
		os.Exit(1)
	}
	defer closeStore()

	m := metrics.New()
	hub := live.NewHub()

	var (
		rates  pricing.RateSource
		locks  rdx.Locker = rdx.NoLocker{}
		events mq.Emitter
		bus    *mq.RedisBus
	)
	if cfg.RatesURL != "" {
		rates = pricing.NewHTTPSource(cfg.RatesURL)
	}
	if cfg.RedisAddr != "" {
		client, err := rdx.Connect(startup, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			level.Error(logger.Log).Log("msg", "connecting to redis", "err", err)
			os.Exit(1)
		}
		defer client.Close()
		locks = rdx.RedisLocker{Client: client}
		bus = mq.NewRedisBus(client)
		events = bus
		if rates != nil {
			rates = &pricing.CachedSource{Source: rates, Redis: client, TTL: cfg.RatesTTL}
		}
	} else {
		local := &mq.LocalBus{}
		local.Subscribe(hub.Publish)
		events = local
		level.Info(logger.Log).Log("msg", "REDIS_ADDR unset; events stay in process")
	}

	payments := pay.NewPaymentService(store, locks)
	deps := routes.Deps{
		Auth:        middleware.NewAuth(cfg.JWTSecret),
		Limiter:     ratelim.NewRateLimiter(120, 20),
		Idempotency: store,
		Itineraries: itinerary.NewService(store, rates, events, m),
		Bookings:    booking.NewService(store, payments, tickets.Signer{Secret: cfg.TicketSecret}, events, m),
		Reviews:     reviews.NewService(store, events),
		Profiles:    profile.NewService(store, events, m),
		Payments:    payments,
		Hub:         hub,
	}

	router := httprouter.New()
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, p any) {
		m.PanicsRecovered.Inc()
		level.Error(logger.Log).Log("msg", "recovered from panic", "path", r.URL.Path, "panic", p, "stack", string(debug.Stack()))
		utils.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
	routes.RoutesWrapper(router, deps)

	// apply middleware: logging → security headers → CORS → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Idempotency-Key"},
		ExposedHeaders:   []string{"Idempotent-Replayed"},
		AllowCredentials: true,
	}).Handler(router)

	server := &http.Server{
		Addr:              cfg.Port,
		Handler:           loggingMiddleware(m, securityHeaders(corsHandler)),
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	g := &run.Group{}
	g.Add(func() error {
		level.Info(logger.Log).Log("msg", "starting API server", "addr", server.Addr, "store", cfg.Store)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}, func(error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			level.Error(logger.Log).Log("msg", "graceful shutdown failed", "err", err)
		}
	})

	metricsSrv := &http.Server{Addr: cfg.MetricsPort, ReadHeaderTimeout: 2 * time.Second}
	g.Add(func() error {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		metricsSrv.Handler = mux
		level.Info(logger.Log).Log("msg", "starting metrics server", "addr", metricsSrv.Addr)
		if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}, func(error) {
		if err := metricsSrv.Close(); err != nil {
			level.Error(logger.Log).Log("msg", "failed to stop metrics server", "err", err)
		}
	})

	g.Add(func() error {
		hub.Run()
		return nil
	}, func(error) {
		hub.Stop()
	})

	if bus != nil {
		consumeCtx, stopConsume := context.WithCancel(context.Background())
		g.Add(func() error {
			return live.Consume(consumeCtx, bus, hub)
		}, func(error) {
			stopConsume()
		})
	}

	g.Add(run.SignalHandler(context.Background(), syscall.SIGINT, syscall.SIGTERM))

	err = g.Run()
	var sig run.SignalError
	if err != nil && !errors.As(err, &sig) {
		level.Error(logger.Log).Log("err", err)
		closeStore()
		os.Exit(1)
	}
	level.Info(logger.Log).Log("msg", "stopped", "reason", err)
}
