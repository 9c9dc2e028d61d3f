package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"randomnft/core/events"
	"randomnft/native/randomnft"
	"randomnft/oracle"
	"randomnft/rpc/middleware"
)

const maxRequestBytes = 1 << 20 // 1 MiB

// Ledger is the subset of the mint engine served over HTTP.
type Ledger interface {
	RequestAsset(ctx context.Context, requester [20]byte, paid *big.Int) (uint64, error)
	Withdraw(caller [20]byte) (*big.Int, error)
	Credit(addr [20]byte, amount *big.Int) error
	Balance(addr [20]byte) (*big.Int, error)
	MintFee() *big.Int
	RequestCounter() (uint64, error)
	AssetCounter() (uint64, error)
	Request(id uint64) (*randomnft.Request, error)
	OwnerOf(id uint64) ([20]byte, error)
	Asset(id uint64) (*randomnft.Asset, error)
	CategoryBoundary(index int) (uint64, error)
	TokenURI(category uint8) (string, error)
	SelectCategory(modded uint64) (uint8, error)
	TreasuryBalance() (*big.Int, error)
}

// EventSource is the append-only event log read by the poll and stream
// endpoints.
type EventSource interface {
	Since(seq uint64, limit int) []events.Record
	Subscribe(seq uint64) (<-chan events.Record, func(), []events.Record)
}

// Config captures the dependencies required to construct the server.
type Config struct {
	Ledger      Ledger
	Consumer    oracle.Consumer
	Events      EventSource
	Auth        *middleware.Authenticator
	RateLimiter *middleware.RateLimiter
	Logger      *slog.Logger
	// Faucet enables POST /v1/faucet with the given grant when non-nil.
	Faucet      *big.Int
	ServiceName string
}

// Server exposes the mint ledger over HTTP.
type Server struct {
	ledger   Ledger
	consumer oracle.Consumer
	events   EventSource
	auth     *middleware.Authenticator
	limiter  *middleware.RateLimiter
	logger   *slog.Logger
	faucet   *big.Int
	obs      *middleware.Observability

	router http.Handler
}

// New constructs a configured HTTP router.
func New(cfg Config) (*Server, error) {
	if cfg.Ledger == nil {
		return nil, errors.New("rpc: ledger required")
	}
	if cfg.Auth == nil {
		return nil, errors.New("rpc: authenticator required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Events == nil {
		cfg.Events = events.NewLog()
	}
	srv := &Server{
		ledger:   cfg.Ledger,
		consumer: cfg.Consumer,
		events:   cfg.Events,
		auth:     cfg.Auth,
		limiter:  cfg.RateLimiter,
		logger:   cfg.Logger,
		obs:      middleware.NewObservability(cfg.ServiceName, cfg.Logger),
	}
	if cfg.Faucet != nil && cfg.Faucet.Sign() > 0 {
		srv.faucet = new(big.Int).Set(cfg.Faucet)
	}
	srv.router = srv.buildRouter()
	return srv, nil
}

// Handler exposes the configured HTTP router wrapped in OpenTelemetry
// instrumentation.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "randomnft.api")
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- httpSrv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.obs.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(api chi.Router) {
		api.Get("/mint-fee", s.GetMintFee)
		api.Get("/counters", s.GetCounters)
		api.Get("/requests/{id}", s.GetRequest)
		api.Get("/requests/{id}/owner", s.GetRequestOwner)
		api.Get("/assets/{id}", s.GetAsset)
		api.Get("/categories/{index}", s.GetCategory)
		api.Get("/select/{value}", s.SelectCategory)
		api.Get("/treasury", s.GetTreasury)
		api.Get("/accounts/{address}/balance", s.GetBalance)
		api.Get("/events", s.ListEvents)
		api.Get("/events/ws", s.StreamEvents)

		api.With(s.limiter.Middleware("/v1/oracle/fulfill")).Post("/oracle/fulfill", s.Fulfill)

		api.Group(func(protected chi.Router) {
			protected.Use(s.auth.Middleware)
			protected.With(s.limiter.Middleware("/v1/requests")).Post("/requests", s.CreateRequest)
			protected.Post("/withdraw", s.Withdraw)
			if s.faucet != nil {
				protected.With(s.limiter.Middleware("/v1/faucet")).Post("/faucet", s.Faucet)
			}
		})
	})
	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("encode response", "error", err)
	}
}

// writeError maps ledger and oracle errors to an HTTP status and a stable
// code.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.writeJSON(w, status, ErrorResult{Code: code, Message: err.Error()})
}

func (s *Server) writeBadRequest(w http.ResponseWriter, message string) {
	s.writeJSON(w, http.StatusBadRequest, ErrorResult{Code: "invalid_argument", Message: message})
}

func classify(err error) (int, string) {
	if errors.Is(err, oracle.ErrInvalidSignature) {
		return http.StatusBadRequest, "invalid_signature"
	}
	code := randomnft.ErrorCode(err)
	switch code {
	case "insufficient_fee", "insufficient_funds":
		return http.StatusPaymentRequired, code
	case "unknown_or_fulfilled_request":
		return http.StatusConflict, code
	case "range_out_of_bounds", "invalid_argument":
		return http.StatusBadRequest, code
	case "unauthorized", "only_coordinator":
		return http.StatusForbidden, code
	case "not_found":
		return http.StatusNotFound, code
	default:
		return http.StatusInternalServerError, "internal"
	}
}
