package server

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"card-pricer/metrics"
	"card-pricer/models"
	"card-pricer/scraper/ebay"
	"card-pricer/services"
	"card-pricer/storage"
	"card-pricer/utils"
)

const maxBatchCards = 100

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Server exposes the pricer over HTTP.
type Server struct {
	pricer         services.CardPricer
	logger         *utils.Logger
	metrics        *metrics.Metrics
	gatherer       prometheus.Gatherer
	maxConcurrency int
	requestTimeout time.Duration
	checks         map[string]HealthCheck
}

// Option customizes a Server.
type Option func(*Server)

func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) { s.checks[name] = check }
}

func WithMaxConcurrency(n int) Option { return func(s *Server) { s.maxConcurrency = n } }

func WithRequestTimeout(d time.Duration) Option { return func(s *Server) { s.requestTimeout = d } }

// New creates a Server around pricer.
func New(pricer services.CardPricer, logger *utils.Logger, opts ...Option) *Server {
	s := &Server{
		pricer:         pricer,
		logger:         logger,
		maxConcurrency: 3,
		requestTimeout: 2 * time.Minute,
		checks:         map[string]HealthCheck{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(middleware.Timeout(s.requestTimeout))
		r.Get("/card-price", s.handleCardPrice)
		r.Post("/batch", s.handleBatch)
	})
	return r
}

// ListenAndServe runs until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("[server] Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("[server] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	resp := healthResponse{Status: "ok", Checks: map[string]string{}}
	for name, check := range s.checks {
		if err := check(r.Context()); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	render.Status(r, status)
	render.JSON(w, r, resp)
}

func (s *Server) handleCardPrice(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	card := models.CardQuery{
		Brand:         q.Get("brand"),
		SetName:       q.Get("set_name"),
		Year:          q.Get("year"),
		Condition:     q.Get("condition"),
		PlayerName:    q.Get("player_name"),
		CardNumber:    q.Get("card_number"),
		CardVariation: q.Get("card_variation"),
	}
	if err := services.ValidateCard(card); err != nil {
		s.renderError(w, r, err)
		return
	}

	price, err := s.pricer.GetCardPrice(r.Context(), card)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, price)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		s.renderStatus(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Cards) == 0 {
		s.renderStatus(w, r, http.StatusBadRequest, "cards must not be empty")
		return
	}
	if len(req.Cards) > maxBatchCards {
		s.renderStatus(w, r, http.StatusRequestEntityTooLarge, "too many cards in one batch")
		return
	}

	sink := storage.NewMemoryWriter()
	processor := services.NewBatchProcessor(s.pricer, sink, s.maxConcurrency, s.logger, s.metrics)
	result := processor.ProcessMany(r.Context(), req.Cards)

	records := sink.Records()
	sort.Slice(records, func(i, j int) bool { return records[i].Index < records[j].Index })

	resp := batchResponse{BatchResult: result, Prices: make([]batchPrice, 0, len(records))}
	for _, rec := range records {
		resp.Prices = append(resp.Prices, batchPrice{Card: rec.Card, Price: rec.Price})
	}
	render.JSON(w, r, resp)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("[server] %s %s failed: %v", r.Method, r.URL.Path, err)
	}
	s.renderStatus(w, r, status, err.Error())
}

func (s *Server) renderStatus(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg, RequestID: middleware.GetReqID(r.Context())})
}

func statusFor(err error) int {
	var te *ebay.TransportError
	switch {
	case errors.Is(err, services.ErrInvalidCard):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &te):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("[server] %s %s → %d (%s, req %s)",
			r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Millisecond), middleware.GetReqID(r.Context()))
	})
}
