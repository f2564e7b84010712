// Package web serves the bitalgo dashboard: simulation pages, a JSON API,
// the live price board and an SSE stream of completed runs.
package web

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/bitalgo/bitalgo/internal/domain"
	"github.com/bitalgo/bitalgo/internal/render"
	"github.com/bitalgo/bitalgo/internal/services/simulation"
)

const (
	runPollInterval   = 2 * time.Second
	heartbeatInterval = 20 * time.Second
)

type simulator interface {
	Run(ctx context.Context, req simulation.Request) (*simulation.Report, error)
	History(ctx context.Context, pair domain.Pair, interval string, periods int) ([]domain.PricePoint, error)
	Board(ctx context.Context, pairs []domain.Pair) []simulation.Quote
	Prices(ctx context.Context, quote string, watchlist []domain.Pair) ([]simulation.Quote, error)
}

type runReader interface {
	RunsAfter(index uint64) ([]domain.SimulationRunRecord, error)
}

// Defaults fill in the query parameters a request leaves out.
type Defaults struct {
	Pair      domain.Pair
	Interval  string
	Periods   int
	Amount    decimal.Decimal
	Watchlist []domain.Pair
	EMAPeriod int
}

// Server exposes HTTP endpoints serving the HTML UI, the JSON API and an SSE stream.
type Server struct {
	Addr      string
	Simulator simulator
	Runs      runReader
	Defaults  Defaults

	logger *zap.Logger
}

// NewServer creates a new web server instance. runs may be nil.
func NewServer(addr string, sim simulator, runs runReader, defaults Defaults, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{Addr: addr, Simulator: sim, Runs: runs, Defaults: defaults, logger: logger}
}

// Handler returns the dashboard routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	for _, v := range domain.Views() {
		mux.HandleFunc(viewPath(v), s.viewHandler(v))
	}
	mux.HandleFunc("/api/simulate", s.handleAPISimulate)
	mux.HandleFunc("/runs/stream", s.handleRunStream)
	return mux
}

func viewPath(v domain.View) string {
	if v == domain.ViewIntro {
		return "/"
	}
	return "/" + v.String()
}

func (s *Server) viewHandler(v domain.View) http.HandlerFunc {
	switch v {
	case domain.ViewIntro:
		return s.handleIntro
	case domain.ViewLivePrices:
		return s.handlePrices
	case domain.ViewSimulation:
		return s.handleSimulate
	case domain.ViewPriceHistory:
		return s.handleHistory
	default:
		return http.NotFound
	}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("dashboard listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartWithAutoTLS runs an HTTPS server with automatic TLS certificates via ACME.
// It also starts an HTTP server on port 80 to handle ACME HTTP-01 challenges.
func (s *Server) StartWithAutoTLS(ctx context.Context, domains []string, cacheDir string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(domains) == 0 {
		return fmt.Errorf("no domains provided for automatic TLS")
	}
	if cacheDir == "" {
		cacheDir = "cert-cache"
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	httpSrv := &http.Server{
		Addr:              ":80",
		Handler:           manager.HTTPHandler(nil),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	httpsSrv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
		TLSConfig:         tlsConfig,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("http (acme) server shutdown error", zap.Error(err))
		}
		if err := httpsSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("https server shutdown error", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http (acme) server error", zap.Error(err))
		}
	}()

	s.logger.Info("dashboard listening with automatic TLS", zap.String("addr", s.Addr), zap.Strings("domains", domains))
	if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type viewLink struct {
	Path  string
	Title string
}

func (s *Server) handleIntro(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	links := make([]viewLink, 0, len(domain.Views()))
	for _, v := range domain.Views() {
		if v == domain.ViewIntro {
			continue
		}
		links = append(links, viewLink{Path: viewPath(v), Title: v.Title()})
	}

	s.writeHTML(w, introTemplate, struct {
		Pair   string
		Amount string
		Links  []viewLink
	}{Pair: s.Defaults.Pair.String(), Amount: s.Defaults.Amount.String(), Links: links})
}

// handlePrices serves the board for ?pairs=, otherwise the whole market of the
// default quote currency when the exchange can list it.
func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("pairs"))
	if raw == "" {
		quotes, err := s.Simulator.Prices(r.Context(), s.Defaults.Pair.To, s.Defaults.Watchlist)
		if err != nil {
			s.logger.Warn("failed to list prices", zap.Error(err))
			writeJSON(w, runErrorStatus(err), errorBody{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, quotes)
		return
	}

	var pairs []domain.Pair
	for _, part := range strings.Split(raw, ",") {
		pair, err := domain.ParsePair(part)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		pairs = append(pairs, pair)
	}

	writeJSON(w, http.StatusOK, s.Simulator.Board(r.Context(), pairs))
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	req, err := s.requestFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := s.Simulator.Run(r.Context(), req)
	if err != nil {
		s.writeRunError(w, err)
		return
	}

	var page bytes.Buffer
	title := fmt.Sprintf("%s DCA, %s per %s", report.Pair, req.Amount.String(), report.Interval)
	if err := render.ReturnChart(&page, title, report.Rows); err != nil {
		s.logger.Error("render return chart", zap.Error(err))
		http.Error(w, "failed to render chart", http.StatusInternalServerError)
		return
	}

	var fragment bytes.Buffer
	if err := reportTemplate.Execute(&fragment, report); err != nil {
		s.logger.Error("render report table", zap.Error(err))
		http.Error(w, "failed to render report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(injectBeforeBodyEnd(page.Bytes(), fragment.Bytes()))
}

func (s *Server) handleAPISimulate(w http.ResponseWriter, r *http.Request) {
	req, err := s.requestFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	report, err := s.Simulator.Run(r.Context(), req)
	if err != nil {
		status := runErrorStatus(err)
		if status != http.StatusBadRequest {
			s.logger.Warn("simulation failed", zap.String("pair", req.Pair.String()), zap.Error(err))
		}
		writeJSON(w, status, errorBody{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	req, err := s.requestFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	points, err := s.Simulator.History(r.Context(), req.Pair, req.Interval, req.Periods)
	if err != nil {
		s.writeRunError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	title := fmt.Sprintf("%s closes (%s)", req.Pair.String(), req.Interval)
	if err := render.PriceChart(w, title, points, s.Defaults.EMAPeriod); err != nil {
		s.logger.Error("render price chart", zap.Error(err))
	}
}

func (s *Server) handleRunStream(w http.ResponseWriter, r *http.Request) {
	if s.Runs == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "run journal not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// send a comment heartbeat so proxies keep connection
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(runPollInterval)
	defer pollTicker.Stop()

	lastIndex := parseLastEventID(r.Header.Get("Last-Event-ID"), r.URL.Query().Get("last_event_id"))
	sendRuns := func() error {
		records, err := s.Runs.RunsAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, record := range records {
			// the stream carries summaries only
			run := record.Run
			run.Rows = nil

			payload, err := json.Marshal(run)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "id: %d\n", record.Index)
			fmt.Fprintf(w, "event: run\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastIndex = record.Index
		}
		return nil
	}

	if err := sendRuns(); err != nil {
		http.Error(w, "failed to load runs", http.StatusInternalServerError)
		s.logger.Error("run stream initial load", zap.Error(err))
		return
	}

	// lets the client leave its loading state
	if lastIndex == 0 {
		fmt.Fprintf(w, "event: no_data\n")
		fmt.Fprintf(w, "data: {}\n\n")
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendRuns(); err != nil {
				s.logger.Warn("run stream poll", zap.Error(err))
			}
		}
	}
}

// requestFromQuery reads pair, amount, interval and periods, falling back to Defaults.
func (s *Server) requestFromQuery(r *http.Request) (simulation.Request, error) {
	q := r.URL.Query()
	req := simulation.Request{
		Pair:     s.Defaults.Pair,
		Interval: s.Defaults.Interval,
		Periods:  s.Defaults.Periods,
		Amount:   s.Defaults.Amount,
	}

	if raw := q.Get("pair"); raw != "" {
		pair, err := domain.ParsePair(raw)
		if err != nil {
			return simulation.Request{}, err
		}
		req.Pair = pair
	}
	if raw := q.Get("amount"); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return simulation.Request{}, fmt.Errorf("invalid amount %q", raw)
		}
		req.Amount = amount
	}
	if raw := q.Get("interval"); raw != "" {
		req.Interval = raw
	}
	if raw := q.Get("periods"); raw != "" {
		periods, err := strconv.Atoi(raw)
		if err != nil || periods < 1 {
			return simulation.Request{}, fmt.Errorf("invalid periods %q", raw)
		}
		req.Periods = periods
	}

	return req, nil
}

func runErrorStatus(err error) int {
	if errors.Is(err, domain.ErrInvalidInput) {
		return http.StatusBadRequest
	}
	if errors.Is(err, context.Canceled) {
		return http.StatusRequestTimeout
	}
	return http.StatusBadGateway
}

func (s *Server) writeRunError(w http.ResponseWriter, err error) {
	status := runErrorStatus(err)
	if status != http.StatusBadRequest {
		s.logger.Warn("request failed", zap.Int("status", status), zap.Error(err))
	}
	http.Error(w, err.Error(), status)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeHTML(w http.ResponseWriter, tmpl *template.Template, data any) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		s.logger.Error("render template", zap.String("template", tmpl.Name()), zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func injectBeforeBodyEnd(page, fragment []byte) []byte {
	idx := bytes.LastIndex(page, []byte("</body>"))
	if idx < 0 {
		return append(page, fragment...)
	}

	out := make([]byte, 0, len(page)+len(fragment))
	out = append(out, page[:idx]...)
	out = append(out, fragment...)
	return append(out, page[idx:]...)
}

// parseLastEventID extracts an SSE event ID from either the Last-Event-ID header or a query parameter.
// The header is preferred; the query parameter allows manual reconnects to resume from a known index.
func parseLastEventID(headerVal, queryVal string) uint64 {
	idStr := strings.TrimSpace(headerVal)
	if idStr == "" {
		idStr = strings.TrimSpace(queryVal)
	}
	if idStr == "" {
		return 0
	}

	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
