package main

import (
	"log"
	"net/http"
	"time"

	"github.com/diewo77/go-submittals/httpx"
	"github.com/diewo77/go-submittals/internal/config"
	"github.com/diewo77/go-submittals/internal/handlers"
	"github.com/diewo77/go-submittals/internal/notify"
	"github.com/diewo77/go-submittals/internal/proposal"
	"github.com/diewo77/go-submittals/internal/services"
	"github.com/diewo77/go-submittals/internal/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	DB       *gorm.DB
	Engine   handlers.Engine
	Files    storage.FileStore
	Renderer proposal.Renderer
	// Events and Hub are optional.
	Events  *notify.EventLog
	Hub     *notify.Hub
	Quote   config.QuoteConfig
	MaxBody int64
}

// App is the main application handler that sets up all routes.
type App struct {
	mux  *http.ServeMux
	db   *gorm.DB
	deps Deps
}

// NewApp creates a new application with all routes configured.
func NewApp(deps Deps) *App {
	app := &App{
		mux:  http.NewServeMux(),
		db:   deps.DB,
		deps: deps,
	}
	app.setupRoutes()
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	d := a.deps
	submittals := services.NewSubmittalService(a.db)
	intake := services.NewIntakeService(d.Engine, d.Files, d.Quote.WebSuffix)

	sh := handlers.NewSubmittalHandler(d.Engine, submittals, intake, d.Renderer, d.Quote.DefaultSuffix, d.MaxBody)
	ih := handlers.NewIntakeHandler(intake, d.MaxBody)
	jh := handlers.NewJobHandler(services.NewJobService(a.db), d.MaxBody)
	ch := handlers.NewCustomerHandler(services.NewCustomerService(a.db))
	mh := handlers.NewManufacturerHandler(services.NewCatalogService(a.db))
	fh := handlers.NewFinancialsHandler(services.NewReportService(a.db))
	ah := handlers.NewActivityHandler(submittals, d.Events, d.Hub)

	// ─────────────────────────────────────────────────────────────────────────
	// Health
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("GET /health", a.health)
	a.mux.HandleFunc("GET /healthz", a.healthz)

	// ─────────────────────────────────────────────────────────────────────────
	// Public intake
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("POST /api/web-submittal", ih.Submit)

	// ─────────────────────────────────────────────────────────────────────────
	// Submittals, options and winners
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("GET /api/submittals", sh.List)
	a.mux.HandleFunc("POST /api/submittals", sh.Create)
	a.mux.HandleFunc("GET /api/submittals/{id}", sh.Get)
	a.mux.HandleFunc("DELETE /api/submittals/{id}", sh.Delete)
	a.mux.HandleFunc("POST /api/submittals/{id}/options", sh.AddOption)
	a.mux.HandleFunc("DELETE /api/options/{id}", sh.DeleteOption)
	a.mux.HandleFunc("POST /api/submittals/{id}/winner", sh.SelectWinner)
	a.mux.HandleFunc("DELETE /api/submittals/{id}/winner", sh.RevertWinner)
	a.mux.HandleFunc("PUT /api/submittals/{id}/customer", sh.LinkCustomer)
	a.mux.HandleFunc("POST /api/submittals/{id}/document", sh.UploadDocument)
	a.mux.HandleFunc("POST /api/submittals/{id}/proposal", sh.Proposal)

	// ─────────────────────────────────────────────────────────────────────────
	// Jobs
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("GET /api/jobs", jh.List)
	a.mux.HandleFunc("PATCH /api/jobs/{id}/financials", jh.UpdateFinancials)
	a.mux.HandleFunc("POST /api/jobs/{id}/add-ons", jh.AddAddOn)

	// ─────────────────────────────────────────────────────────────────────────
	// Customers and catalog
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("GET /api/customers", ch.Search)
	a.mux.HandleFunc("GET /api/customers/{id}", ch.Get)
	a.mux.HandleFunc("GET /api/manufacturers", mh.List)
	a.mux.HandleFunc("POST /api/manufacturers", mh.Create)

	// ─────────────────────────────────────────────────────────────────────────
	// Reporting
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("GET /api/financials", fh.Report)
	a.mux.HandleFunc("GET /api/financials/export", fh.Export)
	a.mux.HandleFunc("GET /api/activity", ah.Recent)
	a.mux.HandleFunc("GET /api/activity/stream", ah.Stream)
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware
// ─────────────────────────────────────────────────────────────────────────────

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Flush keeps server-sent event streams working through the wrapper.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

// withLogging assigns a request id and logs each request with its status.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %d %s id=%s", r.Method, r.URL.Path, rec.status, time.Since(start), id)
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Health
// ─────────────────────────────────────────────────────────────────────────────

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := a.db.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		log.Printf("[health] db ping: %v", err)
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok", "db": "ok"})
}
