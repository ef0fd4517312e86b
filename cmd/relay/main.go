// Command relay boots the LLM relay proxy: a gin-based primary ingress for
// client traffic, plus three admin surfaces (chi health checks, an echo
// connection-test endpoint, and a fiber stats dashboard), each exercising a
// distinct HTTP framework the way the teacher's examples do one-at-a-time.
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gofiber/fiber/v2"
	fibercors "github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/llmrelay/llmrelay/internal/config"
	"github.com/llmrelay/llmrelay/internal/obstelemetry"
	"github.com/llmrelay/llmrelay/internal/refstore"
	"github.com/llmrelay/llmrelay/internal/rlog"
	"github.com/llmrelay/llmrelay/pkg/account"
	"github.com/llmrelay/llmrelay/pkg/envelope"
	"github.com/llmrelay/llmrelay/pkg/providertag"
	"github.com/llmrelay/llmrelay/pkg/relay"
	"github.com/llmrelay/llmrelay/pkg/translate"
)

func main() {
	cfg := config.FromEnv()

	tel, err := obstelemetry.New(cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		log.Fatalf("telemetry init failed: %v", err)
	}
	defer func() { _ = tel.Shutdown(context.Background()) }()

	accounts := refstore.NewAccountStore()
	if err := seedAccounts(accounts, cfg.AccountsJSON); err != nil {
		log.Fatalf("ACCOUNTS_JSON invalid: %v", err)
	}

	apiKeys := refstore.NewApiKeyStore()
	scheduler := refstore.NewScheduler()
	costs := refstore.NewCostTable()
	usageRec := refstore.NewUsageRecorder()
	tags := providertag.New()

	var translator *translate.Service
	if cfg.Translation.Enabled {
		translator = translate.NewService(translate.Config{
			TranslatorAccountID: cfg.Translation.AccountID,
			CacheTTL:            time.Duration(cfg.Translation.CacheTTLHours) * time.Hour,
			CacheSize:           cfg.Translation.CacheSize,
			Model:               cfg.Translation.Model,
			MaxTokens:           cfg.Translation.MaxTokens,
			RequestsPerSecond:   5,
		}, accounts).WithTracer(tel.Tracer())
	}

	core := relay.NewCore(relay.Config{
		RequestTimeout:     cfg.RequestTimeout,
		TranslationEnabled: cfg.Translation.Enabled,
	}, accounts, scheduler, costs, usageRec, apiKeys, translator, tags).WithTracer(tel.Tracer())

	go runAdminChi(cfg, accounts, scheduler)
	go runAdminEcho(cfg, core)
	go runAdminFiber(cfg, core, translator)

	log.Printf("🚀 llmrelay primary ingress on :%s", cfg.Port)
	log.Printf("  POST /v1/messages         - Anthropic-shaped relay")
	log.Printf("  POST /v1/chat/completions - OpenAI-shaped relay")
	log.Printf("  admin: chi :%s (/healthz, /readyz), echo :%s (/admin/test-connection/:accountId), fiber :%s (/admin/stats)",
		cfg.HealthPort, cfg.AdminPort, cfg.StatsPort)

	if err := runPrimaryGin(cfg, core); err != nil {
		log.Fatal(err)
	}
}

func seedAccounts(store *refstore.AccountStore, raw string) error {
	if raw == "" {
		return nil
	}
	var seeds []*account.Account
	if err := json.Unmarshal([]byte(raw), &seeds); err != nil {
		return err
	}
	for _, acct := range seeds {
		store.Put(acct)
	}
	return nil
}

// httpSink adapts any net/http-compatible ResponseWriter (gin's c.Writer,
// echo's c.Response()) to relay.ResponseSink.
type httpSink struct {
	w http.ResponseWriter
}

func (s httpSink) WriteHeader(statusCode int, headers map[string]string) {
	h := s.w.Header()
	for k, v := range headers {
		h.Set(k, v)
	}
	s.w.WriteHeader(statusCode)
}

func (s httpSink) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

func (s httpSink) Flush() {
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
}

// runPrimaryGin serves the client-facing relay path.
func runPrimaryGin(cfg config.Config, core *relay.Core) error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ginRequestID())
	r.Use(ginRequestLogger())
	r.Use(ginCORS())

	handler := func(c *gin.Context) {
		var body envelope.Envelope
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"type": "bad_request", "message": err.Error()}})
			return
		}

		req := relay.Request{
			AccountID: c.GetHeader("X-Account-Id"),
			ApiKeyID:  c.GetHeader("X-Api-Key-Id"),
			Method:    http.MethodPost,
			Path:      c.Request.URL.Path,
			Headers:   filteredHeaders(c.Request.Header),
			Body:      body,
			SessionID: firstNonEmpty(c.GetHeader("X-Session-Id"), body.SessionID),
		}

		if err := core.Dispatch(c.Request.Context(), req, httpSink{w: c.Writer}); err != nil {
			rlog.Warnf(c.Request.Context(), "dispatch failed: %v", err)
		}
	}

	r.POST("/v1/messages", handler)
	r.POST("/v1/chat/completions", handler)

	return r.Run(":" + cfg.Port)
}

// firstNonEmpty returns the first non-empty string, or "" if all are empty.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// filteredHeaders strips hop-by-hop and auth headers the relay core sets
// itself, forwarding everything else to the upstream provider.
func filteredHeaders(h http.Header) map[string]string {
	skip := map[string]bool{
		"Authorization":   true,
		"Content-Type":    true,
		"Content-Length":  true,
		"Connection":      true,
		"X-Account-Id":    true,
		"X-Api-Key-Id":    true,
		"X-Session-Id":    true,
		"Host":            true,
		"Accept-Encoding": true,
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		if skip[http.CanonicalHeaderKey(k)] || len(v) == 0 {
			continue
		}
		out[k] = v[0]
	}
	return out
}

// ginRequestID stamps every request with a unique id, mirroring echo's
// built-in RequestID middleware so both servers are traceable the same way.
func ginRequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.New().String()
		}
		c.Writer.Header().Set("X-Request-Id", id)
		ctx := rlog.With(c.Request.Context(), "request_id", id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func ginRequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		rlog.Infof(c.Request.Context(), "%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func ginCORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Account-Id, X-Api-Key-Id, X-Session-Id")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

// runAdminChi serves liveness/readiness on its own port.
func runAdminChi(cfg config.Config, accounts *refstore.AccountStore, scheduler *refstore.Scheduler) {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if _, err := accounts.Resolve(ctx, ""); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "account resolver unreachable"})
			return
		}
		scheduler.Health("")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	log.Printf("chi admin listening on :%s", cfg.HealthPort)
	if err := http.ListenAndServe(":"+cfg.HealthPort, r); err != nil {
		log.Printf("chi admin server stopped: %v", err)
	}
}

// runAdminEcho serves the connection-test operator surface.
func runAdminEcho(cfg config.Config, core *relay.Core) {
	e := echo.New()
	e.HideBanner = true
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())

	e.POST("/admin/test-connection/:accountId", func(c echo.Context) error {
		accountID := c.Param("accountId")
		if err := core.TestConnection(c.Request().Context(), accountID, httpSink{w: c.Response()}); err != nil {
			rlog.Warnf(c.Request().Context(), "test-connection %s failed: %v", accountID, err)
		}
		return nil
	})

	log.Printf("echo admin listening on :%s", cfg.AdminPort)
	if err := e.Start(":" + cfg.AdminPort); err != nil && err != http.ErrServerClosed {
		log.Printf("echo admin server stopped: %v", err)
	}
}

// runAdminFiber serves the operational stats dashboard.
func runAdminFiber(cfg config.Config, core *relay.Core, translator *translate.Service) {
	app := fiber.New(fiber.Config{AppName: "llmrelay admin stats", DisableStartupMessage: true})
	app.Use(fibercors.New())

	app.Get("/admin/stats", func(c *fiber.Ctx) error {
		stats := fiber.Map{
			"relay": core.Stats(),
		}
		if translator != nil {
			stats["translationCache"] = translator.CacheStats()
		}
		return c.JSON(stats)
	})

	log.Printf("fiber admin listening on :%s", cfg.StatsPort)
	if err := app.Listen(":" + cfg.StatsPort); err != nil {
		log.Printf("fiber admin server stopped: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
