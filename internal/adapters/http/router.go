package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/routers"

	"github.com/kirillkom/contract-intelligence/internal/config"
	"github.com/kirillkom/contract-intelligence/internal/core/ports"
	"github.com/kirillkom/contract-intelligence/internal/observability/logging"
)

const maxJSONBodyBytes = 1 << 20

// Services are the inbound ports the HTTP surface drives.
type Services struct {
	Ingestor ports.ContractIngestor
	Searcher ports.ContractSearcher
	Answerer ports.QuestionAnswerer
	Lister   ports.ContractLister
	Alerts   ports.AlertReader
	History  ports.HistoryService
	Schema   ports.SchemaManager
}

// Recorder receives business-level measurements taken by handlers.
type Recorder interface {
	RecordSearch(searchType string, results int, duration time.Duration)
	RecordAnswers(endpoint string, answered, failed int)
	RecordIngest(category string, duration time.Duration, err error)
	RecordAlerts(alerts, reminders int)
}

// Metrics is a Recorder that also exposes its registry and wraps handlers with request metrics.
type Metrics interface {
	Recorder
	Handler() http.Handler
	Middleware(next http.Handler) http.Handler
}

type Router struct {
	cfg       config.Config
	services  Services
	metrics   Metrics
	recorder  Recorder
	validator routers.Router
}

func NewRouter(cfg config.Config, services Services, metrics Metrics) (*Router, error) {
	rt := &Router{
		cfg:      cfg,
		services: services,
		metrics:  metrics,
		recorder: noopRecorder{},
	}
	if metrics != nil {
		rt.recorder = metrics
	}
	if cfg.OpenAPIValidate {
		validator, err := newOpenAPIValidator()
		if err != nil {
			return nil, err
		}
		rt.validator = validator
	}
	return rt, nil
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	mux.HandleFunc("/upload/{$}", rt.uploadContract)
	mux.HandleFunc("/search/{$}", rt.searchContracts)
	mux.HandleFunc("/api/contracts/all/{$}", rt.listAllContracts)
	mux.HandleFunc("/api/contracts/export.xlsx", rt.exportContracts)
	mux.HandleFunc("/api/contracts/{category}/{$}", rt.listContractsByCategory)
	mux.HandleFunc("/alerts-reminders/{$}", rt.alertsAndReminders)
	mux.HandleFunc("/setup-qdrant/{$}", rt.setupSchema)

	mux.HandleFunc("/answer/{$}", rt.answerQuestion)
	mux.HandleFunc("/chat-with-document/{$}", rt.chatWithDocument)
	mux.HandleFunc("/summarize-multiple/{$}", rt.summarizeDocuments)

	mux.HandleFunc("/chat-history/{$}", rt.chatHistory)
	mux.HandleFunc("/chat-history/save/{$}", rt.saveChatHistory)
	mux.HandleFunc("/chat-history/document/{$}", rt.documentChatHistory)
	mux.HandleFunc("/chat-history/search/{$}", rt.searchChatHistory)

	var handler http.Handler = mux
	if rt.validator != nil {
		handler = openAPIValidationMiddleware(rt.validator, handler)
	}
	handler = timeoutMiddleware(handler, rt.cfg.RequestTimeout)
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.BackpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = corsMiddleware(rt.cfg.CORSOrigins, handler)
	handler = accessLogMiddleware(handler)
	handler = recoverMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

var errEmptyBody = errors.New("request body must be a JSON object")

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps err onto a status and logs server-side faults.
func writeDomainError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request_failed", "operation", operation, "error", err)
	}
	writeError(w, status, err.Error())
}

type noopRecorder struct{}

func (noopRecorder) RecordSearch(string, int, time.Duration) {}
func (noopRecorder) RecordAnswers(string, int, int) {}
func (noopRecorder) RecordIngest(string, time.Duration, error) {}
func (noopRecorder) RecordAlerts(int, int) {}
