// Package errors provides error handling and recovery mechanisms for the bot.
// It implements an error counter with automatic shutdown on excessive errors
// and forwards failures to Sentry when a DSN is configured.
package errors

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PancyStudios/PancyModGo/pkg/logger"
	"github.com/getsentry/sentry-go"
	"github.com/goccy/go-json"
)

// ErrorHandler manages error counting and reporting
type ErrorHandler struct {
	errorCount    int32
	webhookURL    string
	sentryEnabled bool
	stopChan      chan struct{}
	stopOnce      sync.Once
	shutdownFunc  func()
	exitFunc      func(code int)
	maxErrors     int32
	resetInterval time.Duration
	checkInterval time.Duration
}

// Options configures the global error handler.
type Options struct {
	WebhookURL   string
	SentryDSN    string
	Environment  string
	Release      string
	ShutdownFunc func()
}

// ReportErrorOptions contains options for reporting an error
type ReportErrorOptions struct {
	Error   string
	Message string
}

var (
	handler *ErrorHandler
	once    sync.Once
)

// Init initializes the global error handler
func Init(opts Options) *ErrorHandler {
	once.Do(func() {
		handler = NewErrorHandler(opts)
	})
	return handler
}

// Get returns the global error handler instance
func Get() *ErrorHandler {
	return handler
}

// NewErrorHandler creates a new ErrorHandler instance
func NewErrorHandler(opts Options) *ErrorHandler {
	h := &ErrorHandler{
		errorCount:    0,
		webhookURL:    opts.WebhookURL,
		stopChan:      make(chan struct{}),
		shutdownFunc:  opts.ShutdownFunc,
		exitFunc:      os.Exit,
		maxErrors:     15,
		resetInterval: 5 * time.Second,
		checkInterval: 1 * time.Second,
	}

	if opts.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              opts.SentryDSN,
			Environment:      opts.Environment,
			Release:          opts.Release,
			AttachStacktrace: true,
		})
		if err != nil {
			logger.Error(fmt.Sprintf("No se pudo inicializar Sentry: %v", err), "AntiCrash")
		} else {
			h.sentryEnabled = true
			logger.System("Sentry inicializado", "AntiCrash")
		}
	}

	h.start()
	return h
}

// start begins the error monitoring goroutines
func (h *ErrorHandler) start() {
	// Error reset goroutine - resets error count every 5 seconds
	go func() {
		ticker := time.NewTicker(h.resetInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				atomic.StoreInt32(&h.errorCount, 0)
			case <-h.stopChan:
				return
			}
		}
	}()

	// Error check goroutine - checks for excessive errors
	go func() {
		ticker := time.NewTicker(h.checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if h.Exceeded() {
					h.shutdown()
					return
				}
			case <-h.stopChan:
				return
			}
		}
	}()
}

// Exceeded reports whether the error budget for the current window is spent.
func (h *ErrorHandler) Exceeded() bool {
	return atomic.LoadInt32(&h.errorCount) > h.maxErrors
}

func (h *ErrorHandler) shutdown() {
	start := time.Now()
	logger.Warn("Se detectó un número demasiado alto de errores", "CRITICAL")
	logger.Warn("Apagando...", "CRITICAL")

	h.Report(ReportErrorOptions{
		Error:   "Critical Error",
		Message: "Número inusual de errores. Apagando...",
	})

	if h.shutdownFunc != nil {
		h.shutdownFunc()
	}
	h.Flush()

	elapsed := time.Since(start)
	logger.Warn(fmt.Sprintf("Finalizando proceso... Tiempo total: %v", elapsed), "CRITICAL")
	h.exitFunc(1)
}

// Stop stops the error monitoring goroutines
func (h *ErrorHandler) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
	})
	h.Flush()
}

// Flush waits for buffered Sentry events to be delivered.
func (h *ErrorHandler) Flush() {
	if h.sentryEnabled {
		sentry.Flush(2 * time.Second)
	}
}

// IncrementError increments the error count
func (h *ErrorHandler) IncrementError() {
	count := atomic.AddInt32(&h.errorCount, 1)
	logger.Error(fmt.Sprintf("Error count: %d", count), "AntiCrash")
}

// HandlePanic handles a recovered panic
func (h *ErrorHandler) HandlePanic(recovered interface{}) {
	h.IncrementError()
	logger.Debug("Unhandled Panic/Catch", "AntiCrash")
	logger.Error(fmt.Sprintf("%v", recovered), "SYS")
	if h.sentryEnabled {
		sentry.CurrentHub().Recover(recovered)
	}
}

// Capture logs an unexpected error and forwards it to Sentry. It does not
// count towards the shutdown budget; use it for failures that are already
// contained (a single scheduler record, a single relayed message).
func (h *ErrorHandler) Capture(err error, prefix string) {
	if err == nil {
		return
	}
	logger.Error(err.Error(), prefix)
	if h.sentryEnabled {
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("component", prefix)
			sentry.CaptureException(err)
		})
	}
}

// Report sends an error report to the Discord webhook
func (h *ErrorHandler) Report(data ReportErrorOptions) {
	if h.sentryEnabled {
		sentry.CaptureMessage(fmt.Sprintf("%s: %s", data.Error, data.Message))
	}

	if h.webhookURL == "" {
		return
	}

	embed := map[string]interface{}{
		"author": map[string]string{
			"name": fmt.Sprintf("Error %s", data.Error),
		},
		"description": data.Message,
		"color":       0xFF0000, // Red
		"footer": map[string]string{
			"text": "PancyMod Go",
		},
		"timestamp": time.Now().Format(time.RFC3339),
	}

	payload := map[string]interface{}{
		"embeds": []interface{}{embed},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to marshal error report: %v", err), "AntiCrash")
		return
	}

	req, err := http.NewRequest("POST", h.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to create webhook request: %v", err), "AntiCrash")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to send error report: %v", err), "AntiCrash")
		return
	}
	defer resp.Body.Close()

	logger.Warn(fmt.Sprintf("Sent ErrorReport to Webhook, Status: %d", resp.StatusCode), "AntiCrash")
}

// RecoverMiddleware returns a recovery function for use in deferred calls
func RecoverMiddleware() func() {
	return func() {
		if r := recover(); r != nil {
			if handler != nil {
				handler.HandlePanic(r)
			} else {
				logger.Error(fmt.Sprintf("Panic recovered (no handler): %v", r), "AntiCrash")
			}
		}
	}
}

// Capture forwards an error to the global handler, or just logs it when the
// handler has not been initialised.
func Capture(err error, prefix string) {
	if err == nil {
		return
	}
	if handler != nil {
		handler.Capture(err, prefix)
		return
	}
	logger.Error(err.Error(), prefix)
}
