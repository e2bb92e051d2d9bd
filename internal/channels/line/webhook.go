package line

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/render"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/wolfman30/spa-line-booking/internal/flow"
	"github.com/wolfman30/spa-line-booking/internal/observability/metrics"
	"github.com/wolfman30/spa-line-booking/pkg/logging"
)

// Dispatcher processes a batch of converted events.
type Dispatcher interface {
	Dispatch(ctx context.Context, batch []flow.Event) flow.Summary
}

// WebhookHandler verifies LINE webhook deliveries and hands them to the
// dispatcher after acknowledging the request.
type WebhookHandler struct {
	channelSecret string
	dispatcher    Dispatcher
	logger        *logging.Logger
	metrics       *metrics.FlowMetrics
	timeout       time.Duration
	wg            sync.WaitGroup
}

// NewWebhookHandler creates a webhook handler. timeout bounds how long one
// batch may take once detached from the request.
func NewWebhookHandler(channelSecret string, dispatcher Dispatcher, logger *logging.Logger, m *metrics.FlowMetrics, timeout time.Duration) *WebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WebhookHandler{
		channelSecret: channelSecret,
		dispatcher:    dispatcher,
		logger:        logger,
		metrics:       m,
		timeout:       timeout,
	}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cb, err := webhook.ParseRequest(h.channelSecret, r)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.logger.Warn("line webhook signature rejected", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		h.logger.Warn("line webhook body rejected", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	batch := ConvertEvents(cb)
	// LINE retries slow deliveries, so answer before processing.
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ok"})

	if len(batch) == 0 {
		return
	}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.timeout)
		defer cancel()

		start := time.Now()
		sum := h.dispatcher.Dispatch(ctx, batch)
		h.metrics.ObserveWebhookLatency(time.Since(start).Seconds())
		h.logger.Info("line webhook batch processed",
			"destination", cb.Destination,
			"events", len(batch),
			"handled", sum.Handled,
			"failed", sum.Failed,
			"skipped", sum.Skipped,
		)
	}()
}

// Wait blocks until every in-flight batch has finished.
func (h *WebhookHandler) Wait() {
	h.wg.Wait()
}
