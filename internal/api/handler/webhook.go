package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/qs3c/gigmarket_server/config"
	"github.com/qs3c/gigmarket_server/internal/pkg/logger"
	"github.com/qs3c/gigmarket_server/internal/pkg/metrics"
	"github.com/qs3c/gigmarket_server/internal/pkg/response"
	"github.com/qs3c/gigmarket_server/internal/service"
	"github.com/qs3c/gigmarket_server/internal/webhook"
)

const defaultMaxWebhookBody = 64 << 10

type WebhookHandler struct {
	webhookService *service.WebhookService
	verifier       *webhook.Verifier
	cfg            config.WebhookConfig
	log            *logrus.Entry
}

func NewWebhookHandler(webhookService *service.WebhookService, cfg config.WebhookConfig) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		verifier:       webhook.NewVerifier(cfg.Secret),
		cfg:            cfg,
		log:            logger.WithSource("webhook"),
	}
}

// Handle 支付网关回调
// POST /api/v1/webhooks/payment
//
// 先对原始请求体验签，通过后才解析。已知与未知事件都返回 200，处理失败返回 500 由网关重试。
func (h *WebhookHandler) Handle(c *gin.Context) {
	deliveryID := service.NewDeliveryID()
	log := h.log.WithField("delivery_id", deliveryID)

	maxBytes := h.cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxWebhookBody
	}
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes))
	if err != nil {
		metrics.WebhookRequests.WithLabelValues("malformed").Inc()
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.WithField("limit", maxBytes).Warn("Webhook body too large")
			response.WebhookReject(c, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		log.WithError(err).Warn("Failed to read webhook body")
		response.WebhookReject(c, http.StatusBadRequest, "unreadable body")
		return
	}

	result := h.verifier.Verify(body, c.GetHeader(h.cfg.SignatureHeaderName()))
	if result != webhook.VerifyAuthentic {
		metrics.WebhookRequests.WithLabelValues(result.String()).Inc()
		entry := log.WithField("result", result.String())
		if result == webhook.VerifyNotConfigured {
			entry.Error("Webhook secret is not configured")
			response.WebhookReject(c, result.HTTPStatus(), "webhook not configured")
			return
		}
		entry.Warn("Rejected webhook with invalid signature")
		response.WebhookReject(c, result.HTTPStatus(), "invalid signature")
		return
	}

	ev, err := webhook.Parse(body)
	if err != nil {
		metrics.WebhookRequests.WithLabelValues("malformed").Inc()
		log.WithError(err).Warn("Malformed webhook payload")
		response.WebhookReject(c, http.StatusBadRequest, "malformed payload")
		return
	}
	metrics.WebhookRequests.WithLabelValues(result.String()).Inc()

	stored := h.webhookService.Record(deliveryID, ev)
	outcome, handlerErr := h.webhookService.Dispatch(c.Request.Context(), ev)
	h.webhookService.Complete(stored, outcome, handlerErr)

	entry := log.WithFields(logrus.Fields{
		"event":  ev.Type(),
		"result": string(outcome),
	})
	if outcome == service.OutcomeFailed {
		entry.WithError(handlerErr).Error("Webhook handler failed")
		response.WebhookReject(c, http.StatusInternalServerError, "processing failed")
		return
	}
	if handlerErr != nil {
		entry = entry.WithError(handlerErr)
	}
	entry.Info("Webhook processed")
	response.WebhookAck(c)
}
