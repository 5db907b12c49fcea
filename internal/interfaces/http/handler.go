package http

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"

	"cobrazap/internal/entities"
	"cobrazap/internal/infrastructure"
	"cobrazap/internal/metrics"
	"cobrazap/internal/repository"
	"cobrazap/internal/usecases"
)

type Handler struct {
	sessions   *infrastructure.SessionManager
	dispatcher *usecases.Dispatcher
	notifier   *usecases.Notifier
	messageLog *repository.MessageLogRepository
	log        *logrus.Logger
}

func NewHandler(sessions *infrastructure.SessionManager, dispatcher *usecases.Dispatcher, notifier *usecases.Notifier, messageLog *repository.MessageLogRepository, log *logrus.Logger) *Handler {
	return &Handler{
		sessions:   sessions,
		dispatcher: dispatcher,
		notifier:   notifier,
		messageLog: messageLog,
		log:        log,
	}
}

func SetupRoutes(r *gin.Engine, h *Handler, middleware *Middleware) {
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(1 << 20)) // 1MB max request size

	// Public Routes
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Protected Routes
	api := r.Group("/")
	api.Use(middleware.AuthRequired())
	{
		api.POST("/whatsapp/init", h.InitSession)
		api.GET("/whatsapp/status", h.SessionStatus)
		api.GET("/whatsapp/qr", h.SessionQR)
		api.POST("/whatsapp/logout", h.Logout)
		api.GET("/messages", h.ListMessages)
		api.POST("/scheduler/run", h.RunScheduler)

		send := api.Group("/")
		send.Use(middleware.RateLimitPerCaller(5, 10))
		{
			send.POST("/whatsapp/send", h.Send)
			send.POST("/send-batch", h.SendBatch)
		}
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"status": "up",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// sessionResponse is the shared shape of init/status/qr responses.
func sessionResponse(snap entities.SessionSnapshot) gin.H {
	return gin.H{
		"ok":          true,
		"tenant_id":   snap.TenantID,
		"status":      snap.Status,
		"hasQr":       snap.HasQR(),
		"lastError":   snap.LastError,
		"lastEventAt": snap.LastEventAt.Format(time.RFC3339),
	}
}

type tenantRequest struct {
	TenantID string `json:"tenant_id"`
}

// tenantFromRequest reads tenant_id from JSON body (POST) or query (GET) and
// validates it. Writes the error response itself on failure.
func tenantFromRequest(c *gin.Context) (string, bool) {
	var tenantID string
	if c.Request.Method == http.MethodGet {
		tenantID = c.Query("tenant_id")
	} else {
		var req tenantRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return "", false
		}
		tenantID = req.TenantID
	}

	if !ValidTenantID(tenantID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or missing tenant_id"})
		return "", false
	}
	return tenantID, true
}

// InitSession lazily creates and starts the tenant's session. Idempotent:
// calling it for a live session just returns the current state.
func (h *Handler) InitSession(c *gin.Context) {
	tenantID, ok := tenantFromRequest(c)
	if !ok {
		return
	}

	snap := h.sessions.EnsureSession(tenantID)
	c.JSON(http.StatusOK, sessionResponse(snap))
}

// SessionStatus polls session state, creating the session lazily for an
// unknown tenant so a poll right after logout reports a fresh initializing
// session.
func (h *Handler) SessionStatus(c *gin.Context) {
	tenantID, ok := tenantFromRequest(c)
	if !ok {
		return
	}

	snap := h.sessions.EnsureSession(tenantID)
	c.JSON(http.StatusOK, sessionResponse(snap))
}

// SessionQR returns the current QR payload as a PNG data-URL, or null when
// the session is not awaiting a scan.
func (h *Handler) SessionQR(c *gin.Context) {
	tenantID, ok := tenantFromRequest(c)
	if !ok {
		return
	}

	snap := h.sessions.EnsureSession(tenantID)
	resp := sessionResponse(snap)
	resp["qr"] = nil

	if snap.HasQR() {
		png, err := qrcode.Encode(snap.QRCode, qrcode.Medium, 256)
		if err != nil {
			h.log.Warnf("qr encode failed for tenant %s: %v", tenantID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render QR code"})
			return
		}
		resp["qr"] = "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	}

	c.JSON(http.StatusOK, resp)
}

type sendRequest struct {
	TenantID string `json:"tenant_id"`
	To       string `json:"to"`
	Message  string `json:"message"`
}

func (h *Handler) Send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !ValidTenantID(req.TenantID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or missing tenant_id"})
		return
	}
	if !ValidMessage(req.Message) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message too long"})
		return
	}

	if err := h.dispatcher.Send(c.Request.Context(), req.TenantID, req.To, req.Message); err != nil {
		h.sendError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "tenant_id": req.TenantID, "to": req.To})
}

func (h *Handler) sendError(c *gin.Context, err error) {
	if snr, ok := entities.IsSessionNotReady(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": snr.Error(), "status": snr.Status})
		return
	}

	switch {
	case errors.Is(err, entities.ErrInvalidPhone), errors.Is(err, entities.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, entities.ErrTimeout), errors.Is(err, entities.ErrUpstream):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

type batchRequest struct {
	Items []usecases.BatchItem `json:"items"`
}

// SendBatch processes all items and reports full per-item accounting.
// 200 all delivered, 207 partial failure, 502 total failure.
func (h *Handler) SendBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "items must not be empty"})
		return
	}
	if len(req.Items) > MaxBatchItems {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many items in batch"})
		return
	}

	result := h.dispatcher.SendBatch(c.Request.Context(), req.Items)

	status := http.StatusOK
	switch {
	case result.Failed == result.Total:
		status = http.StatusBadGateway
	case result.Failed > 0:
		status = http.StatusMultiStatus
	}

	c.JSON(status, gin.H{
		"ok":      result.Failed == 0,
		"total":   result.Total,
		"failed":  result.Failed,
		"results": result.Results,
	})
}

// Logout tears down the tenant's session. A later init or status call
// recreates a brand-new initializing session.
func (h *Handler) Logout(c *gin.Context) {
	tenantID, ok := tenantFromRequest(c)
	if !ok {
		return
	}

	status := "not_found"
	if h.sessions.Logout(tenantID) {
		status = "logged_out"
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "tenant_id": tenantID, "status": status})
}

// ListMessages returns the tenant's recent ledger entries for auditing.
func (h *Handler) ListMessages(c *gin.Context) {
	tenantID, ok := tenantFromRequest(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	entries, err := h.messageLog.ListForTenant(c.Request.Context(), tenantID, limit)
	if err != nil {
		h.log.Errorf("message log query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read message log"})
		return
	}

	out := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		out = append(out, gin.H{
			"id":             e.ID,
			"kind":           e.Kind,
			"installment_id": e.InstallmentID,
			"loan_id":        e.LoanID,
			"client_id":      e.ClientID,
			"to_phone":       e.ToPhone,
			"status":         e.Status,
			"send_date":      e.SendDate.Format("2006-01-02"),
			"error":          e.Error,
			"created_at":     e.CreatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "tenant_id": tenantID, "messages": out})
}

// RunScheduler triggers one notification pass outside the cron cadence.
func (h *Handler) RunScheduler(c *gin.Context) {
	report, err := h.notifier.Run(c.Request.Context())
	if err != nil {
		h.log.Errorf("manual notification pass failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":            true,
		"tenants":       report.Tenants,
		"selected":      report.Selected,
		"skipped_dedup": report.SkippedDedup,
		"skipped_blank": report.SkippedBlank,
		"sent":          report.Sent,
		"failed":        report.Failed,
	})
}
