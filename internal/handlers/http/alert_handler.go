package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"safedrive/internal/core/domain"
	"safedrive/internal/core/ports"
	"safedrive/internal/infrastructure/monitoring"
	apperrors "safedrive/pkg/errors"

	"github.com/gin-gonic/gin"
)

const detectorCheckName = "landmark_detector"

// ConnectionCounter reports the number of open frame streams.
type ConnectionCounter interface {
	ConnectionCount() int
}

type AlertHandler struct {
	accidents   ports.AccidentService
	connections ConnectionCounter
	health      *monitoring.HealthChecker
	startTime   time.Time
	now         func() time.Time
}

func NewAlertHandler(
	accidents ports.AccidentService,
	connections ConnectionCounter,
	health *monitoring.HealthChecker,
) *AlertHandler {
	return &AlertHandler{
		accidents:   accidents,
		connections: connections,
		health:      health,
		startTime:   time.Now(),
		now:         time.Now,
	}
}

// SetupRoutes registers the HTTP API. accidentMiddleware runs in front of the
// accident endpoint only.
func (h *AlertHandler) SetupRoutes(router gin.IRouter, accidentMiddleware ...gin.HandlerFunc) {
	router.GET("/", h.Status)
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)

	api := router.Group("/api")
	{
		api.GET("/ping", h.Ping)
		api.POST("/accident-alert", append(accidentMiddleware, h.ReportAccident)...)
	}
}

type accidentRequest struct {
	Location          []float64 `json:"location" binding:"required"`
	Speed             *float64  `json:"speed" binding:"required"`
	IsDrowsy          *bool     `json:"isDrowsy" binding:"required"`
	IsOversped        *bool     `json:"isOversped" binding:"required"`
	VictimDetails     *string   `json:"victimDetails" binding:"required"`
	EmergencyContacts []string  `json:"emergencyContacts"`
}

func (r accidentRequest) toEvent() domain.AccidentEvent {
	event := domain.AccidentEvent{
		SpeedKmh:      *r.Speed,
		IsDrowsy:      *r.IsDrowsy,
		IsOversped:    *r.IsOversped,
		VictimDetails: *r.VictimDetails,
	}
	if len(r.Location) >= 2 {
		event.Location = &domain.GeoPoint{Lat: r.Location[0], Lng: r.Location[1]}
	}
	for _, contact := range r.EmergencyContacts {
		if contact = strings.TrimSpace(contact); contact != "" {
			event.Recipients = append(event.Recipients, contact)
		}
	}
	return event
}

type accidentDetails struct {
	Success       bool   `json:"success"`
	SentCount     int    `json:"sent_count"`
	TotalContacts int    `json:"total_contacts"`
	Message       string `json:"message"`
}

type accidentResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Details accidentDetails `json:"details"`
}

// ReportAccident notifies emergency contacts about a reported accident. A
// well-formed report always gets 200; delivery failures show up in success
// and the counts.
func (h *AlertHandler) ReportAccident(c *gin.Context) {
	var req accidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError("invalid accident report").WithContext("reason", err.Error()))
		return
	}

	outcome, err := h.accidents.ReportAccident(c.Request.Context(), req.toEvent())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidAccident) {
			_ = c.Error(apperrors.WrapError(err, apperrors.ErrCodeInvalidInput, err.Error(), http.StatusBadRequest))
			return
		}
		_ = c.Error(apperrors.NewDispatchFailedError(err))
		return
	}

	c.JSON(http.StatusOK, accidentResponse{
		Success: outcome.Success,
		Message: fmt.Sprintf("Accident alert sent to %d of %d emergency contacts", outcome.SuccessCount, outcome.TotalCount),
		Details: accidentDetails{
			Success:       outcome.Success,
			SentCount:     outcome.SuccessCount,
			TotalContacts: outcome.TotalCount,
			Message:       outcome.Message,
		},
	})
}

// Status is the service banner with connection count and detector status.
func (h *AlertHandler) Status(c *gin.Context) {
	detectorStatus := "unavailable"
	if h.health.Snapshot().Checks[detectorCheckName] == monitoring.StatusHealthy {
		detectorStatus = "available"
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "Drowsiness detection server is running",
		"status":          "online",
		"connections":     h.connections.ConnectionCount(),
		"detector_status": detectorStatus,
	})
}

func (h *AlertHandler) Ping(c *gin.Context) {
	now := h.now()
	c.JSON(http.StatusOK, gin.H{
		"message":   "pong",
		"timestamp": float64(now.UnixNano()) / float64(time.Second),
	})
}

// Health is the liveness check. It reports the last background check results
// but never fails.
func (h *AlertHandler) Health(c *gin.Context) {
	snapshot := h.health.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   h.now(),
		"uptime":      h.now().Sub(h.startTime).String(),
		"connections": h.connections.ConnectionCount(),
		"checks":      snapshot.Checks,
	})
}

// Ready runs every dependency check now. A failing detector is reported as
// DETECTOR_UNAVAILABLE, any other failing dependency as SERVICE_UNAVAILABLE.
func (h *AlertHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := h.health.CheckAll(ctx)
	if status.Status != monitoring.StatusHealthy {
		var appErr *apperrors.AppError
		if result, ok := status.Checks[detectorCheckName]; ok && result != monitoring.StatusHealthy {
			appErr = apperrors.NewDetectorUnavailableError(errors.New(result))
		} else {
			appErr = apperrors.NewServiceUnavailableError("dependencies not ready")
		}
		_ = c.Error(appErr.WithContext("checks", status.Checks))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": status.Timestamp,
		"checks":    status.Checks,
	})
}

// NotFound answers unknown routes in the API error format.
func NotFound(c *gin.Context) {
	_ = c.Error(apperrors.NewNotFoundError("route " + c.Request.URL.Path))
}
