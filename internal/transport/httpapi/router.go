package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bookable/backend/internal/domain"
	"bookable/backend/internal/service/booking"
	"bookable/backend/internal/service/schedule"
	"bookable/backend/internal/store"
)

type scheduleService interface {
	ReplaceRules(ctx context.Context, providerID string, listingID uuid.UUID, rules []schedule.RuleInput) ([]domain.AvailabilityRule, error)
	ListRules(ctx context.Context, providerID string, listingID uuid.UUID) ([]domain.AvailabilityRule, error)
	AddException(ctx context.Context, providerID string, listingID uuid.UUID, in schedule.ExceptionInput) (domain.AvailabilityException, error)
	RemoveException(ctx context.Context, providerID string, listingID, exceptionID uuid.UUID) error
	ResolveAvailability(ctx context.Context, listingID uuid.UUID, from, to time.Time) ([]domain.Interval, error)
}

type bookingService interface {
	CreateRequest(ctx context.Context, in booking.CreateRequestInput) (domain.Request, []domain.RequestWindow, error)
	EvaluateCandidate(ctx context.Context, listingID uuid.UUID, serviceID *uuid.UUID, start, end time.Time) (booking.Evaluation, error)
	AcceptRequest(ctx context.Context, providerID string, requestID uuid.UUID, windowID *uuid.UUID) error
	DeclineRequest(ctx context.Context, providerID string, requestID uuid.UUID) error
	ListRequests(ctx context.Context, providerID string, listingID uuid.UUID) ([]booking.RequestWithWindows, error)
}

type Server struct {
	schedule scheduleService
	booking  bookingService
	log      *slog.Logger
}

func NewServer(scheduleSvc scheduleService, bookingSvc bookingService, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		schedule: scheduleSvc,
		booking:  bookingSvc,
		log:      log.With(slog.String("component", "httpapi")),
	}
}

// Router assembles the gin engine. Every /v1 route requires a bearer JWT; the
// subject claim identifies the caller for ownership checks.
func (s *Server) Router(jwtSecret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1", BearerAuth(jwtSecret))

	v1.PUT("/listings/:listingID/availability/rules", s.replaceRules)
	v1.GET("/listings/:listingID/availability/rules", s.listRules)
	v1.POST("/listings/:listingID/availability/exceptions", s.addException)
	v1.DELETE("/listings/:listingID/availability/exceptions/:exceptionID", s.removeException)
	v1.GET("/listings/:listingID/availability", s.resolveAvailability)

	v1.POST("/listings/:listingID/requests", s.createRequest)
	v1.GET("/listings/:listingID/requests", s.listRequests)
	v1.POST("/listings/:listingID/evaluate", s.evaluateCandidate)
	v1.POST("/requests/:requestID/accept", s.acceptRequest)
	v1.POST("/requests/:requestID/decline", s.declineRequest)

	return r
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a valid uuid"})
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps service errors to HTTP statuses. Every reject carries a
// message the caller can act on; slot conflicts additionally carry a machine
// reason code.
func (s *Server) writeError(c *gin.Context, err error) {
	var schedVErr *schedule.ValidationError
	var bookVErr *booking.ValidationError
	switch {
	case errors.As(err, &schedVErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": schedVErr.Error()})
	case errors.As(err, &bookVErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": bookVErr.Error()})
	case errors.Is(err, booking.ErrSlotConflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":       "That window is no longer available. Pick another window.",
			"reason_code": "SLOT_CONFLICT",
		})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, store.ErrOwnership):
		c.JSON(http.StatusForbidden, gin.H{"error": "you do not own this listing"})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "request is no longer pending"})
	default:
		s.log.Error("request failed", slog.Any("err", err), slog.String("path", c.FullPath()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
