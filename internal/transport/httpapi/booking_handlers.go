package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bookable/backend/internal/domain"
	"bookable/backend/internal/service/booking"
)

type windowBody struct {
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
}

type createRequestBody struct {
	ServiceID *uuid.UUID   `json:"service_id"`
	Note      string       `json:"note"`
	Windows   []windowBody `json:"windows"`
}

type windowResponse struct {
	ID      uuid.UUID `json:"id"`
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
}

type requestResponse struct {
	ID        uuid.UUID        `json:"id"`
	ListingID uuid.UUID        `json:"listing_id"`
	ServiceID *uuid.UUID       `json:"service_id,omitempty"`
	Status    string           `json:"status"`
	Note      string           `json:"note,omitempty"`
	Windows   []windowResponse `json:"windows"`
}

func (s *Server) createRequest(c *gin.Context) {
	listingID, ok := pathUUID(c, "listingID")
	if !ok {
		return
	}
	var body createRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	windows := make([]booking.WindowInput, 0, len(body.Windows))
	for _, w := range body.Windows {
		windows = append(windows, booking.WindowInput{StartAt: w.StartAt, EndAt: w.EndAt})
	}

	req, reqWindows, err := s.booking.CreateRequest(c.Request.Context(), booking.CreateRequestInput{
		CustomerID: callerID(c),
		ListingID:  listingID,
		ServiceID:  body.ServiceID,
		Note:       body.Note,
		Windows:    windows,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.log.Info("request created",
		slog.String("request_id", req.ID.String()),
		slog.String("listing_id", listingID.String()),
		slog.Int("window_count", len(reqWindows)),
	)

	c.JSON(http.StatusCreated, toRequestResponse(req, reqWindows))
}

func toRequestResponse(req domain.Request, windows []domain.RequestWindow) requestResponse {
	out := requestResponse{
		ID:        req.ID,
		ListingID: req.ListingID,
		ServiceID: req.ServiceID,
		Status:    string(req.Status),
		Note:      req.Note,
		Windows:   make([]windowResponse, 0, len(windows)),
	}
	for _, w := range windows {
		out.Windows = append(out.Windows, windowResponse{ID: w.ID, StartAt: w.StartAt, EndAt: w.EndAt})
	}
	return out
}

func (s *Server) listRequests(c *gin.Context) {
	listingID, ok := pathUUID(c, "listingID")
	if !ok {
		return
	}

	rows, err := s.booking.ListRequests(c.Request.Context(), callerID(c), listingID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	out := make([]requestResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toRequestResponse(row.Request, row.Windows))
	}
	c.JSON(http.StatusOK, gin.H{"requests": out})
}

type evaluateBody struct {
	ServiceID *uuid.UUID `json:"service_id"`
	Start     time.Time  `json:"start"`
	End       time.Time  `json:"end"`
}

func (s *Server) evaluateCandidate(c *gin.Context) {
	listingID, ok := pathUUID(c, "listingID")
	if !ok {
		return
	}
	var body evaluateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	eval, err := s.booking.EvaluateCandidate(c.Request.Context(), listingID, body.ServiceID, body.Start, body.End)
	if err != nil {
		s.writeError(c, err)
		return
	}

	resp := gin.H{"admit": eval.Admit}
	if !eval.Admit {
		resp["reason_code"] = string(eval.Reason)
	}
	c.JSON(http.StatusOK, resp)
}

type acceptBody struct {
	WindowID *uuid.UUID `json:"window_id"`
}

func (s *Server) acceptRequest(c *gin.Context) {
	requestID, ok := pathUUID(c, "requestID")
	if !ok {
		return
	}

	var body acceptBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	if err := s.booking.AcceptRequest(c.Request.Context(), callerID(c), requestID, body.WindowID); err != nil {
		s.writeError(c, err)
		return
	}

	s.log.Info("request accepted", slog.String("request_id", requestID.String()))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) declineRequest(c *gin.Context) {
	requestID, ok := pathUUID(c, "requestID")
	if !ok {
		return
	}

	if err := s.booking.DeclineRequest(c.Request.Context(), callerID(c), requestID); err != nil {
		s.writeError(c, err)
		return
	}

	s.log.Info("request declined", slog.String("request_id", requestID.String()))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
