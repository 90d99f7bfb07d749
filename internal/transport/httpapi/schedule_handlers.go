package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bookable/backend/internal/domain"
	"bookable/backend/internal/service/schedule"
)

type ruleBody struct {
	Weekdays  []int16 `json:"weekdays"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
}

type replaceRulesBody struct {
	Rules []ruleBody `json:"rules"`
}

type ruleResponse struct {
	ID        uuid.UUID `json:"id"`
	Weekdays  []int16   `json:"weekdays"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Timezone  string    `json:"timezone"`
}

func (s *Server) replaceRules(c *gin.Context) {
	listingID, ok := pathUUID(c, "listingID")
	if !ok {
		return
	}
	var body replaceRulesBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	rules := make([]schedule.RuleInput, 0, len(body.Rules))
	for _, r := range body.Rules {
		rules = append(rules, schedule.RuleInput{
			Weekdays:  r.Weekdays,
			StartTime: r.StartTime,
			EndTime:   r.EndTime,
		})
	}

	saved, err := s.schedule.ReplaceRules(c.Request.Context(), callerID(c), listingID, rules)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.log.Info("rules replaced",
		slog.String("listing_id", listingID.String()),
		slog.Int("rule_count", len(saved)),
	)

	out := make([]ruleResponse, 0, len(saved))
	for _, r := range saved {
		out = append(out, toRuleResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"rules": out})
}

func (s *Server) listRules(c *gin.Context) {
	listingID, ok := pathUUID(c, "listingID")
	if !ok {
		return
	}

	rules, err := s.schedule.ListRules(c.Request.Context(), callerID(c), listingID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	out := make([]ruleResponse, 0, len(rules))
	for _, r := range rules {
		out = append(out, toRuleResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"rules": out})
}

func toRuleResponse(r domain.AvailabilityRule) ruleResponse {
	return ruleResponse{
		ID:        r.ID,
		Weekdays:  r.Weekdays,
		StartTime: minuteOfDayString(r.StartMinute),
		EndTime:   minuteOfDayString(r.EndMinute),
		Timezone:  r.Timezone,
	}
}

func minuteOfDayString(m int) string {
	return time.Date(0, 1, 1, m/60, m%60, 0, 0, time.UTC).Format("15:04")
}

type exceptionBody struct {
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
	Kind    string    `json:"kind"`
	Reason  string    `json:"reason"`
}

type exceptionResponse struct {
	ID      uuid.UUID `json:"id"`
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
	Kind    string    `json:"kind"`
	Reason  string    `json:"reason,omitempty"`
}

func (s *Server) addException(c *gin.Context) {
	listingID, ok := pathUUID(c, "listingID")
	if !ok {
		return
	}
	var body exceptionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ex, err := s.schedule.AddException(c.Request.Context(), callerID(c), listingID, schedule.ExceptionInput{
		StartAt: body.StartAt,
		EndAt:   body.EndAt,
		Kind:    domain.ExceptionKind(body.Kind),
		Reason:  body.Reason,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.log.Info("exception added",
		slog.String("listing_id", listingID.String()),
		slog.String("exception_id", ex.ID.String()),
		slog.String("kind", string(ex.Kind)),
	)

	c.JSON(http.StatusCreated, exceptionResponse{
		ID:      ex.ID,
		StartAt: ex.StartAt,
		EndAt:   ex.EndAt,
		Kind:    string(ex.Kind),
		Reason:  ex.Reason,
	})
}

func (s *Server) removeException(c *gin.Context) {
	listingID, ok := pathUUID(c, "listingID")
	if !ok {
		return
	}
	exceptionID, ok := pathUUID(c, "exceptionID")
	if !ok {
		return
	}

	if err := s.schedule.RemoveException(c.Request.Context(), callerID(c), listingID, exceptionID); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type intervalResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (s *Server) resolveAvailability(c *gin.Context) {
	listingID, ok := pathUUID(c, "listingID")
	if !ok {
		return
	}

	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be an RFC3339 timestamp"})
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must be an RFC3339 timestamp"})
		return
	}

	open, err := s.schedule.ResolveAvailability(c.Request.Context(), listingID, from, to)
	if err != nil {
		s.writeError(c, err)
		return
	}

	out := make([]intervalResponse, 0, len(open))
	for _, iv := range open {
		out = append(out, intervalResponse{Start: iv.Start, End: iv.End})
	}
	c.JSON(http.StatusOK, gin.H{"open": out})
}
