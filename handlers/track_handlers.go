// api/handlers/track_handlers.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"userhistory/api/history"
	"userhistory/api/identity"
	"userhistory/api/logger"
	"userhistory/api/models"
)

// VisitJournal keeps an audit trail of raw page views.
type VisitJournal interface {
	RecordVisits(ctx context.Context, events []models.VisitEvent) error
	SessionVisits(ctx context.Context, token string, limit uint64) ([]models.VisitEvent, error)
}

const debugJournalLimit = 50

type TrackHandlers struct {
	Tracker *history.Tracker
	Issuer  *identity.Issuer
	Journal VisitJournal
	log     *logger.Logger
}

// NewTrackHandlers wires the visitor-facing endpoints. journal may be nil.
func NewTrackHandlers(tracker *history.Tracker, issuer *identity.Issuer, journal VisitJournal, log *logger.Logger) *TrackHandlers {
	return &TrackHandlers{
		Tracker: tracker,
		Issuer:  issuer,
		Journal: journal,
		log:     log.With("handler", "TrackHandlers"),
	}
}

// TrackVisit records one page view for the visitor identified by the request cookie, issuing
// a token on first contact. Tracking is best effort and never fails the page.
func (h *TrackHandlers) TrackVisit(c *gin.Context) {
	var req models.VisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	token := h.Issuer.Resolve(c)
	if req.Timestamp == 0 {
		req.Timestamp = time.Now().Unix()
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	tracked := true
	if err := h.Tracker.Visited(ctx, token, req.URL, req.Timestamp, req.Referrer); err != nil {
		h.log.Warn("Failed to record visit", "error", err)
		tracked = false
	}

	if h.Journal != nil {
		event := models.VisitEvent{
			EventID:   uuid.New().String(),
			Token:     token,
			Timestamp: time.Unix(req.Timestamp, 0).UTC(),
			PageURL:   req.URL,
			Referrer:  req.Referrer,
			UserAgent: c.Request.UserAgent(),
			IPAddress: c.ClientIP(),
		}
		if err := h.Journal.RecordVisits(ctx, []models.VisitEvent{event}); err != nil {
			h.log.Warn("Failed to journal visit", "event_id", event.EventID, "error", err)
		}
	}

	c.JSON(http.StatusAccepted, gin.H{"tracked": tracked})
}

// ResetHistory discards the visitor's in-progress history and expires their token.
func (h *TrackHandlers) ResetHistory(c *gin.Context) {
	if token, ok := h.Issuer.Peek(c); ok {
		if err := h.Tracker.Reset(c.Request.Context(), token); err != nil {
			h.log.Warn("Failed to reset history", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "History storage unavailable"})
			return
		}
	}
	h.Issuer.Invalidate(c)
	c.JSON(http.StatusOK, gin.H{"message": "History cleared"})
}

// DebugHistory dumps the visitor's token, in-progress history and latest journal rows.
// Only routed in debug mode.
func (h *TrackHandlers) DebugHistory(c *gin.Context) {
	token, ok := h.Issuer.Peek(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"token": nil, "history": nil, "journal": nil})
		return
	}
	current, err := h.Tracker.Current(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "History storage unavailable", "details": err.Error()})
		return
	}
	var entries []models.Entry
	if current != nil {
		entries = current.Entries()
	}

	var journal []models.VisitEvent
	if h.Journal != nil {
		journal, err = h.Journal.SessionVisits(c.Request.Context(), token, debugJournalLimit)
		if err != nil {
			h.log.Warn("Failed to read visit journal", "error", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "history": entries, "journal": journal})
}
