package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/gymgate/internal/models"
	"github.com/your-org/gymgate/internal/storage"
	"github.com/your-org/gymgate/pkg/dto"
)

type SessionHandler struct {
	db *storage.PostgresStore
}

func NewSessionHandler(db *storage.PostgresStore) *SessionHandler {
	return &SessionHandler{db: db}
}

func (h *SessionHandler) Create(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.ScheduledEnd.After(req.ScheduledStart) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scheduled_end must be after scheduled_start"})
		return
	}

	sess := &models.Session{
		Name:           req.Name,
		ScheduledStart: req.ScheduledStart,
		ScheduledEnd:   req.ScheduledEnd,
	}
	if err := h.db.CreateSession(c.Request.Context(), sess); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, sessionResponse(sess))
}

func (h *SessionHandler) List(c *gin.Context) {
	sessions, err := h.db.ListSessions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		resp = append(resp, sessionResponse(&sessions[i]))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": resp, "total": len(resp)})
}

func (h *SessionHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	sess, err := h.db.GetSession(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if sess == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	c.JSON(http.StatusOK, sessionResponse(sess))
}

// Register adds a member to the session roster.
func (h *SessionHandler) Register(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.db.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if sess == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	if err := h.db.RegisterMember(c.Request.Context(), req.MemberID, sessionID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "registered"})
}

func (h *SessionHandler) Roster(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	roster, err := h.db.ListRoster(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.RosterEntry, 0, len(roster))
	for _, reg := range roster {
		resp = append(resp, dto.RosterEntry{MemberID: reg.MemberID, Attended: reg.Attended})
	}
	c.JSON(http.StatusOK, gin.H{"roster": resp, "total": len(resp)})
}

func sessionResponse(sess *models.Session) dto.SessionResponse {
	return dto.SessionResponse{
		ID:             sess.ID,
		Name:           sess.Name,
		ScheduledStart: sess.ScheduledStart.Format(time.RFC3339),
		ScheduledEnd:   sess.ScheduledEnd.Format(time.RFC3339),
		CreatedAt:      sess.CreatedAt.Format(time.RFC3339),
	}
}
