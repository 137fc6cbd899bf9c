package handlers

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/gymgate/internal/attendance"
	"github.com/your-org/gymgate/internal/storage"
	"github.com/your-org/gymgate/pkg/dto"
)

type AttendanceHandler struct {
	db        *storage.PostgresStore
	snapshots *storage.SnapshotStore
	recorder  *attendance.Recorder
}

func NewAttendanceHandler(db *storage.PostgresStore, snapshots *storage.SnapshotStore, recorder *attendance.Recorder) *AttendanceHandler {
	return &AttendanceHandler{db: db, snapshots: snapshots, recorder: recorder}
}

func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	var req dto.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snapshotKey := h.storeSnapshot(c, "checkin", req.MemberID, req.Snapshot)

	rec, err := h.recorder.CheckIn(c.Request.Context(), req.MemberID, req.SessionID, req.Vector, time.Now(), snapshotKey)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewAttendanceResponse(rec))
}

func (h *AttendanceHandler) CheckOut(c *gin.Context) {
	var req dto.CheckOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snapshotKey := h.storeSnapshot(c, "checkout", req.MemberID, req.Snapshot)

	rec, err := h.recorder.CheckOut(c.Request.Context(), req.MemberID, req.SessionID, req.Vector, time.Now(), snapshotKey)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAttendanceResponse(rec))
}

// History returns the member's attendance records, newest first.
func (h *AttendanceHandler) History(c *gin.Context) {
	memberID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
		return
	}

	var from, to *time.Time
	if fromStr := c.Query("from"); fromStr != "" {
		t, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from timestamp, want RFC3339"})
			return
		}
		from = &t
	}
	if toStr := c.Query("to"); toStr != "" {
		t, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to timestamp, want RFC3339"})
			return
		}
		to = &t
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	records, total, err := h.recorder.History(c.Request.Context(), memberID, from, to, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.AttendanceResponse, 0, len(records))
	for i := range records {
		resp = append(resp, dto.NewAttendanceResponse(&records[i]))
	}

	c.JSON(http.StatusOK, dto.AttendanceListResponse{Records: resp, Total: total})
}

// Snapshot proxies the audit image attached to an attendance record.
func (h *AttendanceHandler) Snapshot(c *gin.Context) {
	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record id"})
		return
	}

	rec, err := h.db.GetAttendanceRecord(c.Request.Context(), recordID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}

	key := rec.CheckInSnapshotKey
	if c.Query("kind") == "checkout" {
		key = rec.CheckOutSnapshotKey
	}
	if key == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot for this record"})
		return
	}

	data, err := h.snapshots.GetSnapshot(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "snapshot not found"})
		return
	}

	c.Data(http.StatusOK, "image/jpeg", data)
}

// storeSnapshot uploads an optional base64 audit image and returns its key.
// Failures are logged, not fatal: the attendance flow never blocks on MinIO.
func (h *AttendanceHandler) storeSnapshot(c *gin.Context, category string, memberID uuid.UUID, encoded string) string {
	if encoded == "" || h.snapshots == nil {
		return ""
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		slog.Warn("decode snapshot", "member_id", memberID, "error", err)
		return ""
	}
	key, err := h.snapshots.PutSnapshot(c.Request.Context(), category, memberID, data, "")
	if err != nil {
		slog.Warn("store snapshot", "member_id", memberID, "error", err)
		return ""
	}
	return key
}
