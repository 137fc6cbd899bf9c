package handlers

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/gymgate/internal/face"
	"github.com/your-org/gymgate/internal/storage"
	"github.com/your-org/gymgate/pkg/dto"
)

type EnrollmentHandler struct {
	db        *storage.PostgresStore
	snapshots *storage.SnapshotStore
	enroller  *face.Enroller
	verifier  *face.Verifier
}

func NewEnrollmentHandler(db *storage.PostgresStore, snapshots *storage.SnapshotStore, enroller *face.Enroller, verifier *face.Verifier) *EnrollmentHandler {
	return &EnrollmentHandler{db: db, snapshots: snapshots, enroller: enroller, verifier: verifier}
}

// Enroll stores a member's three reference vectors and activates the profile.
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	memberID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
		return
	}

	var req dto.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.enroller.Enroll(c.Request.Context(), memberID, req.Vectors)
	if err != nil {
		respondError(c, err)
		return
	}

	// Audit image is best effort; the profile is already committed.
	if req.Snapshot != "" && h.snapshots != nil {
		if data, err := base64.StdEncoding.DecodeString(req.Snapshot); err == nil {
			if _, err := h.snapshots.PutSnapshot(c.Request.Context(), "enrollment", memberID, data, ""); err != nil {
				slog.Warn("store enrollment snapshot", "member_id", memberID, "error", err)
			}
		}
	}

	c.JSON(http.StatusCreated, dto.ProfileResponse{
		MemberID:   profile.MemberID,
		IsActive:   profile.IsActive,
		EnrolledAt: profile.UpdatedAt.Format(time.RFC3339),
	})
}

// Deactivate disables the member's face profile. The vectors stay on record
// for audit; the member simply can no longer check in until re-enrolled.
func (h *EnrollmentHandler) Deactivate(c *gin.Context) {
	memberID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
		return
	}

	if err := h.db.DeactivateFaceProfile(c.Request.Context(), memberID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}

// Verify runs a standalone verification against the member's stored profile
// and returns the full diagnostic result.
func (h *EnrollmentHandler) Verify(c *gin.Context) {
	var req dto.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.db.GetFaceProfile(c.Request.Context(), req.MemberID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if profile == nil || !profile.IsActive {
		c.JSON(http.StatusConflict, gin.H{
			"kind":  "not_enrolled",
			"error": "member has no active face profile",
		})
		return
	}

	result, err := h.verifier.Verify(profile, req.Vector)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.VerificationResponse{
		IsMatch:                result.IsMatch,
		MaxSimilarity:          result.MaxSimilarity,
		SimilarityWithCentroid: result.SimilarityWithCentroid,
		PerVectorSimilarities:  result.PerVectorSimilarities,
		MatchedCount:           result.MatchedCount,
		RequiredCount:          result.RequiredCount,
	})
}
