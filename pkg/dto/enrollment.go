package dto

import (
	"github.com/google/uuid"
)

type EnrollRequest struct {
	// Vectors holds the three reference feature vectors captured at the kiosk.
	Vectors [][]float32 `json:"vectors" binding:"required"`
	// Snapshot is an optional base64-encoded audit image of the capture.
	Snapshot string `json:"snapshot,omitempty"`
}

type ProfileResponse struct {
	MemberID   uuid.UUID `json:"member_id"`
	IsActive   bool      `json:"is_active"`
	EnrolledAt string    `json:"enrolled_at"`
}

type VerifyRequest struct {
	MemberID uuid.UUID `json:"member_id" binding:"required"`
	Vector   []float32 `json:"vector" binding:"required"`
}

type VerificationResponse struct {
	IsMatch                bool      `json:"is_match"`
	MaxSimilarity          float64   `json:"max_similarity"`
	SimilarityWithCentroid float64   `json:"similarity_with_centroid"`
	PerVectorSimilarities  []float64 `json:"per_vector_similarities"`
	MatchedCount           int       `json:"matched_count"`
	RequiredCount          int       `json:"required_count"`
}
