package face

import (
	"log/slog"

	"github.com/your-org/gymgate/internal/config"
	"github.com/your-org/gymgate/internal/models"
	"github.com/your-org/gymgate/internal/observability"
)

// VerificationResult is the full diagnostic output of one verification. It is
// returned to the caller on both match and mismatch so failed attempts can be
// explained and audited.
type VerificationResult struct {
	IsMatch                bool      `json:"is_match"`
	MaxSimilarity          float64   `json:"max_similarity"`
	SimilarityWithCentroid float64   `json:"similarity_with_centroid"`
	PerVectorSimilarities  []float64 `json:"per_vector_similarities"`
	MatchedCount           int       `json:"matched_count"`
	RequiredCount          int       `json:"required_count"`
}

// Verifier decides whether a probe vector belongs to an enrolled member.
// Thresholds come from config at construction; Verify itself is a pure
// function of its inputs.
type Verifier struct {
	threshold        float64
	minVectorMatches int
}

func NewVerifier(cfg config.VerificationConfig) *Verifier {
	return &Verifier{
		threshold:        cfg.MatchThreshold,
		minVectorMatches: cfg.MinVectorMatches,
	}
}

// Verify compares probe against the profile's centroid and each reference
// vector. A match requires centroid agreement AND at least minVectorMatches
// of the reference vectors above the threshold: one lucky sample is not
// enough to open the door.
func (v *Verifier) Verify(profile *models.FaceProfile, probe []float32) (VerificationResult, error) {
	if err := ValidateVector(probe); err != nil {
		return VerificationResult{RequiredCount: v.minVectorMatches}, err
	}

	res := VerificationResult{
		SimilarityWithCentroid: Cosine(probe, profile.Centroid),
		PerVectorSimilarities:  make([]float64, models.ReferenceCount),
		RequiredCount:          v.minVectorMatches,
	}

	res.MaxSimilarity = res.SimilarityWithCentroid
	for i, ref := range profile.ReferenceVectors {
		sim := Cosine(probe, ref)
		res.PerVectorSimilarities[i] = sim
		if sim >= v.threshold {
			res.MatchedCount++
		}
		if sim > res.MaxSimilarity {
			res.MaxSimilarity = sim
		}
	}

	res.IsMatch = res.SimilarityWithCentroid >= v.threshold && res.MatchedCount >= v.minVectorMatches

	// This is an access-control decision: always leave the full breakdown in
	// the log so it can be traced after the fact.
	outcome := "no_match"
	if res.IsMatch {
		outcome = "match"
	}
	slog.Info("face verification",
		"member_id", profile.MemberID,
		"result", outcome,
		"similarity_with_centroid", res.SimilarityWithCentroid,
		"per_vector_similarities", res.PerVectorSimilarities,
		"max_similarity", res.MaxSimilarity,
		"matched_count", res.MatchedCount,
		"required_count", res.RequiredCount,
		"threshold", v.threshold,
	)
	observability.VerificationsTotal.WithLabelValues(outcome).Inc()

	return res, nil
}
