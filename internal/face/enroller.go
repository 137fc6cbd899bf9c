package face

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/your-org/gymgate/internal/config"
	"github.com/your-org/gymgate/internal/models"
	"github.com/your-org/gymgate/internal/observability"
)

// ProfileStore persists face profiles. The upsert must replace the reference
// set and centroid in a single write.
type ProfileStore interface {
	UpsertFaceProfile(ctx context.Context, profile *models.FaceProfile) error
}

// Enroller validates enrollment samples and activates a member's face profile.
type Enroller struct {
	profiles             ProfileStore
	consistencyThreshold float64
}

func NewEnroller(profiles ProfileStore, cfg config.VerificationConfig) *Enroller {
	return &Enroller{
		profiles:             profiles,
		consistencyThreshold: cfg.EnrollmentConsistencyThreshold,
	}
}

// Enroll validates the three reference vectors, checks their mutual
// consistency, and upserts the member's profile with a freshly computed
// centroid. Re-enrollment replaces the previous reference set wholesale.
func (e *Enroller) Enroll(ctx context.Context, memberID uuid.UUID, vectors [][]float32) (*models.FaceProfile, error) {
	if len(vectors) != models.ReferenceCount {
		observability.EnrollmentsTotal.WithLabelValues("invalid").Inc()
		return nil, &ValidationError{Reason: "wrong vector count", Length: len(vectors)}
	}
	for _, v := range vectors {
		if err := ValidateVector(v); err != nil {
			observability.EnrollmentsTotal.WithLabelValues("invalid").Inc()
			return nil, err
		}
	}

	// All three unordered pairs must agree: samples of the same face captured
	// moments apart should not diverge below the consistency threshold.
	pairs := [3]float64{
		Cosine(vectors[0], vectors[1]),
		Cosine(vectors[1], vectors[2]),
		Cosine(vectors[0], vectors[2]),
	}
	min := pairs[0]
	for _, s := range pairs[1:] {
		if s < min {
			min = s
		}
	}
	if min < e.consistencyThreshold {
		observability.EnrollmentsTotal.WithLabelValues("inconsistent").Inc()
		return nil, &InconsistentEnrollmentError{
			PairSimilarities: pairs,
			Min:              min,
			Threshold:        e.consistencyThreshold,
		}
	}

	profile := &models.FaceProfile{
		MemberID: memberID,
		Centroid: Centroid(vectors),
		IsActive: true,
	}
	copy(profile.ReferenceVectors[:], vectors)

	if err := e.profiles.UpsertFaceProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("store face profile: %w", err)
	}

	slog.Info("member enrolled",
		"member_id", memberID,
		"pair_similarities", pairs,
		"min_similarity", min,
	)
	observability.EnrollmentsTotal.WithLabelValues("ok").Inc()

	return profile, nil
}
