package models

import (
	"time"

	"github.com/google/uuid"
)

// ReferenceCount is the number of reference vectors captured at enrollment.
const ReferenceCount = 3

// FaceProfile holds a member's enrolled face data. A member has at most one
// active profile; re-enrollment replaces the reference set wholesale and the
// centroid is recomputed in the same write.
type FaceProfile struct {
	MemberID         uuid.UUID                  `json:"member_id" db:"member_id"`
	ReferenceVectors [ReferenceCount][]float32  `json:"-" db:"-"`
	Centroid         []float32                  `json:"-" db:"centroid"`
	IsActive         bool                       `json:"is_active" db:"is_active"`
	CreatedAt        time.Time                  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time                  `json:"updated_at" db:"updated_at"`
}
