package face

import "fmt"

// ValidationError reports a malformed feature vector: wrong length or a
// non-finite component. The caller can recover by resubmitting a capture.
type ValidationError struct {
	Reason string
	Length int
	Index  int
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case "wrong length":
		return fmt.Sprintf("invalid feature vector: expected %d components, got %d", Dim, e.Length)
	case "wrong vector count":
		return fmt.Sprintf("invalid enrollment: expected 3 reference vectors, got %d", e.Length)
	default:
		return fmt.Sprintf("invalid feature vector: %s at index %d", e.Reason, e.Index)
	}
}

// InconsistentEnrollmentError means the three enrollment samples do not
// mutually agree. Carries all pairwise similarities so the capture UI can
// tell the member which samples to retake.
type InconsistentEnrollmentError struct {
	// PairSimilarities holds cosine(v1,v2), cosine(v2,v3), cosine(v1,v3).
	PairSimilarities [3]float64
	Min              float64
	Threshold        float64
}

func (e *InconsistentEnrollmentError) Error() string {
	return fmt.Sprintf("enrollment samples inconsistent: minimum pairwise similarity %.4f below threshold %.2f (pairs: %.4f, %.4f, %.4f)",
		e.Min, e.Threshold, e.PairSimilarities[0], e.PairSimilarities[1], e.PairSimilarities[2])
}
