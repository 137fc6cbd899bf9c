package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/gymgate/internal/attendance"
	"github.com/your-org/gymgate/internal/face"
)

// respondError maps each domain error kind to its own status code and a
// structured body. Kinds are never collapsed into a generic error: the kiosk
// UI needs to tell the member exactly why an attempt failed.
func respondError(c *gin.Context, err error) {
	var validation *face.ValidationError
	var invalidProbe *attendance.InvalidProbeError
	var inconsistent *face.InconsistentEnrollmentError
	var notEnrolled *attendance.NotEnrolledError
	var verificationFailed *attendance.VerificationFailedError
	var notRegistered *attendance.NotRegisteredError
	var alreadyCheckedIn *attendance.AlreadyCheckedInError
	var outOfWindow *attendance.OutOfCheckInWindowError
	var noOpenCheckIn *attendance.NoOpenCheckInError
	var sessionNotFound *attendance.SessionNotFoundError

	switch {
	case errors.As(err, &invalidProbe), errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{
			"kind":  "validation_error",
			"error": err.Error(),
		})
	case errors.As(err, &inconsistent):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"kind":              "inconsistent_enrollment",
			"error":             err.Error(),
			"pair_similarities": inconsistent.PairSimilarities,
			"min_similarity":    inconsistent.Min,
			"threshold":         inconsistent.Threshold,
		})
	case errors.As(err, &notEnrolled):
		c.JSON(http.StatusConflict, gin.H{
			"kind":  "not_enrolled",
			"error": err.Error(),
		})
	case errors.As(err, &verificationFailed):
		c.JSON(http.StatusUnauthorized, gin.H{
			"kind":         "verification_failed",
			"error":        err.Error(),
			"verification": verificationFailed.Result,
		})
	case errors.As(err, &notRegistered):
		c.JSON(http.StatusForbidden, gin.H{
			"kind":  "not_registered",
			"error": err.Error(),
		})
	case errors.As(err, &alreadyCheckedIn):
		c.JSON(http.StatusConflict, gin.H{
			"kind":  "already_checked_in",
			"error": err.Error(),
		})
	case errors.As(err, &outOfWindow):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"kind":         "out_of_check_in_window",
			"error":        err.Error(),
			"window_start": outOfWindow.WindowStart,
			"window_end":   outOfWindow.WindowEnd,
		})
	case errors.As(err, &noOpenCheckIn):
		c.JSON(http.StatusConflict, gin.H{
			"kind":  "no_open_check_in",
			"error": err.Error(),
		})
	case errors.As(err, &sessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"kind":  "session_not_found",
			"error": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
