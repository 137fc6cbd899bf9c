package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/gymgate/internal/attendance"
	"github.com/your-org/gymgate/internal/config"
	"github.com/your-org/gymgate/internal/face"
	"github.com/your-org/gymgate/internal/storage/mock"
)

func historyRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	store := mock.NewStore()
	verifier := face.NewVerifier(config.VerificationConfig{
		MatchThreshold:   0.85,
		MinVectorMatches: 2,
	})
	recorder := attendance.NewRecorder(store, store, store, verifier, nil, config.AttendanceConfig{})
	h := NewAttendanceHandler(nil, nil, recorder)

	r := gin.New()
	r.GET("/v1/members/:id/attendance", h.History)
	return r
}

func TestHistoryQueryValidation(t *testing.T) {
	memberID := uuid.New().String()

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"no filters", "/v1/members/" + memberID + "/attendance", http.StatusOK},
		{"valid range", "/v1/members/" + memberID + "/attendance?from=2026-03-10T00:00:00Z&to=2026-03-11T00:00:00Z", http.StatusOK},
		{"malformed from", "/v1/members/" + memberID + "/attendance?from=yesterday", http.StatusBadRequest},
		{"date-only to", "/v1/members/" + memberID + "/attendance?to=2026-03-10", http.StatusBadRequest},
		{"invalid member id", "/v1/members/nope/attendance", http.StatusBadRequest},
	}

	r := historyRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body: %s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}
