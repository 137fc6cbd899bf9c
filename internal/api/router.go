package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/gymgate/internal/api/handlers"
	"github.com/your-org/gymgate/internal/api/ws"
	"github.com/your-org/gymgate/internal/attendance"
	"github.com/your-org/gymgate/internal/auth"
	"github.com/your-org/gymgate/internal/face"
	"github.com/your-org/gymgate/internal/queue"
	"github.com/your-org/gymgate/internal/storage"
)

type RouterConfig struct {
	APIKey    string
	DB        *storage.PostgresStore
	Snapshots *storage.SnapshotStore
	Producer  *queue.Producer
	Hub       *ws.Hub
	Enroller  *face.Enroller
	Verifier  *face.Verifier
	Recorder  *attendance.Recorder
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.Snapshots, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// WebSocket live attendance feed
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Enrollment & verification
	enrollH := handlers.NewEnrollmentHandler(cfg.DB, cfg.Snapshots, cfg.Enroller, cfg.Verifier)
	v1.POST("/members/:id/enrollment", enrollH.Enroll)
	v1.DELETE("/members/:id/enrollment", enrollH.Deactivate)
	v1.POST("/verify", enrollH.Verify)

	// Attendance
	attendanceH := handlers.NewAttendanceHandler(cfg.DB, cfg.Snapshots, cfg.Recorder)
	v1.POST("/checkins", attendanceH.CheckIn)
	v1.POST("/checkouts", attendanceH.CheckOut)
	v1.GET("/members/:id/attendance", attendanceH.History)
	v1.GET("/attendance/:id/snapshot", attendanceH.Snapshot)

	// Sessions & roster
	sessionH := handlers.NewSessionHandler(cfg.DB)
	v1.POST("/sessions", sessionH.Create)
	v1.GET("/sessions", sessionH.List)
	v1.GET("/sessions/:id", sessionH.Get)
	v1.POST("/sessions/:id/registrations", sessionH.Register)
	v1.GET("/sessions/:id/roster", sessionH.Roster)

	return r
}
