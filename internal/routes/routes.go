package routes

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/edusentry/proctor_backend_v1/internal/config"
	"github.com/edusentry/proctor_backend_v1/internal/controllers"
	"github.com/edusentry/proctor_backend_v1/internal/database"
	"github.com/edusentry/proctor_backend_v1/internal/middleware"
	"github.com/edusentry/proctor_backend_v1/internal/proctoring"
	"github.com/edusentry/proctor_backend_v1/internal/ws"
)

func Register(r *gin.Engine, db *gorm.DB, cfg *config.Config, engine *proctoring.Engine, hubs *ws.Hubs) {
	accessTTL, err := time.ParseDuration(cfg.AccessTokenTTLMinutes + "m")
	if err != nil || accessTTL == 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := 30 * 24 * time.Hour
	if days, err := strconv.Atoi(cfg.RefreshTokenTTLDays); err == nil && days > 0 {
		refreshTTL = time.Duration(days) * 24 * time.Hour
	}

	authCtrl := &controllers.AuthController{
		DB:            db,
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.RefreshJWTSecret,
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
	}
	adminCtrl := &controllers.AdminController{DB: db}
	examCtrl := &controllers.ExamController{DB: db}
	proctorCtrl := &controllers.ProctoringController{DB: db, Engine: engine}
	policyCtrl := &controllers.PolicyController{Cfg: cfg, Overrides: database.AppConfigStore{DB: db}}

	// Public
	auth := r.Group("/api/v1/auth")
	{
		auth.POST("/login", authCtrl.Login)
		auth.POST("/refresh", authCtrl.Refresh)
	}
	r.GET("/api/v1/proctoring/policy", policyCtrl.Get)

	// Protected
	authMW := middleware.AuthMiddleware(db, middleware.AuthConfig{JWTSecret: cfg.JWTSecret})
	api := r.Group("/api/v1", authMW)
	{
		api.GET("/auth/me", authCtrl.Me)
		api.POST("/auth/logout", authCtrl.Logout)

		// Admin-only
		admin := api.Group("/admin", middleware.RequireRoles("admin"))
		{
			admin.GET("/users", adminCtrl.ListUsers)
			admin.POST("/users", authCtrl.Register) // admin-only registration (supports role/active)
			admin.GET("/users/:user_id", adminCtrl.GetUser)
			admin.PUT("/users/:user_id", adminCtrl.UpdateUser)
			admin.DELETE("/users/:user_id", adminCtrl.DeleteUser)

			// Exams CRUD
			admin.GET("/exams", examCtrl.ListExams)
			admin.POST("/exams", examCtrl.CreateExam)
			admin.GET("/exams/:id", examCtrl.GetExam)
			admin.PUT("/exams/:id", examCtrl.UpdateExam)
			admin.DELETE("/exams/:id", examCtrl.DeleteExam)

			// Assignments: supervisors and students to exams
			admin.POST("/exams/:id/supervisors", examCtrl.AssignSupervisor)
			admin.DELETE("/exams/:id/supervisors/:user_id", examCtrl.UnassignSupervisor)
			admin.GET("/exams/:id/supervisors", examCtrl.ListSupervisors)
			admin.POST("/exams/:id/students", examCtrl.AssignStudent)
			admin.DELETE("/exams/:id/students/:user_id", examCtrl.UnassignStudent)
			admin.GET("/exams/:id/students", examCtrl.ListStudents)
		}

		// Proctoring lifecycle
		proctor := api.Group("/proctoring")
		{
			proctor.POST("/sessions", middleware.RequireRoles("student"), proctorCtrl.StartSession)
			proctor.POST("/sessions/:id/events", middleware.RequireRoles("student"), proctorCtrl.IngestEvent)
			proctor.POST("/sessions/:id/complete", middleware.RequireRoles("student"), proctorCtrl.CompleteSession)
			proctor.POST("/sessions/:id/terminate", middleware.RequireRoles("supervisor", "admin"), proctorCtrl.TerminateSession)

			proctor.GET("/sessions/:id", proctorCtrl.GetSession)
			proctor.GET("/students/:student_id/sessions", proctorCtrl.ListStudentSessions)
			proctor.GET("/exams/:exam_id/sessions", middleware.RequireRoles("supervisor", "admin"), proctorCtrl.ListExamSessions)
		}

		// Live channels
		api.GET("/ws/monitor", middleware.RequireRoles("supervisor", "admin"), ws.MonitorHandler(db, hubs.Monitor))
		api.GET("/ws/student", middleware.RequireRoles("student"), ws.StudentHandler(hubs, engine))
	}
}
