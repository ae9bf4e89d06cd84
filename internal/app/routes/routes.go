package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yigit/classroom/internal/app/controllers"
	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/middleware"
	"github.com/yigit/classroom/internal/pkg/websocket"
)

// Controllers groups every HTTP handler the router mounts
type Controllers struct {
	Auth         *controllers.AuthController
	User         *controllers.UserController
	Class        *controllers.ClassController
	Assignment   *controllers.AssignmentController
	Form         *controllers.FormController
	Material     *controllers.MaterialController
	Comment      *controllers.CommentController
	Notification *controllers.NotificationController
	Export       *controllers.ExportController
	WebSocket    *websocket.Handler
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, c Controllers, authMiddleware *middleware.AuthMiddleware) {
	router.GET("/ping", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	// API version group
	v1 := router.Group("/api/v1")

	v1.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "ok"}))
	})

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", c.Auth.Register)
		auth.POST("/login", c.Auth.Login)
		auth.POST("/refresh-token", c.Auth.RefreshToken)
		auth.POST("/logout", c.Auth.Logout)
	}

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())

	if c.WebSocket != nil {
		authenticated.GET("/ws", c.WebSocket.HandleConnection)
	}

	me := authenticated.Group("/auth/me")
	{
		me.GET("", c.Auth.Me)
		me.PATCH("", c.Auth.UpdateProfile)
		me.PUT("/password", c.Auth.ChangePassword)
	}

	authenticated.POST("/uploads", c.Material.Upload)

	classes := authenticated.Group("/classes")
	{
		classes.GET("", c.Class.ListClasses)
		classes.POST("", authMiddleware.RoleRequired(models.RoleTeacher, models.RoleAdmin), c.Class.CreateClass)
		classes.POST("/join", c.Class.JoinClass)

		class := classes.Group("/:classId")
		{
			class.GET("", c.Class.GetClass)
			class.PATCH("", c.Class.UpdateClass)
			class.DELETE("", c.Class.DeleteClass)
			class.POST("/leave", c.Class.LeaveClass)
			class.POST("/code", c.Class.RegenerateCode)
			class.GET("/members", c.Class.ListMembers)
			class.DELETE("/members/:userId", c.Class.RemoveMember)

			class.GET("/assignments", c.Assignment.ListAssignments)
			class.POST("/assignments", c.Assignment.CreateAssignment)

			class.GET("/forms", c.Form.ListForms)
			class.POST("/forms", c.Form.CreateForm)

			class.GET("/materials", c.Material.ListMaterials)
			class.POST("/materials", c.Material.CreateMaterial)

			class.GET("/comments", c.Comment.ListComments)
			class.POST("/comments", c.Comment.CreateComment)

			class.GET("/gradebook", c.Export.ExportGradebook)
		}
	}

	assignments := authenticated.Group("/assignments/:assignmentId")
	{
		assignments.GET("", c.Assignment.GetAssignment)
		assignments.PATCH("", c.Assignment.UpdateAssignment)
		assignments.DELETE("", c.Assignment.DeleteAssignment)
		assignments.GET("/submissions", c.Assignment.ListSubmissions)
		assignments.POST("/submissions", c.Assignment.Submit)
		assignments.GET("/submissions/me", c.Assignment.MySubmission)
	}
	authenticated.PUT("/submissions/:submissionId/grade", c.Assignment.GradeSubmission)

	forms := authenticated.Group("/forms/:formId")
	{
		forms.GET("", c.Form.GetForm)
		forms.PUT("", c.Form.UpdateForm)
		forms.DELETE("", c.Form.DeleteForm)
		forms.POST("/publish", c.Form.PublishForm)
		forms.POST("/unpublish", c.Form.UnpublishForm)
		forms.POST("/start", c.Form.StartAttempt)
		forms.GET("/responses", c.Form.ListResponses)
		forms.POST("/responses", c.Form.SubmitResponse)
		forms.GET("/responses/me", c.Form.MyResponse)
		forms.POST("/release", c.Form.ReleaseScores)
		forms.GET("/stats", c.Form.Stats)
		forms.GET("/export", c.Export.ExportFormResponses)
	}

	responses := authenticated.Group("/responses/:responseId")
	{
		responses.GET("", c.Form.GetResponse)
		responses.PUT("/grade", c.Form.GradeAnswer)
	}

	materials := authenticated.Group("/materials/:materialId")
	{
		materials.GET("", c.Material.GetMaterial)
		materials.PATCH("", c.Material.UpdateMaterial)
		materials.DELETE("", c.Material.DeleteMaterial)
	}

	comments := authenticated.Group("/comments/:commentId")
	{
		comments.PATCH("", c.Comment.UpdateComment)
		comments.DELETE("", c.Comment.DeleteComment)
	}

	admin := authenticated.Group("/admin")
	admin.Use(authMiddleware.RoleRequired(models.RoleAdmin))
	{
		admin.GET("/users", c.User.GetUsersByFilter)
		admin.GET("/users/:userId", c.User.GetUserByID)
		admin.PUT("/users/:userId/status", c.User.SetUserStatus)
	}

	notifications := authenticated.Group("/notifications")
	{
		notifications.GET("", c.Notification.ListNotifications)
		notifications.GET("/unread-count", c.Notification.UnreadCount)
		notifications.POST("/read-all", c.Notification.MarkAllRead)
		notifications.POST("/:notificationId/read", c.Notification.MarkRead)
		notifications.DELETE("/:notificationId", c.Notification.DeleteNotification)
	}
}
