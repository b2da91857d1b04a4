package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/yourusername/survival-quiz/internal/middleware"
)

// Handlers - набор обработчиков для регистрации маршрутов
type Handlers struct {
	Admin    *AdminHandler
	Player   *PlayerHandler
	Screen   *ScreenHandler
	Question *QuestionHandler
	WS       *WSHandler
}

// RegisterRoutes регистрирует HTTP и WebSocket маршруты
func RegisterRoutes(router *gin.Engine, h Handlers, authMiddleware *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter) {
	api := router.Group("/api")
	{
		// Публичные данные
		api.GET("/state", h.Screen.GetState)
		api.GET("/time", h.Screen.GetServerTime)
		api.GET("/presence", h.Screen.GetPresence)

		screen := api.Group("/screen")
		{
			screen.POST("/session", rateLimiter.Limit(middleware.RegisterRateLimitConfig()), h.Screen.CreateSession)
			screen.GET("/distribution", h.Screen.GetDistribution)
			screen.GET("/ranking", h.Screen.GetRanking)
		}

		// Игроки
		api.POST("/players", rateLimiter.Limit(middleware.RegisterRateLimitConfig()), h.Player.Register)
		api.GET("/players/:id/state",
			middleware.ExtractUUIDParam("id", "playerID"),
			authMiddleware.RequirePlayer(),
			h.Player.GetState,
		)
		api.POST("/answers",
			rateLimiter.LimitByIP(middleware.AnswerRateLimitConfig()),
			authMiddleware.RequirePlayer(),
			h.Player.SubmitAnswer,
		)

		// Вход оператора
		api.POST("/admin/session", rateLimiter.Limit(middleware.AdminSessionRateLimitConfig()), h.Admin.CreateSession)

		admin := api.Group("/admin")
		admin.Use(authMiddleware.RequireAdmin())
		{
			admin.GET("/state", h.Admin.GetState)
			admin.GET("/time", h.Screen.GetServerTime)
			admin.POST("/phase/advance", h.Admin.AdvancePhase)
			admin.POST("/revive-all", h.Admin.ReviveAll)
			admin.POST("/reset", h.Admin.ResetGame)

			adminQuestion := admin.Group("/questions/:id")
			adminQuestion.Use(middleware.ExtractUintParam("id", "questionID"))
			{
				adminQuestion.POST("/select", h.Admin.SelectQuestion)
				adminQuestion.POST("/score", h.Admin.ScoreQuestion)
				adminQuestion.POST("/eliminate", h.Admin.EliminateQuestion)
				adminQuestion.POST("/reset-answers", h.Admin.ResetQuestionAnswers)
			}

			admin.GET("/standings", h.Admin.GetStandings)
			admin.GET("/standings/export", h.Admin.ExportStandings)
			admin.POST("/standings/email", h.Admin.EmailStandings)
		}

		// Библиотека вопросов - только оператор
		questions := api.Group("/questions")
		questions.Use(authMiddleware.RequireAdmin())
		{
			questions.GET("", h.Question.ListQuestions)
			questions.POST("", h.Question.CreateQuestion)
			questions.POST("/import", h.Question.ImportQuestions)

			questionWithID := questions.Group("/:id")
			questionWithID.Use(middleware.ExtractUintParam("id", "questionID"))
			{
				questionWithID.GET("", h.Question.GetQuestion)
				questionWithID.PUT("", h.Question.UpdateQuestion)
				questionWithID.DELETE("", h.Question.DeleteQuestion)
			}
		}
	}

	if h.WS != nil {
		router.GET("/ws", h.WS.HandleConnection)
	}
}
