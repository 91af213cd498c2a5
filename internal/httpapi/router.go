package httpapi

import (
	"receptionist-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

// Register wires all routes onto the engine. Kept free of business logic;
// handlers delegate to internal services.
func Register(r *gin.Engine, h Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", h.Health)
	r.POST("/webhooks/voice", h.VoiceWebhook)

	// Anonymous demo flow: research a public website without an account.
	demo := r.Group("/demo")
	{
		demo.POST("/research", h.DemoResearch)
		demo.POST("/prompt", h.DemoPrompt)
	}

	// Widget bootstrap is fetched by embed scripts on customer sites, so it
	// is the one CORS-open surface.
	widget := r.Group("/widgets", PublicCORS())
	{
		widget.GET("/:token", h.ResolveWidget)
		widget.OPTIONS("/:token", func(c *gin.Context) {})
	}

	// protected API group
	v1 := r.Group("/v1")
	v1.POST("/auth/login", h.Login)
	v1.Use(authMW)
	{
		v1.GET("/me", func(c *gin.Context) {
			uid, _ := auth.UserID(c.Request.Context())
			c.JSON(200, gin.H{"user_id": uid})
		})

		agents := v1.Group("/agents")
		{
			agents.POST("", h.CreateAgent)
			agents.GET("", h.ListAgents)
			agents.GET("/:id", h.GetAgent)
			agents.PUT("/:id", h.UpdateAgent)
			agents.POST("/:id/provision-remote", h.ProvisionRemoteAgent)
		}

		v1.GET("/calls", h.ListCalls)
		v1.POST("/widgets", h.CreateWidget)
		v1.POST("/chat", h.Chat)
		v1.POST("/chat-sessions", h.UpsertChatSession)
		v1.GET("/chat-sessions", h.ListChatSessions)
	}
}
