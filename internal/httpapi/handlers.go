package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"receptionist-platform/internal/agents"
	"receptionist-platform/internal/apperr"
	"receptionist-platform/internal/auth"
	"receptionist-platform/internal/calls"
	"receptionist-platform/internal/chatsessions"
	"receptionist-platform/internal/demos"
	"receptionist-platform/internal/voice"
	"receptionist-platform/internal/widgets"
	"receptionist-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth         *auth.Manager
	Agents       *agents.Service
	Calls        *calls.Service
	Widgets      *widgets.Service
	Demos        *demos.Service
	ChatSessions *chatsessions.Service
	Platform     voice.Platform

	// WebhookSecret verifies platform signatures. Empty means unsigned
	// deliveries are accepted (flagged in logs).
	WebhookSecret string
}

// writeError maps service errors onto HTTP responses. Everything the
// services return is either an *apperr.Error or gets wrapped into one.
func writeError(c *gin.Context, err error) {
	e := apperr.From(err)
	body := gin.H{"error": e.Message, "kind": string(e.Kind)}
	if e.Kind == apperr.KindSynthesis && e.Detail != "" {
		body["detail"] = e.Detail
	}
	c.AbortWithStatusJSON(e.HTTPStatus(), body)
}

func identity(c *gin.Context) (string, bool) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil || userID == "" {
		writeError(c, apperr.Auth("authentication required"))
		return "", false
	}
	return userID, true
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
}

// Login issues a JWT token pair.
//
// NOTE: Skeleton endpoint; credential validation happens upstream of this
// service.
func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation("invalid json"))
		return
	}
	if req.UserID == "" {
		writeError(c, apperr.Validation("user_id required"))
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID)
	if err != nil {
		writeError(c, apperr.Storage("token issuance failed", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Agents ---

func (h Handlers) CreateAgent(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}
	var req agents.ProvisionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation("invalid json"))
		return
	}
	out, err := h.Agents.Provision(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusCreated
	if out.ServedFromCache {
		status = http.StatusOK
	}
	c.JSON(status, out)
}

func (h Handlers) ListAgents(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}
	out, err := h.Agents.List(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	if out == nil {
		out = []agents.Agent{}
	}
	c.JSON(http.StatusOK, gin.H{"agents": out})
}

func (h Handlers) GetAgent(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}
	out, err := h.Agents.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) UpdateAgent(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}
	var req agents.UpdateFields
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation("invalid json"))
		return
	}
	out, err := h.Agents.Update(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) ProvisionRemoteAgent(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}
	assistantID, err := h.Agents.ProvisionRemote(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assistant_id": assistantID})
}

// --- Calls ---

func (h Handlers) ListCalls(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	out, err := h.Calls.List(c.Request.Context(), userID, calls.Filter{
		AgentID: c.Query("agent_id"),
		Limit:   limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// --- Widgets ---

type createWidgetRequest struct {
	AgentID string `json:"agent_id"`
}

func (h Handlers) CreateWidget(c *gin.Context) {
	userID, ok := identity(c)
	if !ok {
		return
	}
	var req createWidgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation("invalid json"))
		return
	}
	if req.AgentID == "" {
		writeError(c, apperr.Validation("agent_id required"))
		return
	}
	out, err := h.Widgets.Create(c.Request.Context(), userID, req.AgentID)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusCreated
	if out.AlreadyExisted {
		status = http.StatusOK
	}
	c.JSON(status, out)
}

// ResolveWidget is public: embed scripts on arbitrary origins call it.
func (h Handlers) ResolveWidget(c *gin.Context) {
	out, err := h.Widgets.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// --- Demos ---

func (h Handlers) DemoResearch(c *gin.Context) {
	var req demos.ResearchInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation("invalid json"))
		return
	}
	out, err := h.Demos.Research(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type demoPromptRequest struct {
	ID          string `json:"id"`
	Prompt      string `json:"prompt"`
	AssistantID string `json:"assistant_id"`
}

func (h Handlers) DemoPrompt(c *gin.Context) {
	var req demoPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation("invalid json"))
		return
	}
	if err := h.Demos.SavePrompt(c.Request.Context(), req.ID, req.Prompt, req.AssistantID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Chat ---

func (h Handlers) Chat(c *gin.Context) {
	if _, ok := identity(c); !ok {
		return
	}
	var req voice.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation("invalid json"))
		return
	}
	if req.AssistantID == "" || req.Input == "" {
		writeError(c, apperr.Validation("assistantId and input required"))
		return
	}
	out, err := h.Platform.Chat(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// --- Chat sessions ---

func (h Handlers) UpsertChatSession(c *gin.Context) {
	if _, ok := identity(c); !ok {
		return
	}
	var req chatsessions.UpsertInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation("invalid json"))
		return
	}
	out, err := h.ChatSessions.Upsert(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) ListChatSessions(c *gin.Context) {
	if _, ok := identity(c); !ok {
		return
	}
	if id := c.Query("id"); id != "" {
		out, err := h.ChatSessions.Get(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
		return
	}
	out, err := h.ChatSessions.List(c.Request.Context(), c.Query("assistant_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

// --- Webhook ---

// VoiceWebhook ingests platform call-lifecycle events. It always answers
// 200 for decodable, authentic deliveries; persistence problems are logged
// and swallowed so the platform does not retry-storm us.
func (h Handlers) VoiceWebhook(c *gin.Context) {
	log := logger.From(c.Request.Context())

	body, err := c.GetRawData()
	if err != nil {
		writeError(c, apperr.Validation("unreadable body"))
		return
	}

	if h.WebhookSecret != "" {
		sig := c.GetHeader(voice.SignatureHeader)
		if !voice.VerifySignature(h.WebhookSecret, body, sig) {
			writeError(c, apperr.Auth("invalid webhook signature"))
			return
		}
	} else {
		log.Warn("webhook accepted without signature verification")
	}

	ev, err := voice.ParseEvent(body)
	if err != nil {
		writeError(c, apperr.Validation("invalid webhook payload"))
		return
	}

	h.Demos.ApplyPlatformEvent(c.Request.Context(), ev)
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// --- Health ---

func (h Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// PublicCORS opens a route to any origin. Only the widget bootstrap and its
// preflight go through this; everything else stays same-origin.
func PublicCORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
