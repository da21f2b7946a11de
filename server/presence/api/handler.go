package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	commonauth "fitgym_server/server/common/auth"
	commonlog "fitgym_server/server/common/log"
	"fitgym_server/server/common/middleware"
	"fitgym_server/server/common/transport/httpresp"
	presenceservice "fitgym_server/server/presence/service"
)

type Handler struct {
	accounts *presenceservice.AccountService
	avatars  *presenceservice.AvatarService
	gateway  *presenceservice.Gateway
	auth     *commonauth.Service
}

func NewHandler(accounts *presenceservice.AccountService, avatars *presenceservice.AvatarService, gateway *presenceservice.Gateway, auth *commonauth.Service) *Handler {
	return &Handler{accounts: accounts, avatars: avatars, gateway: gateway, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpresp.NewOKResponse())
	})
	r.GET("/ws/presence", h.handlePresenceWS)
	r.POST("/api/v1/auth/register", h.register)
	r.POST("/api/v1/auth/login", h.login)

	api := r.Group("/api/v1")
	api.Use(middleware.AuthRequired(h.auth))
	{
		api.GET("/friends", h.listFriends)
		api.GET("/presence/:id", h.presenceOf)
		api.POST("/users/me/avatar", h.uploadAvatar)
		api.GET("/users/me/avatar-url", h.avatarURL)
	}
}

func (h *Handler) register(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
		return
	}
	id, err := h.accounts.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusCreated, httpresp.NewIDResponse(id))
}

func (h *Handler) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
		return
	}
	account, err := h.accounts.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpresp.NewErrorResponse(httpresp.ErrInvalidCredentials))
		return
	}
	token, err := h.auth.GenerateToken(account.ID, account.Username, "user")
	if err != nil {
		c.JSON(http.StatusInternalServerError, httpresp.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, httpresp.NewTokenResponse(token, account.ID, account.Username, "user"))
}

var presenceUpgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// handlePresenceWS authenticates via query token (browser WebSocket clients
// cannot set headers), upgrades, then feeds every frame to the gateway until
// the connection dies.
func (h *Handler) handlePresenceWS(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		c.JSON(http.StatusUnauthorized, httpresp.NewErrorResponse(httpresp.ErrMissingBearerToken))
		return
	}
	userID, _, _, err := h.auth.ParseAuthContext(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpresp.NewErrorResponse(httpresp.ErrInvalidToken))
		return
	}

	wsConn, err := presenceUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
		return
	}

	conn := presenceservice.NewWSConn(wsConn)
	commonlog.Infof("event=presence_ws action=connect user_id=%s socket_id=%s", userID, conn.ID())
	defer h.gateway.Disconnect(c.Request.Context(), conn)

	for {
		_, raw, err := wsConn.ReadMessage()
		if err != nil {
			return
		}
		h.gateway.Dispatch(c.Request.Context(), conn, userID, raw)
	}
}

func (h *Handler) listFriends(c *gin.Context) {
	userID, err := actorFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpresp.NewErrorResponse(httpresp.ErrUnauthorized))
		return
	}
	entries, err := h.gateway.FriendsSnapshot(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, httpresp.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) presenceOf(c *gin.Context) {
	if _, err := actorFromContext(c); err != nil {
		c.JSON(http.StatusUnauthorized, httpresp.NewErrorResponse(httpresp.ErrUnauthorized))
		return
	}
	c.JSON(http.StatusOK, h.gateway.PresenceOf(c.Param("id")))
}

func (h *Handler) uploadAvatar(c *gin.Context) {
	userID, err := actorFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpresp.NewErrorResponse(httpresp.ErrUnauthorized))
		return
	}
	if h.avatars == nil {
		c.JSON(http.StatusServiceUnavailable, httpresp.NewErrorResponse(httpresp.ErrAvatarNotEnabled))
		return
	}
	file, _, err := c.Request.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse("avatar file is required"))
		return
	}
	defer file.Close()

	objectKey, err := h.avatars.Upload(c.Request.Context(), userID, file)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusCreated, httpresp.NewIDResponse(objectKey))
}

func (h *Handler) avatarURL(c *gin.Context) {
	userID, err := actorFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpresp.NewErrorResponse(httpresp.ErrUnauthorized))
		return
	}
	if h.avatars == nil {
		c.JSON(http.StatusServiceUnavailable, httpresp.NewErrorResponse(httpresp.ErrAvatarNotEnabled))
		return
	}
	url, err := h.avatars.DownloadURL(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, httpresp.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, httpresp.NewURLResponse(url))
}

func actorFromContext(c *gin.Context) (string, error) {
	rawUserID, ok := c.Get("auth_user_id")
	if !ok {
		return "", http.ErrNoCookie
	}
	userID, ok := rawUserID.(string)
	if !ok || strings.TrimSpace(userID) == "" {
		return "", http.ErrNoCookie
	}
	return userID, nil
}
