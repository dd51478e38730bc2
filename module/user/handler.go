package user

import (
	"net/http"

	"ChatRelay/logger"
	"ChatRelay/middleware"
	msgstore "ChatRelay/module/message"
	"ChatRelay/module/user/service"
	security "ChatRelay/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// Handler exposes the account/history REST surface next to the websocket
// gateway: register/login/logout, profile, user list, conversation history.
type Handler struct {
	jwtOpts  security.Options
	messages *msgstore.Store
}

func NewHandler(jwtOpts security.Options, messages *msgstore.Store) *Handler {
	return &Handler{jwtOpts: jwtOpts, messages: messages}
}

// Mount 注册所有 REST 路由。
func (h *Handler) Mount(r gin.IRoutes, auth gin.HandlerFunc) {
	r.GET("/test", h.Test)
	r.GET("/users", h.Users)
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)
	r.GET("/profile", auth, h.Profile)
	r.GET("/messages/:userId", auth, h.Messages)
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Test(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "successful response"})
}

func (h *Handler) Users(c *gin.Context) {
	users, err := service.ListAll(c.Request.Context())
	if err != nil {
		logger.Errorf("[api] list users failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "store unavailable"})
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) Register(c *gin.Context) {
	var in credentials
	if err := c.ShouldBindJSON(&in); err != nil || in.Username == "" || in.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid entry"})
		return
	}
	u, token, err := service.Register(c.Request.Context(), h.jwtOpts, in.Username, in.Password)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateUser) {
			c.JSON(http.StatusConflict, gin.H{"message": "duplicate entry"})
			return
		}
		logger.Errorf("[api] register failed user=%s err=%v", in.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "register failed"})
		return
	}
	h.setTokenCookie(c, token)
	c.JSON(http.StatusCreated, gin.H{"id": u.ID.Hex(), "username": u.Username})
}

func (h *Handler) Login(c *gin.Context) {
	var in credentials
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid entry"})
		return
	}
	u, token, err := service.Login(c.Request.Context(), h.jwtOpts, in.Username, in.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "no user found"})
		case errors.Is(err, service.ErrWrongPassword):
			c.JSON(http.StatusUnauthorized, gin.H{"message": "wrong password"})
		default:
			logger.Errorf("[api] login failed user=%s err=%v", in.Username, err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "login failed"})
		}
		return
	}
	h.setTokenCookie(c, token)
	c.JSON(http.StatusCreated, gin.H{"id": u.ID.Hex(), "username": u.Username})
}

func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", true, true)
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (h *Handler) Profile(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "token is not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": claims.UserID, "username": claims.Username})
}

// Messages 返回当前用户与 :userId 的单聊历史（时间升序）
func (h *Handler) Messages(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "token is not found"})
		return
	}
	peer := c.Param("userId")
	msgs, err := h.messages.ListBetween(c.Request.Context(), claims.UserID, peer)
	if err != nil {
		logger.Errorf("[api] list messages failed user=%s peer=%s err=%v", claims.UserID, peer, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "store unavailable"})
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *Handler) setTokenCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(middleware.TokenCookie, token, int(h.jwtOpts.TTL.Seconds()), "/", "", true, true)
}
