package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"

	"social-hub/domain/dto"
	"social-hub/domain/model"
	"social-hub/infrastructure/configuration"
	"social-hub/infrastructure/logger"
	"social-hub/usecase"
)

type IAuthHandler interface {
	Login(c *gin.Context)
	GetAuthURL(c *gin.Context)
	Callback(c *gin.Context)
	Refresh(c *gin.Context)
	Revoke(c *gin.Context)
	ListAccounts(c *gin.Context)
	AccountMetrics(c *gin.Context)
	PostMetrics(c *gin.Context)
}

type AuthHandler struct {
	authUsecase usecase.IAuth
}

func NewAuthHandler(authUsecase usecase.IAuth) IAuthHandler {
	return &AuthHandler{authUsecase: authUsecase}
}

type loginRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// Login issues an API token for the given user id, signed with the app
// secret. Identity verification lives upstream; this service only needs a
// stable user id to scope accounts and publish records.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &model.ValidationError{Reason: err.Error()})
		return
	}

	claims := model.UserClaims{
		UserName: req.UserID,
		StandardClaims: jwt.StandardClaims{
			Issuer:    req.UserID,
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(24 * time.Hour).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(configuration.C.App.SecretKey))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"token": signed})
}

// GetAuthURL starts the authorization flow for a platform. The caller is
// redirected (or handed the URL) to the provider's consent screen.
func (h *AuthHandler) GetAuthURL(c *gin.Context) {
	platform := c.Param("platform")
	uid := c.Query("user_id")
	if uid == "" {
		uid = userID(c)
	}
	if uid == "" {
		respondError(c, &model.ValidationError{Reason: "user_id is required"})
		return
	}

	url, err := h.authUsecase.GetAuthorizationURL(c.Request.Context(), platform, uid)
	if err != nil {
		respondError(c, err)
		return
	}
	if c.Query("redirect") == "true" {
		c.Redirect(http.StatusTemporaryRedirect, url)
		return
	}
	respondOK(c, dto.AuthorizeURLResponse{URL: url})
}

// Callback completes the flow: the provider redirects here with code and
// state. A missing or unknown state is rejected before anything else.
func (h *AuthHandler) Callback(c *gin.Context) {
	platform := c.Param("platform")
	code := c.Query("code")
	state := c.Query("state")
	if errMsg := c.Query("error"); errMsg != "" {
		logger.GetLogger().
			WithField("platform", platform).
			WithField("error", errMsg).
			Warn("provider returned authorization error")
		respondError(c, &model.AuthenticationError{Reason: "authorization denied: " + errMsg})
		return
	}
	if code == "" || state == "" {
		respondError(c, &model.ValidationError{Reason: "code and state are required"})
		return
	}

	account, err := h.authUsecase.HandleCallback(c.Request.Context(), platform, code, state)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, account)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &model.ValidationError{Reason: err.Error()})
		return
	}

	account, err := h.authUsecase.RefreshToken(c.Request.Context(), req.AccountID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, account)
}

func (h *AuthHandler) Revoke(c *gin.Context) {
	platform := c.Param("platform")
	var req dto.RevokeTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &model.ValidationError{Reason: err.Error()})
		return
	}

	if err := h.authUsecase.RevokeToken(c.Request.Context(), platform, req.AccountID, req.Token); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

func (h *AuthHandler) ListAccounts(c *gin.Context) {
	accounts, err := h.authUsecase.ListAccounts(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, accounts)
}

func (h *AuthHandler) AccountMetrics(c *gin.Context) {
	accountID, err := strconv.ParseInt(c.Param("accountId"), 10, 64)
	if err != nil {
		respondError(c, &model.ValidationError{Reason: "invalid account id"})
		return
	}
	metrics, err := h.authUsecase.GetAccountMetrics(c.Request.Context(), userID(c), accountID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, metrics)
}

func (h *AuthHandler) PostMetrics(c *gin.Context) {
	accountID, err := strconv.ParseInt(c.Param("accountId"), 10, 64)
	if err != nil {
		respondError(c, &model.ValidationError{Reason: "invalid account id"})
		return
	}
	metrics, err := h.authUsecase.GetPostMetrics(c.Request.Context(), userID(c), accountID, c.Param("postId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, metrics)
}
