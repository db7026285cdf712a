package controller

import (
	"errors"
	"net/http"

	"query_clash_backend/internal/service"
	"query_clash_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
	MaxAge      int
	Secure      bool
}

func NewAuthController(authService *service.AuthService, maxAge int, secure bool) *AuthController {
	return &AuthController{
		AuthService: authService,
		MaxAge:      maxAge,
		Secure:      secure,
	}
}

// swagger:model LoginRequest
type LoginRequest struct {
	Name     string `json:"name" form:"name"`
	Password string `json:"password" form:"password"`
}

// Login godoc
// @Summary Log in or register
// @Description Unknown names are registered on first login. Admin credentials yield an admin session.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "credentials"
// @Success 200 {object} util.Response{data=service.LoginResult}
// @Failure 400 {object} util.Response
// @Failure 401 {object} util.Response
// @Router /api/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBind(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AuthService.Login(ctx.Request.Context(), req.Name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrCredentialsRequired), errors.Is(err, util.ErrSameNameAndPassword):
			util.BadRequest(ctx, err.Error())
		case errors.Is(err, util.ErrInvalidCredentials):
			util.Error(ctx, http.StatusUnauthorized, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(util.SessionCookie, result.Token, c.MaxAge, "/", "", c.Secure, true)
	util.Success(ctx, result)
}

// Logout godoc
// @Summary Log out
// @Tags auth
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/logout [post]
func (c *AuthController) Logout(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(util.SessionCookie, "", -1, "/", "", c.Secure, true)
	util.Success(ctx, gin.H{"loggedOut": true})
}
