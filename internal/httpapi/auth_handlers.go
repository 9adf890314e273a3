package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hostelhub/internal/apperrors"
	"hostelhub/internal/auth"
	"hostelhub/internal/identity"
)

func (h *Handler) issueTokens(u identity.User) (gin.H, error) {
	tokens, err := auth.Issue(u.ID, u.Role, u.Code(), h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}
	return gin.H{
		"token":        tokens.AccessToken,
		"refreshToken": tokens.RefreshToken,
		"expiresAt":    tokens.AccessExp.Unix(),
		"user":         u,
	}, nil
}

func (h *Handler) register(c *gin.Context) {
	var req struct {
		Name        string `json:"name"`
		Email       string `json:"email"`
		Password    string `json:"password"`
		StudentCode string `json:"studentId"`
		Department  string `json:"department"`
		Semester    *int   `json:"semester"`
		PhoneNumber string `json:"phoneNumber"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.Validation("invalid request body"))
		return
	}

	user, err := h.users.Register(c.Request.Context(), identity.RegisterParams{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		StudentCode: req.StudentCode,
		Department:  req.Department,
		Semester:    req.Semester,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		fail(c, err)
		return
	}

	payload, err := h.issueTokens(user)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, payload)
}

func (h *Handler) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.Validation("email and password are required"))
		return
	}

	user, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	payload, err := h.issueTokens(user)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, payload)
}

func (h *Handler) refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		fail(c, apperrors.Validation("refreshToken is required"))
		return
	}

	claims, err := auth.Parse(req.RefreshToken, h.cfg.JWTSigningKey, h.cfg.JWTIssuer)
	if err != nil {
		fail(c, apperrors.New(apperrors.ErrUnauthorized, "invalid refresh token"))
		return
	}

	user, err := h.users.Get(c.Request.Context(), claims.Subject)
	if err != nil {
		fail(c, err)
		return
	}
	if !user.IsActive {
		fail(c, apperrors.Forbidden("account is disabled"))
		return
	}

	payload, err := h.issueTokens(user)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, payload)
}

func (h *Handler) me(c *gin.Context) {
	claims := auth.FromContext(c)
	user, err := h.users.Get(c.Request.Context(), claims.Subject)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"user": user})
}
