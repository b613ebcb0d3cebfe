package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *handler) login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "username and password required")
		return
	}
	p, err := h.Credentials.Verify(req.Username, req.Password)
	if err != nil {
		h.log.WithField("user", req.Username).Warn("login failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	pair, err := h.Tokens.Issue(p.Subject, p.Role)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (h *handler) refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "refresh_token required")
		return
	}
	pair, err := h.Tokens.Refresh(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	c.JSON(http.StatusOK, pair)
}
