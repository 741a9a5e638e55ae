package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"classattend/internal/auth"
	"classattend/internal/roster"
)

type signupRequest struct {
	Name     string      `json:"name" binding:"required"`
	Email    string      `json:"email" binding:"required,email"`
	Password string      `json:"password" binding:"required,min=6"`
	Role     roster.Role `json:"role" binding:"required,oneof=teacher student"`
}

// Signup registers a new teacher or student account.
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request schema")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		internalError(c, "hash password", err)
		return
	}
	user, err := h.store.CreateUser(c.Request.Context(), roster.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
	})
	if err != nil {
		if errors.Is(err, roster.ErrEmailTaken) {
			fail(c, http.StatusBadRequest, "email already exists")
			return
		}
		internalError(c, "create user", err)
		return
	}
	respond(c, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// Login verifies credentials and issues a signed identity token. Unknown
// email and wrong password get the same answer.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request schema")
		return
	}
	user, err := h.store.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		internalError(c, "load user", err)
		return
	}
	if user == nil {
		fail(c, http.StatusBadRequest, "invalid email or password")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		fail(c, http.StatusBadRequest, "invalid email or password")
		return
	}
	token, _, err := auth.Issue(user.ID, user.Role, h.issuer, h.signingKey, h.tokenTTL)
	if err != nil {
		internalError(c, "issue token", err)
		return
	}
	respond(c, http.StatusOK, gin.H{"token": token})
}

// Me returns the authenticated principal's own account.
func (h *Handler) Me(c *gin.Context) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "unauthorized, token missing or invalid")
		return
	}
	user, err := h.store.GetUser(c.Request.Context(), claims.UserID)
	if err != nil {
		internalError(c, "load user", err)
		return
	}
	if user == nil {
		fail(c, http.StatusNotFound, "user not found")
		return
	}
	respond(c, http.StatusOK, user)
}
