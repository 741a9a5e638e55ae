package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"classattend/internal/metrics"
	"classattend/internal/roster"
)

// The one message every authentication failure answers with. Expired,
// malformed and badly-signed tokens are indistinguishable to the caller.
const unauthorizedMsg = "unauthorized, token missing or invalid"

const (
	ctxClaims     = "auth.claims"
	ctxUser       = "auth.user"
	ctxClass      = "auth.class"
	ctxMemberRole = "auth.memberRole"
)

// UserSource loads principals for role and membership checks.
type UserSource interface {
	GetUser(ctx context.Context, id string) (*roster.User, error)
}

// ClassSource loads classes for membership checks.
type ClassSource interface {
	GetClass(ctx context.Context, id string) (*roster.Class, error)
}

// Guard builds the gate middlewares placed in front of protected routes.
type Guard struct {
	users      UserSource
	classes    ClassSource
	signingKey string
	issuer     string
}

// NewGuard creates a guard verifying tokens with signingKey and loading
// principals and classes through the given sources.
func NewGuard(users UserSource, classes ClassSource, signingKey, issuer string) *Guard {
	return &Guard{users: users, classes: classes, signingKey: signingKey, issuer: issuer}
}

// ClaimsFrom returns the verified token claims set by a guard.
func ClaimsFrom(c *gin.Context) (Claims, bool) {
	v, exists := c.Get(ctxClaims)
	if !exists {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}

// UserFrom returns the principal loaded by RequireTeacher, RequireStudent or
// RequireClassMember.
func UserFrom(c *gin.Context) (*roster.User, bool) {
	v, exists := c.Get(ctxUser)
	if !exists {
		return nil, false
	}
	user, ok := v.(*roster.User)
	return user, ok
}

// ClassFrom returns the class loaded by RequireClassMember.
func ClassFrom(c *gin.Context) (*roster.Class, bool) {
	v, exists := c.Get(ctxClass)
	if !exists {
		return nil, false
	}
	cls, ok := v.(*roster.Class)
	return cls, ok
}

// MemberRoleFrom returns the principal's computed role within the class
// addressed by RequireClassMember.
func MemberRoleFrom(c *gin.Context) (roster.Role, bool) {
	v, exists := c.Get(ctxMemberRole)
	if !exists {
		return "", false
	}
	role, ok := v.(roster.Role)
	return role, ok
}

// RequireAuth enforces a valid bearer token and exposes its claims
// downstream. Every failure mode answers with the same 401 body.
func (g *Guard) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := g.authenticate(c)
		if !ok {
			return
		}
		c.Set(ctxClaims, claims)
		c.Next()
	}
}

// RequireTeacher runs RequireAuth's checks, loads the principal and rejects
// anyone who is not a teacher. A principal that no longer exists gets the
// same 403 as a role mismatch, so user existence is not revealed.
func (g *Guard) RequireTeacher() gin.HandlerFunc {
	return g.requireRole(roster.RoleTeacher, "forbidden, not a teacher")
}

// RequireStudent is RequireTeacher's counterpart for student-only routes.
func (g *Guard) RequireStudent() gin.HandlerFunc {
	return g.requireRole(roster.RoleStudent, "forbidden, not a student")
}

func (g *Guard) requireRole(role roster.Role, forbiddenMsg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := g.authenticate(c)
		if !ok {
			return
		}
		user, err := g.users.GetUser(c.Request.Context(), claims.UserID)
		if err != nil {
			abortInternal(c)
			return
		}
		if user == nil || user.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": forbiddenMsg})
			return
		}
		c.Set(ctxClaims, claims)
		c.Set(ctxUser, user)
		c.Next()
	}
}

// RequireClassMember authorizes the owning teacher or any enrolled student of
// the class addressed by the named route param, and exposes the principal,
// the class and the computed member role downstream.
func (g *Guard) RequireClassMember(classIDParam string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := g.authenticate(c)
		if !ok {
			return
		}
		user, err := g.users.GetUser(c.Request.Context(), claims.UserID)
		if err != nil {
			abortInternal(c)
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"success": false, "error": "user not found"})
			return
		}
		cls, err := g.classes.GetClass(c.Request.Context(), c.Param(classIDParam))
		if err != nil {
			abortInternal(c)
			return
		}
		if cls == nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"success": false, "error": "class not found"})
			return
		}
		isTeacher, isStudent := cls.Membership(user.ID)
		if !isTeacher && !isStudent {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "not a student or teacher of this class"})
			return
		}
		memberRole := roster.RoleStudent
		if isTeacher {
			memberRole = roster.RoleTeacher
		}
		c.Set(ctxClaims, claims)
		c.Set(ctxUser, user)
		c.Set(ctxClass, cls)
		c.Set(ctxMemberRole, memberRole)
		c.Next()
	}
}

func (g *Guard) authenticate(c *gin.Context) (Claims, bool) {
	token := bearerToken(c.GetHeader("Authorization"))
	if token == "" {
		abortUnauthorized(c)
		return Claims{}, false
	}
	claims, err := Parse(token, g.signingKey, g.issuer)
	if err != nil {
		abortUnauthorized(c)
		return Claims{}, false
	}
	return claims, true
}

// bearerToken extracts the token from an Authorization header value. A bare
// token without the Bearer scheme is accepted as-is.
func bearerToken(value string) string {
	value = strings.TrimSpace(value)
	const bearer = "bearer "
	if len(value) > len(bearer) && strings.EqualFold(value[:len(bearer)], bearer) {
		return strings.TrimSpace(value[len(bearer):])
	}
	return value
}

func abortUnauthorized(c *gin.Context) {
	metrics.UnauthorizedRequests.Inc()
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": unauthorizedMsg})
}

func abortInternal(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
}
