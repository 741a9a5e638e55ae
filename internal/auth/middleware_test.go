package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"classattend/internal/roster"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUsers map[string]*roster.User

func (f fakeUsers) GetUser(_ context.Context, id string) (*roster.User, error) {
	return f[id], nil
}

type fakeClasses map[string]*roster.Class

func (f fakeClasses) GetClass(_ context.Context, id string) (*roster.Class, error) {
	return f[id], nil
}

func testFixtures() (fakeUsers, fakeClasses) {
	users := fakeUsers{
		"t1": {ID: "t1", Name: "Ms. Reed", Email: "reed@school.test", Role: roster.RoleTeacher},
		"t2": {ID: "t2", Name: "Mr. Ito", Email: "ito@school.test", Role: roster.RoleTeacher},
		"s1": {ID: "s1", Name: "Avery", Email: "avery@school.test", Role: roster.RoleStudent},
		"s2": {ID: "s2", Name: "Sam", Email: "sam@school.test", Role: roster.RoleStudent},
	}
	classes := fakeClasses{
		"c1": {ID: "c1", ClassName: "CS101", TeacherID: "t1", StudentIDs: []string{"s1"}},
	}
	return users, classes
}

func token(t *testing.T, userID string, role roster.Role) string {
	t.Helper()
	tok, _, err := Issue(userID, role, "classattend", testKey, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tok
}

func do(r *gin.Engine, method, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	users, classes := testFixtures()
	guard := NewGuard(users, classes, testKey, "classattend")

	r := gin.New()
	r.GET("/probe", guard.RequireAuth(), func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			c.String(http.StatusInternalServerError, "no claims")
			return
		}
		c.String(http.StatusOK, claims.UserID)
	})

	valid := token(t, "s1", roster.RoleStudent)
	expired, _, err := Issue("s1", roster.RoleStudent, "classattend", testKey, -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	badKey, _, err := Issue("s1", roster.RoleStudent, "classattend", "other-key", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"scheme only", "Bearer ", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.token", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"bad signature", "Bearer " + badKey, http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusOK},
		{"raw token without scheme", valid, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, http.MethodGet, "/probe", tc.header)
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tc.status, w.Body.String())
			}
			if tc.status == http.StatusUnauthorized && !strings.Contains(w.Body.String(), unauthorizedMsg) {
				t.Fatalf("401 body %q does not carry the uniform message", w.Body.String())
			}
		})
	}
}

func TestRequireTeacher(t *testing.T) {
	users, classes := testFixtures()
	guard := NewGuard(users, classes, testKey, "classattend")

	r := gin.New()
	r.GET("/probe", guard.RequireTeacher(), func(c *gin.Context) {
		user, ok := UserFrom(c)
		if !ok {
			c.String(http.StatusInternalServerError, "no user")
			return
		}
		c.String(http.StatusOK, user.ID)
	})

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"teacher", "Bearer " + token(t, "t1", roster.RoleTeacher), http.StatusOK},
		{"student token", "Bearer " + token(t, "s1", roster.RoleStudent), http.StatusForbidden},
		{"valid token, deleted user", "Bearer " + token(t, "ghost", roster.RoleTeacher), http.StatusForbidden},
		{"no token", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, http.MethodGet, "/probe", tc.header)
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tc.status, w.Body.String())
			}
		})
	}
}

func TestRequireStudent(t *testing.T) {
	users, classes := testFixtures()
	guard := NewGuard(users, classes, testKey, "classattend")

	r := gin.New()
	r.GET("/probe", guard.RequireStudent(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	if w := do(r, http.MethodGet, "/probe", "Bearer "+token(t, "s1", roster.RoleStudent)); w.Code != http.StatusOK {
		t.Fatalf("student rejected: %d %s", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodGet, "/probe", "Bearer "+token(t, "t1", roster.RoleTeacher)); w.Code != http.StatusForbidden {
		t.Fatalf("teacher allowed on student route: %d", w.Code)
	}
}

func TestRequireClassMember(t *testing.T) {
	users, classes := testFixtures()
	guard := NewGuard(users, classes, testKey, "classattend")

	r := gin.New()
	r.GET("/class/:id", guard.RequireClassMember("id"), func(c *gin.Context) {
		role, ok := MemberRoleFrom(c)
		if !ok {
			c.String(http.StatusInternalServerError, "no member role")
			return
		}
		cls, ok := ClassFrom(c)
		if !ok {
			c.String(http.StatusInternalServerError, "no class")
			return
		}
		c.String(http.StatusOK, string(role)+":"+cls.ID)
	})

	cases := []struct {
		name   string
		path   string
		header string
		status int
		body   string
	}{
		{"owning teacher", "/class/c1", "Bearer " + token(t, "t1", roster.RoleTeacher), http.StatusOK, "teacher:c1"},
		{"enrolled student", "/class/c1", "Bearer " + token(t, "s1", roster.RoleStudent), http.StatusOK, "student:c1"},
		{"other teacher", "/class/c1", "Bearer " + token(t, "t2", roster.RoleTeacher), http.StatusForbidden, ""},
		{"unenrolled student", "/class/c1", "Bearer " + token(t, "s2", roster.RoleStudent), http.StatusForbidden, ""},
		{"unknown class", "/class/nope", "Bearer " + token(t, "s1", roster.RoleStudent), http.StatusNotFound, ""},
		{"deleted user", "/class/c1", "Bearer " + token(t, "ghost", roster.RoleStudent), http.StatusNotFound, ""},
		{"no token", "/class/c1", "", http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, http.MethodGet, tc.path, tc.header)
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tc.status, w.Body.String())
			}
			if tc.body != "" && w.Body.String() != tc.body {
				t.Fatalf("body = %q, want %q", w.Body.String(), tc.body)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"  Bearer abc  ", "abc"},
		{"abc", "abc"},
		{"Bearer ", "Bearer"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := bearerToken(tc.in); got != tc.want {
			t.Errorf("bearerToken(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
