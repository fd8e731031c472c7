package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Authenticator checks Basic/session/Bearer credentials against a single
// configured dashboard token, generalized from the teacher's three-way
// Authentication check (internal/http/middleware/auth.go) away from its
// multi-kind "channel operator" principal model — this service has only
// one operator identity, the holder of DASHBOARD_TOKEN.
type Authenticator struct {
	token string
}

func NewAuthenticator(token string) *Authenticator {
	return &Authenticator{token: token}
}

// Middleware allows access if the token is empty (auth disabled), or the
// request carries valid Basic credentials, a valid session, or a valid
// Bearer token. Responds 401 otherwise.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.token == "" || a.isBasicAuthenticated(c) || a.isSessionAuthenticated(c) || a.isBearerTokenValid(c) {
			c.Next()
			return
		}
		c.AbortWithStatus(http.StatusUnauthorized)
	}
}

func (a *Authenticator) isBasicAuthenticated(c *gin.Context) bool {
	_, pass, hasAuth := c.Request.BasicAuth()
	if hasAuth && subtle.ConstantTimeCompare([]byte(pass), []byte(a.token)) == 1 {
		return true
	}
	return false
}

func (a *Authenticator) isSessionAuthenticated(c *gin.Context) bool {
	session := sessions.Default(c)
	authed, _ := session.Get("authed").(bool)
	if !authed {
		return false
	}

	const sessionTTL = 15 * 60
	now := time.Now().Unix()
	lastTouch, _ := session.Get("last_touch").(int64)
	if lastTouch == 0 || now-lastTouch > sessionTTL {
		session.Set("last_touch", now)
		_ = session.Save()
	}
	return true
}

func (a *Authenticator) isBearerTokenValid(c *gin.Context) bool {
	h := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return false
	}
	token := strings.TrimSpace(strings.TrimPrefix(h, prefix))
	if token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) == 1
}
