package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/quillhub/quillhub-be/db"
	"github.com/quillhub/quillhub-be/model"
)

const (
	tokenKey = "authToken"
	userKey  = "user"
)

// TokenVerifier is the slice of *auth.Client the middleware needs. Tests stub
// it out.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type AuthConfig struct {
	// SessionNotRequired lets unauthenticated requests through (the principal
	// is simply absent)
	SessionNotRequired bool
	// ProfileNotRequired lets authenticated principals without a local profile
	// through (e.g. profile creation itself)
	ProfileNotRequired bool
	// AdminRequired rejects principals whose profile is not an admin
	AdminRequired bool
}

func Auth(userDB db.UserDatabase, verifier TokenVerifier, config *AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authorizationHeader, ok := c.Request.Header["Authorization"]
		if !ok || len(authorizationHeader) == 0 {
			if config.SessionNotRequired {
				return
			}
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "no authorization header",
			})
			c.Abort()
			return
		}
		if strings.Index(authorizationHeader[0], "Bearer ") != 0 || len(authorizationHeader[0]) < 8 {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "incorrectly formatted authorization header",
			})
			c.Abort()
			return
		}
		token, err := verifier.VerifyIDToken(c, authorizationHeader[0][7:])
		if err != nil {
			if config.SessionNotRequired {
				return
			}
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "invalid token",
			})
			c.Abort()
			return
		}
		c.Set(tokenKey, token)

		user, err := userDB.GetUser(c, token.UID)
		if err != nil {
			log.Errorf("[auth] user lookup failed: %v", err)
		}
		if user == nil {
			if config.ProfileNotRequired {
				return
			}
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "must have a user profile",
			})
			c.Abort()
			return
		}
		if config.AdminRequired && !user.IsAdmin {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "must be an admin",
			})
			c.Abort()
			return
		}
		c.Set(userKey, user)
	}
}

func GetToken(c *gin.Context) *auth.Token {
	token, _ := c.Get(tokenKey)
	return token.(*auth.Token)
}

func GetUser(c *gin.Context) *model.User {
	user, _ := c.Get(userKey)
	return user.(*model.User)
}

// GetUserIdMaybe returns the empty string when no principal is attached
func GetUserIdMaybe(c *gin.Context) string {
	token, ok := c.Get(tokenKey)
	if !ok {
		return ""
	}
	return token.(*auth.Token).UID
}
