package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nutriscan/nutriscan-be/db"
	"github.com/nutriscan/nutriscan-be/model"
	"github.com/nutriscan/nutriscan-be/services"
	"github.com/nutriscan/nutriscan-be/util"
)

const (
	TOKEN_KEY = "authToken"
	USER_KEY  = "user"
)

type AuthConfig struct {
	// SessionNotRequired lets anonymous requests through without claims.
	SessionNotRequired bool
}

// GenAuth verifies the bearer token and loads the caller's profile when one exists.
// Routes that need the profile add RequireAccount after it.
func GenAuth(userDB db.UserDatabase, identity services.Identity, config *AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			if config.SessionNotRequired {
				return
			}
			util.HandleHTTPErrorRes(c, util.NewHTTPError(http.StatusUnauthorized, "no authorization header"))
			return
		}

		claims, err := identity.Verify(c, token)
		if err != nil {
			if config.SessionNotRequired {
				return
			}
			util.HandleHTTPErrorRes(c, &util.HTTPError{Status: http.StatusUnauthorized, Message: "invalid token", Err: err})
			return
		}
		c.Set(TOKEN_KEY, claims)

		user, err := userDB.GetUser(c, claims.UserId)
		if err != nil {
			util.HandleHTTPErrorRes(c, util.BuildDbHTTPErr(err))
			return
		}
		if user != nil {
			c.Set(USER_KEY, user)
		}
	}
}

// bearerToken reads the token from the Authorization header. Browsers cannot set
// headers on websocket upgrades, so the access_token query parameter is accepted too.
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if token := c.Query("access_token"); token != "" {
			return token, true
		}
		return "", false
	}
	if !strings.HasPrefix(header, "Bearer ") || len(header) < 8 {
		return "", false
	}
	return header[7:], true
}

func RequireAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(USER_KEY); !ok {
			util.HandleHTTPErrorRes(c, util.NewHTTPError(http.StatusForbidden, "must have a user profile"))
		}
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := GetUserMaybe(c)
		if user == nil || !user.IsAdmin {
			util.HandleHTTPErrorRes(c, util.NewHTTPError(http.StatusForbidden, "admin only"))
		}
	}
}

func MustGetToken(c *gin.Context) *services.Claims {
	return c.MustGet(TOKEN_KEY).(*services.Claims)
}

func GetTokenMaybe(c *gin.Context) *services.Claims {
	claims, ok := c.Get(TOKEN_KEY)
	if !ok {
		return nil
	}
	return claims.(*services.Claims)
}

func MustGetUser(c *gin.Context) *model.User {
	return c.MustGet(USER_KEY).(*model.User)
}

func GetUserMaybe(c *gin.Context) *model.User {
	user, ok := c.Get(USER_KEY)
	if !ok {
		return nil
	}
	return user.(*model.User)
}

// GetUserIdMaybe returns the verified caller id, or "" for anonymous requests.
func GetUserIdMaybe(c *gin.Context) string {
	if claims := GetTokenMaybe(c); claims != nil {
		return claims.UserId
	}
	return ""
}
