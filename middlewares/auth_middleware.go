package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/utils"
	"gorm.io/gorm"
)

// Context keys set by the auth middlewares.
const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
	ContextRole     = "role"
)

// AuthMiddleware requires a valid bearer token. When db is set the user must
// also still exist and be active.
func AuthMiddleware(tokens *utils.JWTManager, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			utils.RespondError(c, http.StatusUnauthorized, utils.CodeTokenMissing, errors.New("access token required"))
			c.Abort()
			return
		}

		claims, err := tokens.ParseToken(tokenString)
		if err != nil {
			code := utils.CodeTokenInvalid
			if errors.Is(err, utils.ErrTokenExpired) {
				code = utils.CodeTokenExpired
			}
			utils.RespondError(c, http.StatusUnauthorized, code, err)
			c.Abort()
			return
		}

		if db != nil {
			var user models.User
			err := db.WithContext(c.Request.Context()).Select("id", "is_active").First(&user, "id = ?", claims.UserID).Error
			if err != nil || !user.IsActive {
				utils.RespondError(c, http.StatusUnauthorized, utils.CodeUserInvalid, errors.New("user not found or inactive"))
				c.Abort()
				return
			}
		}

		setIdentity(c, claims)
		c.Next()
	}
}

// OptionalAuth sets the identity when a valid token is present and lets the
// request through either way.
func OptionalAuth(tokens *utils.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := bearerToken(c); tokenString != "" {
			if claims, err := tokens.ParseToken(tokenString); err == nil {
				setIdentity(c, claims)
			}
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func setIdentity(c *gin.Context, claims *utils.CustomClaims) {
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextUsername, claims.Username)
	c.Set(ContextRole, claims.Role)
}
