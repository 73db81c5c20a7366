package middleware

import (
	"context"
	"strings"
	"time"

	"memorybox/models"
	"memorybox/repositories"
	"memorybox/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AuthMiddleware struct {
	jwtService *utils.JWTService
	userRepo   *repositories.UserRepository
}

func NewAuthMiddleware(jwtService *utils.JWTService, userRepo *repositories.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		userRepo:   userRepo,
	}
}

// RequireAuth validates the JWT token and sets user context
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		token := am.extractToken(c)
		if token == "" {
			utils.UnauthorizedResponse(c, "Authentication token required")
			c.Abort()
			return
		}

		claims, err := am.jwtService.ValidateToken(token)
		if err != nil {
			logrus.Warnf("Invalid token: %v", err)
			utils.UnauthorizedResponse(c, "Invalid authentication token")
			c.Abort()
			return
		}

		// Make sure the account behind the token is still active
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		user, err := am.userRepo.GetByID(ctx, claims.UserID)
		if err != nil {
			if utils.IsNotFoundError(err) {
				utils.UnauthorizedResponse(c, "User account not found")
			} else {
				logrus.Errorf("Error fetching user %s: %v", claims.UserID, err)
				utils.InternalServerErrorResponse(c, "Failed to validate authentication")
			}
			c.Abort()
			return
		}

		if !user.IsActive {
			utils.UnauthorizedResponse(c, "User account is deactivated")
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Set("userID", user.ID.Hex())
		c.Set("userEmail", user.Email)
		c.Set("userRole", claims.Role)

		c.Next()
	})
}

// RequireAdmin rejects non-admin callers with 403. Must run after
// RequireAuth.
func (am *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return am.RequireRole("admin")
}

// RequireRole validates that the authenticated user has one of the roles
func (am *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		userRole, exists := c.Get("userRole")
		if !exists {
			utils.UnauthorizedResponse(c, "User role not found in context")
			c.Abort()
			return
		}

		roleStr, ok := userRole.(string)
		if !ok {
			utils.InternalServerErrorResponse(c, "Invalid role data type")
			c.Abort()
			return
		}

		for _, role := range roles {
			if roleStr == role {
				c.Next()
				return
			}
		}

		utils.ForbiddenResponse(c, "Insufficient permissions")
		c.Abort()
	})
}

// WebSocketAuth validates a token for WebSocket connections, where the
// Authorization header is not always available.
func (am *AuthMiddleware) WebSocketAuth(token string) (*models.User, error) {
	if token == "" {
		return nil, utils.NewUnauthorizedError("Authentication token required")
	}

	claims, err := am.jwtService.ValidateToken(token)
	if err != nil {
		return nil, utils.NewUnauthorizedError("Invalid authentication token")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	user, err := am.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if utils.IsNotFoundError(err) {
			return nil, utils.NewUnauthorizedError("User account not found")
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, utils.NewUnauthorizedError("User account is deactivated")
	}

	return user, nil
}

// extractToken extracts the JWT token from the request
func (am *AuthMiddleware) extractToken(c *gin.Context) string {
	// Check Authorization header
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}

	// Check query parameter
	if token := c.Query("token"); token != "" {
		return token
	}

	return ""
}

// Helper functions for getting user data from context

// GetCurrentUser returns the current authenticated user from context
func GetCurrentUser(c *gin.Context) (*models.User, bool) {
	user, exists := c.Get("user")
	if !exists {
		return nil, false
	}

	userModel, ok := user.(*models.User)
	return userModel, ok
}

// GetCurrentUserID returns the current authenticated user ID from context
func GetCurrentUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		return "", false
	}

	userIDStr, ok := userID.(string)
	return userIDStr, ok
}
