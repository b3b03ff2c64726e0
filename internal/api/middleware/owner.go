package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/keyhaven/keyhaven/internal/logger"
)

// OwnerHeader carries the authenticated owner's ID. Authentication itself
// happens upstream (gateway); this service only scopes data by the header.
const OwnerHeader = "X-Owner-ID"

// ownerKey is the gin context key for the owner ID.
const ownerKey = "owner_id"

// Owner returns a middleware that requires the owner header and injects the
// owner ID into the request context and logger fields.
// Parameters: none.
// Returns:
//   - gin.HandlerFunc: middleware handler.
func Owner() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID := c.GetHeader(OwnerHeader)
		if ownerID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing " + OwnerHeader + " header",
			})
			return
		}

		c.Set(ownerKey, ownerID)

		ctx := logger.SetOwnerID(c.Request.Context(), ownerID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// OwnerID extracts the owner ID injected by the Owner middleware.
// Parameters:
//   - c: Gin request context.
// Returns:
//   - string: owner ID, empty if the middleware did not run.
func OwnerID(c *gin.Context) string {
	return c.GetString(ownerKey)
}
