package middleware

import (
	"crypto/subtle"

	"nutrition-advisor/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIKeyAuth 以共享金鑰驗證請求，比對採固定時間
func APIKeyAuth(header, apiKey string) gin.HandlerFunc {
	expected := []byte(apiKey)
	return func(c *gin.Context) {
		provided := []byte(c.GetHeader(header))
		if len(expected) == 0 || subtle.ConstantTimeCompare(provided, expected) != 1 {
			common.LogWarn("Rejected request with invalid API key",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
				zap.Bool("header_present", len(provided) > 0),
			)
			common.RespondError(c, common.ErrUnauthorized)
			return
		}
		c.Next()
	}
}
