package common

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// RespondError 寫入錯誤響應並中止請求
func RespondError(c *gin.Context, err error) {
	ce := AsCustomError(err)
	c.AbortWithStatusJSON(ce.Status, ErrorResponse{
		Code:    ce.Code,
		Message: ce.Message,
	})
}

// MaskSecret 遮罩金鑰，只顯示前後各 4 個字符
func MaskSecret(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
