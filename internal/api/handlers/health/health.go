package health

import (
	"net/http"
	"runtime"
	"time"

	"nutrition-advisor/internal/core/callback"

	"github.com/gin-gonic/gin"
)

// ProviderStatus 回報模型供應商是否可用
type ProviderStatus interface {
	Available() bool
	Model() string
}

// QueueStatus 回報回呼佇列狀態
type QueueStatus interface {
	Status() *callback.Status
}

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string           `json:"status"`
	Provider  string           `json:"provider"`
	Model     string           `json:"model,omitempty"`
	Version   string           `json:"version,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Callbacks *callback.Status `json:"callbacks,omitempty"`
}

// Handler 健康檢查處理程序
type Handler struct {
	provider ProviderStatus
	queue    QueueStatus
	version  string
	now      func() time.Time
}

// NewHandler 創建健康檢查處理程序，queue 可為 nil
func NewHandler(provider ProviderStatus, queue QueueStatus, version string) *Handler {
	return &Handler{
		provider: provider,
		queue:    queue,
		version:  version,
		now:      time.Now,
	}
}

// HealthCheck 回報服務與供應商狀態，不需驗證
func (h *Handler) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Provider:  "unavailable",
		Version:   h.version,
		Timestamp: h.now().UTC(),
	}
	if h.provider != nil && h.provider.Available() {
		response.Provider = "available"
		response.Model = h.provider.Model()
	}
	if h.queue != nil {
		response.Callbacks = h.queue.Status()
	}

	c.JSON(http.StatusOK, response)
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "alive",
		"goroutines": runtime.NumGoroutine(),
	})
}
