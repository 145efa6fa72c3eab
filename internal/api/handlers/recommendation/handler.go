package recommendation

import (
	"context"
	"errors"
	"net/http"

	"nutrition-advisor/internal/core/nutrition"
	recommendationService "nutrition-advisor/internal/core/recommendation"
	"nutrition-advisor/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recommender 產生建議
type Recommender interface {
	Recommend(ctx context.Context, req *nutrition.Request) (recommendationService.Result, error)
}

// CallbackSubmitter 將建議結果送往呼叫端提供的網址
type CallbackSubmitter interface {
	Submit(callbackURL string, verdict nutrition.Verdict, product nutrition.ProductRecord) error
}

// PredictResponse 建議響應
type PredictResponse struct {
	Recommendation     string                       `json:"recommendation"`
	RecommendationType nutrition.RecommendationType `json:"recommendation_type"`
	ProductData        nutrition.ProductRecord      `json:"product_data"`
}

// DebugResponse 驗證結果
type DebugResponse struct {
	Status      string                   `json:"status"`
	UserData    *nutrition.UserProfile   `json:"user_data,omitempty"`
	ProductData *nutrition.ProductRecord `json:"product_data,omitempty"`
	Errors      map[string]string        `json:"errors,omitempty"`
}

// Handler 建議相關處理程序
type Handler struct {
	recommender Recommender
	callbacks   CallbackSubmitter
}

// NewHandler 創建處理程序，callbacks 可為 nil
func NewHandler(recommender Recommender, callbacks CallbackSubmitter) *Handler {
	return &Handler{
		recommender: recommender,
		callbacks:   callbacks,
	}
}

// Root 服務存活訊息
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "AI Recommendation Service is running"})
}

// Predict 產生個人化建議，有 callback_url 時在回應後背景送出
func (h *Handler) Predict(c *gin.Context) {
	requestID := requestid.Get(c)

	body, ok := readBody(c)
	if !ok {
		return
	}

	req, err := nutrition.DecodeRequest(body)
	if err != nil {
		common.LogWarn("Invalid predict request",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		common.RespondError(c, err)
		return
	}

	result, err := h.recommender.Recommend(c.Request.Context(), req)
	if err != nil {
		common.LogError("Recommendation failed",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		common.RespondError(c, common.ErrRecommendation)
		return
	}

	c.JSON(http.StatusOK, PredictResponse{
		Recommendation:     result.Verdict.Text,
		RecommendationType: result.Verdict.Type,
		ProductData:        req.Product,
	})

	if req.CallbackURL != "" && h.callbacks != nil {
		// 投遞結果只記錄，不影響已送出的回應
		_ = h.callbacks.Submit(req.CallbackURL, result.Verdict, req.Product)
	}
}

// Debug 驗證並回傳正規化後的資料，不呼叫模型；驗證失敗仍回 200
func (h *Handler) Debug(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}

	env, err := nutrition.ParseEnvelope(body)
	var fieldErrs nutrition.FieldErrors
	if err != nil && !errors.As(err, &fieldErrs) {
		common.RespondError(c, err)
		return
	}
	if len(fieldErrs) > 0 {
		c.JSON(http.StatusOK, DebugResponse{Status: "error", Errors: errorMap(fieldErrs)})
		return
	}

	user, userErr := nutrition.NormalizeUser(env.UserData)
	product, productErr := nutrition.NormalizeProduct(env.ProductData)

	var all nutrition.FieldErrors
	for _, e := range []error{userErr, productErr} {
		var fe nutrition.FieldErrors
		if errors.As(e, &fe) {
			all = append(all, fe...)
		}
	}
	if len(all) > 0 {
		c.JSON(http.StatusOK, DebugResponse{Status: "error", Errors: errorMap(all)})
		return
	}

	c.JSON(http.StatusOK, DebugResponse{
		Status:      "success",
		UserData:    &user,
		ProductData: &product,
	})
}

// Normalize 對任意 JSON 內的每個字串做文字正規化
func (h *Handler) Normalize(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}

	var payload interface{}
	if err := common.ParseJSONBytes(body, &payload); err != nil {
		common.RespondError(c, common.Wrap(common.ErrInvalidRequest, "Malformed JSON body", err))
		return
	}

	c.JSON(http.StatusOK, common.NormalizeValue(payload))
}

func readBody(c *gin.Context) ([]byte, bool) {
	body, err := c.GetRawData()
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			common.RespondError(c, common.ErrRequestTooLarge)
			return nil, false
		}
		common.RespondError(c, common.Wrap(common.ErrInvalidRequest, "Failed to read request body", err))
		return nil, false
	}
	return body, true
}

func errorMap(errs nutrition.FieldErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		out[fe.Field] = fe.Message
	}
	return out
}
