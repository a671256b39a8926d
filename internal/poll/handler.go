package poll

import (
	"net/http"
	"strings"

	"github.com/SlpAus/ranked-poll-backend/internal/platform/database"
	"github.com/SlpAus/ranked-poll-backend/pkg/token"
	"github.com/gin-gonic/gin"
)

// ClaimsKey 是校验通过的令牌声明在Gin上下文中的键。
const ClaimsKey = "claims"

// CreatePollRequest 定义了创建投票间请求体的JSON结构
type CreatePollRequest struct {
	Topic         string `json:"topic" binding:"required"`
	VotesPerVoter int    `json:"votesPerVoter" binding:"required"`
	Name          string `json:"name" binding:"required"`
}

// JoinPollRequest 定义了加入投票间请求体的JSON结构
type JoinPollRequest struct {
	PollID string `json:"pollID" binding:"required"`
	Name   string `json:"name" binding:"required"`
}

// Handler 持有投票间服务，暴露HTTP入口。
type Handler struct {
	service *Service
}

// NewHandler 创建一个HTTP处理器。
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// statusOf 把错误类别映射为HTTP状态码。
func statusOf(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState:
		return http.StatusConflict
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindValidationFailed:
		return http.StatusBadRequest
	case KindStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError 把领域错误转换为统一的JSON错误响应。
func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusOf(err), gin.H{
		"type":    string(KindOf(err)),
		"message": MessageOf(err),
	})
}

// ensureStorageHealthy 在Redis不可用时直接拒绝请求，避免长时间等待。
func ensureStorageHealthy(c *gin.Context) bool {
	if !database.IsRedisHealthy() {
		abortWithError(c, NewError(KindStorageUnavailable, "存储暂时不可用，请稍后重试"))
		return false
	}
	return true
}

// CreatePoll 处理创建投票间的请求。
func (h *Handler) CreatePoll(c *gin.Context) {
	var body CreatePollRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, NewError(KindValidationFailed, "请求格式错误: "+err.Error()))
		return
	}
	if !ensureStorageHealthy(c) {
		return
	}

	result, err := h.service.CreatePoll(c.Request.Context(), body.Topic, body.VotesPerVoter, body.Name)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// JoinPoll 处理加入投票间的请求，只签发凭证，不写入参与者。
func (h *Handler) JoinPoll(c *gin.Context) {
	var body JoinPollRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, NewError(KindValidationFailed, "请求格式错误: "+err.Error()))
		return
	}
	if !ensureStorageHealthy(c) {
		return
	}

	result, err := h.service.JoinPoll(c.Request.Context(), body.PollID, body.Name)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RejoinPoll 处理重新加入的请求：持有效令牌的参与者刷新页面后
// 凭旧令牌重新物化自己的参与者条目。
func (h *Handler) RejoinPoll(c *gin.Context) {
	claims := MustClaims(c)
	if !ensureStorageHealthy(c) {
		return
	}

	updated, err := h.service.AddParticipant(c.Request.Context(), claims.PollID, claims.UserID, claims.Name)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// RequireAuth 是校验访问令牌的Gin中间件。
// 令牌从 Authorization: Bearer 头中提取，校验通过后声明存入上下文。
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortWithError(c, NewError(KindUnauthenticated, "请求缺少访问令牌"))
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")

		claims, err := token.Verify(tokenString)
		if err != nil {
			abortWithError(c, NewError(KindUnauthenticated, "访问令牌无效或已过期"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// MustClaims 从上下文中取出已校验的令牌声明。
// 只能在 RequireAuth 之后的处理器中调用。
func MustClaims(c *gin.Context) *token.Payload {
	return c.MustGet(ClaimsKey).(*token.Payload)
}
