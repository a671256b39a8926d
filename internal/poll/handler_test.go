package poll

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SlpAus/ranked-poll-backend/pkg/token"
	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	token.SetSecretKeyForTest([]byte("test-secret-key"))

	service := NewService(NewMemoryRepository(), Rules{FreezeNominationsOnStart: true}, time.Hour)
	handler := NewHandler(service)

	router := gin.New()
	api := router.Group("/api/polls")
	{
		api.POST("", handler.CreatePoll)
		api.POST("/join", handler.JoinPoll)
		api.POST("/rejoin", RequireAuth(), handler.RejoinPoll)
	}
	return router, service
}

func doJSON(router *gin.Engine, method, path, body, authToken string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreatePollEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/polls",
		`{"topic":"午饭吃什么","votesPerVoter":3,"name":"小王"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("期望201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Poll struct {
			ID    string `json:"id"`
			Topic string `json:"topic"`
		} `json:"poll"`
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("响应不是合法JSON: %v", err)
	}
	if len(resp.Poll.ID) != 6 || resp.Poll.Topic != "午饭吃什么" {
		t.Errorf("响应中的投票间不正确: %+v", resp.Poll)
	}
	if _, err := token.Verify(resp.AccessToken); err != nil {
		t.Errorf("响应中的令牌无法通过校验: %v", err)
	}
}

func TestCreatePollEndpointBadBody(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, body := range []string{``, `{}`, `{"topic":"主题"}`, `not json`} {
		w := doJSON(router, http.MethodPost, "/api/polls", body, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("请求体 %q 应返回400, got %d", body, w.Code)
		}
	}
}

func TestJoinPollEndpoint(t *testing.T) {
	router, service := newTestRouter(t)
	result, err := service.CreatePoll(context.Background(), "午饭吃什么", 3, "管理员")
	if err != nil {
		t.Fatal(err)
	}

	w := doJSON(router, http.MethodPost, "/api/polls/join",
		`{"pollID":"`+result.Poll.ID+`","name":"小李"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("期望200, got %d: %s", w.Code, w.Body.String())
	}

	// 未知代码映射为404
	w = doJSON(router, http.MethodPost, "/api/polls/join",
		`{"pollID":"ZZZZ99","name":"小李"}`, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("未知代码应返回404, got %d", w.Code)
	}

	var errResp struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("错误响应不是合法JSON: %v", err)
	}
	if errResp.Type != string(KindNotFound) || errResp.Message == "" {
		t.Errorf("错误响应应携带类别和消息: %+v", errResp)
	}
}

func TestRejoinPollEndpoint(t *testing.T) {
	router, service := newTestRouter(t)
	result, err := service.CreatePoll(context.Background(), "午饭吃什么", 3, "管理员")
	if err != nil {
		t.Fatal(err)
	}

	// 无令牌
	w := doJSON(router, http.MethodPost, "/api/polls/rejoin", `{}`, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("无令牌应返回401, got %d", w.Code)
	}

	// 伪造令牌
	w = doJSON(router, http.MethodPost, "/api/polls/rejoin", `{}`, "not-a-token")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("伪造令牌应返回401, got %d", w.Code)
	}

	// 有效令牌：参与者被物化
	w = doJSON(router, http.MethodPost, "/api/polls/rejoin", `{}`, result.AccessToken)
	if w.Code != http.StatusOK {
		t.Fatalf("期望200, got %d: %s", w.Code, w.Body.String())
	}
	p, err := service.GetPoll(context.Background(), result.Poll.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, exists := p.Participants[result.Poll.AdminID]; !exists {
		t.Error("重新加入后参与者条目应已写入")
	}
}
