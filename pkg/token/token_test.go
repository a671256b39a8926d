package token

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	SetSecretKeyForTest([]byte("test-secret-key"))

	tokenString, err := Issue("AB12cd", "user-1", "小王", time.Hour)
	if err != nil {
		t.Fatalf("签发令牌失败: %v", err)
	}
	if len(strings.Split(tokenString, ".")) != 2 {
		t.Fatalf("令牌格式应为 payload.signature, got %q", tokenString)
	}

	claims, err := Verify(tokenString)
	if err != nil {
		t.Fatalf("校验令牌失败: %v", err)
	}
	if claims.PollID != "AB12cd" || claims.UserID != "user-1" || claims.Name != "小王" {
		t.Errorf("声明不正确: %+v", claims)
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	SetSecretKeyForTest([]byte("test-secret-key"))

	tokenString, err := Issue("AB12cd", "user-1", "小王", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	parts := strings.Split(tokenString, ".")

	// 篡改payload中的用户ID，原签名不再匹配
	forgedPayload := base64.RawURLEncoding.EncodeToString([]byte(`{"pollID":"AB12cd","sub":"user-2","name":"小王","exp":9999999999}`))
	if _, err := Verify(forgedPayload + "." + parts[1]); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("被篡改的令牌应返回ErrInvalidToken, got %v", err)
	}

	// 换一把密钥签发的令牌同样无效
	SetSecretKeyForTest([]byte("another-secret-key"))
	if _, err := Verify(tokenString); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("密钥不匹配的令牌应返回ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	SetSecretKeyForTest([]byte("test-secret-key"))

	tokenString, err := Issue("AB12cd", "user-1", "小王", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Verify(tokenString); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("过期令牌应返回ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	SetSecretKeyForTest([]byte("test-secret-key"))

	for _, tokenString := range []string{"", "abc", "a.b.c", "!!!.###", "bm90anNvbg.bm90anNvbg"} {
		if _, err := Verify(tokenString); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("格式错误的令牌 %q 应返回ErrInvalidToken, got %v", tokenString, err)
		}
	}
}
