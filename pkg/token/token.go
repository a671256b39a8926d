package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// secretKey 是一个全局变量，用于存储服务器在启动时生成的32字节密钥。
// 密钥只存在于内存中，服务重启后所有旧令牌自动失效。
var secretKey []byte

// Payload 定义了访问令牌中携带的声明。
// 注意：令牌中不携带管理员标志，管理员身份必须在每次操作时
// 对照投票间的实时状态重新判定。
type Payload struct {
	PollID    string `json:"pollID"`
	UserID    string `json:"sub"`
	Name      string `json:"name"`
	ExpiresAt int64  `json:"exp"`
}

// ErrInvalidToken 表示令牌格式错误、签名不匹配或已过期。
var ErrInvalidToken = errors.New("无效的访问令牌")

// GenerateSecretKey 生成一个密码学安全的32字节随机密钥。
func GenerateSecretKey() {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	if err != nil {
		panic("无法生成安全的密钥: " + err.Error())
	}
	secretKey = key
	fmt.Println("HMAC密钥已成功生成。")
}

// SetSecretKeyForTest 允许测试用例注入一个固定的密钥。
func SetSecretKeyForTest(key []byte) {
	secretKey = key
}

// sign 使用HMAC-SHA256和密钥对编码后的payload进行签名。
func sign(encodedPayload string) string {
	mac := hmac.New(sha256.New, secretKey)
	mac.Write([]byte(encodedPayload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Issue 为一组声明签发一个访问令牌，有效期为ttl（与投票间的TTL一致）。
// 令牌格式为 base64url(payload JSON) + "." + base64url(签名)。
func Issue(pollID, userID, name string, ttl time.Duration) (string, error) {
	payload := Payload{
		PollID:    pollID,
		UserID:    userID,
		Name:      name,
		ExpiresAt: time.Now().Add(ttl).Unix(),
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("无法序列化令牌payload: %w", err)
	}
	encodedPayload := base64.RawURLEncoding.EncodeToString(payloadBytes)
	return encodedPayload + "." + sign(encodedPayload), nil
}

// Verify 校验一个访问令牌的签名和有效期，返回其中的声明。
// 任何格式、签名或过期问题都统一返回 ErrInvalidToken，不向调用方泄露细节。
func Verify(tokenString string) (*Payload, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 2 {
		return nil, ErrInvalidToken
	}
	encodedPayload, signatureB64 := parts[0], parts[1]

	// 解码前端传来的签名
	actualSignature, err := base64.RawURLEncoding.DecodeString(signatureB64)
	if err != nil {
		return nil, ErrInvalidToken
	}

	// 重新计算预期的签名，使用 hmac.Equal 进行时间恒定的比较，防止时序攻击
	mac := hmac.New(sha256.New, secretKey)
	mac.Write([]byte(encodedPayload))
	if !hmac.Equal(mac.Sum(nil), actualSignature) {
		return nil, ErrInvalidToken
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(encodedPayload)
	if err != nil {
		return nil, ErrInvalidToken
	}
	var payload Payload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return nil, ErrInvalidToken
	}

	if time.Now().Unix() >= payload.ExpiresAt {
		return nil, ErrInvalidToken
	}
	return &payload, nil
}
