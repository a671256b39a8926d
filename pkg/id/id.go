package id

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
)

// alphabet 是生成投票间代码和提名ID所使用的字符集。
// 只包含数字和大小写字母，方便用户口头分享。
const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const (
	// PollCodeLength 是投票间代码的固定长度。
	PollCodeLength = 6
	// NominationIDLength 是提名ID的固定长度。
	NominationIDLength = 8
)

// randomString 从字符集中生成一个指定长度的密码学安全随机字符串。
func randomString(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("无法生成随机字节: %w", err)
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf), nil
}

// NewPollCode 生成一个6位的投票间代码。
// 代码可能碰撞，调用方需要在创建时做冲突检查并重试。
func NewPollCode() (string, error) {
	return randomString(PollCodeLength)
}

// NewNominationID 生成一个8位的提名ID。
func NewNominationID() (string, error) {
	return randomString(NominationIDLength)
}

// NewUserID 生成一个全局唯一的用户ID。
// 使用UUID v7，保证时间有序且实际上不会碰撞。
func NewUserID() (string, error) {
	newUUID, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("无法生成UUID v7: %w", err)
	}
	return newUUID.String(), nil
}

// IsValidPollCode 检查一个字符串是否是格式正确的投票间代码。
func IsValidPollCode(code string) bool {
	if len(code) != PollCodeLength {
		return false
	}
	for _, c := range code {
		ok := (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
		if !ok {
			return false
		}
	}
	return true
}
