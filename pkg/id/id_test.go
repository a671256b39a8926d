package id

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewPollCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := NewPollCode()
		if err != nil {
			t.Fatalf("生成投票间代码失败: %v", err)
		}
		if len(code) != PollCodeLength {
			t.Fatalf("代码长度应为 %d, got %q", PollCodeLength, code)
		}
		for _, c := range code {
			if !strings.ContainsRune(alphabet, c) {
				t.Fatalf("代码 %q 包含字符集外的字符 %q", code, c)
			}
		}
		seen[code] = true
	}
	// 100次生成全部相同几乎不可能，说明随机源在工作
	if len(seen) < 2 {
		t.Error("生成的代码缺乏随机性")
	}
}

func TestNewNominationID(t *testing.T) {
	nominationID, err := NewNominationID()
	if err != nil {
		t.Fatalf("生成提名ID失败: %v", err)
	}
	if len(nominationID) != NominationIDLength {
		t.Errorf("提名ID长度应为 %d, got %q", NominationIDLength, nominationID)
	}
}

func TestNewUserID(t *testing.T) {
	userID, err := NewUserID()
	if err != nil {
		t.Fatalf("生成用户ID失败: %v", err)
	}
	parsed, err := uuid.Parse(userID)
	if err != nil {
		t.Fatalf("用户ID应是合法的UUID: %v", err)
	}
	if parsed.Version() != 7 {
		t.Errorf("用户ID应为UUID v7, got v%d", parsed.Version())
	}
}

func TestIsValidPollCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"AB12cd", true},
		{"000000", true},
		{"zzzzzz", true},
		{"", false},
		{"ABC12", false},
		{"ABC1234", false},
		{"AB-12!", false},
		{"AB 12c", false},
	}
	for _, tt := range tests {
		if got := IsValidPollCode(tt.code); got != tt.want {
			t.Errorf("IsValidPollCode(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}
