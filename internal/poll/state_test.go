package poll

import (
	"strings"
	"testing"
)

func TestRulesEnsureAllowed(t *testing.T) {
	frozen := Rules{FreezeNominationsOnStart: true}
	permissive := Rules{FreezeNominationsOnStart: false}

	tests := []struct {
		name    string
		rules   Rules
		action  Action
		stage   Stage
		allowed bool
	}{
		{"join in created", frozen, ActionJoin, StageCreated, true},
		{"join in voting", frozen, ActionJoin, StageVoting, true},
		{"join in closed", frozen, ActionJoin, StageClosed, false},
		{"nominate in created", frozen, ActionAddNomination, StageCreated, true},
		{"nominate in voting frozen", frozen, ActionAddNomination, StageVoting, false},
		{"nominate in voting permissive", permissive, ActionAddNomination, StageVoting, true},
		{"remove nomination in voting frozen", frozen, ActionRemoveNomination, StageVoting, false},
		{"remove nomination in voting permissive", permissive, ActionRemoveNomination, StageVoting, true},
		{"remove participant in voting", frozen, ActionRemoveParticipant, StageVoting, true},
		{"remove participant in closed", frozen, ActionRemoveParticipant, StageClosed, false},
		{"start in created", frozen, ActionStart, StageCreated, true},
		{"start in voting", frozen, ActionStart, StageVoting, false},
		{"start in closed", frozen, ActionStart, StageClosed, false},
		{"submit in created", frozen, ActionSubmitRankings, StageCreated, false},
		{"submit in voting", frozen, ActionSubmitRankings, StageVoting, true},
		{"submit in closed", frozen, ActionSubmitRankings, StageClosed, false},
		{"close in voting", frozen, ActionClose, StageVoting, true},
		{"close in created", frozen, ActionClose, StageCreated, false},
		{"close in closed", frozen, ActionClose, StageClosed, false},
		{"cancel in created", frozen, ActionCancel, StageCreated, true},
		{"cancel in voting", frozen, ActionCancel, StageVoting, true},
		{"cancel in closed", frozen, ActionCancel, StageClosed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rules.EnsureAllowed(tt.action, tt.stage)
			if tt.allowed && err != nil {
				t.Fatalf("动作应合法, got %v", err)
			}
			if !tt.allowed {
				if err == nil {
					t.Fatal("动作应被拒绝")
				}
				if KindOf(err) != KindInvalidState {
					t.Errorf("错误类别应为InvalidState, got %s", KindOf(err))
				}
			}
		})
	}
}

func TestEnsureAllowedNamesRequiredStage(t *testing.T) {
	err := Rules{}.EnsureAllowed(ActionSubmitRankings, StageCreated)
	if err == nil {
		t.Fatal("期望错误")
	}
	// 错误消息中必须指明要求的阶段
	if !strings.Contains(err.Error(), string(StageVoting)) {
		t.Errorf("错误消息应包含要求的阶段 %q: %v", StageVoting, err)
	}
}

func TestPollStage(t *testing.T) {
	p := &Poll{}
	if p.Stage() != StageCreated {
		t.Errorf("初始阶段应为created, got %s", p.Stage())
	}
	p.HasStarted = true
	if p.Stage() != StageVoting {
		t.Errorf("开始后阶段应为voting, got %s", p.Stage())
	}
	p.HasClosed = true
	if p.Stage() != StageClosed {
		t.Errorf("关闭后阶段应为closed, got %s", p.Stage())
	}
}
