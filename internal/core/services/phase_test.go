package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

func TestClassifyPhase(t *testing.T) {
	tests := []struct {
		title string
		want  domain.Phase
	}{
		{"개발환경 세팅", domain.PhaseSetup},
		{"Dev server config", domain.PhaseSetup},
		{"요구사항 분석", domain.PhaseAnalysis},
		{"상세 설계 검토", domain.PhaseAnalysis},
		{"로그인 API 개발", domain.PhaseImplementation},
		{"통계 Batch", domain.PhaseImplementation},
		{"통합 테스트", domain.PhaseTest},
		{"QA 대응", domain.PhaseTest},
		{"운영 반영", domain.PhaseDeployment},
		{"Release 1.2", domain.PhaseDeployment},
		{"주간 회의", domain.PhaseOther},
		{"", domain.PhaseOther},
		// first bucket wins
		{"테스트 환경 구성", domain.PhaseSetup},
		{"배포 스크립트 개발", domain.PhaseImplementation},
		// filler words only decide when nothing specific matched
		{"배포 작업", domain.PhaseDeployment},
		{"API 테스트", domain.PhaseTest},
		{"API 연동", domain.PhaseImplementation},
		{"기타 작업", domain.PhaseImplementation},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyPhase(tt.title))
		})
	}
}
