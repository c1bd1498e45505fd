package services

import (
	"strings"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

// phaseKeywords are checked in order; the first bucket with a match wins.
var phaseKeywords = []struct {
	phase    domain.Phase
	keywords []string
}{
	{domain.PhaseSetup, []string{"환경", "설정", "구성", "세팅", "자리", "준비", "setup", "config", "configuration"}},
	{domain.PhaseAnalysis, []string{"분석", "설계", "요구사항", "기획", "상세업무", "r&r", "design", "analysis", "검토"}},
	{domain.PhaseImplementation, []string{
		"개발", "구현", "코딩", "프로그램", "배치", "i/f", "인터페이스", "batch", "implement", "develop",
	}},
	{domain.PhaseTest, []string{"테스트", "qa", "검증", "모니터링", "결과보완", "test", "verify", "validation"}},
	{domain.PhaseDeployment, []string{"반영", "이행", "배포", "적용", "릴리즈", "deploy", "release", "오픈"}},
}

// weakImplementationKeywords mark implementation only when no bucket above
// matched, so "배포 작업" stays a deployment task.
var weakImplementationKeywords = []string{"작업", "api"}

// ClassifyPhase assigns a task title to a work phase by keyword.
func ClassifyPhase(title string) domain.Phase {
	lower := strings.ToLower(title)
	for _, bucket := range phaseKeywords {
		for _, kw := range bucket.keywords {
			if strings.Contains(lower, kw) {
				return bucket.phase
			}
		}
	}
	for _, kw := range weakImplementationKeywords {
		if strings.Contains(lower, kw) {
			return domain.PhaseImplementation
		}
	}
	return domain.PhaseOther
}
