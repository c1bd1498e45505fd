package services

import "strings"

// Rewrite strategy names.
const (
	StrategyPrimary   = "primary"
	StrategyCollapsed = "collapsed"
	StrategyOriginal  = "original"
)

// primaryTerms mark domain subjects. Keywords containing one rank first.
var primaryTerms = []string{
	"전화", "메세지", "상담", "통계", "모니터링", "api", "시스템", "화면", "배치",
	"faq", "지식", "챗봇", "연동", "이력", "톡", "메일", "cs",
}

// actionTerms mark action words. They rank after primary terms.
var actionTerms = []string{
	"추가", "수정", "삭제", "등록", "관리", "전송", "발송", "배분", "회수", "검색", "조회", "업데이트",
}

// domainKeywords pass the relevance gate on a substring match.
var domainKeywords = []string{
	"공수", "story points", "개발", "기간", "일정", "작업", "기능", "개발시간", "소요시간", "예상시간",
	"추가", "수정", "삭제", "등록", "관리", "화면", "통계", "모니터링", "상담", "api", "연동", "시스템",
	"회수", "전송", "발송", "배분", "자동", "템플릿", "파일", "이미지", "통화", "녹음", "대기열", "faq",
	"지식", "검색", "분류", "버전", "공유", "배치", "스케줄", "자동화", "실행", "알림", "가이드", "동기화",
	"인터페이스", "조회", "업데이트", "프론트", "ui", "ux", "호환성", "서버", "설정", "이관", "백업", "복구",
	"산출물", "커스터마이징", "회의", "분석", "이행", "테스트", "버그", "소스", "지원", "교육", "환경",
	"채널", "이력", "모니터", "대시보드", "마이그레이션", "migration", "데이터이관",
}

// HasDomainKeyword reports whether q mentions an effort-domain term.
func HasDomainKeyword(q string) bool {
	lower := strings.ToLower(q)
	for _, k := range domainKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// RewriteStrategy turns the original question into a retrieval query.
type RewriteStrategy struct {
	Name  string
	Build func(question string) string
}

// RankKeywords orders extracted keywords: domain subjects first, then
// action words, then the rest, each group in query order.
func RankKeywords(keywords []string) []string {
	var primary, action, rest []string
	for _, k := range keywords {
		switch {
		case containsAny(k, primaryTerms):
			primary = append(primary, k)
		case containsAny(k, actionTerms):
			action = append(action, k)
		default:
			rest = append(rest, k)
		}
	}
	out := append(primary, action...)
	return append(out, rest...)
}

// DefaultRewriteStrategies returns the ordered strategies tried by the resolver.
func DefaultRewriteStrategies(scorer *LexicalScorer) []RewriteStrategy {
	ranked := func(q string) []string {
		return RankKeywords(scorer.Tokens(q))
	}
	return []RewriteStrategy{
		{
			Name: StrategyPrimary,
			Build: func(q string) string {
				if kw := ranked(q); len(kw) > 0 {
					return strings.Join(kw, " ")
				}
				return strings.TrimSpace(q)
			},
		},
		{
			Name: StrategyCollapsed,
			Build: func(q string) string {
				if kw := ranked(q); len(kw) > 0 {
					return strings.Join(kw, "")
				}
				return strings.ReplaceAll(strings.TrimSpace(q), " ", "")
			},
		},
		{
			Name: StrategyOriginal,
			Build: func(q string) string {
				return strings.TrimSpace(q)
			},
		},
	}
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
