package driven

// PromptStore serves the LLM prompt templates by name. Every template is
// formatted with fmt.Sprintf and a fixed argument list, so a store must
// never return a template whose placeholder count differs from the
// built-in one.
type PromptStore interface {
	// Load returns the template for name. Unknown names are an error.
	Load(name string) (string, error)

	// Reload drops cached templates.
	Reload()
}

// Prompt names. The comment on each gives its placeholders in order.
const (
	// PromptEffortAnswer: %s retrieved records, %s question.
	PromptEffortAnswer = "effort_answer"

	// PromptEpicSynopsis: %s epic name, %s task titles.
	PromptEpicSynopsis = "epic_synopsis"

	// PromptCategoryHint: %s category list, %s ticket title.
	PromptCategoryHint = "category_hint"
)

// DefaultPrompts holds the built-in template for every well-known prompt.
// Prompt stores fall back to these when no custom file exists.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var DefaultPrompts = map[string]string{
	PromptEffortAnswer: `다음은 공수 산정 이력 데이터입니다:
---------------------
%s
---------------------

질문: %s

위 데이터만을 바탕으로 질문에 답변해주세요.

답변 우선순위:
1. 질문과 정확히 일치하는 제목이나 티켓이 있으면 그것을 우선 답변하세요.
2. 정확한 매칭이 없으면 질문의 주요 단어 조합이 포함된 데이터를 찾아 답변하세요.
3. 그래도 없으면 질문의 핵심 키워드가 포함된 데이터를 찾아 답변하세요.
4. 키워드 매칭도 없으면 유사한 기능의 데이터를 참고하여 답변하세요.

금지사항:
- 제공된 데이터에 없는 티켓 번호를 만들지 마세요.
- 다른 티켓의 Description을 섞어서 사용하지 마세요.
- 데이터에 없는 정보를 추가하지 마세요.

공수는 일 단위로 표시하고, 여러 프로젝트에서 같은 기능이 개발되었다면 범위로 제시하세요 (예: "3~5일").
데이터가 전혀 관련이 없을 때만 "해당 기능에 대한 공수 산정 데이터가 현재 등록되어 있지 않습니다."라고 답변하세요.

답변 형식:
- 티켓: [실제 티켓번호]
- 제목: [실제 기능명]
- 예상공수: [X일] 또는 [X~Y일]
- 산정이유: [실제 이유] (있는 경우)
- 담당자: [실제 담당자] (있는 경우)
- 개발 요구사항: [실제 Description 요약] (있는 경우)`,

	PromptEpicSynopsis: `다음은 '%s' 프로젝트의 주요 작업 목록입니다. 이 프로젝트의 핵심 내용을 2-3문장으로 간단하게 요약해주세요.

작업 목록:
%s

요약 (2-3문장, 프로젝트의 전반적인 내용과 주요 기능):`,

	PromptCategoryHint: `다음 카테고리 중 작업 제목에 가장 알맞은 것 하나를 "대분류 > 중분류 > 소분류" 형식으로만 답하세요.

카테고리:
%s

작업 제목: %s
카테고리:`,
}
