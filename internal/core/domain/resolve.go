package domain

// ResolveState is the terminal state of one query resolution.
type ResolveState string

// Resolution states.
const (
	StateRejected       ResolveState = "rejected"
	StateFeedbackHit    ResolveState = "feedback_hit"
	StateEpicRollup     ResolveState = "epic_rollup"
	StateSemanticAnswer ResolveState = "semantic_answer"
	StateNoAnswer       ResolveState = "no_answer"
)

// String returns the string representation.
func (s ResolveState) String() string {
	return string(s)
}

// User-facing messages.
const (
	// MsgRejected is returned for malformed or off-domain input.
	MsgRejected = "공수 산정 데이터로는 답변할 수 없는 질문입니다. 기능명이나 티켓 번호를 포함해 다시 질문해 주세요."

	// MsgNoData is the phrase the model is told to use when nothing matches.
	MsgNoData = "해당 기능에 대한 공수 산정 데이터가 현재 등록되어 있지 않습니다."

	// MsgNotFound is the final fallback when every strategy failed.
	MsgNotFound = "공수 산정 데이터에서 해당 정보를 찾을 수 없습니다."

	// MsgNoEpic is returned when a project roll-up matched nothing.
	MsgNoEpic = "해당 키워드와 일치하는 프로젝트(Epic)를 찾을 수 없습니다."

	// ReasonMalformed is the rejection reason for input that fails sanitation.
	ReasonMalformed = "not a well-formed query"

	// ReasonOffDomain is the rejection reason for input outside the effort domain.
	ReasonOffDomain = "not an effort question"
)

// ResolveResult is the response object for one question.
// Every path produces a well-formed result with a non-empty Answer.
type ResolveResult struct {
	Question         string       `json:"question"`
	Answer           string       `json:"answer"`
	Sources          []SourceRef  `json:"sources"`
	State            ResolveState `json:"state"`
	Reason           string       `json:"reason,omitempty"`
	FeedbackEligible bool         `json:"feedback_eligible"`
	Strategy         string       `json:"strategy,omitempty"`
	Err              string       `json:"error,omitempty"`
	Epics            []EpicGroup  `json:"epics,omitempty"`
}

// IsError reports whether a backend failure produced this result.
func (r *ResolveResult) IsError() bool {
	return r.Err != ""
}
