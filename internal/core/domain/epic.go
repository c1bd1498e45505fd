package domain

// Phase is a work-lifecycle bucket used to classify task titles.
type Phase string

// Phases in pipeline order.
const (
	PhaseSetup          Phase = "setup"
	PhaseAnalysis       Phase = "analysis"
	PhaseImplementation Phase = "implementation"
	PhaseTest           Phase = "test"
	PhaseDeployment     Phase = "deployment"
	PhaseOther          Phase = "other"
)

// AllPhases returns phases in the fixed rendering order.
func AllPhases() []Phase {
	return []Phase{
		PhaseSetup,
		PhaseAnalysis,
		PhaseImplementation,
		PhaseTest,
		PhaseDeployment,
		PhaseOther,
	}
}

// Label returns the display label for the phase.
func (p Phase) Label() string {
	switch p {
	case PhaseSetup:
		return "환경 구성"
	case PhaseAnalysis:
		return "분석/설계"
	case PhaseImplementation:
		return "개발/구현"
	case PhaseTest:
		return "테스트"
	case PhaseDeployment:
		return "배포/이행"
	default:
		return "기타"
	}
}

// PhaseTotal is the count and effort sum of one phase.
type PhaseTotal struct {
	Count    int     `json:"count"`
	Estimate float64 `json:"estimate"`
}

// EpicGroup is the derived roll-up of records sharing a project key.
// It is never persisted.
type EpicGroup struct {
	ProjectKey   string               `json:"project_key"`
	ProjectName  string               `json:"project_name"`
	Tasks        []EffortRecord       `json:"tasks"`
	PhaseTotals  map[Phase]PhaseTotal `json:"phase_totals"`
	MemberTotals map[string]float64   `json:"member_totals,omitempty"`
	Total        float64              `json:"total"`
	Count        int                  `json:"count"`
	Synopsis     string               `json:"synopsis"`
}
