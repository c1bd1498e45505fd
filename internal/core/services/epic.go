package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
	"github.com/custodia-labs/effortqa/internal/core/ports/driving"
	"github.com/custodia-labs/effortqa/internal/logger"
)

// Ensure EpicAggregator implements the interface.
var _ driving.EpicAggregator = (*EpicAggregator)(nil)

const (
	// synopsisTitleLimit caps the titles sent to the model per group.
	synopsisTitleLimit = 20

	// renderTaskLimit caps the tasks listed per group in a report.
	renderTaskLimit = 10

	synopsisTemperature = 0.3
)

// EpicAggregator groups effort records by parent project and summarises them.
type EpicAggregator struct {
	store       driven.EffortStore
	llm         driven.LLMService
	promptStore driven.PromptStore
	baseURL     string
}

// NewEpicAggregator creates an aggregator. llm may be nil, in which case
// synopses use the statistical template. baseURL is the tracker root used
// for links and may be empty.
func NewEpicAggregator(store driven.EffortStore, llm driven.LLMService, baseURL string) *EpicAggregator {
	return &EpicAggregator{
		store:   store,
		llm:     llm,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// SetPromptStore sets the prompt store for the synopsis template.
func (a *EpicAggregator) SetPromptStore(store driven.PromptStore) {
	a.promptStore = store
}

// Aggregate returns one group per project with at least one matching
// record, in first-seen order. It returns nil when nothing matched.
func (a *EpicAggregator) Aggregate(ctx context.Context, keyword string) ([]domain.EpicGroup, error) {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return nil, nil
	}
	tokens := strings.Fields(kw)

	records, err := a.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list effort records: %w", err)
	}

	var groups []domain.EpicGroup
	index := make(map[string]int)
	for _, rec := range records {
		if !matchesEpic(&rec, kw, tokens) {
			continue
		}
		key := rec.GroupKey()
		i, ok := index[key]
		if !ok {
			name := rec.ProjectName
			if name == "" {
				name = domain.UnassignedProject
			}
			groups = append(groups, domain.EpicGroup{
				ProjectKey:  key,
				ProjectName: name,
				PhaseTotals: make(map[domain.Phase]domain.PhaseTotal),
			})
			i = len(groups) - 1
			index[key] = i
		}
		groups[i].Tasks = append(groups[i].Tasks, rec)
	}
	if len(groups) == 0 {
		logger.Debug("epic aggregate: no records match %q", kw)
		return nil, nil
	}

	for i := range groups {
		summarise(&groups[i])
		groups[i].Synopsis = a.synopsis(ctx, &groups[i])
	}
	logger.Debug("epic aggregate: %q matched %d groups", kw, len(groups))
	return groups, nil
}

// matchesEpic reports whether a record belongs to the keyword's projects.
func matchesEpic(rec *domain.EffortRecord, kw string, tokens []string) bool {
	if rec.ProjectKey != "" && strings.Contains(strings.ToLower(rec.ProjectKey), kw) {
		return true
	}
	return containsAllOrWhole(rec.ProjectName, kw, tokens) || containsAllOrWhole(rec.Title, kw, tokens)
}

func containsAllOrWhole(text, kw string, tokens []string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, kw) {
		return true
	}
	for _, t := range tokens {
		if !strings.Contains(lower, t) {
			return false
		}
	}
	return len(tokens) > 0
}

// summarise fills phase, member and overall totals from the group's tasks.
func summarise(g *domain.EpicGroup) {
	members := make(map[string]float64)
	var total float64
	for _, t := range g.Tasks {
		phase := ClassifyPhase(t.Title)
		pt := g.PhaseTotals[phase]
		pt.Count++
		pt.Estimate += t.Estimate
		g.PhaseTotals[phase] = pt
		total += t.Estimate
		if named(t.TeamMember) {
			members[t.TeamMember] += t.Estimate
		}
	}
	for p, pt := range g.PhaseTotals {
		pt.Estimate = domain.RoundEffort(pt.Estimate)
		g.PhaseTotals[p] = pt
	}
	g.Total = domain.RoundEffort(total)
	g.Count = len(g.Tasks)
	if len(members) >= 2 {
		g.MemberTotals = make(map[string]float64, len(members))
		for m, v := range members {
			g.MemberTotals[m] = domain.RoundEffort(v)
		}
	}
}

func named(member string) bool {
	m := strings.TrimSpace(member)
	return m != "" && m != domain.UnassignedProject
}

// synopsis asks the model for a short summary of the group's titles.
func (a *EpicAggregator) synopsis(ctx context.Context, g *domain.EpicGroup) string {
	fallback := fmt.Sprintf("총 %d개 작업으로 구성된 프로젝트이며, 총 공수는 %s일입니다.",
		g.Count, domain.FormatEffort(g.Total))
	if a.llm == nil {
		return fallback
	}

	var titles strings.Builder
	for i, t := range g.Tasks {
		if i == synopsisTitleLimit {
			break
		}
		titles.WriteString("- ")
		titles.WriteString(t.Title)
		titles.WriteString("\n")
	}
	prompt := fmt.Sprintf(loadPrompt(a.promptStore, driven.PromptEpicSynopsis),
		g.ProjectName, strings.TrimRight(titles.String(), "\n"))

	out, err := a.llm.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   300,
		Temperature: synopsisTemperature,
	})
	if err != nil {
		logger.Warn("epic synopsis for %s failed: %v", g.ProjectKey, err)
		return fallback
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return fallback
	}
	return out
}

// Render formats groups as a plain-text report.
func (a *EpicAggregator) Render(keyword string, groups []domain.EpicGroup) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📌 '%s' 프로젝트 공수 집계 결과:\n", strings.TrimSpace(keyword))

	for _, g := range groups {
		fmt.Fprintf(&b, "\n🔹 Epic: %s\n", g.ProjectName)
		if a.baseURL != "" && g.ProjectKey != domain.UnassignedProject {
			fmt.Fprintf(&b, "   🔗 %s/browse/%s\n", a.baseURL, g.ProjectKey)
		}

		b.WriteString("\n📊 작업 단계별 공수:\n")
		for _, p := range domain.AllPhases() {
			pt, ok := g.PhaseTotals[p]
			if !ok || pt.Count == 0 {
				continue
			}
			fmt.Fprintf(&b, "   %s: %s일 (%d건)\n", p.Label(), domain.FormatEffort(pt.Estimate), pt.Count)
		}
		fmt.Fprintf(&b, "   %s\n", strings.Repeat("─", 30))
		fmt.Fprintf(&b, "   ✅ 총 공수: %s일 (%d건)\n", domain.FormatEffort(g.Total), g.Count)

		if len(g.MemberTotals) > 0 {
			b.WriteString("\n👥 담당자별 공수:\n")
			for _, m := range sortedMembers(g.MemberTotals) {
				fmt.Fprintf(&b, "   • %s: %s일\n", m, domain.FormatEffort(g.MemberTotals[m]))
			}
		}

		if g.Synopsis != "" {
			fmt.Fprintf(&b, "\n💡 요약:\n%s\n", g.Synopsis)
		}

		b.WriteString("\n📝 주요 작업 목록:\n")
		for i, t := range g.Tasks {
			if i == renderTaskLimit {
				break
			}
			member := t.TeamMember
			if member == "" {
				member = domain.UnassignedProject
			}
			fmt.Fprintf(&b, "   %d. [%s] %s: %s일 (%s)\n", i+1, t.TicketID, t.Title, domain.FormatEffort(t.Estimate), member)
		}
		if len(g.Tasks) > renderTaskLimit {
			fmt.Fprintf(&b, "   ... 외 %d개 작업\n", len(g.Tasks)-renderTaskLimit)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// sortedMembers orders members by effort descending, then by name.
func sortedMembers(totals map[string]float64) []string {
	names := make([]string, 0, len(totals))
	for m := range totals {
		names = append(names, m)
	}
	slices.SortFunc(names, func(a, b string) int {
		if c := cmp.Compare(totals[b], totals[a]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return names
}
