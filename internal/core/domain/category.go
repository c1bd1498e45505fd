package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Category is a three-level taxonomy path (major > minor > sub).
// The zero value is the unclassified variant. A category is never
// partially set once it has passed Taxonomy.Validate.
type Category struct {
	Major string `json:"major,omitempty" yaml:"major,omitempty"`
	Minor string `json:"minor,omitempty" yaml:"minor,omitempty"`
	Sub   string `json:"sub,omitempty" yaml:"sub,omitempty"`
}

// Unclassified returns the explicit unclassified category.
func Unclassified() Category {
	return Category{}
}

// NewCategory builds a category from its three levels.
func NewCategory(major, minor, sub string) Category {
	return Category{
		Major: strings.TrimSpace(major),
		Minor: strings.TrimSpace(minor),
		Sub:   strings.TrimSpace(sub),
	}
}

// ParseCategory parses "major > minor > sub". An empty string is unclassified.
func ParseCategory(s string) (Category, error) {
	if strings.TrimSpace(s) == "" {
		return Unclassified(), nil
	}
	parts := strings.Split(s, ">")
	if len(parts) != 3 {
		return Category{}, fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	c := NewCategory(parts[0], parts[1], parts[2])
	if !c.IsComplete() {
		return Category{}, fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

// IsUnclassified reports whether no level is set.
func (c Category) IsUnclassified() bool {
	return c.Major == "" && c.Minor == "" && c.Sub == ""
}

// IsComplete reports whether all three levels are set.
func (c Category) IsComplete() bool {
	return c.Major != "" && c.Minor != "" && c.Sub != ""
}

// String renders the category as "major > minor > sub".
func (c Category) String() string {
	if c.IsUnclassified() {
		return ""
	}
	return c.Major + " > " + c.Minor + " > " + c.Sub
}

// MinorCategory is the second level of the taxonomy.
type MinorCategory struct {
	Name string   `json:"name" yaml:"name"`
	Subs []string `json:"subs" yaml:"subs"`
}

// MajorCategory is the top level of the taxonomy.
type MajorCategory struct {
	Name   string          `json:"name" yaml:"name"`
	Minors []MinorCategory `json:"minors" yaml:"minors"`
}

// Taxonomy is the closed, versioned category tree.
// Every mutation increments Version.
type Taxonomy struct {
	Version int             `json:"version" yaml:"version"`
	Majors  []MajorCategory `json:"majors" yaml:"majors"`
}

// Validate checks that c is unclassified or resolves to all three levels.
func (t *Taxonomy) Validate(c Category) error {
	if c.IsUnclassified() {
		return nil
	}
	if !t.Contains(c) {
		return fmt.Errorf("%w: %s", ErrInvalidCategory, c.String())
	}
	return nil
}

// Contains reports whether the complete triple exists in the taxonomy.
func (t *Taxonomy) Contains(c Category) bool {
	if !c.IsComplete() {
		return false
	}
	mi := t.majorIndex(c.Major)
	if mi < 0 {
		return false
	}
	ni := t.Majors[mi].minorIndex(c.Minor)
	if ni < 0 {
		return false
	}
	return slices.Contains(t.Majors[mi].Minors[ni].Subs, c.Sub)
}

// Add inserts a complete triple, creating missing levels.
// Adding an existing triple is a no-op and does not bump the version.
func (t *Taxonomy) Add(c Category) error {
	if !c.IsComplete() {
		return fmt.Errorf("%w: all three levels are required", ErrInvalidCategory)
	}
	if t.Contains(c) {
		return nil
	}
	mi := t.majorIndex(c.Major)
	if mi < 0 {
		t.Majors = append(t.Majors, MajorCategory{Name: c.Major})
		mi = len(t.Majors) - 1
	}
	major := &t.Majors[mi]
	ni := major.minorIndex(c.Minor)
	if ni < 0 {
		major.Minors = append(major.Minors, MinorCategory{Name: c.Minor})
		ni = len(major.Minors) - 1
	}
	major.Minors[ni].Subs = append(major.Minors[ni].Subs, c.Sub)
	t.Version++
	return nil
}

// Remove deletes a triple and prunes empty parent levels.
func (t *Taxonomy) Remove(c Category) error {
	if !t.Contains(c) {
		return fmt.Errorf("%w: %s", ErrNotFound, c.String())
	}
	mi := t.majorIndex(c.Major)
	major := &t.Majors[mi]
	ni := major.minorIndex(c.Minor)
	minor := &major.Minors[ni]
	minor.Subs = slices.DeleteFunc(minor.Subs, func(s string) bool { return s == c.Sub })
	if len(minor.Subs) == 0 {
		major.Minors = slices.Delete(major.Minors, ni, ni+1)
	}
	if len(major.Minors) == 0 {
		t.Majors = slices.Delete(t.Majors, mi, mi+1)
	}
	t.Version++
	return nil
}

// Replace moves old to new. The old triple must exist.
func (t *Taxonomy) Replace(old, updated Category) error {
	if !updated.IsComplete() {
		return fmt.Errorf("%w: all three levels are required", ErrInvalidCategory)
	}
	if err := t.Remove(old); err != nil {
		return err
	}
	return t.Add(updated)
}

// Categories lists every complete triple in taxonomy order.
func (t *Taxonomy) Categories() []Category {
	var out []Category
	for _, major := range t.Majors {
		for _, minor := range major.Minors {
			for _, sub := range minor.Subs {
				out = append(out, Category{Major: major.Name, Minor: minor.Name, Sub: sub})
			}
		}
	}
	return out
}

// Clone returns a deep copy.
func (t *Taxonomy) Clone() *Taxonomy {
	out := &Taxonomy{Version: t.Version, Majors: make([]MajorCategory, len(t.Majors))}
	for i, major := range t.Majors {
		m := MajorCategory{Name: major.Name, Minors: make([]MinorCategory, len(major.Minors))}
		for j, minor := range major.Minors {
			m.Minors[j] = MinorCategory{Name: minor.Name, Subs: slices.Clone(minor.Subs)}
		}
		out.Majors[i] = m
	}
	return out
}

func (t *Taxonomy) majorIndex(name string) int {
	return slices.IndexFunc(t.Majors, func(m MajorCategory) bool { return m.Name == name })
}

func (m *MajorCategory) minorIndex(name string) int {
	return slices.IndexFunc(m.Minors, func(n MinorCategory) bool { return n.Name == name })
}

// DefaultTaxonomy returns the taxonomy used when no taxonomy file exists.
func DefaultTaxonomy() *Taxonomy {
	return &Taxonomy{
		Version: 1,
		Majors: []MajorCategory{
			{Name: "인증", Minors: []MinorCategory{
				{Name: "로그인", Subs: []string{"일반로그인", "소셜로그인", "2FA", "자동로그인"}},
				{Name: "회원가입", Subs: []string{"일반가입", "소셜가입", "본인인증", "약관동의"}},
				{Name: "인증관리", Subs: []string{"비밀번호변경", "계정잠금", "인증토큰", "세션관리"}},
			}},
			{Name: "결제", Minors: []MinorCategory{
				{Name: "카드결제", Subs: []string{"신용카드", "체크카드", "간편결제", "정기결제"}},
				{Name: "송금", Subs: []string{"계좌이체", "실시간송금", "정기송금", "해외송금"}},
				{Name: "충전", Subs: []string{"계좌충전", "카드충전", "포인트충전", "쿠폰사용"}},
			}},
			{Name: "알림", Minors: []MinorCategory{
				{Name: "푸시알림", Subs: []string{"일반푸시", "마케팅푸시", "긴급알림", "예약알림"}},
				{Name: "메시지", Subs: []string{"SMS", "알림톡", "이메일", "인앱메시지"}},
				{Name: "알림관리", Subs: []string{"설정", "구독", "차단", "스케줄링"}},
			}},
			{Name: "조회", Minors: []MinorCategory{
				{Name: "계좌조회", Subs: []string{"잔액조회", "거래내역", "계좌목록", "상세조회"}},
				{Name: "카드조회", Subs: []string{"카드목록", "승인내역", "한도조회", "포인트조회"}},
				{Name: "대시보드", Subs: []string{"메인화면", "차트", "요약정보", "실시간데이터"}},
			}},
			{Name: "관리", Minors: []MinorCategory{
				{Name: "사용자관리", Subs: []string{"권한관리", "프로필관리", "설정관리", "계정관리"}},
				{Name: "시스템관리", Subs: []string{"로그관리", "모니터링", "백업", "배포"}},
				{Name: "데이터관리", Subs: []string{"데이터수집", "데이터분석", "리포팅", "백업"}},
			}},
		},
	}
}
