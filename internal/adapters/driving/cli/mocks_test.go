package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driving"
)

// mocks bundles the fakes installed by setupMocks.
type mocks struct {
	resolver   *mockResolver
	feedback   *mockFeedbackService
	efforts    *mockEffortService
	epics      *mockEpicAggregator
	tracker    *mockTrackerSync
	taxonomy   *mockTaxonomyService
	classifier *mockClassifier
	stats      *mockStatsService
	settings   *mockSettingsService
	scheduler  *mockScheduler
}

// setupMocks installs fresh fakes for every service and restores the
// previous services and flag values when the test ends.
func setupMocks(t *testing.T) *mocks {
	t.Helper()

	m := &mocks{
		resolver:   &mockResolver{},
		feedback:   &mockFeedbackService{},
		efforts:    &mockEffortService{},
		epics:      &mockEpicAggregator{},
		tracker:    &mockTrackerSync{},
		taxonomy:   &mockTaxonomyService{taxonomy: &domain.Taxonomy{Version: 1}},
		classifier: &mockClassifier{},
		stats:      &mockStatsService{},
		settings:   &mockSettingsService{settings: defaultSettings()},
		scheduler:  &mockScheduler{},
	}

	prev := Services{
		Resolver: resolver, Feedback: feedbackService, Efforts: effortService,
		Epics: epicAggregator, Tracker: trackerSync, Taxonomy: taxonomyService,
		Classifier: classifierService, Stats: statsService, Settings: settingsService,
		Scheduler: scheduler, MetricsServe: metricsServe,
	}
	SetServices(&Services{
		Resolver:   m.resolver,
		Feedback:   m.feedback,
		Efforts:    m.efforts,
		Epics:      m.epics,
		Tracker:    m.tracker,
		Taxonomy:   m.taxonomy,
		Classifier: m.classifier,
		Stats:      m.stats,
		Settings:   m.settings,
		Scheduler:  m.scheduler,
	})
	resetFlags()

	t.Cleanup(func() {
		SetServices(&prev)
		resetFlags()
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	return m
}

// resetFlags restores every flag to its default so state does not leak
// between rootCmd executions.
func resetFlags() {
	var reset func(c *cobra.Command)
	reset = func(c *cobra.Command) {
		for _, fs := range []*pflag.FlagSet{c.Flags(), c.PersistentFlags()} {
			fs.VisitAll(func(f *pflag.Flag) {
				if sv, ok := f.Value.(pflag.SliceValue); ok {
					_ = sv.Replace(nil)
				} else {
					_ = f.Value.Set(f.DefValue)
				}
				f.Changed = false
			})
		}
		for _, sub := range c.Commands() {
			reset(sub)
		}
	}
	reset(rootCmd)
}

// run executes rootCmd with args and stdin, returning combined output.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func defaultSettings() *domain.AppSettings {
	s := domain.DefaultAppSettings()
	return &s
}

type mockResolver struct {
	result   *domain.ResolveResult
	question string
	excluded []string
}

func (m *mockResolver) Resolve(ctx context.Context, question string) *domain.ResolveResult {
	return m.ResolveExcluding(ctx, question, nil)
}

func (m *mockResolver) ResolveExcluding(_ context.Context, question string, exclude []string) *domain.ResolveResult {
	m.question = question
	m.excluded = exclude
	if m.result != nil {
		return m.result
	}
	return &domain.ResolveResult{
		Question:         question,
		Answer:           "로그인 페이지는 3 M/D 입니다.",
		State:            domain.StateSemanticAnswer,
		Strategy:         "semantic",
		FeedbackEligible: true,
		Sources:          []domain.SourceRef{{TicketID: "PROJ-1", Source: "efforts", Snippet: "로그인 페이지"}},
	}
}

type mockFeedbackService struct {
	submissions []domain.FeedbackSubmission
	outcome     *domain.FeedbackOutcome
	records     []domain.FeedbackRecord
	listedWith  domain.Polarity
	weekly      *domain.WeeklyFeedbackStats
	reindexed   bool
	exported    string
	imported    string
	err         error
}

func (m *mockFeedbackService) Record(_ context.Context, sub domain.FeedbackSubmission) (*domain.FeedbackOutcome, error) {
	m.submissions = append(m.submissions, sub)
	if m.err != nil {
		return nil, m.err
	}
	if m.outcome != nil {
		return m.outcome, nil
	}
	return &domain.FeedbackOutcome{QAHash: "hash1234", IsNew: true, Count: 1}, nil
}

func (m *mockFeedbackService) Lookup(_ context.Context, _ string) *domain.FeedbackRecord {
	return nil
}

func (m *mockFeedbackService) Get(_ context.Context, qaHash string) (*domain.FeedbackRecord, error) {
	for i := range m.records {
		if m.records[i].QAHash == qaHash {
			return &m.records[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockFeedbackService) List(_ context.Context, polarity domain.Polarity) ([]domain.FeedbackRecord, error) {
	m.listedWith = polarity
	return m.records, m.err
}

func (m *mockFeedbackService) WeeklyAcceptance(_ context.Context, _ time.Time) (*domain.WeeklyFeedbackStats, error) {
	if m.weekly == nil {
		return &domain.WeeklyFeedbackStats{}, m.err
	}
	return m.weekly, m.err
}

func (m *mockFeedbackService) Reindex(_ context.Context) error {
	m.reindexed = true
	return m.err
}

func (m *mockFeedbackService) Export(_ context.Context, w io.Writer) error {
	_, err := io.WriteString(w, `{"feedback":[]}`)
	m.exported = "feedback"
	return err
}

func (m *mockFeedbackService) Import(_ context.Context, r io.Reader) (int, error) {
	data, err := io.ReadAll(r)
	m.imported = string(data)
	return 2, err
}

type mockEffortService struct {
	added    []*domain.EffortRecord
	addOpts  driving.AddOptions
	outcome  *driving.AddOutcome
	records  []domain.EffortRecord
	similar  string
	stats    *domain.EffortStats
	reindex  []string
	reindexN int
	imported string
	importOp driving.AddOptions
	err      error
}

func (m *mockEffortService) Add(_ context.Context, rec *domain.EffortRecord, opts driving.AddOptions) (*driving.AddOutcome, error) {
	m.added = append(m.added, rec)
	m.addOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	if m.outcome != nil {
		return m.outcome, nil
	}
	return &driving.AddOutcome{Created: true}, nil
}

func (m *mockEffortService) Get(_ context.Context, ticketID string) (*domain.EffortRecord, error) {
	for i := range m.records {
		if m.records[i].TicketID == ticketID {
			return &m.records[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockEffortService) List(_ context.Context) ([]domain.EffortRecord, error) {
	return m.records, m.err
}

func (m *mockEffortService) SetCategory(_ context.Context, _ string, _ domain.Category) error {
	return m.err
}

func (m *mockEffortService) SearchSimilar(_ context.Context, feature string) ([]domain.EffortRecord, error) {
	m.similar = feature
	return m.records, m.err
}

func (m *mockEffortService) Reindex(_ context.Context, ticketIDs ...string) error {
	m.reindex = ticketIDs
	m.reindexN++
	return m.err
}

func (m *mockEffortService) Stats(_ context.Context) (*domain.EffortStats, error) {
	if m.stats == nil {
		return &domain.EffortStats{}, m.err
	}
	return m.stats, m.err
}

func (m *mockEffortService) Backup(_ context.Context) (string, error) {
	return "/tmp/backup.json", m.err
}

func (m *mockEffortService) Export(_ context.Context, w io.Writer) error {
	_, err := io.WriteString(w, `{"records":[]}`)
	return err
}

func (m *mockEffortService) Import(_ context.Context, r io.Reader, opts driving.AddOptions) (int, error) {
	data, err := io.ReadAll(r)
	m.imported = string(data)
	m.importOp = opts
	if m.err != nil {
		return 1, m.err
	}
	return 3, err
}

type mockEpicAggregator struct {
	groups  []domain.EpicGroup
	keyword string
	err     error
}

func (m *mockEpicAggregator) Aggregate(_ context.Context, keyword string) ([]domain.EpicGroup, error) {
	m.keyword = keyword
	return m.groups, m.err
}

func (m *mockEpicAggregator) Render(keyword string, groups []domain.EpicGroup) string {
	return "report for " + keyword + ": " + groups[0].ProjectName
}

type mockJob struct {
	id     string
	states []domain.SyncJob
	final  domain.SyncJob
	calls  int
	wait   chan struct{}
}

func (j *mockJob) ID() string { return j.id }

func (j *mockJob) Status() domain.SyncJob {
	if j.calls < len(j.states) {
		s := j.states[j.calls]
		j.calls++
		return s
	}
	return j.final
}

func (j *mockJob) Wait(ctx context.Context) (domain.SyncJob, error) {
	if j.wait != nil {
		select {
		case <-j.wait:
		case <-ctx.Done():
			return j.final, ctx.Err()
		}
	}
	return j.final, nil
}

func (j *mockJob) Cancel() {}

type mockTrackerSync struct {
	ticketResult *domain.TicketSyncResult
	epicResult   *domain.EpicSyncResult
	category     domain.Category
	filter       string
	job          *mockJob
	last         *mockJob
	err          error
}

func (m *mockTrackerSync) SyncTicket(_ context.Context, key string, category domain.Category) (*domain.TicketSyncResult, error) {
	m.category = category
	if m.err != nil {
		return nil, m.err
	}
	if m.ticketResult != nil {
		return m.ticketResult, nil
	}
	return &domain.TicketSyncResult{TicketID: key, Added: true}, nil
}

func (m *mockTrackerSync) SyncEpic(
	_ context.Context, epicKey string, category domain.Category, titleFilter string,
) (*domain.EpicSyncResult, error) {
	m.category = category
	m.filter = titleFilter
	if m.err != nil {
		return nil, m.err
	}
	if m.epicResult != nil {
		return m.epicResult, nil
	}
	return &domain.EpicSyncResult{EpicKey: epicKey, EpicName: "Login", Total: 3, Added: 2, Skipped: 1}, nil
}

func (m *mockTrackerSync) StartCompletedEpicSync(_ context.Context) (driving.JobHandle, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.last = m.job
	return m.job, nil
}

func (m *mockTrackerSync) LastJob() (driving.JobHandle, bool) {
	if m.last == nil {
		return nil, false
	}
	return m.last, true
}

type mockTaxonomyService struct {
	taxonomy *domain.Taxonomy
	added    []domain.Category
	removed  []domain.Category
	updated  [2]domain.Category
	migrated int
	err      error
}

func (m *mockTaxonomyService) Get() *domain.Taxonomy { return m.taxonomy }

func (m *mockTaxonomyService) List() []domain.Category { return nil }

func (m *mockTaxonomyService) Add(c domain.Category) error {
	m.added = append(m.added, c)
	return m.err
}

func (m *mockTaxonomyService) Update(old, updated domain.Category) error {
	m.updated = [2]domain.Category{old, updated}
	return m.err
}

func (m *mockTaxonomyService) Remove(c domain.Category) error {
	m.removed = append(m.removed, c)
	return m.err
}

func (m *mockTaxonomyService) Validate(_ domain.Category) error { return m.err }

func (m *mockTaxonomyService) Migrate(_ context.Context) (int, error) {
	return m.migrated, m.err
}

type mockClassifier struct {
	trained    bool
	prediction domain.Category
	confidence float64
	results    []driving.ClassificationResult
	threshold  float64
	dryRun     bool
	err        error
}

func (m *mockClassifier) Train(_ context.Context) error {
	m.trained = true
	return m.err
}

func (m *mockClassifier) Predict(_ context.Context, _ string) (domain.Category, float64) {
	return m.prediction, m.confidence
}

func (m *mockClassifier) AutoClassify(_ context.Context, threshold float64, dryRun bool) ([]driving.ClassificationResult, error) {
	m.threshold = threshold
	m.dryRun = dryRun
	return m.results, m.err
}

type mockStatsService struct {
	overview *driving.Overview
	err      error
}

func (m *mockStatsService) Overview(_ context.Context, _ time.Time) (*driving.Overview, error) {
	if m.overview == nil {
		return &driving.Overview{}, m.err
	}
	return m.overview, m.err
}

type mockSettingsService struct {
	settings     *domain.AppSettings
	embedding    []string
	llm          []string
	tracker      *domain.TrackerSettings
	validateErr  error
	scheduler    domain.SchedulerConfig
	providerErr  error
	validateCall int
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) { return m.settings, nil }

func (m *mockSettingsService) Save(s *domain.AppSettings) error {
	m.settings = s
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(p domain.AIProvider, model, apiKey string) error {
	m.embedding = []string{string(p), model, apiKey}
	return m.providerErr
}

func (m *mockSettingsService) SetLLMProvider(p domain.AIProvider, model, apiKey string) error {
	m.llm = []string{string(p), model, apiKey}
	return m.providerErr
}

func (m *mockSettingsService) SetTracker(t domain.TrackerSettings) error {
	m.tracker = &t
	return nil
}

func (m *mockSettingsService) Validate() error { return m.validateErr }

func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *mockSettingsService) GetSchedulerConfig() domain.SchedulerConfig { return m.scheduler }

func (m *mockSettingsService) CheckEmbedding(context.Context) error {
	m.validateCall++
	return m.validateErr
}

func (m *mockSettingsService) CheckLLM(context.Context) error {
	m.validateCall++
	return m.validateErr
}

type mockScheduler struct {
	mu      sync.Mutex
	ran     []string
	started bool
	stopped bool
	err     error
	tasks   []domain.ScheduledTask
	history map[string][]domain.TaskResult
	limits  []int
}

func (m *mockScheduler) Tasks(context.Context) ([]domain.ScheduledTask, error) {
	return m.tasks, m.err
}

func (m *mockScheduler) History(_ context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	m.limits = append(m.limits, limit)
	return m.history[taskID], nil
}

func (m *mockScheduler) Start(ctx context.Context) error {
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockScheduler) isStarted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

func (m *mockScheduler) Stop() error {
	m.stopped = true
	return nil
}

func (m *mockScheduler) RunNow(_ context.Context, taskID string) error {
	m.ran = append(m.ran, taskID)
	return m.err
}
