package onboarding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/futig/onboarding-bot/internal/config"
	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/futig/onboarding-bot/internal/pkg/validator"
	"github.com/futig/onboarding-bot/internal/repository"
	"github.com/futig/onboarding-bot/internal/state"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type memUsers struct {
	byTelegram map[int64]*entity.User
}

func (m *memUsers) UpsertUser(_ context.Context, telegramID int64, username *string, fullName string) (*entity.User, error) {
	if u, ok := m.byTelegram[telegramID]; ok {
		u.FullName = fullName
		u.Username = username
		return u, nil
	}
	u := &entity.User{ID: uuid.NewString(), TelegramID: telegramID, Username: username, FullName: fullName, Role: entity.RoleStudent}
	m.byTelegram[telegramID] = u
	return u, nil
}

func (m *memUsers) GetUserByTelegramID(_ context.Context, telegramID int64) (*entity.User, error) {
	if u, ok := m.byTelegram[telegramID]; ok {
		return u, nil
	}
	return nil, entity.ErrUserNotFound
}

func (m *memUsers) GetUserByID(_ context.Context, id string) (*entity.User, error) {
	for _, u := range m.byTelegram {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, entity.ErrUserNotFound
}

func (m *memUsers) SetRole(_ context.Context, telegramID int64, role entity.Role) (*entity.User, error) {
	u, ok := m.byTelegram[telegramID]
	if !ok {
		return nil, entity.ErrUserNotFound
	}
	u.Role = role
	return u, nil
}

type memSteps struct {
	steps []*entity.Step
}

func (m *memSteps) UpsertSteps(context.Context, []entity.Step) (int, error) {
	return 0, errors.New("read only")
}

func (m *memSteps) ListSteps(context.Context) ([]*entity.Step, error) {
	return m.steps, nil
}

func (m *memSteps) GetStepByID(_ context.Context, id int64) (*entity.Step, error) {
	for _, s := range m.steps {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, entity.ErrStepNotFound
}

type memSubmissions struct {
	mu         sync.Mutex
	rows       []*entity.Submission
	failNew    bool
	failUpdate bool
}

func (m *memSubmissions) CreateSubmission(_ context.Context, sub *entity.Submission) (*entity.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNew {
		return nil, errors.New("connection refused")
	}
	cp := *sub
	cp.ID = uuid.NewString()
	if cp.Status == "" {
		cp.Status = entity.SubmissionStatusChecked
	}
	m.rows = append(m.rows, &cp)
	out := cp
	return &out, nil
}

func (m *memSubmissions) find(id string) *entity.Submission {
	for _, r := range m.rows {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (m *memSubmissions) GetSubmission(_ context.Context, id string) (*entity.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r := m.find(id); r != nil {
		cp := *r
		return &cp, nil
	}
	return nil, entity.ErrSubmissionNotFound
}

func (m *memSubmissions) GetSubmissionDetails(context.Context, string) (*entity.SubmissionDetails, error) {
	return nil, errors.New("not implemented")
}

func (m *memSubmissions) UpdateEvaluation(_ context.Context, id string, eval entity.SubmissionEvaluation) (*entity.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdate {
		return nil, errors.New("connection refused")
	}
	r := m.find(id)
	if r == nil {
		return nil, entity.ErrSubmissionNotFound
	}
	if r.Status.IsTerminal() {
		return nil, entity.ErrTerminalStatus
	}
	if eval.Status != nil {
		r.Status = *eval.Status
	}
	if eval.EvaluationScore != nil {
		r.EvaluationScore = eval.EvaluationScore
	}
	if eval.EvaluationNotes != nil {
		r.EvaluationNotes = eval.EvaluationNotes
	}
	if eval.Feedback != nil {
		r.Feedback = eval.Feedback
	}
	if eval.AutoCheckResult != nil {
		r.AutoCheckResult = eval.AutoCheckResult
	}
	cp := *r
	return &cp, nil
}

func (m *memSubmissions) UpdateReview(context.Context, string, int, string, entity.SubmissionStatus) (*entity.Submission, error) {
	return nil, errors.New("not implemented")
}

func (m *memSubmissions) AttemptedStepIDs(_ context.Context, userID string) (map[int64]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]struct{})
	for _, r := range m.rows {
		if r.UserID == userID && r.Status.Attempted() {
			out[r.StepID] = struct{}{}
		}
	}
	return out, nil
}

func (m *memSubmissions) ListByUser(_ context.Context, userID string) ([]*entity.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Submission
	for _, r := range m.rows {
		if r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memSubmissions) ListByStatus(context.Context, []entity.SubmissionStatus, int) ([]*entity.SubmissionDetails, error) {
	return nil, errors.New("not implemented")
}

var (
	_ repository.UserRepository       = &memUsers{}
	_ repository.StepRepository       = &memSteps{}
	_ repository.SubmissionRepository = &memSubmissions{}
)

type stubEvaluator struct {
	score       *entity.AnswerScore
	scoreErr    error
	structured  *entity.StructuredEvaluation
	evalErr     error
	scoreCalls  int
	parsed      json.RawMessage
	parsedInput string
}

func (s *stubEvaluator) ScoreAnswer(context.Context, string, string) (*entity.AnswerScore, error) {
	s.scoreCalls++
	return s.score, s.scoreErr
}

func (s *stubEvaluator) ParseStructured(_ context.Context, raw, _ string) json.RawMessage {
	s.parsedInput = raw
	if s.parsed != nil {
		return s.parsed
	}
	data, _ := json.Marshal(map[string]string{"raw_text": raw, "parse_error": "no parser"})
	return data
}

func (s *stubEvaluator) EvaluateStructured(context.Context, *entity.Step, json.RawMessage) (*entity.StructuredEvaluation, error) {
	if s.evalErr != nil {
		return nil, s.evalErr
	}
	cp := *s.structured
	return &cp, nil
}

type stubChecker struct {
	check *entity.SemanticCheck
	err   error
}

func (s *stubChecker) ValidateSearchMap(context.Context, entity.SheetDump) (*entity.SemanticCheck, error) {
	return s.check, s.err
}

type stubInspector struct {
	structure *entity.StructureCheck
	err       error
	dump      entity.SheetDump
}

func (s *stubInspector) ValidateStructure(string) (*entity.StructureCheck, error) {
	return s.structure, s.err
}

func (s *stubInspector) ReadSheets(string) (entity.SheetDump, error) {
	return s.dump, nil
}

type stubFetcher struct {
	calls int
}

func (s *stubFetcher) Fetch(context.Context, string, int64) ([]byte, error) {
	s.calls++
	return []byte("PK"), nil
}

type memFiles struct{}

func (memFiles) Save(userID string, stepID int64, filename string, _ []byte) (string, error) {
	return fmt.Sprintf("uploads/%s_%d_%s", userID, stepID, filename), nil
}

type stubReports struct {
	calls int
}

func (s *stubReports) Generate(_ context.Context, user *entity.User) (*entity.ReportFile, error) {
	s.calls++
	return &entity.ReportFile{FileName: "report_" + user.FullName + ".xlsx", Data: []byte("xlsx")}, nil
}

type recordingNotifier struct {
	needsReview []*entity.CallbackSubmissionData
	completed   []*entity.CallbackCompletionData
}

func (r *recordingNotifier) SubmissionNeedsReview(_ context.Context, d *entity.CallbackSubmissionData) {
	r.needsReview = append(r.needsReview, d)
}

func (r *recordingNotifier) OnboardingCompleted(_ context.Context, d *entity.CallbackCompletionData) {
	r.completed = append(r.completed, d)
}

// flakyStorage fails writes while failSet is on.
type flakyStorage struct {
	state.Storage
	failSet bool
}

func (f *flakyStorage) Set(ctx context.Context, sess *state.Session) error {
	if f.failSet {
		return errors.New("session storage unavailable")
	}
	return f.Storage.Set(ctx, sess)
}

type harness struct {
	uc        *OnboardingUsecase
	users     *memUsers
	steps     *memSteps
	subs      *memSubmissions
	sessions  *state.Manager
	store     *flakyStorage
	evaluator *stubEvaluator
	inspector *stubInspector
	checker   *stubChecker
	fetcher   *stubFetcher
	reports   *stubReports
	notifier  *recordingNotifier
	clock     time.Time
}

const traineeID int64 = 1001

func newHarness(steps ...*entity.Step) *harness {
	sort.Slice(steps, func(i, j int) bool { return steps[i].Order < steps[j].Order })

	store := &flakyStorage{Storage: repository.NewSessionMemory(0)}
	h := &harness{
		users:     &memUsers{byTelegram: map[int64]*entity.User{}},
		steps:     &memSteps{steps: steps},
		subs:      &memSubmissions{},
		sessions:  state.NewManager(store),
		store:     store,
		evaluator: &stubEvaluator{structured: &entity.StructuredEvaluation{Score: 4, Feedback: "Хорошо"}},
		inspector: &stubInspector{
			structure: &entity.StructureCheck{Valid: true, TotalRows: 3},
			dump:      entity.SheetDump{{Name: "Карта", Columns: []entity.SheetColumn{{Name: "Company", Values: []string{"Acme"}}}}},
		},
		checker:  &stubChecker{check: &entity.SemanticCheck{Valid: true}},
		fetcher:  &stubFetcher{},
		reports:  &stubReports{},
		notifier: &recordingNotifier{},
		clock:    time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}

	h.uc = NewUsecase(
		h.users, h.steps, h.subs, h.sessions, h.evaluator,
		Uploads{
			Validator: validator.NewFileValidator(config.UploadConfig{MaxFileSize: 1 << 20}),
			Inspector: h.inspector,
			Checker:   h.checker,
			Fetcher:   h.fetcher,
			Store:     memFiles{},
		},
		h.reports, h.notifier, zap.NewNop(),
	)
	h.uc.now = func() time.Time { return h.clock }
	h.users.byTelegram[traineeID] = &entity.User{ID: uuid.NewString(), TelegramID: traineeID, FullName: "Анна Петрова", Role: entity.RoleStudent}
	return h
}

func (h *harness) user() *entity.User {
	return h.users.byTelegram[traineeID]
}

func (h *harness) elapse(d time.Duration) {
	h.clock = h.clock.Add(d)
}

func (h *harness) attempt(stepID int64) {
	h.subs.rows = append(h.subs.rows, &entity.Submission{
		ID: uuid.NewString(), UserID: h.user().ID, StepID: stepID, Status: entity.SubmissionStatusChecked,
	})
}

func step(id int64, order int, t entity.StepType, minutes int) *entity.Step {
	return &entity.Step{
		ID:                id,
		Order:             order,
		Title:             fmt.Sprintf("Шаг %d", order),
		Description:       "Описание шага",
		Type:              t,
		EstimatedDuration: minutes,
		PassingScore:      entity.DefaultPassingScore,
	}
}
