package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/futig/onboarding-bot/internal/state"
	"github.com/futig/onboarding-bot/internal/telegram/keyboard"
	"github.com/futig/onboarding-bot/internal/telegram/render"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	sendErrs []error
}

func (a *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.sendErrs) > 0 {
		err := a.sendErrs[0]
		a.sendErrs = a.sendErrs[1:]
		if err != nil {
			return tgbotapi.Message{}, err
		}
	}
	a.sent = append(a.sent, c)
	return tgbotapi.Message{}, nil
}

func (a *fakeAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (a *fakeAPI) texts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, c := range a.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg.Text)
		}
	}
	return out
}

func (a *fakeAPI) documents() []tgbotapi.DocumentConfig {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []tgbotapi.DocumentConfig
	for _, c := range a.sent {
		if doc, ok := c.(tgbotapi.DocumentConfig); ok {
			out = append(out, doc)
		}
	}
	return out
}

type fakeOnboarding struct {
	user       *entity.User
	turn       *entity.Turn
	startErr   error
	report     *entity.ReportFile
	reportErr  error
	summary    string
	replies    []entity.Reply
	registered string
	resets     int
}

func (f *fakeOnboarding) BeginRegistration(context.Context, int64) (*entity.User, error) {
	return f.user, nil
}

func (f *fakeOnboarding) CompleteRegistration(_ context.Context, _ int64, _ *string, fullName string) (*entity.User, error) {
	f.registered = fullName
	return &entity.User{ID: "u-1", FullName: fullName}, nil
}

func (f *fakeOnboarding) Start(context.Context, int64) (*entity.Turn, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.turn, nil
}

func (f *fakeOnboarding) Submit(_ context.Context, _ int64, reply entity.Reply) (*entity.Turn, error) {
	f.replies = append(f.replies, reply)
	return f.turn, nil
}

func (f *fakeOnboarding) Report(context.Context, int64) (*entity.ReportFile, error) {
	return f.report, f.reportErr
}

func (f *fakeOnboarding) Summary(context.Context, int64) (string, error) {
	return f.summary, nil
}

func (f *fakeOnboarding) Reset(context.Context, int64) error {
	f.resets++
	return nil
}

type fakeReview struct {
	items     []*entity.SubmissionDetails
	details   *entity.SubmissionDetails
	gradeErr  error
	opened    string
	cancelled int
}

func (f *fakeReview) List(context.Context, int64) ([]*entity.SubmissionDetails, error) {
	return f.items, nil
}

func (f *fakeReview) Open(_ context.Context, _ int64, id string) (*entity.SubmissionDetails, error) {
	f.opened = id
	if f.details == nil {
		return nil, entity.ErrSubmissionNotFound
	}
	return f.details, nil
}

func (f *fakeReview) Grade(context.Context, int64, string) (*entity.SubmissionDetails, error) {
	if f.gradeErr != nil {
		return nil, f.gradeErr
	}
	return f.details, nil
}

func (f *fakeReview) Cancel(context.Context, int64) error {
	f.cancelled++
	return nil
}

type fakeSummaries struct {
	format entity.ResultFormat
}

func (f *fakeSummaries) Render(format entity.ResultFormat, base, _, text string) (*entity.ReportFile, string, error) {
	f.format = format
	return &entity.ReportFile{FileName: base + "." + string(format), Data: []byte(text)}, "application/octet-stream", nil
}

type fakeFiles map[string][]byte

func (f fakeFiles) Read(path string) ([]byte, error) {
	data, ok := f[path]
	if !ok {
		return nil, entity.ErrInvalidParameter
	}
	return data, nil
}

type harness struct {
	api        *fakeAPI
	onboarding *fakeOnboarding
	review     *fakeReview
	summaries  *fakeSummaries
	files      fakeFiles
}

func newHarness() *harness {
	return &harness{
		api:        &fakeAPI{},
		onboarding: &fakeOnboarding{turn: &entity.Turn{}},
		review:     &fakeReview{},
		summaries:  &fakeSummaries{},
		files:      fakeFiles{},
	}
}

func (h *harness) commands() *CommandHandler {
	return NewCommandHandler(h.api, h.onboarding, h.review, h.summaries, h.files, keyboard.NewBuilder(), zap.NewNop())
}

func (h *harness) callbacks() *CallbackHandler {
	return NewCallbackHandler(h.api, h.onboarding, h.review, h.summaries, h.files, keyboard.NewBuilder(), zap.NewNop())
}

func chat(text string) *Message {
	return &Message{ChatID: 10, UserID: 10, Text: text}
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	parts := splitMessage("aaaa\nbbbb\ncccc", 10)
	assert.Equal(t, []string{"aaaa\nbbbb\n", "cccc"}, parts)

	long := strings.Repeat("я", 25)
	parts = splitMessage(long, 10)
	require.Len(t, parts, 3)
	assert.Equal(t, long, strings.Join(parts, ""))
}

func TestSendTurnOrder(t *testing.T) {
	api := &fakeAPI{}
	sender := NewMessageSender(api, keyboard.NewBuilder(), zap.NewNop())

	turn := &entity.Turn{Ask: "Какие у тебя ожидания?"}
	turn.Add(entity.Notice{Kind: entity.NoticeAnswerSaved})
	turn.Next = &entity.Prompt{Step: &entity.Step{ID: 2, Order: 2, Title: "Знакомство"}, Expect: entity.ExpectAcknowledge}

	require.NoError(t, sender.SendTurn(context.Background(), 1, turn))

	texts := api.texts()
	require.Len(t, texts, 3)
	assert.Equal(t, "Ответ сохранён.", texts[0])
	assert.Equal(t, "Какие у тебя ожидания?", texts[1])
	assert.Contains(t, texts[2], "Шаг 2: Знакомство")

	last := api.sent[2].(tgbotapi.MessageConfig)
	markup, ok := last.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "step:done:2", *markup.InlineKeyboard[0][0].CallbackData)
}

func TestSendTurnCompletedSendsReport(t *testing.T) {
	api := &fakeAPI{}
	sender := NewMessageSender(api, keyboard.NewBuilder(), zap.NewNop())

	turn := &entity.Turn{Completed: true, Report: &entity.ReportFile{FileName: "report.xlsx", Data: []byte("x"), Caption: "Отчёт"}}
	turn.Add(entity.Notice{Kind: entity.NoticeOnboardingComplete})
	require.NoError(t, sender.SendTurn(context.Background(), 1, turn))

	docs := api.documents()
	require.Len(t, docs, 1)
	assert.Equal(t, "Отчёт", docs[0].Caption)
}

func TestSendDocumentRetriesServerErrors(t *testing.T) {
	api := &fakeAPI{sendErrs: []error{&tgbotapi.Error{Code: 502, Message: "Bad Gateway"}}}
	sender := NewMessageSender(api, keyboard.NewBuilder(), zap.NewNop())

	err := sender.SendDocument(context.Background(), 1, &entity.ReportFile{FileName: "r.xlsx", Data: []byte("x")}, nil)
	require.NoError(t, err)
	assert.Len(t, api.documents(), 1)
}

func TestIsRetryableSendError(t *testing.T) {
	assert.True(t, isRetryableSendError(&tgbotapi.Error{Code: 429}))
	assert.True(t, isRetryableSendError(&tgbotapi.Error{Code: 500}))
	assert.False(t, isRetryableSendError(&tgbotapi.Error{Code: 400}))
	assert.True(t, isRetryableSendError(errors.New("connection reset")))
}

func TestCommandStart(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.commands().Handle(context.Background(), chat("/start"), "start", ""))
	assert.Equal(t, []string{render.MsgWelcome}, h.api.texts())

	h = newHarness()
	h.onboarding.user = &entity.User{FullName: "Анна"}
	require.NoError(t, h.commands().Handle(context.Background(), chat("/start"), "start", ""))
	assert.Equal(t, []string{fmt.Sprintf(render.MsgWelcomeBack, "Анна")}, h.api.texts())
}

func TestCommandUnknownAndHelp(t *testing.T) {
	h := newHarness()
	cmd := h.commands()
	require.NoError(t, cmd.Handle(context.Background(), chat("/nope"), "nope", ""))
	require.NoError(t, cmd.Handle(context.Background(), chat("/help"), "help", ""))
	assert.Equal(t, []string{render.ErrUnknownCommand, render.MsgHelp}, h.api.texts())
}

func TestCommandOnboardingNotRegistered(t *testing.T) {
	h := newHarness()
	h.onboarding.startErr = fmt.Errorf("start: %w", entity.ErrUserNotRegistered)

	require.NoError(t, h.commands().Handle(context.Background(), chat("/onboarding"), "labs", ""))
	assert.Equal(t, []string{render.ErrNotRegistered}, h.api.texts())
}

func TestCommandSummaryFormats(t *testing.T) {
	h := newHarness()
	h.onboarding.summary = "Прогресс: 3 из 10"
	cmd := h.commands()

	require.NoError(t, cmd.Handle(context.Background(), chat("/summary"), "summary", ""))
	assert.Equal(t, []string{"Прогресс: 3 из 10"}, h.api.texts())

	require.NoError(t, cmd.Handle(context.Background(), chat("/summary pdf"), "summary", "pdf"))
	assert.Equal(t, entity.FormatPDF, h.summaries.format)
	docs := h.api.documents()
	require.Len(t, docs, 1)

	require.NoError(t, cmd.Handle(context.Background(), chat("/summary odt"), "summary", "odt"))
	assert.Equal(t, render.ErrInvalidFormat, h.api.texts()[len(h.api.texts())-1])
}

func TestCommandReportWithoutSubmissions(t *testing.T) {
	h := newHarness()
	h.onboarding.reportErr = fmt.Errorf("generate report: %w", entity.ErrNoSubmissions)

	require.NoError(t, h.commands().Handle(context.Background(), chat("/get_report"), "get_report", ""))
	assert.Equal(t, []string{render.MsgGeneratingReport, render.MsgNoSubmissions}, h.api.texts())
}

func TestCommandCancelDependsOnPhase(t *testing.T) {
	h := newHarness()
	cmd := h.commands()

	grading := state.ContextWithState(context.Background(), &entity.SessionState{Phase: entity.PhaseExpertGrading})
	require.NoError(t, cmd.Handle(grading, chat("/cancel"), "cancel", ""))
	assert.Equal(t, 1, h.review.cancelled)
	assert.Zero(t, h.onboarding.resets)

	require.NoError(t, cmd.Handle(context.Background(), chat("/cancel"), "cancel", ""))
	assert.Equal(t, 1, h.onboarding.resets)
	assert.Equal(t, []string{render.MsgReviewCancel, render.MsgReset}, h.api.texts())
}

func TestCommandReviewOpensSubmissionWithFile(t *testing.T) {
	h := newHarness()
	path := "/data/uploads/u-1_20260302_map.xlsx"
	h.files[path] = []byte("xlsx")
	h.review.details = &entity.SubmissionDetails{
		Submission: &entity.Submission{ID: "s-9", Status: entity.SubmissionStatusPending, FilePath: &path},
		Step:       &entity.Step{Order: 12, Title: "Карта поиска"},
		User:       &entity.User{FullName: "Анна Петрова"},
	}

	require.NoError(t, h.commands().Handle(context.Background(), chat("/review s-9"), "review", " s-9 "))
	assert.Equal(t, "s-9", h.review.opened)

	docs := h.api.documents()
	require.Len(t, docs, 1)
	texts := h.api.texts()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "Анна Петрова")
	assert.Equal(t, render.MsgGradePrompt, texts[1])
}

func TestCommandReviewWithoutID(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.commands().Handle(context.Background(), chat("/review"), "review", ""))
	assert.Equal(t, []string{render.MsgReviewUsage}, h.api.texts())
	assert.Empty(t, h.review.opened)
}

func TestCallbackRouting(t *testing.T) {
	h := newHarness()
	cb := h.callbacks()
	ctx := context.Background()

	require.NoError(t, cb.Handle(ctx, &Message{ChatID: 10, UserID: 10, CallbackData: "step:done:7"}))
	require.NoError(t, cb.Handle(ctx, &Message{ChatID: 10, UserID: 10, CallbackData: "step:skip:8"}))
	require.Len(t, h.onboarding.replies, 2)
	assert.Equal(t, entity.Reply{Signal: entity.SignalDone, StepID: 7}, h.onboarding.replies[0])
	assert.Equal(t, entity.Reply{Signal: entity.SignalSkip, StepID: 8}, h.onboarding.replies[1])

	require.NoError(t, cb.Handle(ctx, &Message{ChatID: 10, UserID: 10, CallbackData: "review:cancel"}))
	assert.Equal(t, 1, h.review.cancelled)

	require.NoError(t, cb.Handle(ctx, &Message{ChatID: 10, UserID: 10, CallbackData: "action:expert"}))
	assert.Equal(t, render.MsgNoPending, h.api.texts()[len(h.api.texts())-1])

	assert.Error(t, cb.Handle(ctx, &Message{ChatID: 10, UserID: 10, CallbackData: "step:jump"}))
	assert.Error(t, cb.Handle(ctx, &Message{ChatID: 10, UserID: 10, CallbackData: "garbage"}))
}

func TestRegistrationPresentsFirstStep(t *testing.T) {
	h := newHarness()
	h.onboarding.turn = &entity.Turn{Next: &entity.Prompt{Step: &entity.Step{Order: 1, Title: "Добро пожаловать"}, Expect: entity.ExpectAcknowledge}}
	handler := NewRegistrationHandler(h.api, h.onboarding, keyboard.NewBuilder(), zap.NewNop())

	require.NoError(t, handler.Handle(context.Background(), &Message{ChatID: 10, UserID: 10, Username: "anna", Text: "  Анна Петрова "}))
	assert.Equal(t, "Анна Петрова", h.onboarding.registered)

	texts := h.api.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, fmt.Sprintf(render.MsgRegistered, "Анна Петрова"), texts[0])
	assert.Contains(t, texts[1], "Шаг 1: Добро пожаловать")
}

func TestStepHandlerSubmitsText(t *testing.T) {
	h := newHarness()
	h.onboarding.turn = &entity.Turn{}
	h.onboarding.turn.Add(entity.Notice{Kind: entity.NoticeAnswerSaved})
	handler := NewStepHandler(h.api, h.onboarding, keyboard.NewBuilder(), zap.NewNop())

	require.NoError(t, handler.Handle(context.Background(), chat("Рекрутинг это поиск людей")))
	require.Len(t, h.onboarding.replies, 1)
	assert.Equal(t, "Рекрутинг это поиск людей", h.onboarding.replies[0].Text)
	assert.Equal(t, []string{"Ответ сохранён."}, h.api.texts())
}

func TestIsSlowTurn(t *testing.T) {
	ctx := context.Background()
	assert.True(t, isSlowTurn(ctx, &Message{Document: &tgbotapi.Document{FileID: "f"}}))
	assert.False(t, isSlowTurn(ctx, chat("hi")))

	evaluation := state.ContextWithState(ctx, &entity.SessionState{
		Phase: entity.PhaseAwaitingStep,
		Step:  &entity.ActiveStep{StepType: entity.StepTypeEvaluation},
	})
	assert.True(t, isSlowTurn(evaluation, chat("ok")))

	collecting := state.ContextWithState(ctx, &entity.SessionState{
		Phase: entity.PhaseCollecting,
		Step:  &entity.ActiveStep{StepType: entity.StepTypeTextInput},
	})
	assert.True(t, isSlowTurn(collecting, chat("ok")))
}

func TestGradingHandler(t *testing.T) {
	h := newHarness()
	score := 4
	h.review.details = &entity.SubmissionDetails{
		Submission: &entity.Submission{ID: "s-1", Status: entity.SubmissionStatusApproved, ExpertScore: &score},
	}
	handler := NewGradingHandler(h.api, h.review, keyboard.NewBuilder(), zap.NewNop())

	require.NoError(t, handler.Handle(context.Background(), chat("4 Хорошо")))
	assert.Equal(t, fmt.Sprintf(render.MsgGraded, 4, render.StatusLabel(entity.SubmissionStatusApproved)), h.api.texts()[0])

	h.review.gradeErr = fmt.Errorf("%w: 9", entity.ErrInvalidScore)
	require.NoError(t, handler.Handle(context.Background(), chat("9 Отлично")))
	assert.Equal(t, render.ErrInvalidGrade, h.api.texts()[1])
}

func TestMessageReply(t *testing.T) {
	msg := &Message{Text: "карта", Document: &tgbotapi.Document{FileID: "f-1", FileName: "map.xlsx", FileSize: 2048}}
	reply := msg.Reply()
	require.NotNil(t, reply.Document)
	assert.Equal(t, "map.xlsx", reply.Document.FileName)
	assert.Equal(t, int64(2048), reply.Document.Size)
	assert.Equal(t, "карта", reply.Text)
}

func TestClassifyHandlerError(t *testing.T) {
	tests := []struct {
		err      error
		severity ErrorSeverity
		message  string
	}{
		{fmt.Errorf("grade: %w", entity.ErrMissingField), SeverityWarning, render.ErrInvalidGrade},
		{fmt.Errorf("open: %w", entity.ErrForbidden), SeverityWarning, render.ErrForbidden},
		{fmt.Errorf("next step: %w", entity.ErrEmptyCatalog), SeverityCritical, render.ErrGeneric},
		{fmt.Errorf("score: %w", context.DeadlineExceeded), SeverityError, render.ErrTimeout},
		{errors.New("insert: duplicate key"), SeverityError, render.ErrGeneric},
	}
	for _, tt := range tests {
		got := classifyHandlerError(tt.err)
		assert.Equal(t, tt.severity, got.Severity, tt.err.Error())
		assert.Equal(t, tt.message, got.UserMessage, tt.err.Error())
	}
}
