package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	progress *entity.Progress
	report   *entity.ReportFile
	err      error
	closed   bool
	gotID    int64
}

func (f *fakeBackend) Migrate(context.Context) (uint, error) { return 3, f.err }

func (f *fakeBackend) SeedCatalog(context.Context) (int, error) { return 12, f.err }

func (f *fakeBackend) Progress(_ context.Context, telegramID int64) (*entity.Progress, error) {
	f.gotID = telegramID
	return f.progress, f.err
}

func (f *fakeBackend) Report(_ context.Context, telegramID int64) (*entity.ReportFile, error) {
	f.gotID = telegramID
	return f.report, f.err
}

func (f *fakeBackend) Close() { f.closed = true }

func run(t *testing.T, b *fakeBackend, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCommand(func(context.Context, string) (backend, error) {
		return b, nil
	}, &out, &errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func sampleProgress() *entity.Progress {
	score := 4.0
	return &entity.Progress{
		User:           &entity.User{TelegramID: 42, FullName: "Иванова Анна"},
		TotalSteps:     5,
		AttemptedSteps: 2,
		NextStep:       &entity.Step{Order: 3, Title: "Карта поиска", Type: entity.StepTypeFileUpload, EstimatedDuration: 60},
		Submissions: []*entity.Submission{{
			ID:              "sub-1",
			StepID:          1,
			Status:          entity.SubmissionStatusChecked,
			EvaluationScore: &score,
			CreatedAt:       time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC),
		}},
		AverageLiveScore: &score,
		TooFast:          1,
	}
}

func TestMigrateAndSeed(t *testing.T) {
	b := &fakeBackend{}
	out, err := run(t, b, "migrate")
	require.NoError(t, err)
	assert.Equal(t, "schema at version 3\n", out)
	assert.True(t, b.closed)

	b = &fakeBackend{}
	out, err = run(t, b, "seed", "--env", "prod")
	require.NoError(t, err)
	assert.Equal(t, "seeded 12 steps\n", out)
}

func TestBackendErrorIsReturned(t *testing.T) {
	b := &fakeBackend{err: errors.New("connection refused")}
	_, err := run(t, b, "migrate")
	assert.EqualError(t, err, "connection refused")
	assert.True(t, b.closed)
}

func TestOpenErrorIsReturned(t *testing.T) {
	cmd := newRootCommand(func(context.Context, string) (backend, error) {
		return nil, errors.New("no config")
	}, &bytes.Buffer{}, &bytes.Buffer{})
	cmd.SetArgs([]string{"seed"})
	assert.EqualError(t, cmd.ExecuteContext(context.Background()), "no config")
}

func TestNextRequiresTelegramID(t *testing.T) {
	_, err := run(t, &fakeBackend{}, "next")
	assert.ErrorIs(t, err, entity.ErrMissingField)
}

func TestNextPrintsProgress(t *testing.T) {
	b := &fakeBackend{progress: sampleProgress()}
	out, err := run(t, b, "next", "--telegram-id", "42")
	require.NoError(t, err)

	assert.Equal(t, int64(42), b.gotID)
	assert.Contains(t, out, "Иванова Анна (42)")
	assert.Contains(t, out, "attempted: 2/5")
	assert.Contains(t, out, "average:   4.0")
	assert.Contains(t, out, "1 too fast, 0 too slow")
	assert.Contains(t, out, "#3 Карта поиска [file_upload, ~60 min]")
	assert.Contains(t, out, "sub-1")
	assert.Contains(t, out, "2026-03-02 10:30")
}

func TestNextCompleted(t *testing.T) {
	p := sampleProgress()
	p.NextStep = nil
	p.Submissions = nil
	out, err := run(t, &fakeBackend{progress: p}, "next", "--telegram-id", "42")
	require.NoError(t, err)
	assert.Contains(t, out, "onboarding completed")
	assert.NotContains(t, out, "STATUS")
}

func TestNextJSON(t *testing.T) {
	out, err := run(t, &fakeBackend{progress: sampleProgress()}, "next", "--telegram-id", "42", "--json")
	require.NoError(t, err)

	var decoded entity.Progress
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 5, decoded.TotalSteps)
	require.NotNil(t, decoded.NextStep)
	assert.Equal(t, 3, decoded.NextStep.Order)
}

func TestReportWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	b := &fakeBackend{report: &entity.ReportFile{
		FileName: "onboarding_report.xlsx",
		Data:     []byte("PK\x03\x04"),
		Caption:  "Средний балл: 7.5",
	}}

	out, err := run(t, b, "report", "--telegram-id", "42", "--out", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("PK\x03\x04"), data)
	assert.Contains(t, out, "report written to "+path+" (4 bytes)")
	assert.Contains(t, out, "Средний балл: 7.5")
}

func TestReportWithoutSubmissions(t *testing.T) {
	b := &fakeBackend{err: entity.ErrNoSubmissions}
	_, err := run(t, b, "report", "--telegram-id", "42")
	assert.ErrorIs(t, err, entity.ErrNoSubmissions)
}
