package entity

import "encoding/json"

// Signal is a button press or an equivalent text command.
type Signal string

const (
	SignalNone     Signal = ""
	SignalDone     Signal = "done"
	SignalEvaluate Signal = "evaluate"
	SignalSkip     Signal = "skip"
)

// Document is an attachment announced by the chat transport; content is fetched on demand.
type Document struct {
	FileID   string
	FileName string
	Size     int64
}

// Reply is one trainee message normalized by the chat layer.
// StepID is set for button presses and names the step the button was shown for.
type Reply struct {
	Text     string
	Signal   Signal
	StepID   int64
	Document *Document
}

type NoticeKind string

const (
	NoticeAcknowledgeRequired   NoticeKind = "acknowledge_required"
	NoticeStaleButton           NoticeKind = "stale_button"
	NoticeAlreadyRecorded       NoticeKind = "already_recorded"
	NoticeTextRequired          NoticeKind = "text_required"
	NoticeDocumentRequired      NoticeKind = "document_required"
	NoticeExcelRequired         NoticeKind = "excel_required"
	NoticeFileTooLarge          NoticeKind = "file_too_large"
	NoticeFileUnreadable        NoticeKind = "file_unreadable"
	NoticeFileAccepted          NoticeKind = "file_accepted"
	NoticeFileNeedsReview       NoticeKind = "file_needs_review"
	NoticeAnswerSaved           NoticeKind = "answer_saved"
	NoticeEvaluationSkipped     NoticeKind = "evaluation_skipped"
	NoticeEvaluated             NoticeKind = "evaluated"
	NoticeEvaluationUnavailable NoticeKind = "evaluation_unavailable"
	NoticeTooFast               NoticeKind = "too_fast"
	NoticeTooSlow               NoticeKind = "too_slow"
	NoticeVariantRecorded       NoticeKind = "variant_recorded"
	NoticeCollectionSummary     NoticeKind = "collection_summary"
	NoticeStructuredResult      NoticeKind = "structured_result"
	NoticeSessionExpired        NoticeKind = "session_expired"
	NoticeOnboardingComplete    NoticeKind = "onboarding_complete"
	NoticeReportUnavailable     NoticeKind = "report_unavailable"
)

// NamedCount is a label with a number, used in collection summaries.
type NamedCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Notice is a typed outcome of a turn. The chat layer decides how to phrase it.
type Notice struct {
	Kind        NoticeKind       `json:"kind"`
	Status      SubmissionStatus `json:"status,omitempty"`
	Score       *float64         `json:"score,omitempty"`
	Elapsed     float64          `json:"elapsed,omitempty"`
	Estimate    int              `json:"estimate,omitempty"`
	Issues      []string         `json:"issues,omitempty"`
	Suggestions []string         `json:"suggestions,omitempty"`
	Counts      []NamedCount     `json:"counts,omitempty"`
	Text        string           `json:"text,omitempty"`
	Data        json.RawMessage  `json:"data,omitempty"`
}

// Prompt is a rendered step. Lead is the first collection question when the step collects structured data.
type Prompt struct {
	Step   *Step       `json:"step"`
	Expect Expectation `json:"expect"`
	Lead   string      `json:"lead,omitempty"`
}

// Turn is everything the engine wants the trainee to see after one reply.
type Turn struct {
	Notices   []Notice    `json:"notices,omitempty"`
	Ask       string      `json:"ask,omitempty"`
	Next      *Prompt     `json:"next,omitempty"`
	Completed bool        `json:"completed"`
	Report    *ReportFile `json:"-"`
}

func (t *Turn) Add(n Notice) {
	t.Notices = append(t.Notices, n)
}

// Accepted reports whether the turn moved on from the current step.
func (t *Turn) Accepted() bool {
	return t.Next != nil || t.Completed
}
