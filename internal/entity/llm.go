package entity

// AnswerScore is a live 1-5 assessment of a free-text answer.
// Score is nil when no score could be extracted or the evaluator failed.
type AnswerScore struct {
	Score   *float64 `json:"score,omitempty"`
	Comment string   `json:"comment"`
}

// StructuredEvaluation is the evaluator's verdict on collected structured data.
type StructuredEvaluation struct {
	Score          float64            `json:"score"`
	Feedback       string             `json:"feedback"`
	CriteriaScores map[string]float64 `json:"criteria_scores,omitempty"`
}

// StructureCheck is the outcome of the structural spreadsheet validation.
type StructureCheck struct {
	Valid         bool     `json:"valid"`
	Errors        []string `json:"errors,omitempty"`
	TotalRows     int      `json:"total_rows"`
	EmptyContacts int      `json:"empty_contacts"`
}

// SemanticCheck is the outcome of the LLM logical-consistency validation.
type SemanticCheck struct {
	Valid       bool     `json:"valid"`
	Issues      []string `json:"issues,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// SheetColumn holds the non-empty values of one spreadsheet column.
type SheetColumn struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type Sheet struct {
	Name    string        `json:"name"`
	Columns []SheetColumn `json:"columns"`
}

// SheetDump is an ordered dump of every sheet of a workbook.
type SheetDump []Sheet

// ReportScore is a 1-10 assessment used only in the final report.
type ReportScore struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
	Degraded bool    `json:"degraded,omitempty"`
}

// LLMRequest and LLMResponse are the wire format of the completion gateway.
type LLMRequest struct {
	Prompt      string  `json:"prompt"`
	Model       string  `json:"model,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
}

type LLMResponse struct {
	Text string `json:"text"`
}
