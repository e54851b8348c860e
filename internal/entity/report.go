package entity

import "time"

// ReportEntry is the latest submission for one step together with its report score.
type ReportEntry struct {
	Step       *Step
	Submission *Submission
	Score      *ReportScore
}

type DayReport struct {
	Day       int
	Entries   []ReportEntry
	Average   *float64
	Completed int
	Total     int
}

type CompetencyReport struct {
	Name    string
	Average float64
	Scored  int
}

// Report is the aggregated onboarding result of one trainee.
type Report struct {
	User           *User
	GeneratedAt    time.Time
	Days           []DayReport
	Competencies   []CompetencyReport
	Overall        *float64
	CompletedSteps int
	TotalSteps     int
	ScoredAnswers  int
}

// BestDay returns the day with the highest average, or nil when no day was scored.
func (r *Report) BestDay() *DayReport {
	var best *DayReport
	for i := range r.Days {
		d := &r.Days[i]
		if d.Average == nil {
			continue
		}
		if best == nil || *d.Average > *best.Average {
			best = d
		}
	}
	return best
}

// WeakestDay returns the lowest scored day when its average is below threshold.
func (r *Report) WeakestDay(threshold float64) *DayReport {
	var worst *DayReport
	for i := range r.Days {
		d := &r.Days[i]
		if d.Average == nil {
			continue
		}
		if worst == nil || *d.Average < *worst.Average {
			worst = d
		}
	}
	if worst == nil || *worst.Average >= threshold {
		return nil
	}
	return worst
}

// ReportFile is a rendered report ready for delivery.
type ReportFile struct {
	FileName string
	Data     []byte
	Caption  string
}

// Progress is a snapshot of a trainee's position in the curriculum.
type Progress struct {
	User             *User         `json:"user"`
	TotalSteps       int           `json:"total_steps"`
	AttemptedSteps   int           `json:"attempted_steps"`
	NextStep         *Step         `json:"next_step,omitempty"`
	Submissions      []*Submission `json:"submissions"`
	AverageLiveScore *float64      `json:"average_live_score,omitempty"`
	TooFast          int           `json:"too_fast"`
	TooSlow          int           `json:"too_slow"`
}

func (p *Progress) Completed() bool {
	return p.TotalSteps > 0 && p.NextStep == nil
}
