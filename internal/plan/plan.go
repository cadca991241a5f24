package plan

import (
	"time"

	"github.com/mihir1816/teaching-content-generator/pkg/errs"
)

// Status tracks a plan through the approval loop. A plan is born under
// review, cycles through regeneration on feedback, and only an approved
// plan may feed the downstream pipeline.
type Status string

const (
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
)

// Levels and styles accepted by the planner. Style also selects the
// evidence budget during retrieval.
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"

	StyleConcise  = "concise"
	StyleDetailed = "detailed"
	StyleExamPrep = "exam-prep"
)

func ValidLevel(level string) bool {
	switch level {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

func ValidStyle(style string) bool {
	switch style {
	case StyleConcise, StyleDetailed, StyleExamPrep:
		return true
	}
	return false
}

type Subtopic struct {
	Title             string   `json:"title"`
	LearningOutcomes  []string `json:"learning_outcomes"`
	SuggestedExamples []string `json:"suggested_examples"`
}

// Plan is a full content plan. Plans never mutate in place: feedback
// produces a brand-new version and the previous one is discarded.
type Plan struct {
	Version      string     `json:"version"`
	Topic        string     `json:"topic"`
	Level        string     `json:"level"`
	Style        string     `json:"style"`
	Language     string     `json:"language"`
	Objectives   []string   `json:"objectives"`
	Subtopics    []Subtopic `json:"subtopics"`
	PlannerNotes string     `json:"planner_notes,omitempty"`
	Status       Status     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Approve moves the plan to its terminal state.
func (p *Plan) Approve() error {
	if p.Status != StatusUnderReview {
		return errs.Wrapf(errs.ErrPlanState, "cannot approve plan in state %q", p.Status)
	}
	p.Status = StatusApproved
	return nil
}

func (p *Plan) Approved() bool {
	return p.Status == StatusApproved
}
