package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// ErrInvalidPlan is returned for malformed plan documents or missing required fields.
var ErrInvalidPlan = errors.New("invalid workout plan")

// BlockType identifies what a plan block contains.
type BlockType string

const (
	BlockWarmup         BlockType = "warmup"
	BlockMain           BlockType = "main"
	BlockCooldown       BlockType = "cooldown"
	BlockConfidenceTask BlockType = "confidence_task"
)

// IsExerciseBlock reports whether the block runs the exercise pipeline.
func (b BlockType) IsExerciseBlock() bool {
	return b == BlockWarmup || b == BlockMain || b == BlockCooldown
}

// Plan is the structured workout plan produced upstream.
type Plan struct {
	Weeks []PlanWeek `json:"weeks"`
}

type PlanWeek struct {
	WeekNumber int       `json:"week_number"`
	Days       []PlanDay `json:"days"`
}

type PlanDay struct {
	DayNumber int         `json:"day_number"`
	IsRestDay bool        `json:"is_rest_day"`
	Blocks    []PlanBlock `json:"blocks"`
}

type PlanBlock struct {
	Type        BlockType      `json:"type"`
	Exercises   []PlanExercise `json:"exercises,omitempty"`
	Text        string         `json:"text,omitempty"`
	Description string         `json:"description,omitempty"`
}

// PlanExercise is one exercise slot. Slug is read from "exercise_slug",
// falling back to the legacy "slug" field.
type PlanExercise struct {
	Slug string `json:"exercise_slug"`
	Name string `json:"name,omitempty"`
	Sets int    `json:"sets,omitempty"`
	Reps string `json:"reps,omitempty"`
}

func (e *PlanExercise) UnmarshalJSON(data []byte) error {
	var raw struct {
		ExerciseSlug string          `json:"exercise_slug"`
		Slug         string          `json:"slug"`
		Name         string          `json:"name"`
		Sets         json.RawMessage `json:"sets"`
		Reps         json.RawMessage `json:"reps"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Slug = strings.TrimSpace(raw.ExerciseSlug)
	if e.Slug == "" {
		e.Slug = strings.TrimSpace(raw.Slug)
	}
	e.Name = raw.Name

	sets, err := flexString(raw.Sets)
	if err != nil {
		return fmt.Errorf("sets: %w", err)
	}
	if sets != "" {
		n, err := strconv.Atoi(sets)
		if err != nil {
			return fmt.Errorf("sets: %q is not a number", sets)
		}
		e.Sets = n
	}
	if e.Reps, err = flexString(raw.Reps); err != nil {
		return fmt.Errorf("reps: %w", err)
	}
	return nil
}

// flexString accepts a JSON string or number and returns its text form.
// LLM-produced plans use both ("reps": 12 and "reps": "8-12").
func flexString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("expected string or number, got %s", string(raw))
	}
	return n.String(), nil
}

// ParsePlan decodes and validates a plan document, numbering weeks and days
// by position when the document omits explicit numbers.
func ParsePlan(data []byte) (*Plan, error) {
	var raw struct {
		Weeks *[]struct {
			WeekNumber int `json:"week_number"`
			Days       *[]struct {
				DayNumber int          `json:"day_number"`
				IsRestDay bool         `json:"is_rest_day"`
				Blocks    *[]PlanBlock `json:"blocks"`
			} `json:"days"`
		} `json:"weeks"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	if raw.Weeks == nil || len(*raw.Weeks) == 0 {
		return nil, fmt.Errorf("%w: plan has no weeks", ErrInvalidPlan)
	}

	plan := &Plan{Weeks: make([]PlanWeek, 0, len(*raw.Weeks))}
	for wi, w := range *raw.Weeks {
		weekNumber := w.WeekNumber
		if weekNumber <= 0 {
			weekNumber = wi + 1
		}
		if w.Days == nil {
			return nil, fmt.Errorf("%w: week %d has no days field", ErrInvalidPlan, weekNumber)
		}
		week := PlanWeek{WeekNumber: weekNumber, Days: make([]PlanDay, 0, len(*w.Days))}
		for di, d := range *w.Days {
			dayNumber := d.DayNumber
			if dayNumber <= 0 {
				dayNumber = di + 1
			}
			if d.Blocks == nil && !d.IsRestDay {
				return nil, fmt.Errorf("%w: week %d day %d has no blocks field", ErrInvalidPlan, weekNumber, dayNumber)
			}
			day := PlanDay{DayNumber: dayNumber, IsRestDay: d.IsRestDay}
			if d.Blocks != nil {
				day.Blocks = *d.Blocks
			}
			for bi, b := range day.Blocks {
				if strings.TrimSpace(string(b.Type)) == "" {
					return nil, fmt.Errorf("%w: week %d day %d block %d has no type", ErrInvalidPlan, weekNumber, dayNumber, bi+1)
				}
			}
			week.Days = append(week.Days, day)
		}
		plan.Weeks = append(plan.Weeks, week)
	}
	return plan, nil
}
