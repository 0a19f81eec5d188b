package runner

import (
	"time"

	"github.com/google/uuid"
)

// TestSuite defines a complete integration test story.
// It either has Steps of its own or sequences other case files through Cases.
type TestSuite struct {
	Name                 string       `json:"name"`
	Owner                string       `json:"owner,omitempty"`
	Title                string       `json:"title,omitempty"`
	WorldDescription     string       `json:"world_description,omitempty"`
	CharacterDescription string       `json:"character_description,omitempty"`
	Created              Expectations `json:"created,omitempty"` // checked once creation completes
	Steps                []TestStep   `json:"steps,omitempty"`
	Cases                []string     `json:"cases,omitempty"`
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep is one player message and what the story should look like after it
type TestStep struct {
	Name         string       `json:"name,omitempty"`
	UserPrompt   string       `json:"user_prompt"`
	Expectations Expectations `json:"expect"`
}

// Expectations defines what to check after a step completes
type Expectations struct {
	// Character sheet
	CharacterName    *string           `json:"character_name,omitempty"`
	MinLevel         *int              `json:"min_level,omitempty"`
	MinExperience    *int              `json:"min_experience,omitempty"`
	Inventory        []string          `json:"inventory,omitempty"`         // item names that must be carried
	InventoryMissing []string          `json:"inventory_missing,omitempty"` // item names that must not be carried
	Equipped         map[string]string `json:"equipped,omitempty"`          // slot -> item name

	// Response analysis, applied to the latest Game Master message
	ResponseContains    []string `json:"response_contains,omitempty"`
	ResponseNotContains []string `json:"response_not_contains,omitempty"`
	ResponseRegex       string   `json:"response_regex,omitempty"`
	ResponseMinLength   *int     `json:"response_min_length,omitempty"`
	ResponseMaxLength   *int     `json:"response_max_length,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName     string
	StepName     string
	Success      bool
	Error        error
	Duration     time.Duration
	ResponseText string
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	StoryID  uuid.UUID
}
