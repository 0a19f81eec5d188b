package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// DefaultOwner is used for suites that do not name an owner
const DefaultOwner = "integration"

// Runner executes integration tests against a running gamemaster-agent API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
	KeepStories       bool // leave stories in storage for inspection
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 60 * time.Second},
		Timeout:           ChatTimeout,
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}
	if suite.Name == "" {
		suite.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}
		jobs = append(jobs, subJobs...)
	}
	return jobs, nil
}

// RunSuite creates a story, waits for character creation and then plays
// each step in order
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job:     TestJob{Name: suite.Name, Suite: suite},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}
	if suite.Owner == "" {
		suite.Owner = DefaultOwner
	}

	storyID, err := CreateStory(ctx, r.Client, r.BaseURL, suite)
	if err != nil {
		result.Error = fmt.Errorf("failed to create story: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.StoryID = storyID
	if !r.KeepStories {
		defer func() {
			if err := DeleteStory(context.WithoutCancel(ctx), r.Client, r.BaseURL, storyID); err != nil {
				r.Logger("    failed to delete story %s: %v", storyID, err)
			}
		}()
	}

	rec, err := PollForStory(ctx, r.Client, r.BaseURL, storyID, CreateTimeout, CharacterCreated)
	if err != nil {
		result.Error = fmt.Errorf("character creation did not finish: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	r.Logger("    Character created: %s", rec.Character.Name)
	if err := CheckExpectations(suite.Created, rec, LastResponse(rec)); err != nil {
		result.Error = fmt.Errorf("creation expectation failed: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.runStep(ctx, storyID, step)
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}
		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

func (r *Runner) runStep(ctx context.Context, storyID uuid.UUID, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}
	fail := func(err error) TestResult {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	before, err := GetStory(ctx, r.Client, r.BaseURL, storyID)
	if err != nil {
		return fail(fmt.Errorf("failed to get story before chat: %w", err))
	}

	if _, err := PostChat(ctx, r.Client, r.BaseURL, storyID, step.UserPrompt); err != nil {
		return fail(fmt.Errorf("failed to post chat: %w", err))
	}

	after, err := PollForStory(ctx, r.Client, r.BaseURL, storyID, r.Timeout, UpdatedSince(before))
	if err != nil {
		return fail(fmt.Errorf("failed to poll for chat response: %w", err))
	}
	result.ResponseText = LastResponse(after)

	if err := CheckExpectations(step.Expectations, after, result.ResponseText); err != nil {
		return fail(fmt.Errorf("expectation failed: %w", err))
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}
