package verification

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	POST(path string, body any) error
	Save(name, value string)
	Saved(name string) (string, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers resident and transition step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &verificationSteps{tc: tc}

	ctx.Step(`^I register a new resident as "([^"]*)"$`, steps.registerResident)
	ctx.Step(`^I register resident "([^"]*)" again$`, steps.registerAgain)
	ctx.Step(`^I move resident "([^"]*)" to "([^"]*)"$`, steps.transition)
	ctx.Step(`^I move resident "([^"]*)" to "([^"]*)" with reason "([^"]*)"$`, steps.transitionWithReason)
	ctx.Step(`^I move resident "([^"]*)" to "([^"]*)" expecting version (\d+)$`, steps.transitionExpectingVersion)
	ctx.Step(`^I reopen resident "([^"]*)" with reason "([^"]*)"$`, steps.reopen)
	ctx.Step(`^I request resident "([^"]*)"$`, steps.getResident)
	ctx.Step(`^I request the audit history of resident "([^"]*)"$`, steps.auditHistory)
	ctx.Step(`^resident "([^"]*)" has been moved through "([^"]*)"$`, steps.moveThrough)
}

type verificationSteps struct {
	tc TestContext
}

func (s *verificationSteps) residentPath(name, suffix string) (string, error) {
	residentID, err := s.tc.Saved(name)
	if err != nil {
		return "", err
	}
	return "/residents/" + residentID + suffix, nil
}

func (s *verificationSteps) registerResident(ctx context.Context, name string) error {
	residentID := uuid.NewString()
	s.tc.Save(name, residentID)
	return s.tc.POST("/residents", map[string]any{"resident_id": residentID})
}

func (s *verificationSteps) registerAgain(ctx context.Context, name string) error {
	residentID, err := s.tc.Saved(name)
	if err != nil {
		return err
	}
	return s.tc.POST("/residents", map[string]any{"resident_id": residentID})
}

func (s *verificationSteps) transition(ctx context.Context, name, target string) error {
	return s.postTransition(name, map[string]any{"target_status": target})
}

func (s *verificationSteps) transitionWithReason(ctx context.Context, name, target, reason string) error {
	return s.postTransition(name, map[string]any{"target_status": target, "reason": reason})
}

func (s *verificationSteps) transitionExpectingVersion(ctx context.Context, name, target string, version int) error {
	return s.postTransition(name, map[string]any{"target_status": target, "expected_version": version})
}

func (s *verificationSteps) postTransition(name string, body map[string]any) error {
	path, err := s.residentPath(name, "/transitions")
	if err != nil {
		return err
	}
	return s.tc.POST(path, body)
}

func (s *verificationSteps) reopen(ctx context.Context, name, reason string) error {
	path, err := s.residentPath(name, "/reopen")
	if err != nil {
		return err
	}
	return s.tc.POST(path, map[string]any{"reason": reason})
}

func (s *verificationSteps) getResident(ctx context.Context, name string) error {
	path, err := s.residentPath(name, "")
	if err != nil {
		return err
	}
	return s.tc.GET(path)
}

func (s *verificationSteps) auditHistory(ctx context.Context, name string) error {
	path, err := s.residentPath(name, "/audit")
	if err != nil {
		return err
	}
	return s.tc.GET(path)
}

// moveThrough applies each status in a path like
// "details_updated > semi_verified > verified" and stops at the first
// step that is not accepted.
func (s *verificationSteps) moveThrough(ctx context.Context, name, path string) error {
	for _, target := range splitPath(path) {
		if err := s.transition(ctx, name, target); err != nil {
			return err
		}
		if status := s.tc.GetLastResponseStatus(); status != 200 {
			return fmt.Errorf("move to %s returned %d: %s", target, status, string(s.tc.GetLastResponseBody()))
		}
	}
	return nil
}

func splitPath(path string) []string {
	var out []string
	for _, part := range strings.Split(path, ">") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
