package common

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	POST(path string, body any) error
	ActAs(actorID, role string) error
	ClearActor()
	Save(name, value string)
	Saved(name string) (string, error)
	GetResponseField(field string) (any, error)
	ResponseContains(text string) bool
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers common step definitions used across features
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	// Background steps
	ctx.Step(`^the verification service is running$`, steps.serviceIsRunning)

	// Actor steps
	ctx.Step(`^I am the official "([^"]*)"$`, steps.actAsOfficial)
	ctx.Step(`^I am the admin "([^"]*)"$`, steps.actAsAdmin)
	ctx.Step(`^I am the resident "([^"]*)"$`, steps.actAsSavedResident)
	ctx.Step(`^I am not authenticated$`, steps.notAuthenticated)

	// Generic request steps
	ctx.Step(`^I GET "([^"]*)"$`, steps.get)

	// Response assertion steps
	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, steps.responseShouldContain)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.responseFieldShouldEqual)
	ctx.Step(`^the response field "([^"]*)" should be (true|false)$`, steps.responseFieldShouldBeBool)
	ctx.Step(`^the response field "([^"]*)" should have (\d+) items?$`, steps.responseFieldShouldHaveItems)
	ctx.Step(`^I save the response field "([^"]*)" as "([^"]*)"$`, steps.saveResponseField)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) serviceIsRunning(ctx context.Context) error {
	if err := s.tc.GET("/health/ready"); err != nil {
		return err
	}
	return s.responseStatusShouldBe(ctx, 200)
}

func (s *commonSteps) actAsOfficial(ctx context.Context, name string) error {
	return s.tc.ActAs(name, "official")
}

func (s *commonSteps) actAsAdmin(ctx context.Context, name string) error {
	return s.tc.ActAs(name, "admin")
}

// actAsSavedResident signs in as the resident registered under name, or as a
// fresh resident id when nothing was registered under it.
func (s *commonSteps) actAsSavedResident(ctx context.Context, name string) error {
	residentID, err := s.tc.Saved(name)
	if err != nil {
		residentID = uuid.NewString()
		s.tc.Save(name, residentID)
	}
	return s.tc.ActAs(residentID, "resident")
}

func (s *commonSteps) notAuthenticated(ctx context.Context) error {
	s.tc.ClearActor()
	return nil
}

func (s *commonSteps) get(ctx context.Context, path string) error {
	return s.tc.GET(path)
}

func (s *commonSteps) responseStatusShouldBe(ctx context.Context, expectedStatus int) error {
	actualStatus := s.tc.GetLastResponseStatus()
	if actualStatus != expectedStatus {
		return fmt.Errorf("expected status %d but got %d\nResponse: %s", expectedStatus, actualStatus, string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *commonSteps) responseShouldContain(ctx context.Context, text string) error {
	if !s.tc.ResponseContains(text) {
		return fmt.Errorf("response does not contain: %s\nResponse: %s", text, string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *commonSteps) responseFieldShouldEqual(ctx context.Context, field, expected string) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprint(value) != expected {
		return fmt.Errorf("field %s: expected %s but got %v", field, expected, value)
	}
	return nil
}

func (s *commonSteps) responseFieldShouldBeBool(ctx context.Context, field, expected string) error {
	return s.responseFieldShouldEqual(ctx, field, expected)
}

func (s *commonSteps) responseFieldShouldHaveItems(ctx context.Context, field string, count int) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	items, ok := value.([]any)
	if !ok {
		return fmt.Errorf("field %s is not a list: %v", field, value)
	}
	if len(items) != count {
		return fmt.Errorf("field %s: expected %d items but got %d", field, count, len(items))
	}
	return nil
}

func (s *commonSteps) saveResponseField(ctx context.Context, field, name string) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	s.tc.Save(name, fmt.Sprint(value))
	return nil
}
