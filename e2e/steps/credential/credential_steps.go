package credential

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	POST(path string, body any) error
	Save(name, value string)
	Saved(name string) (string, error)
	GetResponseField(field string) (any, error)
}

// RegisterSteps registers credential step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &credentialSteps{tc: tc}

	ctx.Step(`^I request the active credential of resident "([^"]*)"$`, steps.getActive)
	ctx.Step(`^I re-issue the credential of resident "([^"]*)"$`, steps.reissue)
	ctx.Step(`^I save the credential as "([^"]*)"$`, steps.saveCredential)
	ctx.Step(`^I save the transition credential as "([^"]*)"$`, steps.saveTransitionCredential)
	ctx.Step(`^I validate credential "([^"]*)"$`, steps.validate)
	ctx.Step(`^I validate credential "([^"]*)" for resident "([^"]*)"$`, steps.validateForResident)
	ctx.Step(`^I validate the payload "([^"]*)"$`, steps.validateRaw)
	ctx.Step(`^I record a scan of credential "([^"]*)" at "([^"]*)"$`, steps.recordScan)
	ctx.Step(`^I request credential "([^"]*)"$`, steps.getCredential)
}

type credentialSteps struct {
	tc TestContext
}

func (s *credentialSteps) residentID(name string) (string, error) {
	return s.tc.Saved(name)
}

func (s *credentialSteps) getActive(ctx context.Context, name string) error {
	residentID, err := s.residentID(name)
	if err != nil {
		return err
	}
	return s.tc.GET("/residents/" + residentID + "/credential")
}

func (s *credentialSteps) reissue(ctx context.Context, name string) error {
	residentID, err := s.residentID(name)
	if err != nil {
		return err
	}
	return s.tc.POST("/residents/"+residentID+"/credential", map[string]any{})
}

// saveCredential remembers the id and payload of the credential in the last
// response under name.id and name.payload.
func (s *credentialSteps) saveCredential(ctx context.Context, name string) error {
	return s.saveFrom("", name)
}

func (s *credentialSteps) saveTransitionCredential(ctx context.Context, name string) error {
	return s.saveFrom("credential.", name)
}

func (s *credentialSteps) saveFrom(prefix, name string) error {
	credentialID, err := s.tc.GetResponseField(prefix + "credential_id")
	if err != nil {
		return err
	}
	payload, err := s.tc.GetResponseField(prefix + "payload")
	if err != nil {
		return err
	}
	s.tc.Save(name+".id", fmt.Sprint(credentialID))
	s.tc.Save(name+".payload", fmt.Sprint(payload))
	return nil
}

func (s *credentialSteps) validate(ctx context.Context, name string) error {
	payload, err := s.tc.Saved(name + ".payload")
	if err != nil {
		return err
	}
	return s.tc.POST("/credentials/validate", map[string]any{"payload": payload})
}

func (s *credentialSteps) validateForResident(ctx context.Context, name, resident string) error {
	payload, err := s.tc.Saved(name + ".payload")
	if err != nil {
		return err
	}
	residentID, err := s.residentID(resident)
	if err != nil {
		return err
	}
	return s.tc.POST("/credentials/validate", map[string]any{
		"payload":              payload,
		"expected_resident_id": residentID,
	})
}

func (s *credentialSteps) validateRaw(ctx context.Context, payload string) error {
	return s.tc.POST("/credentials/validate", map[string]any{"payload": payload})
}

func (s *credentialSteps) recordScan(ctx context.Context, name, location string) error {
	credentialID, err := s.tc.Saved(name + ".id")
	if err != nil {
		return err
	}
	return s.tc.POST("/credentials/"+credentialID+"/scans", map[string]any{"location": location})
}

func (s *credentialSteps) getCredential(ctx context.Context, name string) error {
	credentialID, err := s.tc.Saved(name + ".id")
	if err != nil {
		return err
	}
	return s.tc.GET("/credentials/" + credentialID)
}
