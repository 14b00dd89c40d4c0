package e2e

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"

	"github.com/cucumber/godog"
	"github.com/cucumber/godog/colors"

	"barangay/e2e/steps/common"
	"barangay/e2e/steps/credential"
	"barangay/e2e/steps/verification"
)

var opts = godog.Options{
	Output: colors.Colored(os.Stdout),
	Format: "pretty",
	Paths:  []string{"features"},
}

var (
	baseURL     string
	tokenSecret string
)

func init() {
	godog.BindCommandLineFlags("godog.", &opts)
}

// TestMain runs against BASE_URL when set, otherwise against an in-process
// server on in-memory stores.
func TestMain(m *testing.M) {
	flag.Parse()

	if url := os.Getenv("BASE_URL"); url != "" {
		baseURL = url
		tokenSecret = envOr("ACTOR_TOKEN_SECRET", devActorSecret)
		os.Exit(m.Run())
	}

	srv := startInProcessServer()
	baseURL = srv.URL
	tokenSecret = inProcessSecret
	code := m.Run()
	srv.Close()
	os.Exit(code)
}

func TestFeatures(t *testing.T) {
	opts.TestingT = t

	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options:             &opts,
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

func InitializeScenario(sc *godog.ScenarioContext) {
	tc := NewTestContext(baseURL, tokenSecret)

	sc.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		*tc = *NewTestContext(baseURL, tokenSecret)
		return ctx, nil
	})

	sc.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if err != nil {
			fmt.Printf("Scenario failed: %s\nLast Response: %s\n", sc.Name, string(tc.LastResponseBody))
		}
		return ctx, nil
	})

	common.RegisterSteps(sc, tc)
	verification.RegisterSteps(sc, tc)
	credential.RegisterSteps(sc, tc)
}
