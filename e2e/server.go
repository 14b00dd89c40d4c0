package e2e

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	chandler "barangay/internal/credential/handler"
	cmetrics "barangay/internal/credential/metrics"
	cservice "barangay/internal/credential/service"
	cstore "barangay/internal/credential/store"
	jwttoken "barangay/internal/jwt_token"
	"barangay/internal/platform/health"
	httptransport "barangay/internal/transport/http"
	vhandler "barangay/internal/verification/handler"
	vmetrics "barangay/internal/verification/metrics"
	vservice "barangay/internal/verification/service"
	vstore "barangay/internal/verification/store"
	request "barangay/pkg/platform/middleware/request"
	"barangay/pkg/platform/outbox"
	txcontext "barangay/pkg/platform/tx"
)

const (
	tokenIssuer       = "barangay"
	inProcessSecret   = "e2e-actor-token-secret"
	devActorSecret    = "dev-actor-token-secret"
	inProcessTxWindow = 2 * time.Second
)

// startInProcessServer runs the full HTTP stack on in-memory stores.
func startInProcessServer() *httptest.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()

	residents := vstore.NewInMemoryResidentStore()
	events := outbox.NewInMemoryStore()
	tx := txcontext.NewInMemory(inProcessTxWindow)

	credentials := cservice.New(cstore.NewInMemoryStore(), tx, residents, cservice.Config{
		ValidityWindow:   cservice.DefaultValidityWindow,
		RefreshThreshold: cservice.DefaultRefreshThreshold,
	},
		cservice.WithLogger(logger),
		cservice.WithMetrics(cmetrics.New(reg)),
		cservice.WithOutbox(events),
	)
	verification := vservice.New(residents, vstore.NewInMemoryAuditStore(), tx,
		vservice.WithLogger(logger),
		vservice.WithMetrics(vmetrics.New(reg)),
		vservice.WithCredentialIssuer(credentials),
		vservice.WithOutbox(events),
	)

	router := httptransport.NewRouter(httptransport.Config{
		Logger:         logger,
		Tokens:         jwttoken.NewActorTokenAdapter(jwttoken.NewActorTokenService(inProcessSecret, tokenIssuer, time.Hour)),
		Metrics:        request.NewMetrics(reg),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Public:         []httptransport.RouteRegistrar{health.New("memory")},
		Protected: []httptransport.RouteRegistrar{
			vhandler.New(verification, logger),
			chandler.New(credentials, logger),
		},
	})
	return httptest.NewServer(router)
}
