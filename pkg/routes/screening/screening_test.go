package screening

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/pkg/extractor"
	"github.com/Ramsey-B/thistle/pkg/middleware"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/routes"
)

type recordingScanner struct {
	view models.OrderView
}

func (s *recordingScanner) Scan(ctx context.Context, view models.OrderView) (*models.ScanResult, error) {
	s.view = view
	return &models.ScanResult{Risk: models.RiskLevelLow, Matches: []models.MatchResult{}}, nil
}

func post(t *testing.T, scanner Scanner, paths extractor.OrderPaths, body string) *httptest.ResponseRecorder {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	container, err := routes.NewContainer(t.Name(), nil)
	require.NoError(t, err)
	require.NoError(t, ectoinject.RegisterInstance[Scanner](container, scanner))
	require.NoError(t, ectoinject.RegisterInstance[extractor.OrderPaths](container, paths))

	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(middleware.Container(container.GetContainerID()))
	Register(e.Group("/api/v1/screening"), false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/screening/scan", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestScan(t *testing.T) {
	t.Run("decodes the order view", func(t *testing.T) {
		scanner := &recordingScanner{}
		rec := post(t, scanner, extractor.DefaultOrderPaths,
			`{"contact_phone":"13912345678","orderer_name":"张三","detailed_address":"上海市"}`)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.NotNil(t, scanner.view.ContactPhone)
		assert.Equal(t, "13912345678", *scanner.view.ContactPhone)
		require.NotNil(t, scanner.view.OrdererName)
		assert.Equal(t, "张三", *scanner.view.OrdererName)
		assert.Contains(t, rec.Body.String(), `"is_blacklisted":false`)
	})

	t.Run("non-string fields carry no signal", func(t *testing.T) {
		scanner := &recordingScanner{}
		rec := post(t, scanner, extractor.DefaultOrderPaths, `{"contact_phone":13912345678,"orderer_name":["张三"]}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, scanner.view.ContactPhone)
		assert.Nil(t, scanner.view.OrdererName)
	})

	t.Run("custom paths", func(t *testing.T) {
		scanner := &recordingScanner{}
		paths := extractor.OrderPaths{ContactPhone: "buyer.phone", OrdererName: "buyer.name"}
		rec := post(t, scanner, paths, `{"buyer":{"phone":"13912345678","name":"张三"}}`)

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, scanner.view.ContactPhone)
		assert.Equal(t, "13912345678", *scanner.view.ContactPhone)
	})

	t.Run("rejects a non-object body", func(t *testing.T) {
		rec := post(t, &recordingScanner{}, extractor.DefaultOrderPaths, `[1,2]`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
