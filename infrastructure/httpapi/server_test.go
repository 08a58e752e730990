package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-agrisense/infrastructure/middleware"
	"github.com/ahrav/go-agrisense/infrastructure/store/memory"
	"github.com/ahrav/go-agrisense/internal/application"
	"github.com/ahrav/go-agrisense/internal/domain"
	"github.com/ahrav/go-agrisense/internal/testutils"
)

type apiFixture struct {
	t       *testing.T
	e       *echo.Echo
	advisor *application.Advisor
}

// newAPI serves an advisor with an admin, a wheat vocabulary and one
// verified expert.
func newAPI(t *testing.T, opts Options) *apiFixture {
	t.Helper()
	advisor, err := application.NewAdvisor(memory.New(), application.WithClock(testutils.FixedClock()))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = advisor.Bootstrap(ctx, testutils.AdminID)
	require.NoError(t, err)

	return &apiFixture{t: t, e: NewRouter(advisor, opts), advisor: advisor}
}

func (a *apiFixture) do(method, path, caller string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if caller != "" {
		req.Header.Set(HeaderCallerID, caller)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// seed populates the vocabulary, an expert with one template and a farm
// through the API.
func (a *apiFixture) seed() {
	a.t.Helper()
	for _, step := range []struct {
		path string
		body any
	}{
		{"/vocabularies/crop-type", termRequest{Term: "Wheat"}},
		{"/vocabularies/health-metric", termRequest{Term: testutils.MetricSoilPH}},
		{"/vocabularies/goal", termRequest{Term: testutils.GoalYield}},
		{"/experts", verifyExpertRequest{ExpertID: testutils.ExpertA, Credentials: "MSc"}},
	} {
		rec := a.do(http.MethodPost, step.path, testutils.AdminID, step.body)
		require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := a.do(http.MethodPost, "/templates", testutils.ExpertA, application.TemplateInput{
		Name:       "Spring wheat irrigation",
		CropTypes:  []string{testutils.CropWheat},
		Conditions: []application.ConditionInput{{Metric: testutils.MetricSoilPH, Min: 6, Max: 7}},
		Weather: application.WeatherRangeInput{
			MinTemp: 10, MaxTemp: 30, MinHumidity: 20, MaxHumidity: 80, MaxUV: 8,
		},
		Actions: []string{"irrigate at dawn"},
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/farms", testutils.FarmOwner, application.FarmInput{
		CropType: testutils.CropWheat,
		FarmSize: 12,
		Goals:    []string{testutils.GoalYield},
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestAPI_RecommendationLifecycle(t *testing.T) {
	api := newAPI(t, Options{})
	api.seed()

	rec := api.do(http.MethodGet, "/analyses/best?temperature=20&humidity=50&uv_index=5", testutils.FarmOwner, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, uint64(1), decode[bestAnalysisResponse](t, rec).TemplateID)

	rec = api.do(http.MethodPost, "/recommendations", testutils.FarmOwner,
		domain.WeatherReading{Temperature: 20, Humidity: 50, UVIndex: 5})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	recID := decode[recommendationCreatedResponse](t, rec).RecommendationID
	assert.Equal(t, uint64(1), recID)

	rec = api.do(http.MethodGet, "/recommendations/1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	r := decode[domain.Recommendation](t, rec)
	assert.Equal(t, testutils.FarmOwner, r.Owner)
	assert.False(t, r.HasFeedback)

	rec = api.do(http.MethodGet, "/recommendations/1/feedback", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	comment := "worked well"
	rec = api.do(http.MethodPost, "/recommendations/1/feedback", testutils.FarmOwner,
		feedbackRequest{Rating: 100, Comment: &comment})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = api.do(http.MethodGet, "/recommendations/1/feedback", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	fb := decode[domain.Feedback](t, rec)
	assert.Equal(t, testutils.ExpertA, fb.Rater)
	assert.Equal(t, uint8(100), fb.Rating)

	rec = api.do(http.MethodGet, "/experts/"+testutils.ExpertA, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint8(82), decode[domain.Expert](t, rec).Reputation)

	rec = api.do(http.MethodGet, "/templates/1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tmpl := decode[domain.Template](t, rec)
	assert.Equal(t, uint64(1), tmpl.RatingCount)
	assert.Equal(t, uint64(100), tmpl.AverageRating)
}

func TestAPI_ErrorMapping(t *testing.T) {
	api := newAPI(t, Options{})
	api.seed()
	rec := api.do(http.MethodPost, "/recommendations", testutils.FarmOwner, testutils.MildReading())
	require.Equal(t, http.StatusCreated, rec.Code)

	tests := []struct {
		name       string
		method     string
		path       string
		caller     string
		body       any
		wantStatus int
		wantCode   string
	}{
		{
			name: "non-admin verifies expert", method: http.MethodPost, path: "/experts",
			caller: testutils.Outsider, body: verifyExpertRequest{ExpertID: "x"},
			wantStatus: http.StatusForbidden, wantCode: "ERR-NOT-AUTHORIZED",
		},
		{
			name: "missing caller header", method: http.MethodPost, path: "/farms",
			body:       application.FarmInput{CropType: "wheat", FarmSize: 1},
			wantStatus: http.StatusForbidden, wantCode: "ERR-NOT-AUTHORIZED",
		},
		{
			name: "duplicate expert", method: http.MethodPost, path: "/experts",
			caller: testutils.AdminID, body: verifyExpertRequest{ExpertID: testutils.ExpertA},
			wantStatus: http.StatusConflict, wantCode: "ERR-EXPERT-ALREADY-VERIFIED",
		},
		{
			name: "weather out of domain", method: http.MethodPost, path: "/recommendations",
			caller: testutils.FarmOwner, body: domain.WeatherReading{Temperature: 51},
			wantStatus: http.StatusBadRequest, wantCode: "ERR-INVALID-WEATHER-DATA",
		},
		{
			name: "unregistered farm", method: http.MethodPost, path: "/recommendations",
			caller: testutils.Outsider, body: testutils.MildReading(),
			wantStatus: http.StatusNotFound, wantCode: "ERR-FARM-NOT-FOUND",
		},
		{
			name: "no matching template", method: http.MethodGet,
			path:   "/analyses/best?temperature=45&humidity=50&uv_index=5",
			caller: testutils.FarmOwner, wantStatus: http.StatusNotFound, wantCode: "ERR-ANALYSIS-NOT-FOUND",
		},
		{
			name: "missing query parameter", method: http.MethodGet,
			path:   "/analyses/best?temperature=20&humidity=50",
			caller: testutils.FarmOwner, wantStatus: http.StatusBadRequest, wantCode: "ERR-INVALID-INPUT",
		},
		{
			name: "rating out of range", method: http.MethodPost, path: "/recommendations/1/feedback",
			caller: testutils.FarmOwner, body: feedbackRequest{Rating: 101},
			wantStatus: http.StatusBadRequest, wantCode: "ERR-INVALID-RATING",
		},
		{
			name: "feedback by non-owner", method: http.MethodPost, path: "/recommendations/1/feedback",
			caller: testutils.ExpertA, body: feedbackRequest{Rating: 50},
			wantStatus: http.StatusForbidden, wantCode: "ERR-NOT-AUTHORIZED",
		},
		{
			name: "unknown recommendation", method: http.MethodGet, path: "/recommendations/99",
			wantStatus: http.StatusNotFound, wantCode: "ERR-RECOMMENDATION-NOT-FOUND",
		},
		{
			name: "malformed id", method: http.MethodGet, path: "/recommendations/abc",
			wantStatus: http.StatusBadRequest, wantCode: "ERR-INVALID-INPUT",
		},
		{
			name: "unknown crop", method: http.MethodPut, path: "/farms/me",
			caller: testutils.FarmOwner, body: application.FarmInput{CropType: "wheet", FarmSize: 3},
			wantStatus: http.StatusBadRequest, wantCode: "ERR-INVALID-CROP-TYPE",
		},
		{
			name: "unknown vocabulary", method: http.MethodGet, path: "/vocabularies/soil",
			wantStatus: http.StatusBadRequest, wantCode: "ERR-INVALID-INPUT",
		},
		{
			name: "unknown expert", method: http.MethodGet, path: "/experts/nobody",
			wantStatus: http.StatusNotFound, wantCode: "ERR-EXPERT-NOT-FOUND",
		},
		{
			name: "unknown route", method: http.MethodGet, path: "/nowhere",
			wantStatus: http.StatusNotFound, wantCode: "ERR-ROUTE-NOT-FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(tt.method, tt.path, tt.caller, tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			body := decode[errorResponse](t, rec)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.NotEmpty(t, body.Error.Message)
			assert.NotEmpty(t, body.Error.RequestID)
		})
	}
}

func TestAPI_SecondFeedbackConflicts(t *testing.T) {
	api := newAPI(t, Options{})
	api.seed()
	require.Equal(t, http.StatusCreated,
		api.do(http.MethodPost, "/recommendations", testutils.FarmOwner, testutils.MildReading()).Code)

	first := api.do(http.MethodPost, "/recommendations/1/feedback", testutils.FarmOwner, feedbackRequest{Rating: 60})
	require.Equal(t, http.StatusNoContent, first.Code)

	second := api.do(http.MethodPost, "/recommendations/1/feedback", testutils.FarmOwner, feedbackRequest{Rating: 90})
	require.Equal(t, http.StatusConflict, second.Code)
	assert.Equal(t, "ERR-ALREADY-RATED", decode[errorResponse](t, second).Error.Code)
}

func TestAPI_VocabularyAndListing(t *testing.T) {
	api := newAPI(t, Options{})

	rec := api.do(http.MethodGet, "/vocabularies/crop-type", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, vocabularyResponse{Kind: "crop-type", Terms: []string{}}, decode[vocabularyResponse](t, rec))

	rec = api.do(http.MethodGet, "/templates", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	api.seed()

	rec = api.do(http.MethodGet, "/vocabularies/crop-type", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"wheat"}, decode[vocabularyResponse](t, rec).Terms)

	rec = api.do(http.MethodGet, "/templates", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Template](t, rec), 1)

	rec = api.do(http.MethodGet, "/farms/"+testutils.FarmOwner, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint32(12), decode[domain.Participant](t, rec).FarmSize)
}

func TestAPI_Health(t *testing.T) {
	api := newAPI(t, Options{})

	rec := api.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, healthResponse{Status: "ok", AdminSet: true}, decode[healthResponse](t, rec))
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestAPI_HealthUnavailableAfterClose(t *testing.T) {
	store := memory.New()
	advisor, err := application.NewAdvisor(store)
	require.NoError(t, err)
	e := NewRouter(advisor, Options{})
	require.NoError(t, store.Close())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPI_RateLimit(t *testing.T) {
	api := newAPI(t, Options{Limiter: middleware.NewCallerLimiter(0.001, 2)})

	for range 2 {
		assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/health", testutils.FarmOwner, nil).Code)
	}
	rec := api.do(http.MethodGet, "/health", testutils.FarmOwner, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "ERR-RATE-LIMITED", decode[errorResponse](t, rec).Error.Code)

	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/health", testutils.ExpertA, nil).Code)
}

func TestAPI_MetricsEndpoint(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("agrisense_up 1\n"))
	})
	api := newAPI(t, Options{Metrics: metrics})

	rec := api.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "agrisense_up")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind domain.Kind
		want int
	}{
		{domain.KindAuthorization, http.StatusForbidden},
		{domain.KindNotFound, http.StatusNotFound},
		{domain.KindConflict, http.StatusConflict},
		{domain.KindInvalidInput, http.StatusBadRequest},
		{domain.KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.kind))
		})
	}
}
