package api

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gaussfit/app"
	"gaussfit/domain/marks"
	"gaussfit/internal"
	"gaussfit/internal/errors"
)

const marksBody = `{"title": "Optics", "text": "41 47 52 55 58 60 61 63 66 70 74 79"}`

func newTestServer() *Server {
	return NewServer(app.NewAnalysisService(internal.Discard()), app.Options{}, 2, internal.Discard())
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestCreateAndGetAnalysis(t *testing.T) {
	s := newTestServer()

	rec := do(t, s, http.MethodPost, "/api/analyses", marksBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created AnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Optics", created.Title)
	assert.Equal(t, 12, created.RawStats.N)
	assert.Len(t, created.Observations, 12)
	require.NotNil(t, created.Probe)
	require.NotNil(t, created.Histogram)
	assert.Equal(t, "/api/analyses/"+created.ID, rec.Header().Get("Location"))
	assert.Equal(t, 1, s.Store().Len())

	rec = do(t, s, http.MethodGet, "/api/analyses/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched AnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, created.ID, fetched.ID)
}

func TestUndefinedStatisticsAreNull(t *testing.T) {
	s := newTestServer()

	rec := do(t, s, http.MethodPost, "/api/analyses", `{"tokens": [55, "absent"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	stats := raw["raw_stats"].(map[string]interface{})
	assert.Nil(t, stats["std_dev"])
	assert.Equal(t, 55.0, stats["mean"])

	errs := raw["errors"].(map[string]interface{})
	assert.Contains(t, errs, app.StepProbPlot)
	assert.Contains(t, errs, app.StepFit)
}

func TestCreateAnalysisErrors(t *testing.T) {
	s := newTestServer()
	cases := []struct {
		name string
		body string
		code string
	}{
		{"not json", `{"text": `, errors.CodeInvalidInput},
		{"no data", `{"title": "x"}`, errors.CodeInvalidInput},
		{"empty text", `{"text": "Title only"}`, errors.CodeParse},
		{"bad rescale", `{"tokens": [1, 2], "rescale": {"mode": "target", "mean": 50}}`, errors.CodeInvalidInput},
		{"bad bin width", `{"tokens": [1, 2], "binWidth": "wide"}`, errors.CodeInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/analyses", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body struct {
				Error ErrorDTO `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Error.Code)
		})
	}
}

func TestCreateAnalysisRejectsTinyBinWidth(t *testing.T) {
	s := newTestServer()
	rec := do(t, s, http.MethodPost, "/api/analyses", `{"tokens": [0, 50, 100], "binWidth": 1e-9}`)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	var body struct {
		Error ErrorDTO `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, errors.CodeInvalidInput, body.Error.Code)
	assert.Equal(t, app.StepHistogram, body.Error.Step)
	assert.Equal(t, 0, s.Store().Len())
}

func TestGetUnknownAnalysis(t *testing.T) {
	rec := do(t, newTestServer(), http.MethodGet, "/api/analyses/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReports(t *testing.T) {
	s := newTestServer()
	rec := do(t, s, http.MethodPost, "/api/analyses", marksBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created AnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	base := "/api/analyses/" + created.ID + "/report"

	rec = do(t, s, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "PROBABILITY PLOT ANALYSIS")
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	rec = do(t, s, http.MethodGet, base+"?format=markdown", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# Gaussian fit of Optics")

	rec = do(t, s, http.MethodGet, base+"?format=html", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<table>")

	rec = do(t, s, http.MethodGet, base+"?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, base+".xlsx", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"), "xlsx is a zip archive")
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

type mockAnalyzer struct {
	mock.Mock
}

func (m *mockAnalyzer) Run(title string, tokens []string, opts app.Options) (*app.Analysis, error) {
	args := m.Called(title, tokens, opts)
	a, _ := args.Get(0).(*app.Analysis)
	return a, args.Error(1)
}

func TestCreatePassesOptionsToAnalyzer(t *testing.T) {
	analyzer := new(mockAnalyzer)
	defaults := app.Options{BinWidth: 3}
	s := NewServer(analyzer, defaults, 1, internal.Discard())

	want := app.Options{
		ClampOutOfRange: true,
		Rescale:         marks.RescaleSpec{Mode: marks.RescaleMultiplicative, Factor: 1.2, Mean: math.NaN(), SD: math.NaN()},
		BinWidth:        3,
	}
	analyzer.On("Run", "Quiz", []string{"50", "", "x"}, mock.MatchedBy(func(o app.Options) bool {
		return o.ClampOutOfRange == want.ClampOutOfRange &&
			o.Rescale.Mode == want.Rescale.Mode &&
			o.Rescale.Factor == want.Rescale.Factor &&
			o.BinWidth == want.BinWidth
	})).Return(&app.Analysis{ID: "a1", Title: "Quiz"}, nil).Once()

	body := `{"title": "Quiz", "tokens": [50, null, "x"], "clamp": true, "rescale": {"mode": "multiplicative", "factor": 1.2}}`
	rec := do(t, s, http.MethodPost, "/api/analyses", body)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	analyzer.AssertExpectations(t)

	rec = do(t, s, http.MethodGet, "/api/analyses/a1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAnalyzerFailureStatus(t *testing.T) {
	analyzer := new(mockAnalyzer)
	analyzer.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.InStep(app.StepParse, errors.ParseError("no marks found in input")))
	s := NewServer(analyzer, app.Options{}, 1, internal.Discard())

	rec := do(t, s, http.MethodPost, "/api/analyses", `{"tokens": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"step":"parse"`)
}

func TestParseAnalysisRequest(t *testing.T) {
	defaults := app.Options{ClampOutOfRange: true, BinWidth: 4}

	req, err := ParseAnalysisRequest([]byte(`{"text": "Stats 101\n10\n20\n\n40"}`), defaults)
	require.NoError(t, err)
	assert.Equal(t, "Stats 101", req.Title)
	assert.Equal(t, []string{"10", "20", "", "40"}, req.Tokens)
	assert.Equal(t, defaults, req.Options)

	req, err = ParseAnalysisRequest([]byte(`{"title": "T", "text": "10, 20, 30"}`), defaults)
	require.NoError(t, err)
	assert.Equal(t, "T", req.Title)
	assert.Equal(t, []string{"10", "20", "30"}, req.Tokens)

	req, err = ParseAnalysisRequest([]byte(`{"tokens": [1.50, 2], "clamp": false, "binWidth": "auto", "rescale": "none"}`), defaults)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.50", "2"}, req.Tokens)
	assert.False(t, req.Options.ClampOutOfRange)
	assert.Equal(t, 0.0, req.Options.BinWidth)
	assert.Equal(t, marks.RescaleNone, req.Options.Rescale.Mode)

	req, err = ParseAnalysisRequest([]byte(`{"tokens": [1], "rescale": {"mode": "target", "mean": 60, "sd": 9}, "binWidth": 2.5}`), defaults)
	require.NoError(t, err)
	assert.Equal(t, marks.RescaleTargetMeanSD, req.Options.Rescale.Mode)
	assert.Equal(t, 60.0, req.Options.Rescale.Mean)
	assert.Equal(t, 9.0, req.Options.Rescale.SD)
	assert.Equal(t, 2.5, req.Options.BinWidth)

	for _, body := range []string{
		`[1, 2]`,
		`{"tokens": "1 2"}`,
		`{"tokens": [1], "clamp": "yes"}`,
		`{"tokens": [1], "rescale": {"mode": "add"}}`,
		`{"tokens": [1], "rescale": 3}`,
		`{"tokens": [1], "binWidth": -1}`,
		`{"tokens": [1], "binWidth": true}`,
	} {
		_, err := ParseAnalysisRequest([]byte(body), defaults)
		assert.True(t, errors.IsCode(err, errors.CodeInvalidInput), "body %s: %v", body, err)
	}
}

func TestStoreEvictsOldest(t *testing.T) {
	store := NewStore(2)
	for _, id := range []string{"a", "b", "c"} {
		store.Put(&app.Analysis{ID: id})
	}
	assert.Equal(t, 2, store.Len())
	_, err := store.Get("a")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
	got, err := store.Get("c")
	require.NoError(t, err)
	assert.Equal(t, "c", got.ID)
}
