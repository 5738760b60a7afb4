package ui

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"datapilot/adapters/export"
	"datapilot/adapters/simulated"
	"datapilot/domain/catalog"
	"datapilot/domain/wizard"
	"datapilot/internal/errors"
	"datapilot/internal/session"
	"datapilot/ui/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type browser struct {
	t       *testing.T
	handler http.Handler
	cookies []*http.Cookie
}

func newTestServer(t *testing.T) (*browser, *session.Store) {
	gin.SetMode(gin.TestMode)
	backend := simulated.NewBackend(simulated.Delays{})
	exporter := export.NewExporter()
	store := session.NewStore(func(role catalog.Role) *wizard.Wizard {
		return wizard.New(role, backend, exporter)
	}, time.Hour)

	srv, err := NewServer(Options{
		Sessions: store,
		Session:  middleware.SessionOptions{CookieName: "sid", MaxAge: 3600},
	})
	require.NoError(t, err)
	return &browser{t: t, handler: srv.Handler()}, store
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.handler.ServeHTTP(rec, req)
	if cookies := rec.Result().Cookies(); len(cookies) > 0 {
		b.cookies = cookies
	}
	return rec
}

func (b *browser) get(path string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	setHeaders(req, headers)
	return b.do(req)
}

func (b *browser) postForm(path string, form url.Values, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	setHeaders(req, headers)
	return b.do(req)
}

func (b *browser) upload(path, name, content string, headers ...string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(b.t, err)
	_, err = part.Write([]byte(content))
	require.NoError(b.t, err)
	require.NoError(b.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	setHeaders(req, headers)
	return b.do(req)
}

func setHeaders(req *http.Request, kv []string) {
	for i := 0; i+1 < len(kv); i += 2 {
		req.Header.Set(kv[i], kv[i+1])
	}
}

var (
	htmx     = []string{"HX-Request", "true"}
	jsonResp = []string{"Accept", "application/json"}
)

func TestLandingSetsSessionCookie(t *testing.T) {
	b, _ := newTestServer(t)

	rec := b.get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Actionable Insights")
	require.Len(t, b.cookies, 1)
	assert.Equal(t, "sid", b.cookies[0].Name)
}

func TestDashboardListsEveryRole(t *testing.T) {
	b, _ := newTestServer(t)

	rec := b.get("/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	for _, role := range catalog.Roles() {
		assert.Contains(t, rec.Body.String(), `href="/analyze/`+string(role.ID)+`"`)
	}
}

func TestUnknownRoleRedirectsWithoutSession(t *testing.T) {
	b, store := newTestServer(t)

	rec := b.get("/analyze/astrologer")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	rec = b.postForm("/analyze/astrologer/clean", url.Values{"action": {"normalize"}})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, 0, store.Len())
}

func TestAnalyzePageStartsAtUpload(t *testing.T) {
	b, store := newTestServer(t)

	rec := b.get("/analyze/finance")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Finance Analyst")
	assert.Contains(t, body, `id="wizard-panel"`)
	assert.NotContains(t, body, `id="step-clean"`)
	assert.Equal(t, 1, store.Len())
}

func TestHTMXFlowRendersPanel(t *testing.T) {
	b, _ := newTestServer(t)

	rec := b.upload("/analyze/finance/upload", "q3.csv", "name,sales\nA,1\n", htmx...)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(strings.TrimSpace(body), `<div id="wizard-panel"`))
	assert.NotContains(t, body, "<html")
	assert.Contains(t, body, "q3.csv")
	assert.Contains(t, body, `id="step-clean"`)

	rec = b.postForm("/analyze/finance/preview", nil, htmx...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Product A")

	rec = b.postForm("/analyze/finance/tasks/forecasting", nil, htmx...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<svg")
	assert.Contains(t, rec.Body.String(), "✓ Completed")

	rec = b.postForm("/analyze/finance/insights", url.Values{"question": {"What stands out?"}}, htmx...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<strong>Electronics</strong>")
}

func TestHTMXFailureShowsBanner(t *testing.T) {
	b, _ := newTestServer(t)

	rec := b.upload("/analyze/marketing/upload", "notes.txt", "hello", htmx...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `role="alert"`)
	assert.Contains(t, rec.Body.String(), errors.CodeInvalidInput)
}

func TestPlainFormPostRedirects(t *testing.T) {
	b, _ := newTestServer(t)

	rec := b.upload("/analyze/finance/upload", "q3.csv", "name\nA\n")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/analyze/finance", rec.Header().Get("Location"))

	rec = b.postForm("/analyze/finance/clean", url.Values{"action": {"normalize"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = b.get("/analyze/finance")
	assert.Contains(t, rec.Body.String(), "<h3>Cleaned data</h3>")
}

func TestUploadBodyIsCapped(t *testing.T) {
	gin.SetMode(gin.TestMode)
	backend := simulated.NewBackend(simulated.Delays{})
	store := session.NewStore(func(role catalog.Role) *wizard.Wizard {
		return wizard.New(role, backend, export.NewExporter())
	}, time.Hour)
	srv, err := NewServer(Options{Sessions: store, MaxUploadBytes: 512})
	require.NoError(t, err)
	b := &browser{t: t, handler: srv.Handler()}

	big := "name,sales\n" + strings.Repeat("Product A,1200\n", 100)
	rec := b.upload("/analyze/finance/upload", "big.csv", big, jsonResp...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var failed struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		State wizard.State `json:"state"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &failed))
	assert.Equal(t, errors.CodeInvalidInput, failed.Error.Code)
	assert.Contains(t, failed.Error.Message, "upload limit")
	assert.Nil(t, failed.State.File)

	rec = b.upload("/analyze/finance/upload", "big.csv", big, htmx...)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "upload limit")

	rec = b.upload("/analyze/finance/upload", "small.csv", "name,sales\nA,1\n", jsonResp...)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJSONClientsGetStatusCodes(t *testing.T) {
	b, _ := newTestServer(t)

	rec := b.postForm("/analyze/finance/clean", url.Values{"action": {"normalize"}}, jsonResp...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var failed struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &failed))
	assert.Equal(t, errors.CodeInvalidInput, failed.Error.Code)

	rec = b.upload("/analyze/finance/upload", "q3.csv", "name\nA\n", jsonResp...)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = b.postForm("/analyze/finance/tasks/risk-heatmap", nil, jsonResp...)
	require.Equal(t, http.StatusOK, rec.Code)
	var ok struct {
		Result struct {
			ID string `json:"id"`
		} `json:"result"`
		State wizard.State `json:"state"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ok))
	assert.Equal(t, "risk-heatmap", ok.Result.ID)
	assert.Equal(t, wizard.StepVisualize, ok.State.CurrentStep)
	assert.Len(t, ok.State.Charts, 1)
}

func TestDownloadIsAnAttachment(t *testing.T) {
	b, _ := newTestServer(t)
	b.upload("/analyze/finance/upload", "q3.csv", "name\nA\n")

	rec := b.get("/analyze/finance/download?kind=report&format=csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "report.csv")
	assert.Contains(t, rec.Body.String(), "Product A")
}

func TestDownloadRejectsBadName(t *testing.T) {
	b, _ := newTestServer(t)

	rec := b.get("/analyze/finance/download?kind=../secrets&format=csv", jsonResp...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = b.get("/analyze/finance/download?kind=report&format=")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestHealthAndNotFound(t *testing.T) {
	b, _ := newTestServer(t)

	rec := b.get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = b.get("/nowhere")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStaticAssetsAreServed(t *testing.T) {
	b, _ := newTestServer(t)

	rec := b.get("/static/css/app.css")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ".pipeline")
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		errors.InvalidInput("x"):                      http.StatusBadRequest,
		errors.Busy("x"):                              http.StatusConflict,
		errors.NotFound("x"):                          http.StatusNotFound,
		errors.ExternalServiceError("analytics", nil): http.StatusBadGateway,
		errors.Canceled(nil):                          http.StatusRequestTimeout,
		errors.InternalError("x"):                     http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), errors.GetCode(err))
	}
}
