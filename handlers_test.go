package main

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bitbucket.org/ginoconcreto/estoque_backend/extraction"
	"bitbucket.org/ginoconcreto/estoque_backend/models"
	"bitbucket.org/ginoconcreto/estoque_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func postLogin(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	loginHandler()(c)
	return w
}

func TestLoginAdminCredentials(t *testing.T) {
	w := postLogin(t, `{"username":"balanceiro","password":"12345"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"role":"admin"`)
	require.Contains(t, w.Body.String(), `"token"`)
}

func TestLoginViewerCredentials(t *testing.T) {
	w := postLogin(t, `{"username":"visitante","password":"visitante"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"role":"viewer"`)
}

func TestLoginUsernameIsCaseInsensitive(t *testing.T) {
	w := postLogin(t, `{"username":"  Balanceiro ","password":"12345"}`)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestLoginWrongPairRejected(t *testing.T) {
	for _, body := range []string{
		`{"username":"balanceiro","password":"errada"}`,
		`{"username":"visitante","password":"12345"}`,
		`{"username":"outro","password":"12345"}`,
	} {
		w := postLogin(t, body)
		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Contains(t, w.Body.String(), "Usuário ou senha incorretos")
	}
}

func TestLoginMissingFieldsRejected(t *testing.T) {
	w := postLogin(t, `{"username":"balanceiro"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAbortWithEngineErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&models.ValidationError{Msg: "peso inválido"}, http.StatusBadRequest},
		{models.ErrNotAdmin, http.StatusForbidden},
		{models.ErrStoreUnavailable, http.StatusServiceUnavailable},
		{extraction.ErrExtractionFailed, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		abortWithEngineError(c, tc.err)
		require.Equal(t, tc.want, w.Code, "error %v", tc.err)
	}
}

func TestUsinaParamValidation(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "usina", Value: "Angatuba"}}
	usina, ok := usinaParam(c)
	require.True(t, ok)
	require.Equal(t, models.UsinaAngatuba, usina)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "usina", Value: "Lugar Nenhum"}}
	_, ok = usinaParam(c)
	require.False(t, ok)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func mutationContext(token string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, "/stock/entry", nil)
	c.Request = req.WithContext(utils.SetTokenInContext(req.Context(), token))
	return c, w
}

func TestGuardSessionBlocksConcurrentMutation(t *testing.T) {
	c, _ := mutationContext("token-a")
	release, ok := guardSession(c)
	require.True(t, ok)

	c2, w2 := mutationContext("token-a")
	_, ok = guardSession(c2)
	require.False(t, ok)
	require.Equal(t, http.StatusConflict, w2.Code)

	release()
	release2, ok := guardSession(c)
	require.True(t, ok)
	release2()
}

func TestGuardSessionAllowsDistinctSessionsOfSameAccount(t *testing.T) {
	c, _ := mutationContext("balanceiro-device-1")
	release1, ok := guardSession(c)
	require.True(t, ok)
	defer release1()

	c2, _ := mutationContext("balanceiro-device-2")
	release2, ok := guardSession(c2)
	require.True(t, ok)
	release2()
}

type recordingExtractor struct {
	calls int
}

func (r *recordingExtractor) ProcessReport(ctx context.Context, document []byte, mimeType string) (map[string]float64, error) {
	r.calls++
	return map[string]float64{}, nil
}

func postReport(t *testing.T, role string, extractor extraction.ReportExtractor) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("usina", "Angatuba"))
	part, err := mw.CreateFormFile("report", "relatorio.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/stock/report", &body)
	c.Request.Header.Set("Content-Type", mw.FormDataContentType())
	c.Set("role", role)
	reportHandler(extractor, nil, nil)(c)
	return w
}

func TestReportHandlerRejectsViewerBeforeExtraction(t *testing.T) {
	extractor := &recordingExtractor{}
	w := postReport(t, "viewer", extractor)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Zero(t, extractor.calls, "a rejected upload must never reach the extraction service")
}
