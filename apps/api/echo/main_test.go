package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/cblms/apps/api/echo"
	"github.com/trezcool/cblms/core"
	"github.com/trezcool/cblms/core/user"
	"github.com/trezcool/cblms/services/email"
	"github.com/trezcool/cblms/services/ratelimit"
	"github.com/trezcool/cblms/storage/database/inmem"
	"github.com/trezcool/cblms/testutil"
)

var (
	conf  *core.Config
	db    *inmemdb.DB
	repos testutil.Repos
	deps  echoapi.ServerDeps
	app   *echoapi.Server
)

func TestMain(m *testing.M) {
	conf = testutil.NewConfig()
	logger := testutil.NewLogger(conf)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	core.ParseEmailTemplates(logger)

	// set up DB & services
	db = inmemdb.Open()
	repos = testutil.NewInmemRepos(db)
	svcs := testutil.NewServices(repos, emailsvc.NewConsoleServiceMock(conf, logger))

	// set up server
	deps = echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		UserSvc:       svcs.User,
		CohortSvc:     svcs.Cohort,
		ClassSvc:      svcs.Class,
		AssignmentSvc: svcs.Assignment,
		SubmissionSvc: svcs.Submission,
		CompetencySvc: svcs.Competency,
		ReportSvc:     svcs.Report,
		TrashSvc:      svcs.Trash,
	}
	app = echoapi.NewServer(deps)

	code := m.Run()
	_ = app.Close()
	os.Exit(code)
}

// response mirrors the JSON envelope of every answer.
type response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte // checked only when set
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// do serves the request on app.
func do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	app.ServeHTTP(rec, req)
	return rec
}

func getToken(t *testing.T, usr user.User) string {
	token, err := echoapi.GenerateToken(echoapi.NewClaims(usr, conf), conf.SecretKey)
	require.NoError(t, err, "GenerateToken()")
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	require.NoError(t, err, "json.Marshal()")
	return data
}

func success(t *testing.T, data interface{}) []byte {
	return marshalObj(t, response{Success: true, Data: data})
}

func successMessage(t *testing.T, msg string) []byte {
	return marshalObj(t, response{Success: true, Message: msg})
}

func failure(t *testing.T, msg string, errs ...string) []byte {
	return marshalObj(t, response{Message: msg, Errors: errs})
}

// decode unmarshals the data of a successful answer into dst.
func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	var body struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	require.True(t, body.Success, rec.Body.String())
	require.NoError(t, json.Unmarshal(body.Data, dst), rec.Body.String())
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if assert.NoError(t, err, "jsonBytesEqual()") {
		assert.True(t, ok, "data = %s; wantData %s", rec.Body.String(), string(tt.wantData))
	}
}

func runTests(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		if tt.method == "" {
			tt.method = http.MethodGet
		}
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

// newRateLimitedServer serves the app with its own limits per client IP.
func newRateLimitedServer(requests, authRequests int) *echoapi.Server {
	d := deps
	d.RateLimitStore = ratelimit.NewStore(nil, "api", requests, conf.RateLimit.Window)
	d.AuthRateLimitStore = ratelimit.NewStore(nil, "login", authRequests, conf.RateLimit.Window)
	return echoapi.NewServer(d)
}
