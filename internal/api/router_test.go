package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"stroke_registry/internal/db"
	"stroke_registry/internal/domain"
	"stroke_registry/internal/repository"
	"stroke_registry/internal/service"
	"stroke_registry/internal/session"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
)

type testApp struct {
	srv       *httptest.Server
	client    *http.Client
	patients  *service.PatientService
	storeDown *atomic.Bool // fails every credential and patient store call while set
}

var errStoreDown = errors.New("store unavailable")

type flakyUsers struct {
	repository.UserRepository
	down *atomic.Bool
}

func (f flakyUsers) Create(ctx context.Context, email, hash string) (*domain.User, error) {
	if f.down.Load() {
		return nil, errStoreDown
	}
	return f.UserRepository.Create(ctx, email, hash)
}

func (f flakyUsers) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if f.down.Load() {
		return nil, errStoreDown
	}
	return f.UserRepository.FindByEmail(ctx, email)
}

type flakyPatients struct {
	repository.PatientStore
	down *atomic.Bool
}

func (f flakyPatients) Insert(ctx context.Context, p *domain.Patient) (string, error) {
	if f.down.Load() {
		return "", errStoreDown
	}
	return f.PatientStore.Insert(ctx, p)
}

func (f flakyPatients) FindAll(ctx context.Context) ([]domain.Patient, error) {
	if f.down.Load() {
		return nil, errStoreDown
	}
	return f.PatientStore.FindAll(ctx)
}

func (f flakyPatients) FindByRef(ctx context.Context, ref string) (*domain.Patient, error) {
	if f.down.Load() {
		return nil, errStoreDown
	}
	return f.PatientStore.FindByRef(ctx, ref)
}

func (f flakyPatients) UpdateByRef(ctx context.Context, ref string, fields bson.M) error {
	if f.down.Load() {
		return errStoreDown
	}
	return f.PatientStore.UpdateByRef(ctx, ref, fields)
}

func (f flakyPatients) Count(ctx context.Context) (int64, error) {
	if f.down.Load() {
		return 0, errStoreDown
	}
	return f.PatientStore.Count(ctx)
}

func newTestApp(t *testing.T, csrfEnabled bool) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := db.OpenDialector(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), false)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	sessions, err := session.NewManager("test-secret", session.Options{TTL: time.Hour}, session.NewMemoryRevoker())
	require.NoError(t, err)
	down := &atomic.Bool{}
	users := flakyUsers{UserRepository: repository.NewUserRepository(gdb), down: down}
	auth, err := service.NewAuthService(users, sessions, bcrypt.MinCost)
	require.NoError(t, err)
	patients := service.NewPatientService(flakyPatients{PatientStore: repository.NewMemoryPatientStore(), down: down})

	csrfKey, err := session.DeriveKey("test-secret", "csrf")
	require.NoError(t, err)
	h, err := NewRouter(Deps{
		Auth:     auth,
		Patients: patients,
		Sessions: sessions,
		Health:   sqlDB.PingContext,
	}, Options{CSRFEnabled: csrfEnabled, CSRFKey: csrfKey})
	require.NoError(t, err)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testApp{srv: srv, client: client, patients: patients, storeDown: down}
}

func (a *testApp) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := a.client.Get(a.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (a *testApp) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := a.client.PostForm(a.srv.URL+path, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

// follow reads the page a redirect points at, which is where the flash shows up
func (a *testApp) follow(t *testing.T, resp *http.Response) string {
	t.Helper()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	_, body := a.get(t, resp.Header.Get("Location"))
	return body
}

func (a *testApp) registerAndLogin(t *testing.T, email, password string) {
	t.Helper()
	resp, _ := a.post(t, "/register", url.Values{"email": {email}, "password": {password}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/login", resp.Header.Get("Location"))

	resp, _ = a.post(t, "/login", url.Values{"email": {email}, "password": {password}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/dashboard", resp.Header.Get("Location"))
}

func patientValues() url.Values {
	return url.Values{
		"id":                {"1"},
		"age":               {"45"},
		"gender":            {"Female"},
		"hypertension":      {"0", "1"},
		"heart_disease":     {"0"},
		"ever_married":      {"Yes"},
		"work_type":         {"Private"},
		"residence_type":    {"Urban"},
		"avg_glucose_level": {"101.5"},
		"bmi":               {"23.1"},
		"smoking_status":    {"never smoked"},
		"stroke":            {"0"},
	}
}

var totalPattern = regexp.MustCompile(`<strong id="total">(\d+)</strong>`)

func dashboardTotal(t *testing.T, a *testApp) string {
	t.Helper()
	resp, body := a.get(t, "/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	m := totalPattern.FindStringSubmatch(body)
	require.Len(t, m, 2)
	return m[1]
}

func TestRoot_RedirectsToDashboard(t *testing.T) {
	a := newTestApp(t, false)
	resp, _ := a.get(t, "/")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
}

func TestProtectedRoutes_RequireLogin(t *testing.T) {
	a := newTestApp(t, false)
	for _, path := range []string{"/dashboard", "/patients", "/patients/create", "/patients/view/x", "/patients/edit/x"} {
		resp, _ := a.get(t, path)
		assert.Equal(t, http.StatusFound, resp.StatusCode, path)
		assert.Equal(t, "/login", resp.Header.Get("Location"), path)
	}
	resp, _ := a.get(t, "/dashboard")
	assert.Contains(t, a.follow(t, resp), "Please log in first.")
}

func TestRegister(t *testing.T) {
	a := newTestApp(t, false)

	resp, _ := a.post(t, "/register", url.Values{"email": {"not-an-email"}, "password": {"pw"}})
	assert.Equal(t, "/register", resp.Header.Get("Location"))
	assert.Contains(t, a.follow(t, resp), "Invalid email format.")

	resp, _ = a.post(t, "/register", url.Values{"email": {"a@b.com"}, "password": {"pw"}})
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Contains(t, a.follow(t, resp), "Registration successful!")

	resp, _ = a.post(t, "/register", url.Values{"email": {"a@b.com"}, "password": {"pw"}})
	assert.Equal(t, "/register", resp.Header.Get("Location"))
	assert.Contains(t, a.follow(t, resp), "Email already registered.")

	resp, _ = a.post(t, "/register", url.Values{"email": {"c@d.com"}})
	assert.Equal(t, "/register", resp.Header.Get("Location"))
}

func TestLogin_FailuresLookTheSame(t *testing.T) {
	a := newTestApp(t, false)
	resp, _ := a.post(t, "/register", url.Values{"email": {"a@b.com"}, "password": {"secret"}})
	a.follow(t, resp) // consume the registration notice

	wrongResp, wrongBody := a.post(t, "/login", url.Values{"email": {"a@b.com"}, "password": {"nope"}})
	unknownResp, unknownBody := a.post(t, "/login", url.Values{"email": {"x@b.com"}, "password": {"secret"}})

	assert.Equal(t, http.StatusUnauthorized, wrongResp.StatusCode)
	assert.Equal(t, wrongResp.StatusCode, unknownResp.StatusCode)
	assert.Equal(t, wrongBody, unknownBody)
	assert.Contains(t, wrongBody, "Incorrect email or password.")

	// still anonymous
	resp, _ = a.get(t, "/dashboard")
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestLoginLogout(t *testing.T) {
	a := newTestApp(t, false)
	a.registerAndLogin(t, "a@b.com", "secret")

	resp, body := a.get(t, "/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Logged in successfully.")
	assert.Contains(t, body, "a@b.com")

	resp, _ = a.get(t, "/logout")
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Contains(t, a.follow(t, resp), "Logged out.")

	resp, _ = a.get(t, "/dashboard")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	// logging out twice is harmless
	resp, _ = a.get(t, "/logout")
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestLogout_RevokesCopiedCookie(t *testing.T) {
	a := newTestApp(t, false)
	a.registerAndLogin(t, "a@b.com", "secret")

	srvURL, err := url.Parse(a.srv.URL)
	require.NoError(t, err)
	stolen := a.client.Jar.Cookies(srvURL)
	require.NotEmpty(t, stolen)

	resp, _ := a.get(t, "/logout")
	require.Equal(t, http.StatusFound, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, a.srv.URL+"/dashboard", nil)
	require.NoError(t, err)
	for _, c := range stolen {
		req.AddCookie(c)
	}
	noJar := &http.Client{CheckRedirect: a.client.CheckRedirect}
	resp, err = noJar.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestPatients_CreateListViewEdit(t *testing.T) {
	a := newTestApp(t, false)
	a.registerAndLogin(t, "a@b.com", "secret")
	assert.Equal(t, "0", dashboardTotal(t, a))

	resp, body := a.get(t, "/patients/create")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `name="avg_glucose_level"`)

	resp, _ = a.post(t, "/patients/create", patientValues())
	assert.Equal(t, "/patients", resp.Header.Get("Location"))
	listBody := a.follow(t, resp)
	assert.Contains(t, listBody, "Patient added successfully!")

	list, err := a.patients.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	p := list[0]
	assert.Equal(t, 45, p.Age)
	assert.Equal(t, 101.5, p.AvgGlucoseLevel)
	assert.True(t, p.Hypertension)
	assert.False(t, p.HeartDisease)
	assert.Contains(t, listBody, "/patients/view/"+p.RefHex())
	assert.Equal(t, "1", dashboardTotal(t, a))

	resp, body = a.get(t, "/patients/view/"+p.RefHex())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "101.5")
	assert.Contains(t, body, "never smoked")

	resp, body = a.get(t, "/patients/edit/"+p.RefHex())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `value="45"`)

	resp, _ = a.post(t, "/patients/edit/"+p.RefHex(), url.Values{"age": {"46"}, "bmi": {"24"}})
	assert.Equal(t, "/patients", resp.Header.Get("Location"))
	assert.Contains(t, a.follow(t, resp), "Patient updated successfully!")

	got, err := a.patients.View(context.Background(), p.RefHex())
	require.NoError(t, err)
	assert.Equal(t, 46, got.Age)
	assert.Equal(t, 24.0, got.BMI)
	assert.Equal(t, 101.5, got.AvgGlucoseLevel)
	assert.True(t, got.Hypertension)
	assert.Equal(t, "1", dashboardTotal(t, a))
}

func TestPatients_MalformedInput(t *testing.T) {
	a := newTestApp(t, false)
	a.registerAndLogin(t, "a@b.com", "secret")

	form := patientValues()
	form.Set("age", "forty")
	resp, _ := a.post(t, "/patients/create", form)
	assert.Equal(t, "/patients/create", resp.Header.Get("Location"))
	assert.Contains(t, a.follow(t, resp), "age must be a whole number")

	n, err := a.patients.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	ref, err := a.patients.Create(context.Background(), patientValues())
	require.NoError(t, err)
	resp, _ = a.post(t, "/patients/edit/"+ref, url.Values{"bmi": {"heavy"}})
	assert.Equal(t, "/patients/edit/"+ref, resp.Header.Get("Location"))
	assert.Contains(t, a.follow(t, resp), "bmi must be a number")
}

func TestPatients_NotFound(t *testing.T) {
	a := newTestApp(t, false)
	a.registerAndLogin(t, "a@b.com", "secret")

	for _, path := range []string{
		"/patients/view/000000000000000000000000",
		"/patients/view/not-a-ref",
		"/patients/edit/000000000000000000000000",
	} {
		resp, _ := a.get(t, path)
		assert.Equal(t, http.StatusFound, resp.StatusCode, path)
		assert.Equal(t, "/patients", resp.Header.Get("Location"), path)
		assert.Contains(t, a.follow(t, resp), "Patient not found.", path)
	}

	resp, _ := a.post(t, "/patients/edit/not-a-ref", url.Values{"age": {"1"}})
	assert.Equal(t, "/patients", resp.Header.Get("Location"))
}

func TestDashboardCountMatchesList(t *testing.T) {
	a := newTestApp(t, false)
	a.registerAndLogin(t, "a@b.com", "secret")

	for i := 0; i < 3; i++ {
		resp, _ := a.post(t, "/patients/create", patientValues())
		require.Equal(t, "/patients", resp.Header.Get("Location"))
	}
	_, body := a.get(t, "/patients")
	assert.Equal(t, 3, strings.Count(body, `<tr class="patient">`))
	assert.Equal(t, "3", dashboardTotal(t, a))
}

var csrfPattern = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

func TestCSRF(t *testing.T) {
	a := newTestApp(t, true)

	resp, _ := a.post(t, "/register", url.Values{"email": {"a@b.com"}, "password": {"pw"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, body := a.get(t, "/register")
	m := csrfPattern.FindStringSubmatch(body)
	require.Len(t, m, 2)

	resp, _ = a.post(t, "/register", url.Values{"email": {"a@b.com"}, "password": {"pw"}, "csrf_token": {m[1]}})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestHealthz(t *testing.T) {
	a := newTestApp(t, false)
	resp, body := a.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

func TestHealthz_Unavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/healthz", nil)

	healthHandler(func(context.Context) error { return errors.New("db down") })(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStoreFailure_PagesRenderServerError(t *testing.T) {
	a := newTestApp(t, false)
	a.registerAndLogin(t, "a@b.com", "secret")
	a.storeDown.Store(true)

	for _, path := range []string{
		"/dashboard",
		"/patients",
		"/patients/view/000000000000000000000000",
		"/patients/edit/000000000000000000000000",
	} {
		resp, body := a.get(t, path)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode, path)
		assert.Contains(t, body, "Something went wrong. Please try again.", path)
	}

	// the session survives, so the pages work again once the store is back
	a.storeDown.Store(false)
	assert.Equal(t, "0", dashboardTotal(t, a))
}

func TestStoreFailure_FormsFlashAndReturn(t *testing.T) {
	a := newTestApp(t, false)
	a.registerAndLogin(t, "a@b.com", "secret")
	ctx := context.Background()

	resp, _ := a.post(t, "/patients/create", patientValues())
	require.Equal(t, "/patients", resp.Header.Get("Location"))
	a.follow(t, resp)
	list, err := a.patients.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	ref := list[0].RefHex()

	a.storeDown.Store(true)

	resp, _ = a.post(t, "/patients/create", patientValues())
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/patients/create", resp.Header.Get("Location"))
	assert.Contains(t, a.follow(t, resp), "Could not save the patient. Please try again.")

	resp, _ = a.post(t, "/patients/edit/"+ref, url.Values{"age": {"50"}})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/patients/edit/"+ref, resp.Header.Get("Location"))
	a.storeDown.Store(false)
	assert.Contains(t, a.follow(t, resp), "Could not update the patient. Please try again.")

	got, err := a.patients.View(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, 45, got.Age)
}

func TestStoreFailure_RegisterFlashAndReturn(t *testing.T) {
	a := newTestApp(t, false)
	a.storeDown.Store(true)

	resp, _ := a.post(t, "/register", url.Values{"email": {"a@b.com"}, "password": {"secret"}})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/register", resp.Header.Get("Location"))
	assert.Contains(t, a.follow(t, resp), "Registration failed. Please try again.")

	a.storeDown.Store(false)
	a.registerAndLogin(t, "a@b.com", "secret")
}
