package admin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelverk/internal/security"
)

const testPassword = "pärlor-och-pixlar"

// clientSeq gives every request its own client IP so the login limiter
// only kicks in where a test wants it to.
var clientSeq int64

func nextClientIP() string {
	return fmt.Sprintf("10.0.0.%d", atomic.AddInt64(&clientSeq, 1)%250+1)
}

type adminFixture struct {
	mux   *http.ServeMux
	store *memStore
	auth  *Authenticator
}

func newAdminFixture(password string) *adminFixture {
	store := newMemStore()
	auth := NewAuthenticator(password)
	mux := http.NewServeMux()
	NewHandler(auth, NewService(store, nil), security.NewCSRFStore(0)).Register(mux)
	return &adminFixture{mux: mux, store: store, auth: auth}
}

func (f *adminFixture) do(req *http.Request) *httptest.ResponseRecorder {
	if req.Header.Get("X-Forwarded-For") == "" {
		req.Header.Set("X-Forwarded-For", nextClientIP())
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func (f *adminFixture) login(t *testing.T) *http.Cookie {
	t.Helper()
	rec := f.do(jsonRequest("/admin/login", `{"password":"`+testPassword+`"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatal("login did not set the admin cookie")
	return nil
}

func (f *adminFixture) csrfToken(t *testing.T, cookie *http.Cookie) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/admin/csrf-token", nil)
	req.AddCookie(cookie)
	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body["csrf_token"])
	return body["csrf_token"]
}

func jsonRequest(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// formRequest builds a multipart POST with text fields and named files.
func formRequest(t *testing.T, path string, fields map[string]string, files map[string][]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for field, names := range files {
		for _, name := range names {
			part, err := w.CreateFormFile(field, name)
			require.NoError(t, err)
			_, err = part.Write([]byte("fake image data"))
			require.NoError(t, err)
		}
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) Result {
	t.Helper()
	var res Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res), rec.Body.String())
	return res
}

func productFields(token string) map[string]string {
	return map[string]string{
		"category":    "resin",
		"productId":   "",
		"name":        "Moss Ring",
		"description": "Real moss in resin",
		"price":       "250",
		"stock":       "2",
		"csrf_token":  token,
	}
}

func TestStatus(t *testing.T) {
	f := newAdminFixture(testPassword)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/admin/status", nil))
	assert.JSONEq(t, `{"ready":true,"authorized":false}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/admin/status", nil)
	req.AddCookie(f.login(t))
	rec = f.do(req)
	assert.JSONEq(t, `{"ready":true,"authorized":true}`, rec.Body.String())

	rec = newAdminFixture("").do(httptest.NewRequest(http.MethodGet, "/admin/status", nil))
	assert.JSONEq(t, `{"ready":false,"authorized":false}`, rec.Body.String())
}

func TestLogin(t *testing.T) {
	f := newAdminFixture(testPassword)

	rec := f.do(jsonRequest("/admin/login", `{"password":"wrong"}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Wrong password.", decodeResult(t, rec).Message)
	assert.Empty(t, rec.Result().Cookies())

	rec = f.do(jsonRequest("/admin/login", `{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c := f.login(t)
	assert.Equal(t, "/admin", c.Path)
	assert.True(t, c.HttpOnly)
	assert.NotContains(t, c.Value, testPassword)

	rec = f.do(httptest.NewRequest(http.MethodPost, "/admin/logout", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)
}

func TestLoginNotConfigured(t *testing.T) {
	f := newAdminFixture("  ")
	rec := f.do(jsonRequest("/admin/login", `{"password":"anything"}`))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLoginRateLimited(t *testing.T) {
	f := newAdminFixture(testPassword)

	first := jsonRequest("/admin/login", `{"password":"wrong"}`)
	first.Header.Set("X-Forwarded-For", "192.168.1.50")
	assert.Equal(t, http.StatusUnauthorized, f.do(first).Code)

	second := jsonRequest("/admin/login", `{"password":"`+testPassword+`"}`)
	second.Header.Set("X-Forwarded-For", "192.168.1.50")
	assert.Equal(t, http.StatusTooManyRequests, f.do(second).Code)
}

func TestCreateProductRequiresLogin(t *testing.T) {
	f := newAdminFixture(testPassword)

	rec := f.do(formRequest(t, "/admin/products", productFields(""), nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, f.store.writes)

	forged := formRequest(t, "/admin/products", productFields(""), nil)
	forged.AddCookie(&http.Cookie{Name: CookieName, Value: "guess"})
	rec = f.do(forged)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCSRFTokenRequiresLogin(t *testing.T) {
	f := newAdminFixture(testPassword)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/admin/csrf-token", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotContains(t, rec.Body.String(), "csrf_token")

	rec = newAdminFixture("").do(httptest.NewRequest(http.MethodGet, "/admin/csrf-token", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	assert.NotEmpty(t, f.csrfToken(t, f.login(t)))
}

func TestAnonymousNonFormRequestsAreUnauthorized(t *testing.T) {
	f := newAdminFixture(testPassword)
	for _, path := range []string{"/admin/products", "/admin/products/images", "/admin/products/import"} {
		assert.Equal(t, http.StatusUnauthorized, f.do(jsonRequest(path, `{}`)).Code, path)
	}

	off := newAdminFixture("")
	assert.Equal(t, http.StatusServiceUnavailable, off.do(jsonRequest("/admin/products", `{}`)).Code)
	assert.Zero(t, f.store.writes)
}

func TestCreateProductCSRF(t *testing.T) {
	f := newAdminFixture(testPassword)
	cookie := f.login(t)

	req := formRequest(t, "/admin/products", productFields("made-up"), nil)
	req.AddCookie(cookie)
	rec := f.do(req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, f.store.writes)

	token := f.csrfToken(t, cookie)
	req = formRequest(t, "/admin/products", productFields(token), map[string][]string{"images": {"front.jpg", "back.png"}})
	req.AddCookie(cookie)
	rec = f.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decodeResult(t, rec).Success)
	assert.Len(t, f.store.meta["resin/moss-ring"].Images, 2)

	// tokens are single use
	req = formRequest(t, "/admin/products", productFields(token), nil)
	req.AddCookie(cookie)
	assert.Equal(t, http.StatusForbidden, f.do(req).Code)
}

func TestCreateProductDuplicateIsConflict(t *testing.T) {
	f := newAdminFixture(testPassword)
	cookie := f.login(t)

	for i, want := range []int{http.StatusOK, http.StatusConflict} {
		req := formRequest(t, "/admin/products", productFields(f.csrfToken(t, cookie)), nil)
		req.AddCookie(cookie)
		rec := f.do(req)
		assert.Equal(t, want, rec.Code, "attempt %d: %s", i+1, rec.Body.String())
	}
}

func TestAppendImagesHandler(t *testing.T) {
	f := newAdminFixture(testPassword)
	cookie := f.login(t)

	req := formRequest(t, "/admin/products", productFields(f.csrfToken(t, cookie)), map[string][]string{"images": {"a.jpg"}})
	req.AddCookie(cookie)
	require.Equal(t, http.StatusOK, f.do(req).Code)

	req = formRequest(t, "/admin/products/images", map[string]string{
		"existingCategory":  "resin",
		"existingProductId": "moss-ring",
		"csrf_token":        f.csrfToken(t, cookie),
	}, map[string][]string{"extraImages": {"b.jpg", "c.jpg"}})
	req.AddCookie(cookie)
	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "2 image(s) added to Resin & Natur.", decodeResult(t, rec).Message)
	assert.Len(t, f.store.meta["resin/moss-ring"].Images, 3)

	req = formRequest(t, "/admin/products/images", map[string]string{
		"existingCategory":  "resin",
		"existingProductId": "moss-ring",
		"csrf_token":        f.csrfToken(t, cookie),
	}, nil)
	req.AddCookie(cookie)
	assert.Equal(t, http.StatusBadRequest, f.do(req).Code)
}

func TestImportHandler(t *testing.T) {
	f := newAdminFixture(testPassword)
	cookie := f.login(t)

	buf := workbook(t,
		[]interface{}{"category", "name", "description", "price", "stock"},
		[]interface{}{"junior", "Star Clip", "Hair clip", "49", "4"},
	)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("csrf_token", f.csrfToken(t, cookie)))
	part, err := w.CreateFormFile("catalog", "catalog.xlsx")
	require.NoError(t, err)
	_, err = part.Write(buf.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/admin/products/import", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.AddCookie(cookie)
	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res ImportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 4, f.store.meta["junior/star-clip"].Stock)

	// missing file field
	req = formRequest(t, "/admin/products/import", map[string]string{"csrf_token": f.csrfToken(t, cookie)}, nil)
	req.AddCookie(cookie)
	assert.Equal(t, http.StatusBadRequest, f.do(req).Code)
}
