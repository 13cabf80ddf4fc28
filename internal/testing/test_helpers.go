// test_helpers.go - shared setup for the end-to-end shop tests
package testing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pixelverk/internal/cart"
	"pixelverk/internal/catalog"
	"pixelverk/internal/middleware"
	"pixelverk/internal/product"
	"pixelverk/internal/server"
	"pixelverk/internal/storage"
)

// AdminPassword is the password every suite is configured with
const AdminPassword = "test-admin-password"

// TestConfig holds configuration for test runs
type TestConfig struct {
	ProductsDir string
	CartsDB     string
	TestDataDir string
}

// TestSuite runs the full HTTP surface against temporary storage
type TestSuite struct {
	Config   TestConfig
	Server   *httptest.Server
	Client   *http.Client
	Products storage.Store
	Carts    cart.Store
	t        *testing.T
	logins   int
}

// NewTestSuite builds a server on a local product store and a sqlite cart store.
func NewTestSuite(t *testing.T, opts ...catalog.Option) *TestSuite {
	t.Helper()
	testDir := t.TempDir()

	config := TestConfig{
		ProductsDir: filepath.Join(testDir, "products"),
		CartsDB:     filepath.Join(testDir, "carts.db"),
		TestDataDir: testDir,
	}

	products, err := storage.NewLocalStore(config.ProductsDir)
	if err != nil {
		t.Fatalf("Failed to create product store: %v", err)
	}
	carts, err := cart.OpenSQLiteStore(context.Background(), config.CartsDB)
	if err != nil {
		t.Fatalf("Failed to open cart database: %v", err)
	}

	handler := middleware.Chain(server.Routes(server.Dependencies{
		Products:      products,
		Carts:         carts,
		AdminPassword: AdminPassword,
		Catalog:       opts,
	}))

	suite := &TestSuite{
		Config:   config,
		Server:   httptest.NewServer(handler),
		Products: products,
		Carts:    carts,
		t:        t,
	}
	suite.Client = suite.NewClient()

	t.Cleanup(func() {
		suite.Cleanup()
	})
	return suite
}

// NewClient returns a client with its own cookie jar, i.e. a separate visitor.
func (ts *TestSuite) NewClient() *http.Client {
	jar, err := cookiejar.New(nil)
	if err != nil {
		ts.t.Fatalf("Failed to create cookie jar: %v", err)
	}
	return &http.Client{Jar: jar, Timeout: 30 * time.Second}
}

// Cleanup stops the server and closes the stores
func (ts *TestSuite) Cleanup() {
	if ts.Server != nil {
		ts.Server.Close()
	}
	if ts.Carts != nil {
		ts.Carts.Close()
	}
	if ts.Products != nil {
		ts.Products.Close()
	}
}

// SeedProduct writes a product directly into storage, bypassing the admin flow
func (ts *TestSuite) SeedProduct(category product.Category, id string, meta product.Metadata) {
	ts.t.Helper()
	meta.ID = id
	meta.Category = string(category)
	if err := ts.Products.SaveMetadata(context.Background(), string(category), id, meta); err != nil {
		ts.t.Fatalf("Failed to seed %s/%s: %v", category, id, err)
	}
}

// MakeAPIRequest sends a JSON request with client, or the suite client when nil
func (ts *TestSuite) MakeAPIRequest(client *http.Client, method, path string, body interface{}) (*http.Response, error) {
	if client == nil {
		client = ts.Client
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return client.Do(req)
}

// Upload is one file in a multipart form
type Upload struct {
	Field    string
	Filename string
	Content  []byte
}

// PostForm sends a multipart form the way the admin page does
func (ts *TestSuite) PostForm(client *http.Client, path string, fields map[string]string, uploads ...Upload) (*http.Response, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	for _, u := range uploads {
		part, err := w.CreateFormFile(u.Field, u.Filename)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(u.Content); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+path, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return client.Do(req)
}

// AdminSession logs a fresh client in and returns it. Each session logs in
// from its own forwarded address so the login limiter stays out of the way.
func (ts *TestSuite) AdminSession() *http.Client {
	ts.t.Helper()
	client := ts.NewClient()
	ts.logins++

	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+"/admin/login",
		strings.NewReader(`{"password":"`+AdminPassword+`"}`))
	ts.AssertNoError(err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", ts.logins))

	resp, err := client.Do(req)
	ts.AssertNoError(err)
	ts.AssertStatusCode(resp, http.StatusOK)
	resp.Body.Close()
	return client
}

// CSRFToken fetches a single-use form token for client
func (ts *TestSuite) CSRFToken(client *http.Client) string {
	ts.t.Helper()
	resp, err := ts.MakeAPIRequest(client, http.MethodGet, "/admin/csrf-token", nil)
	ts.AssertNoError(err)
	var body map[string]string
	ts.AssertNoError(ts.ParseJSONResponse(resp, &body))
	return body["csrf_token"]
}

// ParseJSONResponse decodes and closes resp
func (ts *TestSuite) ParseJSONResponse(resp *http.Response, dest interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(dest)
}

// AssertStatusCode fails the test when resp has an unexpected status
func (ts *TestSuite) AssertStatusCode(resp *http.Response, expected int) {
	ts.t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		resp.Body = io.NopCloser(bytes.NewReader(body))
		ts.t.Fatalf("Expected status %d, got %d: %s", expected, resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

// AssertNoError fails the test on err
func (ts *TestSuite) AssertNoError(err error) {
	ts.t.Helper()
	if err != nil {
		ts.t.Fatalf("Unexpected error: %v", err)
	}
}

// Imagef makes a distinct fake image payload
func Imagef(format string, v ...interface{}) []byte {
	return []byte(fmt.Sprintf(format, v...))
}
