// internal/admin/handlers.go
package admin

import (
	"mime/multipart"
	"net/http"
	"time"

	"pixelverk/internal/logger"
	"pixelverk/internal/middleware"
	"pixelverk/internal/storage"
)

const maxUploadMemory = 32 << 20

// LoginInterval is the minimum time between login attempts from one client.
const LoginInterval = 2 * time.Second

// TokenValidator checks single-use form tokens.
type TokenValidator interface {
	Validate(token string) bool
	TokenHandler(w http.ResponseWriter, r *http.Request)
}

type Handler struct {
	auth         *Authenticator
	service      *Service
	csrf         TokenValidator
	loginLimiter *middleware.RateLimiter
}

func NewHandler(auth *Authenticator, service *Service, csrf TokenValidator) *Handler {
	return &Handler{
		auth:         auth,
		service:      service,
		csrf:         csrf,
		loginLimiter: middleware.NewRateLimiter(LoginInterval),
	}
}

// Register mounts the admin surface on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin/status", h.StatusHandler)
	mux.HandleFunc("GET /admin/csrf-token", h.CSRFTokenHandler)
	mux.HandleFunc("POST /admin/login", h.loginLimiter.Limit(h.LoginHandler))
	mux.HandleFunc("POST /admin/logout", h.LogoutHandler)
	mux.HandleFunc("POST /admin/products", h.CreateProductHandler)
	mux.HandleFunc("POST /admin/products/images", h.AppendImagesHandler)
	mux.HandleFunc("POST /admin/products/import", h.ImportHandler)
}

type statusResponse struct {
	Ready      bool `json:"ready"`
	Authorized bool `json:"authorized"`
}

type loginRequest struct {
	Password string `json:"password"`
}

func writeResult(w http.ResponseWriter, r *http.Request, res Result) {
	if res.Kind == StorageFailure {
		logger.LogHTTPError(r, http.StatusInternalServerError, res.Err())
	}
	middleware.WriteJSON(w, res.Kind.HTTPStatus(), res)
}

// StatusHandler tells the admin page whether to show the login form.
func (h *Handler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	access := h.auth.Check(r)
	middleware.WriteJSON(w, http.StatusOK, statusResponse{Ready: access.Ready, Authorized: access.Authorized})
}

// CSRFTokenHandler issues form tokens to logged-in admins only.
func (h *Handler) CSRFTokenHandler(w http.ResponseWriter, r *http.Request) {
	if res, ok := authorize(h.auth.Check(r)); !ok {
		writeResult(w, r, res)
		return
	}
	h.csrf.TokenHandler(w, r)
}

func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if !h.auth.Ready() {
		writeResult(w, r, fail(NotReady, "Admin is not configured. Set ADMIN_PASSWORD to enable it."))
		return
	}

	var req loginRequest
	if err := middleware.ParseJSONRequest(r, &req); err != nil || req.Password == "" {
		middleware.WriteJSON(w, http.StatusBadRequest, fail(Unauthorized, "Wrong password."))
		return
	}

	if !h.auth.ValidatePassword(req.Password) {
		logger.LogWarn("Failed admin login from %s", logger.GetClientIP(r))
		writeResult(w, r, fail(Unauthorized, "Wrong password."))
		return
	}

	h.auth.SetCookie(w)
	logger.LogInfo("Admin logged in from %s", logger.GetClientIP(r))
	writeResult(w, r, succeed("Logged in."))
}

func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	h.auth.ClearCookie(w)
	writeResult(w, r, succeed("Logged out."))
}

// parseForm checks admin access, then reads the multipart form and its CSRF
// token. It writes the response itself when it returns false.
func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) (Access, bool) {
	access := h.auth.Check(r)
	if res, ok := authorize(access); !ok {
		writeResult(w, r, res)
		return Access{}, false
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		logger.LogHTTPError(r, http.StatusBadRequest, err)
		middleware.WriteJSON(w, http.StatusBadRequest, Result{Success: false, Message: "Invalid form submission."})
		return Access{}, false
	}

	if !h.csrf.Validate(r.FormValue("csrf_token")) {
		logger.LogWarn("Rejected admin form with bad CSRF token from %s", logger.GetClientIP(r))
		middleware.WriteJSON(w, http.StatusForbidden, Result{Success: false, Message: "The form has expired. Reload the page and try again."})
		return Access{}, false
	}
	return access, true
}

// openImages opens every non-empty upload under field. The returned func
// closes them.
func openImages(r *http.Request, field string) ([]storage.Image, func(), error) {
	var files []multipart.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}

	var images []storage.Image
	for _, fh := range r.MultipartForm.File[field] {
		if fh.Size <= 0 {
			continue
		}
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		files = append(files, f)
		images = append(images, storage.Image{Name: fh.Filename, Body: f})
	}
	return images, closeAll, nil
}

// CreateProductHandler handles the new product form.
func (h *Handler) CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	access, ok := h.parseForm(w, r)
	if !ok {
		return
	}

	images, closeImages, err := openImages(r, "images")
	if err != nil {
		writeResult(w, r, storageFailure(err))
		return
	}
	defer closeImages()

	res := h.service.CreateProduct(r.Context(), access, CreateInput{
		Category:    r.FormValue("category"),
		ProductID:   r.FormValue("productId"),
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Price:       r.FormValue("price"),
		Stock:       r.FormValue("stock"),
		Images:      images,
	})
	writeResult(w, r, res)
}

// AppendImagesHandler handles the extra images form.
func (h *Handler) AppendImagesHandler(w http.ResponseWriter, r *http.Request) {
	access, ok := h.parseForm(w, r)
	if !ok {
		return
	}

	images, closeImages, err := openImages(r, "extraImages")
	if err != nil {
		writeResult(w, r, storageFailure(err))
		return
	}
	defer closeImages()

	res := h.service.AppendImages(r.Context(), access, AppendInput{
		Category:  r.FormValue("existingCategory"),
		ProductID: r.FormValue("existingProductId"),
		Images:    images,
	})
	writeResult(w, r, res)
}

// ImportHandler handles an Excel catalog upload in the "catalog" field.
func (h *Handler) ImportHandler(w http.ResponseWriter, r *http.Request) {
	access, ok := h.parseForm(w, r)
	if !ok {
		return
	}

	f, _, err := r.FormFile("catalog")
	if err != nil {
		writeResult(w, r, fail(InvalidWorkbook, "Choose an Excel file to import."))
		return
	}
	defer f.Close()

	res := h.service.ImportCatalog(r.Context(), access, f)
	if res.Kind == StorageFailure {
		logger.LogHTTPError(r, http.StatusInternalServerError, res.Err())
	}
	middleware.WriteJSON(w, res.Kind.HTTPStatus(), res)
}
