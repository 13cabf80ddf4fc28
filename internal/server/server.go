// internal/server/server.go
package server

import (
	"net/http"

	"pixelverk/internal/admin"
	"pixelverk/internal/cart"
	"pixelverk/internal/catalog"
	"pixelverk/internal/middleware"
	"pixelverk/internal/security"
	"pixelverk/internal/shop"
	"pixelverk/internal/storage"
)

// Dependencies are the stores the HTTP surface is built on
type Dependencies struct {
	Products      storage.Store
	Carts         cart.Store
	AdminPassword string
	Catalog       []catalog.Option
	Notifier      cart.OrderNotifier // optional
}

// Routes wires the catalog, cart and admin surfaces onto one mux
func Routes(deps Dependencies) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	loader := catalog.NewLoader(deps.Products, deps.Catalog...)
	pages := shop.NewPageCache()

	shop.NewHandler(loader, pages).Register(mux)
	var cartOpts []cart.Option
	if deps.Notifier != nil {
		cartOpts = append(cartOpts, cart.WithOrderNotifier(deps.Notifier))
	}
	cart.NewHandler(deps.Carts, loader, cartOpts...).Register(mux)

	auth := admin.NewAuthenticator(deps.AdminPassword)
	service := admin.NewService(deps.Products, pages)
	admin.NewHandler(auth, service, security.NewCSRFStore(security.DefaultCSRFTokenTTL)).Register(mux)

	mux.Handle("GET /products/", deps.Products)

	// Anything unmatched gets a JSON 404 instead of the mux's text one
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteAPIError(w, r, http.StatusNotFound, "not_found", "Not found", "")
	})

	return mux
}
