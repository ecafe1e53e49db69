package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-marketplace.git/internal/auth"
	"github.com/ariefcatur/go-marketplace.git/internal/cart"
	"github.com/ariefcatur/go-marketplace.git/internal/catalog"
	"github.com/ariefcatur/go-marketplace.git/internal/orders"
	"github.com/ariefcatur/go-marketplace.git/internal/payment"
	"github.com/ariefcatur/go-marketplace.git/internal/users"
)

type CartService interface {
	Get(ctx context.Context, userID int64) (*cart.Cart, error)
	ReplaceItems(ctx context.Context, userID int64, items []cart.Item) (*cart.Cart, error)
	RemoveItem(ctx context.Context, userID, productID int64) (*cart.Cart, error)
	Clear(ctx context.Context, userID int64) error
}

type OrderCreator interface {
	CreateOrder(ctx context.Context, userID int64) (*orders.Order, error)
}

type StatusSetter interface {
	SetStatus(ctx context.Context, orderID string, target orders.Status) (*orders.Order, error)
}

type OrderQuery interface {
	Get(ctx context.Context, orderID string) (*orders.Order, error)
	ListByUser(ctx context.Context, userID int64, skip, limit int) ([]orders.Order, error)
	ListAll(ctx context.Context, skip, limit int) ([]orders.Order, error)
}

type StatusCache interface {
	Get(ctx context.Context, orderID string) (orders.StatusView, error)
	Put(ctx context.Context, o *orders.Order)
}

type Payer interface {
	Pay(ctx context.Context, userID int64, req payment.PayRequest) (*payment.Receipt, error)
}

type ProductCatalog interface {
	Get(ctx context.Context, id int64) (*catalog.Product, error)
	List(ctx context.Context, skip, limit int, category string) ([]catalog.Product, error)
	Search(ctx context.Context, query string, skip, limit int) ([]catalog.Product, error)
	Upsert(ctx context.Context, p *catalog.Product) (bool, error)
	Create(ctx context.Context, p *catalog.Product) (*catalog.Product, error)
	Update(ctx context.Context, id int64, patch catalog.ProductPatch) (*catalog.Product, error)
	Delete(ctx context.Context, id int64) (*catalog.Product, error)
}

type Accounts interface {
	Create(ctx context.Context, u users.NewUser) (*users.User, error)
	Authenticate(ctx context.Context, email, password string) (*users.User, error)
	Get(ctx context.Context, id int64) (*users.User, error)
	UpdateProfile(ctx context.Context, id int64, p users.ProfileUpdate) (*users.User, error)
}

// API holds the collaborators behind the REST surface.
type API struct {
	Auth     *auth.Authenticator
	Accounts Accounts
	Cart     CartService
	Factory  OrderCreator
	Machine  StatusSetter
	Orders   OrderQuery
	Status   StatusCache
	Payments Payer
	Catalog  ProductCatalog

	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (a *API) Register(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", a.signup)
		r.Post("/login", a.login)
		r.Post("/refresh", a.refresh)
		r.Post("/logout", a.logout)
	})

	r.Get("/products", a.listProducts)
	r.Get("/products/search", a.searchProducts)
	r.Get("/products/category/{category}", a.listCategory)
	r.Get("/products/{id}", a.getProduct)

	r.Group(func(r chi.Router) {
		r.Use(a.Auth.Middleware)

		r.Get("/users/profile", a.getProfile)
		r.Put("/users/profile", a.updateProfile)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleAdmin))
			r.Post("/products", a.createProduct)
			r.Put("/products/{id}", a.updateProduct)
			r.Delete("/products/{id}", a.deleteProduct)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", a.getCart)
			r.Post("/", a.replaceCart)
			r.Post("/clear", a.clearCart)
			r.Post("/remove_item", a.removeCartItem)
		})

		r.Route("/order", func(r chi.Router) {
			r.Post("/", a.createOrder)
			r.Get("/", a.listOrders)
			r.Post("/payment", a.pay)
			r.With(auth.RequireRole(auth.RoleAdmin)).Put("/change-status", a.changeStatus)
			r.Get("/{id}", a.getOrder)
			r.Get("/{id}/status", a.getOrderStatus)
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(auth.RequireRole(auth.RoleAdmin, auth.RoleDelivery)).
				Post("/AuthoriseDelivery/{id}", a.authoriseDelivery)
			r.With(auth.RequireRole(auth.RoleAdmin)).Get("/orders", a.listAllOrders)
			r.With(auth.RequireRole(auth.RoleAdmin)).Post("/IngestProducts", a.ingestProducts)
		})
	})
}

// caller is only called behind auth.Middleware.
func caller(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}
