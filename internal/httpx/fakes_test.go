package httpx

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ariefcatur/go-marketplace.git/internal/cart"
	"github.com/ariefcatur/go-marketplace.git/internal/catalog"
	"github.com/ariefcatur/go-marketplace.git/internal/orders"
	"github.com/ariefcatur/go-marketplace.git/internal/payment"
	"github.com/ariefcatur/go-marketplace.git/internal/users"
)

type fakeCart struct {
	mu    sync.Mutex
	carts map[int64]*cart.Cart
}

func newFakeCart() *fakeCart { return &fakeCart{carts: map[int64]*cart.Cart{}} }

func (f *fakeCart) Get(_ context.Context, userID int64) (*cart.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.carts[userID]
	if !ok {
		return nil, cart.ErrCartNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCart) ReplaceItems(_ context.Context, userID int64, items []cart.Item) (*cart.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.carts[userID]
	if !ok {
		c = &cart.Cart{UserID: userID, Items: []cart.Item{}}
		f.carts[userID] = c
	}
	c.Items = cart.MergeItems(c.Items, items)
	cp := *c
	return &cp, nil
}

func (f *fakeCart) RemoveItem(_ context.Context, userID, productID int64) (*cart.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.carts[userID]
	if !ok {
		return nil, cart.ErrCartNotFound
	}
	items, found := cart.RemoveProduct(c.Items, productID)
	if !found {
		return nil, cart.ErrItemNotFound
	}
	c.Items = items
	cp := *c
	return &cp, nil
}

func (f *fakeCart) Clear(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.carts[userID]
	if !ok {
		return cart.ErrCartNotFound
	}
	c.Items = []cart.Item{}
	return nil
}

// fakeOrders is the order store plus a status machine over it.
type fakeOrders struct {
	mu     sync.Mutex
	orders map[string]*orders.Order
	seq    int
}

func newFakeOrders() *fakeOrders { return &fakeOrders{orders: map[string]*orders.Order{}} }

func (f *fakeOrders) add(userID int64, s orders.Status, total int64) *orders.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	o := &orders.Order{
		ID:        fmt.Sprintf("ord-%d", f.seq),
		UserID:    userID,
		Items:     []orders.Item{{ProductID: 1, ProductName: "Kettle", Quantity: 1, UnitPrice: total}},
		Status:    s,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	o.TotalPrice = orders.Total(o.Items)
	f.orders[o.ID] = o
	return o
}

func (f *fakeOrders) Get(_ context.Context, id string) (*orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) ListByUser(_ context.Context, userID int64, skip, limit int) ([]orders.Order, error) {
	all, _ := f.ListAll(context.Background(), 0, 1000)
	var out []orders.Order
	for _, o := range all {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return page(out, skip, limit), nil
}

func (f *fakeOrders) ListAll(_ context.Context, skip, limit int) ([]orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]orders.Order, 0, len(f.orders))
	for _, o := range f.orders {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, skip, limit), nil
}

func page(in []orders.Order, skip, limit int) []orders.Order {
	if skip >= len(in) {
		return nil
	}
	in = in[skip:]
	if limit < len(in) {
		in = in[:limit]
	}
	return in
}

func (f *fakeOrders) SetStatus(_ context.Context, id string, target orders.Status) (*orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	if !target.Valid() {
		return nil, orders.ErrInvalidStatus
	}
	if !orders.CanTransition(o.Status, target) {
		return nil, orders.ErrIllegalTransition
	}
	o.Status = target
	cp := *o
	return &cp, nil
}

type fakeFactory struct {
	fn func(userID int64) (*orders.Order, error)
}

func (f fakeFactory) CreateOrder(_ context.Context, userID int64) (*orders.Order, error) {
	return f.fn(userID)
}

type fakeStatusCache struct {
	mu    sync.Mutex
	views map[string]orders.StatusView
	puts  int
}

func (f *fakeStatusCache) Get(_ context.Context, id string) (orders.StatusView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.views[id]
	if !ok {
		return orders.StatusView{}, orders.ErrStatusNotCached
	}
	return v, nil
}

func (f *fakeStatusCache) Put(_ context.Context, o *orders.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	f.views[o.ID] = orders.StatusView{OrderID: o.ID, UserID: o.UserID, Status: o.Status, UpdatedAt: o.UpdatedAt}
}

type fakePayer struct {
	got []payment.PayRequest
	fn  func(userID int64, req payment.PayRequest) (*payment.Receipt, error)
}

func (f *fakePayer) Pay(_ context.Context, userID int64, req payment.PayRequest) (*payment.Receipt, error) {
	f.got = append(f.got, req)
	return f.fn(userID, req)
}

type fakeCatalog struct {
	mu       sync.Mutex
	products map[int64]*catalog.Product
	byName   map[string]int64
}

func newFakeCatalog(ps ...catalog.Product) *fakeCatalog {
	f := &fakeCatalog{products: map[int64]*catalog.Product{}, byName: map[string]int64{}}
	for i := range ps {
		p := ps[i]
		f.products[p.ID] = &p
		f.byName[p.Name] = p.ID
	}
	return f
}

func (f *fakeCatalog) Get(_ context.Context, id int64) (*catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeCatalog) List(_ context.Context, skip, limit int, category string) ([]catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []catalog.Product
	for _, p := range f.products {
		if category == "" || p.Category == category {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if skip >= len(out) {
		return nil, nil
	}
	out = out[skip:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeCatalog) Upsert(_ context.Context, p *catalog.Product) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.byName[p.Name]; ok {
		p.ID = id
		f.products[id] = p
		return false, nil
	}
	p.ID = int64(len(f.products) + 1)
	f.products[p.ID] = p
	f.byName[p.Name] = p.ID
	return true, nil
}

func (f *fakeCatalog) Search(_ context.Context, query string, skip, limit int) ([]catalog.Product, error) {
	all, _ := f.List(context.Background(), 0, 1000, "")
	q := strings.ToLower(query)
	var out []catalog.Product
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.Name+" "+p.Description+" "+p.Category), q) {
			out = append(out, p)
		}
	}
	if skip >= len(out) {
		return nil, nil
	}
	out = out[skip:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeCatalog) Create(_ context.Context, p *catalog.Product) (*catalog.Product, error) {
	if err := catalog.Validate(p); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byName[p.Name]; ok {
		return nil, catalog.ErrDuplicateProduct
	}
	cp := *p
	cp.ID = int64(len(f.products) + 1)
	f.products[cp.ID] = &cp
	f.byName[cp.Name] = cp.ID
	return &cp, nil
}

func (f *fakeCatalog) Update(_ context.Context, id int64, patch catalog.ProductPatch) (*catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	next := patch.Apply(*p)
	if err := catalog.Validate(&next); err != nil {
		return nil, err
	}
	f.products[id] = &next
	return &next, nil
}

func (f *fakeCatalog) Delete(_ context.Context, id int64) (*catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	delete(f.products, id)
	delete(f.byName, p.Name)
	return p, nil
}

type fakeAccounts struct {
	mu       sync.Mutex
	users    map[int64]*users.User
	password map[string]string
}

func newFakeAccounts(us ...users.User) *fakeAccounts {
	f := &fakeAccounts{users: map[int64]*users.User{}, password: map[string]string{}}
	for i := range us {
		u := us[i]
		f.users[u.ID] = &u
	}
	return f
}

func (f *fakeAccounts) Create(_ context.Context, nu users.NewUser) (*users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if nu.Email == "" || nu.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", users.ErrInvalidUser)
	}
	for _, u := range f.users {
		if u.Email == nu.Email {
			return nil, users.ErrEmailTaken
		}
	}
	u := &users.User{ID: int64(100 + len(f.users)), Name: nu.Name, Email: nu.Email, Location: nu.Location, Role: users.RoleCustomer}
	f.users[u.ID] = u
	f.password[u.Email] = nu.Password
	cp := *u
	return &cp, nil
}

func (f *fakeAccounts) Authenticate(_ context.Context, email, password string) (*users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email && f.password[email] == password && password != "" {
			cp := *u
			return &cp, nil
		}
	}
	return nil, users.ErrInvalidCredentials
}

func (f *fakeAccounts) Get(_ context.Context, id int64) (*users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeAccounts) UpdateProfile(_ context.Context, id int64, p users.ProfileUpdate) (*users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Location != nil {
		u.Location = *p.Location
	}
	if p.ContactNumber != nil {
		u.ContactNumber = *p.ContactNumber
	}
	cp := *u
	return &cp, nil
}
