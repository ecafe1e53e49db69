package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-marketplace.git/internal/cart"
	"github.com/ariefcatur/go-marketplace.git/internal/catalog"
	"github.com/ariefcatur/go-marketplace.git/internal/users"
)

// memStore serializes every transaction on one mutex, which is stricter
// than the row locks Postgres takes but gives the same visible outcome.
type memStore struct {
	mu         sync.Mutex
	carts      map[int64]*cart.Cart
	orders     map[string]*Order
	failInsert error
	failClear  error
}

func newMemStore() *memStore {
	return &memStore{carts: map[int64]*cart.Cart{}, orders: map[string]*Order{}}
}

func (m *memStore) putCart(userID int64, items ...cart.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[userID] = &cart.Cart{ID: userID, UserID: userID, Items: items}
}

func (m *memStore) cartItems(userID int64) []cart.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[userID]
	if !ok {
		return nil
	}
	return append([]cart.Item(nil), c.Items...)
}

func (m *memStore) putOrder(o *Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = cloneOrder(o)
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{m: m, carts: map[int64]*cart.Cart{}, orders: map[string]*Order{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for id, c := range tx.carts {
		m.carts[id] = c
	}
	for id, o := range tx.orders {
		m.orders[id] = o
	}
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (m *memStore) ListByUser(_ context.Context, userID int64, skip, limit int) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *cloneOrder(o))
		}
	}
	return page(out, skip, limit), nil
}

func (m *memStore) ListAll(_ context.Context, skip, limit int) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	for _, o := range m.orders {
		out = append(out, *cloneOrder(o))
	}
	return page(out, skip, limit), nil
}

func page(out []Order, skip, limit int) []Order {
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if skip >= len(out) {
		return []Order{}
	}
	out = out[skip:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out
}

// memTx stages writes and only publishes them when InTx commits.
type memTx struct {
	m      *memStore
	carts  map[int64]*cart.Cart
	orders map[string]*Order
}

func (t *memTx) LockCart(_ context.Context, userID int64) (*cart.Cart, error) {
	if c, ok := t.carts[userID]; ok {
		return cloneCart(c), nil
	}
	c, ok := t.m.carts[userID]
	if !ok {
		return nil, cart.ErrCartNotFound
	}
	return cloneCart(c), nil
}

func (t *memTx) ClearCart(_ context.Context, c *cart.Cart) error {
	if t.m.failClear != nil {
		return t.m.failClear
	}
	cc := cloneCart(c)
	cc.Items = []cart.Item{}
	t.carts[c.UserID] = cc
	c.Items = []cart.Item{}
	return nil
}

func (t *memTx) InsertOrder(_ context.Context, o *Order) error {
	if t.m.failInsert != nil {
		return t.m.failInsert
	}
	t.orders[o.ID] = cloneOrder(o)
	return nil
}

func (t *memTx) LockOrder(_ context.Context, id string) (*Order, error) {
	if o, ok := t.orders[id]; ok {
		return cloneOrder(o), nil
	}
	o, ok := t.m.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (t *memTx) UpdateStatus(ctx context.Context, id string, s Status) (time.Time, error) {
	o, err := t.LockOrder(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	o.Status = s
	o.UpdatedAt = time.Now().UTC()
	t.orders[id] = o
	return o.UpdatedAt, nil
}

func (t *memTx) SetPayment(ctx context.Context, id string, p PaymentOutcome, s Status) (time.Time, error) {
	o, err := t.LockOrder(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	o.Status = s
	o.PaymentDetails = &p
	o.UpdatedAt = time.Now().UTC()
	t.orders[id] = o
	return o.UpdatedAt, nil
}

func cloneCart(c *cart.Cart) *cart.Cart {
	cp := *c
	cp.Items = append([]cart.Item(nil), c.Items...)
	return &cp
}

func cloneOrder(o *Order) *Order {
	cp := *o
	cp.Items = append([]Item(nil), o.Items...)
	if o.PaymentDetails != nil {
		pd := *o.PaymentDetails
		cp.PaymentDetails = &pd
	}
	return &cp
}

type product struct {
	name  string
	price int64
}

type fakeCatalog map[int64]product

func (f fakeCatalog) PriceOf(_ context.Context, id int64) (int64, error) {
	p, ok := f[id]
	if !ok {
		return 0, catalog.ErrProductNotFound
	}
	return p.price, nil
}

func (f fakeCatalog) NameOf(_ context.Context, id int64) (string, error) {
	p, ok := f[id]
	if !ok {
		return "", catalog.ErrProductNotFound
	}
	return p.name, nil
}

type fakeAddresses map[int64]string

func (f fakeAddresses) AddressOf(_ context.Context, userID int64) (string, error) {
	a, ok := f[userID]
	if !ok {
		return "", users.ErrNoAddress
	}
	return a, nil
}

type recordingListener struct {
	mu       sync.Mutex
	created  []*Order
	changes  []string
	payments []*Order
}

func (r *recordingListener) OrderCreated(_ context.Context, o *Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, cloneOrder(o))
}

func (r *recordingListener) StatusChanged(_ context.Context, o *Order, from Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, from.String()+"->"+o.Status.String())
}

func (r *recordingListener) PaymentApplied(_ context.Context, o *Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments = append(r.payments, cloneOrder(o))
}

type countingInvalidator struct {
	mu    sync.Mutex
	users []int64
}

func (c *countingInvalidator) Invalidate(_ context.Context, userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users = append(c.users, userID)
}
