package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-marketplace.git/internal/cart"
	"github.com/ariefcatur/go-marketplace.git/internal/catalog"
	"github.com/ariefcatur/go-marketplace.git/internal/postgres/pgtest"
	"github.com/ariefcatur/go-marketplace.git/internal/users"
)

type pgFixture struct {
	repo    *Repo
	carts   *cart.Repo
	factory *Factory
	userID  int64
	p1      int64
}

func newPgFixture(t *testing.T) pgFixture {
	db := pgtest.Start(t)
	userID := pgtest.SeedUser(t, db, "buyer@example.com", "12 Market St, Pune", users.RoleCustomer)
	p1 := pgtest.SeedProduct(t, db, "Organic Tomatoes", 150)
	repo := &Repo{DB: db}
	return pgFixture{
		repo:    repo,
		carts:   &cart.Repo{DB: db},
		factory: NewFactory(repo, &catalog.Repo{DB: db}, &users.Repo{DB: db}),
		userID:  userID,
		p1:      p1,
	}
}

func (f pgFixture) fillCart(t *testing.T, items ...cart.Item) {
	t.Helper()
	_, err := f.carts.Update(context.Background(), f.userID, true, func(c *cart.Cart) error {
		c.Items = cart.MergeItems(c.Items, items)
		c.ExpiresAt = time.Now().Add(time.Hour)
		return nil
	})
	require.NoError(t, err)
}

func TestRepo_CreateOrderLifecycle(t *testing.T) {
	f := newPgFixture(t)
	ctx := context.Background()
	f.fillCart(t, cart.Item{ProductID: f.p1, Quantity: 2})

	o, err := f.factory.CreateOrder(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), o.TotalPrice)
	assert.Equal(t, StatusPendingPayment, o.Status)

	c, err := f.carts.Get(ctx, f.userID)
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	got, err := f.repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Items, got.Items)
	assert.Nil(t, got.PaymentDetails)

	paid, err := NewReconciler(f.repo, nil).ApplyPaymentOutcome(ctx, o.ID, f.userID,
		PaymentOutcome{PaymentID: "pay_0123456789abcdef", Status: OutcomeSuccess, Amount: 300, Method: "card", Timestamp: time.Now().UTC()})
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, paid.Status)

	m := NewMachine(f.repo, nil)
	_, err = m.SetStatus(ctx, o.ID, StatusOutForDelivery)
	require.NoError(t, err)
	delivered, err := m.SetStatus(ctx, o.ID, StatusDelivered)
	require.NoError(t, err)
	assert.True(t, delivered.UpdatedAt.After(o.CreatedAt) || delivered.UpdatedAt.Equal(o.CreatedAt))

	_, err = m.SetStatus(ctx, o.ID, StatusCancelled)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	got, err = f.repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, got.Status)
	require.NotNil(t, got.PaymentDetails)
	assert.Equal(t, "pay_0123456789abcdef", got.PaymentDetails.PaymentID)

	list, err := f.repo.ListByUser(ctx, f.userID, 0, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	all, err := f.repo.ListAll(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRepo_ConcurrentCreateOrder(t *testing.T) {
	f := newPgFixture(t)
	f.fillCart(t, cart.Item{ProductID: f.p1, Quantity: 1})

	const n = 6
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		emptyCart int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.factory.CreateOrder(context.Background(), f.userID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, ErrEmptyCart):
				emptyCart++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, n-1, emptyCart)
	list, err := f.repo.ListByUser(context.Background(), f.userID, 0, 100)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRepo_UnknownProductKeepsCart(t *testing.T) {
	f := newPgFixture(t)
	ctx := context.Background()
	f.fillCart(t, cart.Item{ProductID: f.p1, Quantity: 1}, cart.Item{ProductID: 987654, Quantity: 1})

	_, err := f.factory.CreateOrder(ctx, f.userID)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)

	c, err := f.carts.Get(ctx, f.userID)
	require.NoError(t, err)
	assert.Len(t, c.Items, 2)
}

func TestRepo_GetMalformedID(t *testing.T) {
	f := newPgFixture(t)
	_, err := f.repo.Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
