package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-marketplace.git/internal/postgres/pgtest"
)

func TestRepo_UpsertAndLookups(t *testing.T) {
	db := pgtest.Start(t)
	repo := &Repo{DB: db}
	ctx := context.Background()

	p := &Product{Name: "Organic Tomatoes", Category: "vegetables", Price: 150, Stock: 3, Images: []string{"t.png"}}
	created, err := repo.Upsert(ctx, p)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotZero(t, p.ID)

	again := &Product{Name: "Organic Tomatoes", Category: "vegetables", Price: 175}
	created, err = repo.Upsert(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, p.ID, again.ID)

	price, err := repo.PriceOf(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(175), price)

	name, err := repo.NameOf(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Organic Tomatoes", name)

	got, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{}, got.Images)

	_, err = repo.PriceOf(ctx, 9999)
	assert.ErrorIs(t, err, ErrProductNotFound)
	_, err = repo.NameOf(ctx, 9999)
	assert.ErrorIs(t, err, ErrProductNotFound)
	_, err = repo.Get(ctx, 9999)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestRepo_ListByCategory(t *testing.T) {
	db := pgtest.Start(t)
	repo := &Repo{DB: db}
	ctx := context.Background()

	for _, p := range []*Product{
		{Name: "Apples", Category: "fruit", Price: 1},
		{Name: "Pears", Category: "fruit", Price: 2},
		{Name: "Leeks", Category: "vegetables", Price: 3},
	} {
		_, err := repo.Upsert(ctx, p)
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, 0, 10, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	fruit, err := repo.List(ctx, 1, 10, "fruit")
	require.NoError(t, err)
	require.Len(t, fruit, 1)
	assert.Equal(t, "Pears", fruit[0].Name)
}

func TestRepo_Search(t *testing.T) {
	db := pgtest.Start(t)
	repo := &Repo{DB: db}
	ctx := context.Background()

	for _, p := range []*Product{
		{Name: "Basmati Rice", Category: "grains", Description: "long grain", Price: 1},
		{Name: "Brown Bread", Category: "bakery", Description: "whole wheat, 100% rye free", Price: 2},
		{Name: "Wheat Flour", Category: "grains", Price: 3},
	} {
		_, err := repo.Upsert(ctx, p)
		require.NoError(t, err)
	}

	got, err := repo.Search(ctx, "WHEAT", 0, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Brown Bread", got[0].Name)
	assert.Equal(t, "Wheat Flour", got[1].Name)

	got, err = repo.Search(ctx, "grains", 1, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Wheat Flour", got[0].Name)

	got, err = repo.Search(ctx, "100%", 0, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1, "wildcards in the query are literal")

	got, err = repo.Search(ctx, "%", 0, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRepo_CreateUpdateDelete(t *testing.T) {
	db := pgtest.Start(t)
	repo := &Repo{DB: db}
	ctx := context.Background()

	p, err := repo.Create(ctx, &Product{Name: " Ghee ", Category: "dairy", Price: 500, Stock: 4})
	require.NoError(t, err)
	assert.Equal(t, "Ghee", p.Name)
	assert.Equal(t, []string{}, p.Images)

	_, err = repo.Create(ctx, &Product{Name: "Ghee", Price: 1})
	assert.ErrorIs(t, err, ErrDuplicateProduct)
	_, err = repo.Create(ctx, &Product{Name: "Bad", Price: -1})
	assert.ErrorIs(t, err, ErrInvalidProduct)

	price, stock := int64(450), 0
	up, err := repo.Update(ctx, p.ID, ProductPatch{Price: &price, Stock: &stock})
	require.NoError(t, err)
	assert.Equal(t, int64(450), up.Price)
	assert.Equal(t, 0, up.Stock)
	assert.Equal(t, "dairy", up.Category, "unset fields are kept")

	neg := -2
	_, err = repo.Update(ctx, p.ID, ProductPatch{WeightKg: &neg})
	assert.ErrorIs(t, err, ErrInvalidProduct)
	_, err = repo.Update(ctx, 9999, ProductPatch{Price: &price})
	assert.ErrorIs(t, err, ErrProductNotFound)

	other, err := repo.Create(ctx, &Product{Name: "Paneer", Price: 200})
	require.NoError(t, err)
	name := "Ghee"
	_, err = repo.Update(ctx, other.ID, ProductPatch{Name: &name})
	assert.ErrorIs(t, err, ErrDuplicateProduct)

	gone, err := repo.Delete(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ghee", gone.Name)
	_, err = repo.Get(ctx, p.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
	_, err = repo.Delete(ctx, p.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
}
