package badger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/cotalabs/cotiza/internal/common"
	"github.com/cotalabs/cotiza/internal/models"
)

func testDB(t *testing.T) *BadgerDB {
	t.Helper()
	db, err := NewBadgerDB(arbor.NewLogger(), &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "cotiza-test"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveProductsInsertsAndAssignsIDs(t *testing.T) {
	db := testDB(t)
	store := NewProductStorage(db, arbor.NewLogger())
	ctx := context.Background()

	products := []*models.Product{
		{Name: "Mouse sem fio", URL: "https://a.example/p/1", PriceValue: 59.9},
		{Name: "Mousepad", URL: "https://a.example/p/2", PriceValue: 19.9},
	}

	result, err := store.SaveProducts(ctx, "forn_a", "user_1", products)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Saved)
	assert.Empty(t, result.Errors)

	for _, product := range products {
		assert.NotEmpty(t, product.ID, "insert must populate the ID in place")
		assert.Equal(t, "forn_a", product.SupplierID)
		assert.Equal(t, "user_1", product.CreatedBy)

		stored, err := store.GetProduct(ctx, product.ID)
		require.NoError(t, err)
		assert.Equal(t, product.Name, stored.Name)
	}
}

func TestSaveProductsSkipsDuplicates(t *testing.T) {
	db := testDB(t)
	store := NewProductStorage(db, arbor.NewLogger())
	ctx := context.Background()

	first := []*models.Product{{Name: "Cabo HDMI", URL: "https://a.example/p/9"}}
	result, err := store.SaveProducts(ctx, "forn_a", "", first)
	require.NoError(t, err)
	require.Equal(t, 1, result.Saved)

	// Same supplier + name + URL, different casing and padding.
	again := []*models.Product{
		{Name: "  cabo hdmi ", URL: "https://a.example/p/9"},
		{Name: "Cabo HDMI", URL: "https://a.example/p/10"}, // different URL is a new product
	}
	result, err = store.SaveProducts(ctx, "forn_a", "", again)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Saved)
	assert.Empty(t, again[0].ID, "duplicate must not be inserted")
	assert.NotEmpty(t, again[1].ID)

	listed, err := store.ListProducts(ctx, "forn_a", 0)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestSaveProductsSeparateSuppliersDoNotCollide(t *testing.T) {
	db := testDB(t)
	store := NewProductStorage(db, arbor.NewLogger())
	ctx := context.Background()

	result, err := store.SaveProducts(ctx, "forn_a", "", []*models.Product{{Name: "Filtro de linha", URL: "u"}})
	require.NoError(t, err)
	require.Equal(t, 1, result.Saved)

	result, err = store.SaveProducts(ctx, "forn_b", "", []*models.Product{{Name: "Filtro de linha", URL: "u"}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Saved, "dedupe is per supplier")
}

func TestSaveProductsRequiresSupplier(t *testing.T) {
	db := testDB(t)
	store := NewProductStorage(db, arbor.NewLogger())

	_, err := store.SaveProducts(context.Background(), "", "", []*models.Product{{Name: "x"}})
	assert.Error(t, err)
}

func TestSaveProductsAccumulatesErrors(t *testing.T) {
	db := testDB(t)
	store := NewProductStorage(db, arbor.NewLogger())

	result, err := store.SaveProducts(context.Background(), "forn_a", "", []*models.Product{
		{Name: "", URL: "sem-nome"},
		{Name: "Valido", URL: "https://a.example/p/1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Saved)
	assert.Len(t, result.Errors, 1, "nameless product is reported, not fatal")
}

func TestDeleteProduct(t *testing.T) {
	db := testDB(t)
	store := NewProductStorage(db, arbor.NewLogger())
	ctx := context.Background()

	products := []*models.Product{{Name: "Descartavel", URL: "u"}}
	_, err := store.SaveProducts(ctx, "forn_a", "", products)
	require.NoError(t, err)

	require.NoError(t, store.DeleteProduct(ctx, products[0].ID))
	_, err = store.GetProduct(ctx, products[0].ID)
	assert.Error(t, err)
	assert.Error(t, store.DeleteProduct(ctx, products[0].ID))
}
