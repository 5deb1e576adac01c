package cart

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Discard,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Cart{}, &CartItem{}))
	return db
}

func TestGetOrCreateUserCartReturnsItems(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	ctx := context.Background()

	created, err := repo.GetOrCreateUserCart(ctx, "user-1")
	require.NoError(t, err)
	require.Empty(t, created.Items)

	require.NoError(t, repo.AddItem(ctx, created.ID, "prod-1", 2, "42", "black"))

	got, err := repo.GetOrCreateUserCart(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
	require.Len(t, got.Items, 1)
	require.Equal(t, "prod-1", got.Items[0].ProductID)
	require.Equal(t, 2, got.Items[0].Quantity)
	require.Equal(t, "42", got.Items[0].Size)
}

func TestGetOrCreateUserCartIsStablePerUser(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	ctx := context.Background()

	a, err := repo.GetOrCreateUserCart(ctx, "user-1")
	require.NoError(t, err)
	b, err := repo.GetOrCreateUserCart(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, a.ID, b.ID)

	other, err := repo.GetOrCreateUserCart(ctx, "user-2")
	require.NoError(t, err)
	require.NotEqual(t, a.ID, other.ID)
}

func TestAddItemMergesMatchingLine(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	ctx := context.Background()

	ct, err := repo.GetOrCreateUserCart(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, repo.AddItem(ctx, ct.ID, "prod-1", 1, "42", "black"))
	require.NoError(t, repo.AddItem(ctx, ct.ID, "prod-1", 2, "42", "black"))
	require.NoError(t, repo.AddItem(ctx, ct.ID, "prod-1", 1, "43", "black"))

	got, err := repo.GetCart(ctx, ct.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)

	byKey := map[string]int{}
	for _, it := range got.Items {
		byKey[it.ProductID+"/"+it.Size] = it.Quantity
	}
	require.Equal(t, 3, byKey["prod-1/42"])
	require.Equal(t, 1, byKey["prod-1/43"])
}

func TestUpdateItemQtyZeroRemovesLine(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	ctx := context.Background()

	ct, err := repo.GetOrCreateUserCart(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, repo.AddItem(ctx, ct.ID, "prod-1", 2, "", ""))

	got, err := repo.GetCart(ctx, ct.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)

	require.NoError(t, repo.UpdateItemQty(ctx, ct.ID, got.Items[0].ID, 0))

	got, err = repo.GetCart(ctx, ct.ID)
	require.NoError(t, err)
	require.Empty(t, got.Items)
}
