package inventory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummary(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, nil)
	products := seedCatalog(t, store)

	_, err := store.AddSale(ctx, SaleDraft{ProductID: products[0].ID, Quantity: 2, SoldPrice: dec("2100"), ShippingCost: dec("50"), PaymentMethod: PaymentPix})
	require.NoError(t, err)
	_, err = store.AddSale(ctx, SaleDraft{ProductID: products[3].ID, Quantity: 5, SoldPrice: dec("90"), PaymentMethod: PaymentCash})
	require.NoError(t, err)
	_, err = store.AddStockLog(ctx, StockLogDraft{ProductID: products[2].ID, Quantity: 2, UnitValue: dec("75"), Kind: ReceiptReceiving})
	require.NoError(t, err)

	sum := store.Summary(0)

	// stock: antena 8, roteador 3, cabo 2, suporte 7
	assert.Equal(t, "13605", sum.InventoryValue.String())   // 8*1500 + 3*400 + 2*80 + 7*35
	assert.Equal(t, "20480", sum.PotentialRevenue.String()) // 8*2200 + 3*650 + 2*150 + 7*90
	assert.Equal(t, "6875", sum.PotentialProfit.String())
	// logs: 10*1500 + 3*400 + 12*35 opening balances, plus 2*75 received
	assert.Equal(t, "16770", sum.HistoricalInvestment.String())
	assert.Equal(t, "4650", sum.TotalSold.String())
	assert.Equal(t, "1425", sum.TotalProfit.String()) // (4200-3000-50) + (450-175)
	assert.Equal(t, "50", sum.TotalShipping.String())
	assert.Equal(t, 4, sum.ProductCount)
	assert.Equal(t, 2, sum.SaleCount)

	assert.Equal(t, []string{"Roteador Mesh", "Cabo 45m"}, productNames(sum.LowStock))
	require.Len(t, sum.TopSellers, 2)
	assert.Equal(t, "Suporte de Parede", sum.TopSellers[0].Name)
	assert.Equal(t, 5, sum.TopSellers[0].Quantity)
	assert.Equal(t, 2, sum.TopSellers[1].Quantity)
}

func TestSummarize_TopSellersSkipDeletedAndCapAtFive(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, nil)

	var ids []string
	for i := 0; i < 7; i++ {
		p, err := store.AddProduct(ctx, ProductDraft{
			Name: fmt.Sprintf("Item %d", i), Category: CategoryAccessory, SKU: fmt.Sprintf("ACC-%d", i),
			PurchasePrice: dec("1"), SellPrice: dec("2"), Stock: 20,
		})
		require.NoError(t, err)
		_, err = store.AddSale(ctx, SaleDraft{ProductID: p.ID, Quantity: i + 1, SoldPrice: dec("2"), PaymentMethod: PaymentPix})
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}
	require.NoError(t, store.DeleteProduct(ctx, ids[6]))

	sum := Summarize(store.Snapshot(), 3)
	require.Len(t, sum.TopSellers, 5)
	assert.Equal(t, "Item 5", sum.TopSellers[0].Name, "deleted products do not rank")
	assert.Equal(t, "Item 1", sum.TopSellers[4].Name)
	assert.Empty(t, sum.LowStock)
	assert.Equal(t, 7, sum.SaleCount, "sales of deleted products still count")
}
