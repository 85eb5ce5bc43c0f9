package inventory

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultLowStockThreshold flags products holding fewer units than this.
const DefaultLowStockThreshold = 5

const topSellersLimit = 5

// ProductSales is the quantity sold of one catalog product.
type ProductSales struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

// Summary is the financial dashboard.
type Summary struct {
	InventoryValue       decimal.Decimal `json:"inventory_value"`
	PotentialRevenue     decimal.Decimal `json:"potential_revenue"`
	PotentialProfit      decimal.Decimal `json:"potential_profit"`
	HistoricalInvestment decimal.Decimal `json:"historical_investment"`
	TotalSold            decimal.Decimal `json:"total_sold"`
	TotalProfit          decimal.Decimal `json:"total_profit"`
	TotalShipping        decimal.Decimal `json:"total_shipping"`
	ProductCount         int             `json:"product_count"`
	SaleCount            int             `json:"sale_count"`
	LowStock             []Product       `json:"low_stock"`
	TopSellers           []ProductSales  `json:"top_sellers"`
}

// Summary computes the dashboard over the current state.
func (s *Store) Summary(lowStockThreshold int) Summary {
	return Summarize(s.Snapshot(), lowStockThreshold)
}

// Summarize computes the dashboard over snap. A non-positive threshold uses
// DefaultLowStockThreshold.
func Summarize(snap Snapshot, lowStockThreshold int) Summary {
	if lowStockThreshold <= 0 {
		lowStockThreshold = DefaultLowStockThreshold
	}
	sum := Summary{
		ProductCount: len(snap.Products),
		SaleCount:    len(snap.Sales),
		LowStock:     []Product{},
		TopSellers:   []ProductSales{},
	}

	for _, p := range snap.Products {
		stock := decimal.NewFromInt(int64(p.Stock))
		sum.InventoryValue = sum.InventoryValue.Add(p.PurchasePrice.Mul(stock))
		sum.PotentialRevenue = sum.PotentialRevenue.Add(p.SellPrice.Mul(stock))
		sum.PotentialProfit = sum.PotentialProfit.Add(p.SellPrice.Sub(p.PurchasePrice).Mul(stock))
		if p.Stock < lowStockThreshold {
			sum.LowStock = append(sum.LowStock, p)
		}
	}
	for _, log := range snap.StockLogs {
		sum.HistoricalInvestment = sum.HistoricalInvestment.Add(log.UnitValue.Mul(decimal.NewFromInt(int64(log.Quantity))))
	}

	sold := make(map[string]int, len(snap.Products))
	for _, sale := range snap.Sales {
		sum.TotalSold = sum.TotalSold.Add(sale.Total)
		sum.TotalProfit = sum.TotalProfit.Add(sale.Profit)
		sum.TotalShipping = sum.TotalShipping.Add(sale.ShippingCost)
		sold[sale.ProductID] += sale.Quantity
	}

	// Only products still in the catalog rank as top sellers.
	for _, p := range snap.Products {
		if qty := sold[p.ID]; qty > 0 {
			sum.TopSellers = append(sum.TopSellers, ProductSales{ProductID: p.ID, Name: p.Name, Quantity: qty})
		}
	}
	sort.SliceStable(sum.TopSellers, func(i, j int) bool {
		return sum.TopSellers[i].Quantity > sum.TopSellers[j].Quantity
	})
	if len(sum.TopSellers) > topSellersLimit {
		sum.TopSellers = sum.TopSellers[:topSellersLimit]
	}
	return sum
}
