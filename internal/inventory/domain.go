package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category classifies catalog entries.
type Category string

const (
	CategoryAntenna   Category = "Antena"
	CategoryRouter    Category = "Roteador"
	CategoryCable     Category = "Cabo"
	CategoryMount     Category = "Suporte"
	CategoryPower     Category = "Fonte"
	CategoryAccessory Category = "Acessório"
	CategoryOther     Category = "Outros"
)

// Categories lists every accepted category in display order.
var Categories = []Category{
	CategoryAntenna,
	CategoryRouter,
	CategoryCable,
	CategoryMount,
	CategoryPower,
	CategoryAccessory,
	CategoryOther,
}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// PaymentMethod is how a sale was settled.
type PaymentMethod string

const (
	PaymentPix          PaymentMethod = "Pix"
	PaymentCash         PaymentMethod = "Dinheiro"
	PaymentCreditCard   PaymentMethod = "Cartão de Crédito"
	PaymentDebitCard    PaymentMethod = "Cartão de Débito"
	PaymentBankTransfer PaymentMethod = "Transferência"
	PaymentBoleto       PaymentMethod = "Boleto"
)

// PaymentMethods lists every accepted payment method.
var PaymentMethods = []PaymentMethod{
	PaymentPix,
	PaymentCash,
	PaymentCreditCard,
	PaymentDebitCard,
	PaymentBankTransfer,
	PaymentBoleto,
}

// Valid reports whether m is one of PaymentMethods.
func (m PaymentMethod) Valid() bool {
	for _, known := range PaymentMethods {
		if m == known {
			return true
		}
	}
	return false
}

// ReceiptKind tells the store whether a stock log moves stock.
type ReceiptKind string

const (
	// ReceiptOpeningBalance records stock a product was created with. It never changes stock.
	ReceiptOpeningBalance ReceiptKind = "opening_balance"
	// ReceiptReceiving records goods received for an existing product and increments its stock.
	ReceiptReceiving ReceiptKind = "receiving"
)

// Valid reports whether k is a known receipt kind.
func (k ReceiptKind) Valid() bool {
	return k == ReceiptOpeningBalance || k == ReceiptReceiving
}

// Product is a catalog entry with cost, price and current stock.
type Product struct {
	ID            string          `json:"id" validate:"required"`
	Name          string          `json:"name" validate:"required"`
	Category      Category        `json:"category" validate:"required"`
	SKU           string          `json:"sku" validate:"required"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SellPrice     decimal.Decimal `json:"sell_price"`
	Stock         int             `json:"stock" validate:"gte=0"`
	Supplier      string          `json:"supplier,omitempty"`
	EntryDate     time.Time       `json:"entry_date"`
	Images        []string        `json:"images,omitempty"`
}

// Sale is a recorded transaction. Total and Profit are frozen at creation.
type Sale struct {
	ID            string          `json:"id"`
	ProductID     string          `json:"product_id"`
	ProductName   string          `json:"product_name"`
	Quantity      int             `json:"quantity"`
	SoldPrice     decimal.Decimal `json:"sold_price"`
	ShippingCost  decimal.Decimal `json:"shipping_cost"`
	Total         decimal.Decimal `json:"total"`
	Profit        decimal.Decimal `json:"profit"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	CustomerName  string          `json:"customer_name,omitempty"`
	Date          time.Time       `json:"date"`
	ProofPhoto    string          `json:"proof_photo,omitempty"`
}

// StockLog is a recorded inventory receipt.
type StockLog struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitValue   decimal.Decimal `json:"unit_value"`
	Kind        ReceiptKind     `json:"kind"`
	Photo       string          `json:"photo,omitempty"`
	Date        time.Time       `json:"date"`
}

// ProductDraft carries the caller-supplied fields of a new product.
type ProductDraft struct {
	Name          string          `json:"name" validate:"required"`
	Category      Category        `json:"category" validate:"required"`
	SKU           string          `json:"sku" validate:"required"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SellPrice     decimal.Decimal `json:"sell_price"`
	Stock         int             `json:"stock" validate:"gte=0"`
	Supplier      string          `json:"supplier"`
	Images        []string        `json:"images"`
}

// SaleDraft carries the caller-supplied fields of a new sale.
type SaleDraft struct {
	ProductID     string          `json:"product_id" validate:"required"`
	Quantity      int             `json:"quantity" validate:"gt=0"`
	SoldPrice     decimal.Decimal `json:"sold_price"`
	ShippingCost  decimal.Decimal `json:"shipping_cost"`
	PaymentMethod PaymentMethod   `json:"payment_method" validate:"required"`
	CustomerName  string          `json:"customer_name"`
	ProofPhoto    string          `json:"proof_photo"`
}

// StockLogDraft carries the caller-supplied fields of a new stock receipt.
type StockLogDraft struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	UnitValue decimal.Decimal `json:"unit_value"`
	Kind      ReceiptKind     `json:"kind"`
	Photo     string          `json:"photo"`
}

// Snapshot is a point-in-time copy of the three collections.
type Snapshot struct {
	Products  []Product  `json:"products"`
	Sales     []Sale     `json:"sales"`
	StockLogs []StockLog `json:"stock_logs"`
}

func (s Snapshot) clone() Snapshot {
	out := Snapshot{
		Products:  make([]Product, len(s.Products)),
		Sales:     make([]Sale, len(s.Sales)),
		StockLogs: make([]StockLog, len(s.StockLogs)),
	}
	for i, p := range s.Products {
		if p.Images != nil {
			p.Images = append([]string(nil), p.Images...)
		}
		out.Products[i] = p
	}
	copy(out.Sales, s.Sales)
	copy(out.StockLogs, s.StockLogs)
	return out
}
