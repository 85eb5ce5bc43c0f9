package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"stock_pro/internal/inventory"
)

// BOM makes spreadsheet tools read the file as UTF-8.
const BOM = "\uFEFF"

const (
	separator  = ";"
	dateLayout = "02/01/2006"
)

// ProductHeaders are the column titles of the product export.
var ProductHeaders = []string{"ID", "Nome", "Categoria", "SKU", "Custo (R$)", "Venda (R$)", "Estoque", "Fornecedor", "Data Cadastro"}

// SaleHeaders are the column titles of the sales export.
var SaleHeaders = []string{"Data", "Produto", "Qtd", "Preço Unit.", "Frete", "Total Bruto", "Lucro Líquido", "Pagamento", "Cliente"}

// WriteProductsCSV writes the catalog as a semicolon separated file.
func WriteProductsCSV(w io.Writer, products []inventory.Product, loc *time.Location) error {
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		rows = append(rows, []string{
			p.ID,
			p.Name,
			string(p.Category),
			p.SKU,
			p.PurchasePrice.StringFixed(2),
			p.SellPrice.StringFixed(2),
			strconv.Itoa(p.Stock),
			p.Supplier,
			formatDate(p.EntryDate, loc),
		})
	}
	return writeDelimited(w, ProductHeaders, rows)
}

// WriteSalesCSV writes the sales history as a semicolon separated file.
func WriteSalesCSV(w io.Writer, sales []inventory.Sale, loc *time.Location) error {
	rows := make([][]string, 0, len(sales))
	for _, s := range sales {
		customer := s.CustomerName
		if customer == "" {
			customer = "N/A"
		}
		rows = append(rows, []string{
			formatDate(s.Date, loc),
			s.ProductName,
			strconv.Itoa(s.Quantity),
			s.SoldPrice.StringFixed(2),
			s.ShippingCost.StringFixed(2),
			s.Total.StringFixed(2),
			s.Profit.StringFixed(2),
			string(s.PaymentMethod),
			customer,
		})
	}
	return writeDelimited(w, SaleHeaders, rows)
}

// ProductsFilename names the product export after the local date of now.
func ProductsFilename(now time.Time) string {
	return fmt.Sprintf("estoque_starlink_%s.csv", now.Format("02-01-2006"))
}

// SalesFilename names the sales export after the local date of now.
func SalesFilename(now time.Time) string {
	return fmt.Sprintf("vendas_starlink_%s.csv", now.Format("02-01-2006"))
}

// Quote wraps a field in double quotes, doubling any quote inside it.
func Quote(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// writeDelimited emits the BOM, the bare header row and one row per record
// with every field quoted. Rows are joined by "\n" with no trailing newline.
func writeDelimited(w io.Writer, headers []string, rows [][]string) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(BOM + strings.Join(headers, separator)); err != nil {
		return err
	}
	for _, row := range rows {
		quoted := make([]string, len(row))
		for i, field := range row {
			quoted[i] = Quote(field)
		}
		if _, err := bw.WriteString("\n" + strings.Join(quoted, separator)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func formatDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(dateLayout)
}
