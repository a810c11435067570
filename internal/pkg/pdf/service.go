// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/order"
)

// Service handles PDF generation
type Service struct {
	config *config.Config
}

// NewService creates a new PDF service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
	}
}

// GenerateInvoice generates a PDF invoice for an order. Amounts come from
// the order's line-item snapshots, so the invoice matches what was charged
// even if the catalog changed since.
func (s *Service) GenerateInvoice(o *order.Order) (*bytes.Buffer, error) {
	data := InvoiceData{
		InvoiceNumber: fmt.Sprintf("INV-%06d", o.ID),
		InvoiceDate:   time.Now().Format("January 2, 2006"),
		Order:         o,
		Items:         make([]InvoiceItem, 0, len(o.Items)),
		AppName:       s.config.App.Name,
	}
	for _, item := range o.Items {
		data.Items = append(data.Items, InvoiceItem{
			Title:     item.Title,
			Quantity:  item.Quantity,
			UnitPrice: formatAmount(item.Price),
			Total:     formatAmount(item.Price * int64(item.Quantity)),
		})
	}
	data.Subtotal = formatAmount(o.Subtotal)
	data.ShippingFee = formatAmount(o.ShippingFee)
	data.Total = formatAmount(o.Total)

	htmlContent, err := s.generateHTML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to generate HTML: %w", err)
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.Grayscale.Set(false)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader([]byte(htmlContent)))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)
	page.Zoom.Set(0.95)

	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}

	return bytes.NewBuffer(pdfg.Bytes()), nil
}

// generateHTML generates HTML content from template
func (s *Service) generateHTML(data InvoiceData) (string, error) {
	tmpl := template.Must(template.New("invoice").Parse(invoiceTemplate))

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// formatAmount renders a minor-unit amount as a decimal string
func formatAmount(amount int64) string {
	return fmt.Sprintf("%d.%02d", amount/100, amount%100)
}

// InvoiceData represents the data passed to the invoice template
type InvoiceData struct {
	InvoiceNumber string
	InvoiceDate   string
	Order         *order.Order
	Items         []InvoiceItem
	Subtotal      string
	ShippingFee   string
	Total         string
	AppName       string
}

// InvoiceItem is one rendered invoice line
type InvoiceItem struct {
	Title     string
	Quantity  int
	UnitPrice string
	Total     string
}

const invoiceTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: Helvetica, Arial, sans-serif; color: #333; margin: 40px; }
  h1 { font-size: 24px; margin-bottom: 0; }
  .meta { color: #777; margin-bottom: 30px; }
  table { width: 100%; border-collapse: collapse; margin-top: 20px; }
  th { text-align: left; border-bottom: 2px solid #333; padding: 8px 4px; }
  td { border-bottom: 1px solid #ddd; padding: 8px 4px; }
  .right { text-align: right; }
  .totals { margin-top: 20px; width: 40%; margin-left: auto; }
  .totals td { border: none; padding: 4px; }
  .grand { font-weight: bold; border-top: 2px solid #333; }
  .address { margin-top: 30px; color: #555; }
</style>
</head>
<body>
  <h1>{{.AppName}}</h1>
  <div class="meta">
    Invoice {{.InvoiceNumber}}<br>
    {{.InvoiceDate}}<br>
    Order #{{.Order.ID}} &mdash; {{.Order.Status}}
  </div>

  <table>
    <tr><th>Item</th><th class="right">Qty</th><th class="right">Unit price</th><th class="right">Total</th></tr>
    {{range .Items}}
    <tr>
      <td>{{.Title}}</td>
      <td class="right">{{.Quantity}}</td>
      <td class="right">{{.UnitPrice}}</td>
      <td class="right">{{.Total}}</td>
    </tr>
    {{end}}
  </table>

  <table class="totals">
    <tr><td>Subtotal</td><td class="right">{{.Subtotal}}</td></tr>
    <tr><td>Shipping</td><td class="right">{{.ShippingFee}}</td></tr>
    <tr class="grand"><td>Total</td><td class="right">{{.Total}}</td></tr>
  </table>

  <div class="address">
    <strong>Ship to</strong><br>
    {{.Order.ShippingAddress.FullName}}<br>
    {{.Order.ShippingAddress.AddressLine}}<br>
    {{.Order.ShippingAddress.City}} {{.Order.ShippingAddress.PostalCode}}<br>
    {{.Order.ShippingAddress.Country}}
  </div>
</body>
</html>`
