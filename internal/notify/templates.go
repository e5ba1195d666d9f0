package notify

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/models"
)

var funcs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
}

var confirmationTmpl = template.Must(template.New("confirmation").Funcs(funcs).Parse(
	`Hi {{.Order.FirstName}},

Thank you for your order at {{.Store}}.

Order number: {{.Order.OrderNumber}}
Payment reference: {{.Order.PaymentReference}}

{{range .Order.Items}}- {{.ProductName}}{{if .VariantInfo}} ({{.VariantInfo}}){{end}} x{{.Quantity}}: {{$.Currency}} {{money .TotalPrice}}
{{end}}
Total paid: {{.Currency}} {{money .Order.Total}}

Shipping to:
{{.Order.ShippingAddress}}
{{.Order.ShippingCity}}, {{.Order.ShippingState}}

We will let you know when your order ships.
`))

var statusTmpl = template.Must(template.New("status").Funcs(funcs).Parse(
	`Hi {{.Order.FirstName}},

{{if eq .Order.Status "shipped"}}Good news: your order {{.Order.OrderNumber}} is on its way.{{else if eq .Order.Status "delivered"}}Your order {{.Order.OrderNumber}} has been delivered. Enjoy!{{else}}Your order {{.Order.OrderNumber}} is now {{.Order.Status}}.{{end}}

Track it any time with your order number and this email address.

{{.Store}}
`))

type mailData struct {
	Store    string
	Currency string
	Order    models.Order
}

func renderConfirmation(store string, o models.Order) (Message, error) {
	body, err := render(confirmationTmpl, store, o)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      o.Email,
		Subject: fmt.Sprintf("%s: order %s confirmed", store, o.OrderNumber),
		Body:    body,
	}, nil
}

func renderStatus(store string, o models.Order) (Message, error) {
	body, err := render(statusTmpl, store, o)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      o.Email,
		Subject: fmt.Sprintf("%s: order %s %s", store, o.OrderNumber, o.Status),
		Body:    body,
	}, nil
}

func render(t *template.Template, store string, o models.Order) (string, error) {
	cur := o.Currency
	if cur == "" {
		cur = "NGN"
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, mailData{Store: store, Currency: cur, Order: o}); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
