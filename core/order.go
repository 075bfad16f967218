package core

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	PlaceholderNotInformed = "Não informado"
	PlaceholderCustomer    = "Cliente não informado"
	PlaceholderEmail       = "Email não informado"
	PlaceholderPhone       = "Telefone não informado"
	PlaceholderAddress     = "Endereço não informado"
	PlaceholderCity        = "Cidade não informada"
	PlaceholderState       = "Estado não informado"
	PlaceholderPostcode    = "CEP não informado"
	PlaceholderCountry     = "País não informado"
	PlaceholderNoItems     = "Produtos não informados"
)

var addressPlaceholders = map[string]struct{}{
	PlaceholderAddress:  {},
	PlaceholderCity:     {},
	PlaceholderState:    {},
	PlaceholderPostcode: {},
	PlaceholderCountry:  {},
}

var eligibleStatuses = map[string]struct{}{
	"processing":  {},
	"processando": {},
}

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type Address struct {
	Line1    string `json:"line1"`
	Line2    string `json:"line2"`
	City     string `json:"city"`
	State    string `json:"state"`
	Postcode string `json:"postcode"`
	Country  string `json:"country"`
}

type LineItem struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Total    decimal.Decimal `json:"total"`
}

// Order is the canonical order entity built from one upstream fetch. It is a
// value: nothing mutates it after construction and it never outlives a pass
// except as a pending-delivery snapshot.
type Order struct {
	ID             string          `json:"id"`
	Number         string          `json:"number"`
	Status         string          `json:"status"`
	Total          decimal.Decimal `json:"total"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Shipping       decimal.Decimal `json:"shipping"`
	PaymentMethod  string          `json:"payment_method"`
	ShippingMethod string          `json:"shipping_method"`
	Customer       Customer        `json:"customer"`
	Items          []LineItem      `json:"items"`
	Address        Address         `json:"address"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (o Order) IsEligible() bool {
	_, ok := eligibleStatuses[strings.ToLower(strings.TrimSpace(o.Status))]
	return ok
}

// FormattedAddress joins the informed address parts, skipping blanks and
// placeholders.
func (o Order) FormattedAddress() string {
	parts := []string{
		o.Address.Line1,
		o.Address.Line2,
		o.Address.City,
		o.Address.State,
		o.Address.Postcode,
		o.Address.Country,
	}
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, placeholder := addressPlaceholders[part]; placeholder {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, ", ")
}

func (o Order) FormattedItems() string {
	if len(o.Items) == 0 {
		return PlaceholderNoItems
	}
	lines := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, "• "+item.Name+
			" - Qtd: "+strconv.Itoa(item.Quantity)+
			" - R$ "+item.Total.StringFixed(2))
	}
	return strings.Join(lines, "\n")
}

func nonNegative(value decimal.Decimal) decimal.Decimal {
	if value.IsNegative() {
		return decimal.Zero
	}
	return value
}
