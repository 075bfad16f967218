package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RawOrder is the upstream order document as the commerce API publishes it.
// Every field decodes leniently: a value of the wrong shape decodes to its
// zero value instead of failing the whole document.
type RawOrder struct {
	ID                 flexString                `json:"id"`
	Number             flexString                `json:"number"`
	Status             flexString                `json:"status"`
	Total              flexDecimal               `json:"total"`
	Subtotal           flexDecimal               `json:"subtotal"`
	ShippingTotal      flexDecimal               `json:"shipping_total"`
	PaymentMethodTitle flexString                `json:"payment_method_title"`
	ShippingLines      flexList[rawShippingLine] `json:"shipping_lines"`
	Billing            flexObject[rawBilling]    `json:"billing"`
	Shipping           flexObject[rawShipping]   `json:"shipping"`
	LineItems          flexList[rawLineItem]     `json:"line_items"`
	DateCreated        flexString                `json:"date_created"`
}

type rawShippingLine struct {
	MethodTitle flexString `json:"method_title"`
}

type rawBilling struct {
	FirstName flexString `json:"first_name"`
	LastName  flexString `json:"last_name"`
	Email     flexString `json:"email"`
	Phone     flexString `json:"phone"`
}

type rawShipping struct {
	Address1 flexString `json:"address_1"`
	Address2 flexString `json:"address_2"`
	City     flexString `json:"city"`
	State    flexString `json:"state"`
	Postcode flexString `json:"postcode"`
	Country  flexString `json:"country"`
}

type rawLineItem struct {
	Name     flexString  `json:"name"`
	Quantity flexDecimal `json:"quantity"`
	Price    flexDecimal `json:"price"`
	Total    flexDecimal `json:"total"`
}

// DecodeResult carries the orders decoded from a list document and the
// per-element decode errors for the ones that were rejected.
type DecodeResult struct {
	Orders   []Order
	Rejected []error
}

// DecodeOrder validates and decodes a single upstream order document. Only
// structural problems fail: the payload is not a JSON object or carries
// neither an id nor a number.
func DecodeOrder(payload []byte) (Order, error) {
	trimmed := bytes.TrimSpace(payload)
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil || probe == nil {
		if err == nil {
			err = fmt.Errorf("document is null")
		}
		return Order{}, MalformedUpstreamData(err, "core: order document is not a json object")
	}
	var raw RawOrder
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return Order{}, MalformedUpstreamData(err, "core: decode order document")
	}
	order := FromUpstream(raw)
	if strings.TrimSpace(order.Number) == "" {
		return Order{}, MalformedUpstreamData(nil, "core: order document has no id or number")
	}
	return order, nil
}

// DecodeOrders decodes a list document. A payload that is not a JSON array
// fails as a whole; malformed elements are rejected individually.
func DecodeOrders(payload []byte) (DecodeResult, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(payload), &elements); err != nil {
		return DecodeResult{}, MalformedUpstreamData(err, "core: order list document is not a json array")
	}
	result := DecodeResult{Orders: make([]Order, 0, len(elements))}
	for index, element := range elements {
		order, err := DecodeOrder(element)
		if err != nil {
			result.Rejected = append(result.Rejected, fmt.Errorf("element %d: %w", index, err))
			continue
		}
		result.Orders = append(result.Orders, order)
	}
	return result, nil
}

// FromUpstream builds the canonical order. It never fails: missing blocks get
// placeholders and unusable money decodes to zero.
func FromUpstream(raw RawOrder) Order {
	number := strings.TrimSpace(raw.Number.String())
	if number == "" {
		number = strings.TrimSpace(raw.ID.String())
	}
	order := Order{
		ID:             strings.TrimSpace(raw.ID.String()),
		Number:         number,
		Status:         strings.TrimSpace(raw.Status.String()),
		Total:          nonNegative(raw.Total.Decimal()),
		Subtotal:       nonNegative(raw.Subtotal.Decimal()),
		Shipping:       nonNegative(raw.ShippingTotal.Decimal()),
		PaymentMethod:  orDefault(raw.PaymentMethodTitle.String(), PlaceholderNotInformed),
		ShippingMethod: PlaceholderNotInformed,
		Customer: Customer{
			Name:  PlaceholderCustomer,
			Email: PlaceholderEmail,
			Phone: PlaceholderPhone,
		},
		Items: []LineItem{},
		Address: Address{
			Line1:    PlaceholderAddress,
			City:     PlaceholderCity,
			State:    PlaceholderState,
			Postcode: PlaceholderPostcode,
			Country:  PlaceholderCountry,
		},
		CreatedAt: parseUpstreamTime(raw.DateCreated.String()),
	}
	if len(raw.ShippingLines) > 0 {
		order.ShippingMethod = orDefault(raw.ShippingLines[0].MethodTitle.String(), PlaceholderNotInformed)
	}
	if raw.Billing.Present {
		billing := raw.Billing.Value
		order.Customer = Customer{
			Name:  strings.TrimSpace(billing.FirstName.String() + " " + billing.LastName.String()),
			Email: strings.TrimSpace(billing.Email.String()),
			Phone: strings.TrimSpace(billing.Phone.String()),
		}
	}
	if raw.Shipping.Present {
		shipping := raw.Shipping.Value
		order.Address = Address{
			Line1:    strings.TrimSpace(shipping.Address1.String()),
			Line2:    strings.TrimSpace(shipping.Address2.String()),
			City:     strings.TrimSpace(shipping.City.String()),
			State:    strings.TrimSpace(shipping.State.String()),
			Postcode: strings.TrimSpace(shipping.Postcode.String()),
			Country:  strings.TrimSpace(shipping.Country.String()),
		}
	}
	for _, item := range raw.LineItems {
		quantity := int(item.Quantity.Decimal().IntPart())
		if quantity < 0 {
			quantity = 0
		}
		order.Items = append(order.Items, LineItem{
			Name:     strings.TrimSpace(item.Name.String()),
			Quantity: quantity,
			Price:    nonNegative(item.Price.Decimal()),
			Total:    nonNegative(item.Total.Decimal()),
		})
	}
	return order
}

// EncodeSnapshot serializes an order for the pending-delivery queue.
func EncodeSnapshot(order Order) ([]byte, error) {
	return json.Marshal(order)
}

// DecodeSnapshot restores an order written by EncodeSnapshot.
func DecodeSnapshot(payload []byte) (Order, error) {
	var order Order
	if err := json.Unmarshal(payload, &order); err != nil {
		return Order{}, MalformedUpstreamData(err, "core: decode pending order snapshot")
	}
	if order.Items == nil {
		order.Items = []LineItem{}
	}
	return order, nil
}

var upstreamTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseUpstreamTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range upstreamTimeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}

func orDefault(value string, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

// flexString accepts strings, numbers and booleans.
type flexString struct {
	value string
}

func (s flexString) String() string {
	return s.value
}

func (s *flexString) UnmarshalJSON(data []byte) error {
	s.value = ""
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		s.value = text
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err == nil {
		s.value = number.String()
		return nil
	}
	var flag bool
	if err := json.Unmarshal(data, &flag); err == nil {
		s.value = strconv.FormatBool(flag)
	}
	return nil
}

// flexDecimal accepts numbers and numeric strings; anything else is zero.
type flexDecimal struct {
	value decimal.Decimal
}

func (d flexDecimal) Decimal() decimal.Decimal {
	return d.value
}

func (d *flexDecimal) UnmarshalJSON(data []byte) error {
	d.value = decimal.Zero
	var text flexString
	if err := text.UnmarshalJSON(data); err != nil {
		return nil
	}
	parsed, err := decimal.NewFromString(strings.TrimSpace(text.String()))
	if err != nil {
		return nil
	}
	d.value = parsed
	return nil
}

// flexList decodes arrays element by element, dropping elements of the wrong
// shape. A non-array value decodes to an empty list.
type flexList[T any] []T

func (l *flexList[T]) UnmarshalJSON(data []byte) error {
	*l = nil
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil
	}
	out := make([]T, 0, len(elements))
	for _, element := range elements {
		var item T
		if err := json.Unmarshal(element, &item); err != nil {
			continue
		}
		out = append(out, item)
	}
	*l = out
	return nil
}

// flexObject records whether an object block was present and well formed.
type flexObject[T any] struct {
	Value   T
	Present bool
}

func (o *flexObject[T]) UnmarshalJSON(data []byte) error {
	var zero T
	o.Value = zero
	o.Present = false
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return nil
	}
	o.Value = value
	o.Present = true
	return nil
}
