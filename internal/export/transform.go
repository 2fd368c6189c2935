// Package export reduces raw Toast order records into the webhook-bound
// report payloads: the sales summary (per-item quantities and net sales plus
// per-category totals, with voided and gift card lines excluded) and the
// tips report (tip totals per business date with per-server daily sales).
package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/fynch/toast-export-api/internal/domain"
)

// TransformError indicates the upstream data did not match the expected
// order shape. It is fatal to the task: malformed data is a contract
// violation, not a transient condition.
type TransformError struct {
	Err error
}

// Error implements the error interface.
func (e *TransformError) Error() string {
	return fmt.Sprintf("order transform failed: %v", e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransformError) Unwrap() error { return e.Err }

// ErrorKind implements the failure-kind convention consumed by the task
// executor.
func (e *TransformError) ErrorKind() string { return "transform" }

// The slice of the Toast order shape the transformer cares about.
type order struct {
	GUID   string  `json:"guid"`
	Voided bool    `json:"voided"`
	Source string  `json:"source"`
	Checks []check `json:"checks"`
}

type check struct {
	Voided                bool            `json:"voided"`
	Selections            []selection     `json:"selections"`
	AppliedServiceCharges []serviceCharge `json:"appliedServiceCharges"`
}

type serviceCharge struct {
	Gratuity     bool    `json:"gratuity"`
	ChargeAmount float64 `json:"chargeAmount"`
}

type selection struct {
	DisplayName      string     `json:"displayName"`
	Quantity         float64    `json:"quantity"`
	Price            float64    `json:"price"`
	PreDiscountPrice float64    `json:"preDiscountPrice"`
	Voided           bool       `json:"voided"`
	SalesCategory    *guidRef   `json:"salesCategory"`
	AppliedDiscounts []discount `json:"appliedDiscounts"`
}

type guidRef struct {
	GUID string `json:"guid"`
}

type discount struct {
	DiscountAmount  float64 `json:"discountAmount"`
	ProcessingState string  `json:"processingState"`
}

// Gift card selections carry no sales category and are excluded from sales
// figures entirely.
var giftCardNames = map[string]bool{
	"Gift Card":     true,
	"eGift Card":    true,
	"Add Value ($)": true,
}

const (
	otherCategory   = "Other"
	foodCategory    = "Food"
	corkageCategory = "Corkage Fee"
	corkageItemName = "Corkage Fee"

	apiOrderSource = "API"
)

// ItemSale is one menu item's aggregated sales over the export range.
type ItemSale struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Quantity float64 `json:"quantity"`
	NetSales float64 `json:"net_sales"`
}

// Payload is the webhook-bound export summary. NonGratServiceCharges is the
// sum of non-gratuity service charges (delivery fees and the like); gratuity
// charges belong to tips, not sales.
type Payload struct {
	LocationIndex         int                `json:"location_index"`
	StartDate             string             `json:"start_date"`
	EndDate               string             `json:"end_date"`
	OrderCount            int                `json:"order_count"`
	Items                 []ItemSale         `json:"items"`
	Categories            map[string]float64 `json:"categories"`
	NonGratServiceCharges float64            `json:"non_grat_service_charges"`
}

// Transformer aggregates raw order records into an export payload. It maps
// each selection's sales category GUID to a reporting category using the
// per-location category table.
type Transformer struct {
	logger *slog.Logger
}

// NewTransformer creates a transformer.
func NewTransformer(logger *slog.Logger) *Transformer {
	return &Transformer{logger: logger}
}

// Transform decodes and aggregates the raw records into the report selected
// by the request kind, returning the JSON payload body and the number of
// orders it represents. A record that fails to decode surfaces as a
// TransformError.
func (t *Transformer) Transform(req domain.ExportRequest, records []json.RawMessage) ([]byte, int, error) {
	if req.Kind == domain.ExportKindTips {
		return t.transformTips(req, records)
	}
	return t.transformOrders(req, records)
}

// transformOrders builds the per-item sales summary over non-voided orders.
func (t *Transformer) transformOrders(req domain.ExportRequest, records []json.RawMessage) ([]byte, int, error) {
	categories := categoriesForLocation(req.LocationIndex)

	items := make(map[string]*ItemSale)
	categoryTotals := make(map[string]float64)
	orderCount := 0
	voidedSelections := 0
	giftCardSelections := 0
	serviceCharges := 0.0

	for i, raw := range records {
		var o order
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, 0, &TransformError{Err: fmt.Errorf("record %d: %w", i, err)}
		}
		if o.Voided {
			continue
		}
		orderCount++

		for _, ch := range o.Checks {
			if ch.Voided {
				continue
			}
			for _, sc := range ch.AppliedServiceCharges {
				if !sc.Gratuity {
					serviceCharges += sc.ChargeAmount
				}
			}
			for _, sel := range ch.Selections {
				if sel.Voided {
					voidedSelections++
					continue
				}

				name := strings.TrimSpace(sel.DisplayName)
				if giftCardNames[name] {
					giftCardSelections++
					continue
				}
				if name == "" {
					name = "Unknown Item"
				}

				category := categorize(name, sel.SalesCategory, categories)
				// Online-ordering orders at location 4 come in without a
				// sales category; everything sold through that channel is
				// food.
				if category == otherCategory && req.LocationIndex == 4 && o.Source == apiOrderSource {
					category = foodCategory
				}
				netSales := sel.PreDiscountPrice - discountFor(sel)

				item, ok := items[name]
				if !ok {
					item = &ItemSale{Name: name, Category: category}
					items[name] = item
				}
				item.Quantity += sel.Quantity
				item.NetSales += netSales
				categoryTotals[category] += netSales
			}
		}
	}

	if voidedSelections > 0 || giftCardSelections > 0 {
		t.logger.Debug("excluded selections from export",
			"voided", voidedSelections,
			"gift_cards", giftCardSelections)
	}

	sorted := make([]ItemSale, 0, len(items))
	for _, item := range items {
		sorted = append(sorted, *item)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	payload := Payload{
		LocationIndex:         req.LocationIndex,
		StartDate:             req.Range.Start.Format(domain.DateLayout),
		EndDate:               req.Range.End.Format(domain.DateLayout),
		OrderCount:            orderCount,
		Items:                 sorted,
		Categories:            categoryTotals,
		NonGratServiceCharges: serviceCharges,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, &TransformError{Err: fmt.Errorf("marshal payload: %w", err)}
	}
	return body, orderCount, nil
}

// categorize resolves the reporting category for one selection. Corkage fees
// are categorized by name because they carry no sales category upstream.
func categorize(name string, ref *guidRef, categories map[string]string) string {
	if name == corkageItemName {
		return corkageCategory
	}
	if ref != nil {
		if mapped, ok := categories[ref.GUID]; ok {
			return mapped
		}
	}
	return otherCategory
}

// discountFor computes the discount applied to a selection. Non-voided
// applied discounts win; otherwise the pre-discount/price gap is used, as
// some order sources omit the discount list.
func discountFor(sel selection) float64 {
	total := 0.0
	found := false
	for _, d := range sel.AppliedDiscounts {
		if d.ProcessingState != "VOID" {
			found = true
			total += d.DiscountAmount
		}
	}
	if found {
		return total
	}
	return sel.PreDiscountPrice - sel.Price
}
