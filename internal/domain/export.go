package domain

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// DateLayout is the wire format for export date parameters.
const DateLayout = "2006-01-02"

// DateRange is an inclusive range of business dates.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange parses and validates a date range from its wire form.
// Returns a ValidationError if either date is missing or malformed, or if
// the range is inverted.
func NewDateRange(startDate, endDate string) (DateRange, error) {
	if startDate == "" || endDate == "" {
		return DateRange{}, &ValidationError{
			Field:   "dateRange",
			Message: "startDate and endDate are required",
		}
	}

	start, err := time.Parse(DateLayout, startDate)
	if err != nil {
		return DateRange{}, &ValidationError{
			Field:   "startDate",
			Message: fmt.Sprintf("%q is not a valid YYYY-MM-DD date", startDate),
		}
	}

	end, err := time.Parse(DateLayout, endDate)
	if err != nil {
		return DateRange{}, &ValidationError{
			Field:   "endDate",
			Message: fmt.Sprintf("%q is not a valid YYYY-MM-DD date", endDate),
		}
	}

	if end.Before(start) {
		return DateRange{}, &ValidationError{
			Field:   "dateRange",
			Message: "endDate precedes startDate",
		}
	}

	return DateRange{Start: start, End: end}, nil
}

// BusinessDates lists every calendar day in the range, inclusive.
func (r DateRange) BusinessDates() []time.Time {
	var days []time.Time
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// DeliveryMode selects how a finished export payload leaves the process.
type DeliveryMode string

// The three mutually exclusive delivery modes. Mode selection happens exactly
// once, at request validation time; after that no code re-inspects the loose
// wire form of the webhook parameter.
const (
	// DeliveryModeSkip performs no delivery; the export is complete once
	// the payload has been built.
	DeliveryModeSkip DeliveryMode = "skip"

	// DeliveryModeDefault delivers to the preconfigured default webhook URL.
	DeliveryModeDefault DeliveryMode = "default"

	// DeliveryModeCustom delivers to a URL supplied with the request.
	DeliveryModeCustom DeliveryMode = "custom"
)

// DeliveryTarget is the resolved delivery destination for an export. URL is
// populated for both the default and custom modes by the time a task record
// exists.
type DeliveryTarget struct {
	Mode DeliveryMode `json:"mode"`
	URL  string       `json:"url,omitempty"`
}

// ParseWebhookField interprets the wire form of the webhook parameter, which
// is either a boolean (false: skip delivery, true: deliver to the default
// URL) or a string holding an explicit webhook URL. An absent field means
// skip.
func ParseWebhookField(raw json.RawMessage) (DeliveryTarget, error) {
	if len(raw) == 0 {
		return DeliveryTarget{Mode: DeliveryModeSkip}, nil
	}

	var enabled bool
	if err := json.Unmarshal(raw, &enabled); err == nil {
		if enabled {
			return DeliveryTarget{Mode: DeliveryModeDefault}, nil
		}
		return DeliveryTarget{Mode: DeliveryModeSkip}, nil
	}

	var custom string
	if err := json.Unmarshal(raw, &custom); err == nil {
		if err := validateWebhookURL(custom); err != nil {
			return DeliveryTarget{}, err
		}
		return DeliveryTarget{Mode: DeliveryModeCustom, URL: custom}, nil
	}

	return DeliveryTarget{}, &ValidationError{
		Field:   "webhook",
		Message: "must be a boolean or a URL string",
	}
}

func validateWebhookURL(s string) error {
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ValidationError{
			Field:   "webhook",
			Message: fmt.Sprintf("%q is not a valid http(s) URL", s),
		}
	}
	return nil
}

// ExportKind selects which report an export task builds from the fetched
// orders.
type ExportKind string

const (
	// ExportKindOrders builds the per-item sales summary.
	ExportKindOrders ExportKind = "orders"

	// ExportKindTips builds the per-server tips and sales report.
	ExportKindTips ExportKind = "tips"
)

// Valid reports whether the kind is one of the known report kinds.
func (k ExportKind) Valid() bool {
	return k == ExportKindOrders || k == ExportKindTips
}

// ExportRequest is the immutable, fully resolved input of one export task.
// Every field is fixed at validation time; the executor never consults
// configuration or the wire request again.
type ExportRequest struct {
	Kind           ExportKind     `json:"kind"`
	Range          DateRange      `json:"date_range"`
	LocationIndex  int            `json:"location_index"`
	RestaurantGUID string         `json:"restaurant_guid"`
	Delivery       DeliveryTarget `json:"delivery"`
}
