package export

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/fynch/toast-export-api/internal/domain"
)

// The slice of the Toast order shape the tips report cares about. Payments
// carry the tip, the sale amount, and the server who took them; check-level
// amounts back out the tax.
type tipsOrder struct {
	GUID       string      `json:"guid"`
	PaidDate   string      `json:"paidDate"`
	OpenedDate string      `json:"openedDate"`
	Checks     []tipsCheck `json:"checks"`
}

type tipsCheck struct {
	Amount      float64   `json:"amount"`
	TotalAmount float64   `json:"totalAmount"`
	Payments    []payment `json:"payments"`
}

type payment struct {
	TipAmount        float64         `json:"tipAmount"`
	Amount           float64         `json:"amount"`
	PaidBusinessDate int64           `json:"paidBusinessDate"`
	VoidInfo         json.RawMessage `json:"voidInfo"`
	Server           *guidRef        `json:"server"`
}

// ServerDaySales is one server's aggregated sales, tips, and tax for one
// business date.
type ServerDaySales struct {
	Date       string  `json:"date"`
	ServerGUID string  `json:"server_guid"`
	TotalSales float64 `json:"total_sales"`
	TotalTips  float64 `json:"total_tips"`
	TotalTax   float64 `json:"total_tax"`
}

// TipsSummary carries report-level totals and processing counts.
type TipsSummary struct {
	TotalTips         float64 `json:"total_tips"`
	TotalServerSales  float64 `json:"total_server_sales"`
	OrdersProcessed   int     `json:"orders_processed"`
	PaymentsProcessed int     `json:"payments_processed"`
	OrdersWithTips    int     `json:"orders_with_tips"`
	UniqueServers     int     `json:"unique_servers"`
	DaysWithTips      int     `json:"days_with_tips"`
}

// TipsPayload is the webhook-bound tips report: tip totals per business date
// plus per-server daily sales records.
type TipsPayload struct {
	LocationIndex int                `json:"location_index"`
	StartDate     string             `json:"start_date"`
	EndDate       string             `json:"end_date"`
	TipsByDate    map[string]float64 `json:"tips_by_date"`
	SalesByServer []ServerDaySales   `json:"sales_by_server"`
	Summary       TipsSummary        `json:"summary"`
}

// transformTips aggregates raw order records into the tips report. Voided
// payments are excluded throughout; an order whose date cannot be determined
// is counted but contributes nothing.
func (t *Transformer) transformTips(req domain.ExportRequest, records []json.RawMessage) ([]byte, int, error) {
	tipsByDate := make(map[string]float64)
	salesByServer := make(map[string]map[string]float64)
	tipsByServer := make(map[string]map[string]float64)
	taxByServer := make(map[string]map[string]float64)

	ordersProcessed := 0
	paymentsProcessed := 0
	ordersWithTips := 0

	for i, raw := range records {
		var o tipsOrder
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, 0, &TransformError{Err: fmt.Errorf("record %d: %w", i, err)}
		}
		ordersProcessed++

		date, ok := orderBusinessDate(o)
		if !ok {
			t.logger.Warn("order date undeterminable, skipping for tips", "order_guid", o.GUID)
			continue
		}

		orderHasTips := false
		for _, ch := range o.Checks {
			checkTips := 0.0
			checkServer := ""

			for _, p := range ch.Payments {
				paymentsProcessed++
				if paymentVoided(p) {
					continue
				}

				server := ""
				if p.Server != nil {
					server = p.Server.GUID
				}
				checkTips += p.TipAmount
				if server != "" && checkServer == "" {
					checkServer = server
				}

				if p.TipAmount > 0 {
					tipsByDate[date] += p.TipAmount
					orderHasTips = true
					if server != "" {
						addTo(tipsByServer, date, server, p.TipAmount)
					}
				}
				if server != "" && p.Amount > 0 {
					addTo(salesByServer, date, server, p.Amount)
				}
			}

			// Tax is whatever the check total holds beyond the check amount
			// and its tips; it goes to the server who took the first payment.
			tax := ch.TotalAmount - ch.Amount - checkTips
			if checkServer != "" && tax > 0 {
				addTo(taxByServer, date, checkServer, tax)
			}
		}
		if orderHasTips {
			ordersWithTips++
		}
	}

	serverRecords, uniqueServers := serverDayRecords(salesByServer, tipsByServer, taxByServer)

	totalTips := 0.0
	for _, v := range tipsByDate {
		totalTips += v
	}
	totalSales := 0.0
	for _, servers := range salesByServer {
		for _, v := range servers {
			totalSales += v
		}
	}

	rounded := make(map[string]float64, len(tipsByDate))
	for date, v := range tipsByDate {
		rounded[date] = round2(v)
	}

	payload := TipsPayload{
		LocationIndex: req.LocationIndex,
		StartDate:     req.Range.Start.Format(domain.DateLayout),
		EndDate:       req.Range.End.Format(domain.DateLayout),
		TipsByDate:    rounded,
		SalesByServer: serverRecords,
		Summary: TipsSummary{
			TotalTips:         round2(totalTips),
			TotalServerSales:  round2(totalSales),
			OrdersProcessed:   ordersProcessed,
			PaymentsProcessed: paymentsProcessed,
			OrdersWithTips:    ordersWithTips,
			UniqueServers:     uniqueServers,
			DaysWithTips:      len(tipsByDate),
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, &TransformError{Err: fmt.Errorf("marshal payload: %w", err)}
	}
	return body, ordersProcessed, nil
}

// Toast emits timestamps with a colonless zone offset, which RFC 3339 parsing
// rejects.
var orderTimestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
}

// orderBusinessDate resolves the business date an order's figures belong to:
// the first payment's paidBusinessDate when present, else the order's paid or
// opened timestamp.
func orderBusinessDate(o tipsOrder) (string, bool) {
	for _, ch := range o.Checks {
		for _, p := range ch.Payments {
			if p.PaidBusinessDate == 0 {
				continue
			}
			s := strconv.FormatInt(p.PaidBusinessDate, 10)
			if len(s) == 8 {
				return s[:4] + "-" + s[4:6] + "-" + s[6:], true
			}
		}
	}
	for _, ts := range []string{o.PaidDate, o.OpenedDate} {
		if ts == "" {
			continue
		}
		for _, layout := range orderTimestampLayouts {
			if parsed, err := time.Parse(layout, ts); err == nil {
				return parsed.Format(domain.DateLayout), true
			}
		}
	}
	return "", false
}

func paymentVoided(p payment) bool {
	return len(p.VoidInfo) > 0 && string(p.VoidInfo) != "null"
}

func addTo(byDate map[string]map[string]float64, date, server string, v float64) {
	servers, ok := byDate[date]
	if !ok {
		servers = make(map[string]float64)
		byDate[date] = servers
	}
	servers[server] += v
}

// serverDayRecords flattens the per-date per-server maps into records ordered
// by date then server GUID. A server appears for a date if it has sales or
// tips there; tax alone never creates a record since it is always attributed
// to a paying server.
func serverDayRecords(
	sales, tips, tax map[string]map[string]float64,
) ([]ServerDaySales, int) {
	dates := make(map[string]bool)
	for d := range sales {
		dates[d] = true
	}
	for d := range tips {
		dates[d] = true
	}
	sortedDates := make([]string, 0, len(dates))
	for d := range dates {
		sortedDates = append(sortedDates, d)
	}
	sort.Strings(sortedDates)

	records := make([]ServerDaySales, 0)
	seen := make(map[string]bool)
	for _, date := range sortedDates {
		servers := make(map[string]bool)
		for s := range sales[date] {
			servers[s] = true
		}
		for s := range tips[date] {
			servers[s] = true
		}
		sortedServers := make([]string, 0, len(servers))
		for s := range servers {
			sortedServers = append(sortedServers, s)
		}
		sort.Strings(sortedServers)

		for _, server := range sortedServers {
			seen[server] = true
			records = append(records, ServerDaySales{
				Date:       date,
				ServerGUID: server,
				TotalSales: round2(sales[date][server]),
				TotalTips:  round2(tips[date][server]),
				TotalTax:   round2(tax[date][server]),
			})
		}
	}
	return records, len(seen)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
