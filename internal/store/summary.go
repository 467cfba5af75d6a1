package store

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	money "github.com/rezonia/invoice-assistant/internal/decimal"
	"github.com/rezonia/invoice-assistant/internal/model"
)

// SummaryMonths is how many months of revenue a summary reports
const SummaryMonths = 6

// MonthRevenue is the revenue billed in one calendar month (YYYY-MM)
type MonthRevenue struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

// Summary holds the dashboard statistics for one creator
type Summary struct {
	TotalRevenue   float64                  `json:"total_revenue"`
	InvoiceCount   int                      `json:"invoice_count"`
	ClientCount    int                      `json:"client_count"`
	StatusCounts   map[model.Status]int     `json:"status_counts"`
	StatusTotals   map[model.Status]float64 `json:"status_totals"`
	MonthlyRevenue []MonthRevenue           `json:"monthly_revenue"`
	LastInvoice    *model.Invoice           `json:"last_invoice,omitempty"`
}

// Summarize computes dashboard statistics. Clients are counted by distinct
// email; monthly revenue groups by invoice date and keeps the latest
// SummaryMonths months, newest first.
func Summarize(invoices []model.Invoice) Summary {
	s := Summary{
		InvoiceCount:   len(invoices),
		StatusCounts:   make(map[model.Status]int),
		StatusTotals:   make(map[model.Status]float64),
		MonthlyRevenue: []MonthRevenue{},
	}
	if len(invoices) == 0 {
		return s
	}

	total := money.Zero
	statusTotals := make(map[model.Status]decimal.Decimal)
	months := make(map[string]decimal.Decimal)
	clients := make(map[string]struct{})

	for _, inv := range invoices {
		amount := money.FromFloat(inv.Amount)
		total = total.Add(amount)
		s.StatusCounts[inv.Status]++
		statusTotals[inv.Status] = statusTotals[inv.Status].Add(amount)
		clients[strings.ToLower(strings.TrimSpace(inv.ClientEmail))] = struct{}{}
		if len(inv.InvoiceDate) >= len("2006-01") {
			month := inv.InvoiceDate[:len("2006-01")]
			months[month] = months[month].Add(amount)
		}
	}

	s.TotalRevenue = money.ToFloat(total)
	s.ClientCount = len(clients)
	for status, amount := range statusTotals {
		s.StatusTotals[status] = money.ToFloat(amount)
	}

	keys := make([]string, 0, len(months))
	for month := range months {
		keys = append(keys, month)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	if len(keys) > SummaryMonths {
		keys = keys[:SummaryMonths]
	}
	for _, month := range keys {
		s.MonthlyRevenue = append(s.MonthlyRevenue, MonthRevenue{Month: month, Revenue: money.ToFloat(months[month])})
	}

	sorted := append([]model.Invoice(nil), invoices...)
	sortNewestFirst(sorted)
	last := cloneInvoice(sorted[0])
	s.LastInvoice = &last

	return s
}
