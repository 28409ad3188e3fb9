package finance

import (
	"context"
	"sort"
	"time"

	"github.com/liderplast/backoffice/internal/domain"
	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
)

// MonthAmount an amount accumulated over a YYYY-MM month
type MonthAmount struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// Dashboard sales and expense figures of a period. Cancelled orders count
// only in ByStatus.
type Dashboard struct {
	TotalRevenue    decimal.Decimal            `json:"total_revenue"`
	TotalOrders     int                        `json:"total_orders"`
	TicketMean      decimal.Decimal            `json:"ticket_mean"`
	TicketMedian    decimal.Decimal            `json:"ticket_median"`
	RevenueByMonth  []MonthAmount              `json:"revenue_by_month"`
	ExpensesByMonth []MonthAmount              `json:"expenses_by_month"`
	ExpensesTotal   decimal.Decimal            `json:"expenses_total"`
	Balance         decimal.Decimal            `json:"balance"`
	ByChannel       map[string]decimal.Decimal `json:"by_channel"`
	Products        decimal.Decimal            `json:"products"`
	Services        decimal.Decimal            `json:"services"`
	ByStatus        map[string]int64           `json:"by_status"`
}

// Period bounds of the dashboard; zero values leave the side open
type Period struct {
	From time.Time
	To   time.Time
}

func monthly(acc map[string]decimal.Decimal) []MonthAmount {
	out := make([]MonthAmount, 0, len(acc))
	for m, v := range acc {
		out = append(out, MonthAmount{Month: m, Amount: v.Round(2)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// Dashboard aggregates orders and expenses of the period
func (s *Service) Dashboard(ctx context.Context, p Period) (*Dashboard, error) {
	db := s.db.WithContext(ctx)
	d := &Dashboard{
		TotalRevenue:  decimal.Zero,
		TicketMean:    decimal.Zero,
		TicketMedian:  decimal.Zero,
		ExpensesTotal: decimal.Zero,
		Products:      decimal.Zero,
		Services:      decimal.Zero,
		ByChannel: map[string]decimal.Decimal{
			domain.ChannelInternal: decimal.Zero,
			domain.ChannelReseller: decimal.Zero,
		},
		ByStatus: map[string]int64{},
	}

	oq := db.Model(&domain.Order{})
	if !p.From.IsZero() {
		oq = oq.Where("created_at >= ?", p.From)
	}
	if !p.To.IsZero() {
		oq = oq.Where("created_at < ?", p.To)
	}
	var orders []domain.Order
	if err := oq.Select("id", "channel", "status", "total_net", "created_at").
		Order("created_at ASC").Find(&orders).Error; err != nil {
		return nil, err
	}

	revenue := map[string]decimal.Decimal{}
	tickets := make(stats.Float64Data, 0, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		d.ByStatus[o.Status]++
		if o.Status == domain.OrderStatusCancelled {
			continue
		}
		ids = append(ids, o.ID)
		d.TotalOrders++
		d.TotalRevenue = d.TotalRevenue.Add(o.TotalNet)
		d.ByChannel[o.Channel] = d.ByChannel[o.Channel].Add(o.TotalNet)
		m := o.CreatedAt.In(s.loc).Format("2006-01")
		revenue[m] = revenue[m].Add(o.TotalNet)
		f, _ := o.TotalNet.Float64()
		tickets = append(tickets, f)
	}
	d.RevenueByMonth = monthly(revenue)
	if len(tickets) > 0 {
		mean, err := stats.Mean(tickets)
		if err != nil {
			return nil, err
		}
		median, err := stats.Median(tickets)
		if err != nil {
			return nil, err
		}
		d.TicketMean = decimal.NewFromFloat(mean).Round(2)
		d.TicketMedian = decimal.NewFromFloat(median).Round(2)
	}

	if len(ids) > 0 {
		var byType []struct {
			Type  string
			Total decimal.Decimal
		}
		if err := db.Model(&domain.OrderItem{}).Select("type, SUM(subtotal_net) AS total").
			Where("order_id IN ?", ids).Group("type").Scan(&byType).Error; err != nil {
			return nil, err
		}
		for _, t := range byType {
			if t.Type == domain.ItemTypeService {
				d.Services = d.Services.Add(t.Total)
			} else {
				d.Products = d.Products.Add(t.Total)
			}
		}
	}

	eq := db.Model(&domain.Expense{})
	if !p.From.IsZero() {
		eq = eq.Where("issue_date >= ?", p.From)
	}
	if !p.To.IsZero() {
		eq = eq.Where("issue_date < ?", p.To)
	}
	var expenses []domain.Expense
	if err := eq.Select("id", "amount", "issue_date").Find(&expenses).Error; err != nil {
		return nil, err
	}
	spent := map[string]decimal.Decimal{}
	for _, e := range expenses {
		m := e.IssueDate.In(s.loc).Format("2006-01")
		spent[m] = spent[m].Add(e.Amount)
		d.ExpensesTotal = d.ExpensesTotal.Add(e.Amount)
	}
	d.ExpensesByMonth = monthly(spent)

	d.TotalRevenue = d.TotalRevenue.Round(2)
	d.ExpensesTotal = d.ExpensesTotal.Round(2)
	d.Balance = d.TotalRevenue.Sub(d.ExpensesTotal)
	return d, nil
}
