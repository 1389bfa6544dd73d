package florin

import (
	"context"
	"net/http"
	"time"

	"github.com/goliatone/go-florin/core"
)

// CashflowInterval selects the bucket width of a cashflow series.
type CashflowInterval string

const (
	CashflowDaily   CashflowInterval = "day"
	CashflowWeekly  CashflowInterval = "week"
	CashflowMonthly CashflowInterval = "month"
)

// AnalyticsService reads aggregated views of the ledger.
type AnalyticsService struct {
	client *Client
}

// Summary fetches income, expense, and per-category totals for a window.
func (s *AnalyticsService) Summary(ctx context.Context, input core.AnalyticsQueryInput) (core.AnalyticsSummary, error) {
	if err := input.Validate(); err != nil {
		return core.AnalyticsSummary{}, err
	}

	envelope, err := s.client.Send(ctx, core.Request{
		Method: http.MethodGet,
		Path:   "/analytics/summary",
		Query: map[string]string{
			"from": input.From.UTC().Format(time.RFC3339),
			"to":   input.To.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return core.AnalyticsSummary{}, err
	}
	return core.DecodeData[core.AnalyticsSummary](envelope)
}

// CashflowSeries fetches bucketed income and expense totals for a window.
// An empty interval leaves the bucket width to the server.
func (s *AnalyticsService) CashflowSeries(ctx context.Context, input core.AnalyticsQueryInput, interval CashflowInterval) ([]core.CashflowPoint, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	query := map[string]string{
		"from": input.From.UTC().Format(time.RFC3339),
		"to":   input.To.UTC().Format(time.RFC3339),
	}
	if interval != "" {
		query["interval"] = string(interval)
	}

	envelope, err := s.client.Send(ctx, core.Request{
		Method: http.MethodGet,
		Path:   "/analytics/cashflow",
		Query:  query,
	})
	if err != nil {
		return nil, err
	}
	return core.DecodeData[[]core.CashflowPoint](envelope)
}

// AnalyticsSummary fetches aggregated totals through the analytics
// accessor.
func (c *Client) AnalyticsSummary(ctx context.Context, input core.AnalyticsQueryInput) (core.AnalyticsSummary, error) {
	return c.analytics.Summary(ctx, input)
}
