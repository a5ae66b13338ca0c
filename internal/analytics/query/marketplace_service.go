package query

import (
	"context"
	"fmt"

	cloudbigquery "cloud.google.com/go/bigquery"
	"github.com/mvalverde/agrolink-backend/internal/analytics/types"
	"github.com/mvalverde/agrolink-backend/pkg/bigquery"
	pkgerrors "github.com/mvalverde/agrolink-backend/pkg/errors"
	"google.golang.org/api/iterator"
)

const (
	timeSeriesOrdersSQL = `
SELECT
  FORMAT_DATE('%%F', DATE_TRUNC(occurred_at, DAY)) AS day,
  COUNTIF(event_type = 'order_placed') AS value
FROM %s
WHERE event_type = 'order_placed'
  AND occurred_at BETWEEN @start AND @end
GROUP BY day
ORDER BY day ASC
`

	timeSeriesLbsSoldSQL = `
SELECT
  FORMAT_DATE('%%F', DATE_TRUNC(occurred_at, DAY)) AS day,
  SUM(COALESCE(amount_lbs, 0)) AS value
FROM %s
WHERE event_type = 'order_placed'
  AND occurred_at BETWEEN @start AND @end
GROUP BY day
ORDER BY day ASC
`

	timeSeriesPayoutSQL = `
SELECT
  FORMAT_DATE('%%F', DATE_TRUNC(occurred_at, DAY)) AS day,
  SUM(COALESCE(payout_cents, 0)) AS value
FROM %s
WHERE event_type = 'request_submitted'
  AND occurred_at BETWEEN @start AND @end
GROUP BY day
ORDER BY day ASC
`

	timeSeriesSignupsSQL = `
SELECT
  FORMAT_DATE('%%F', DATE_TRUNC(occurred_at, DAY)) AS day,
  COUNTIF(event_type = 'user_registered') AS value
FROM %s
WHERE event_type = 'user_registered'
  AND occurred_at BETWEEN @start AND @end
GROUP BY day
ORDER BY day ASC
`

	topCropsSoldSQL = `
SELECT crop_name AS label, SUM(COALESCE(amount_lbs, 0)) AS value
FROM %s
WHERE crop_name IS NOT NULL
  AND event_type = 'order_placed'
  AND occurred_at BETWEEN @start AND @end
GROUP BY crop_name
ORDER BY value DESC
LIMIT 5
`

	topCropsSuppliedSQL = `
SELECT label, SUM(value) AS value FROM (
  SELECT
    JSON_VALUE(line, '$.crop_name') AS label,
    SAFE_CAST(JSON_VALUE(line, '$.amount') AS INT64) AS value
  FROM %s
  WHERE lines IS NOT NULL
    AND event_type = 'request_approved'
    AND occurred_at BETWEEN @start AND @end,
  UNNEST(JSON_EXTRACT_ARRAY(lines)) AS line
)
WHERE label IS NOT NULL
GROUP BY label
ORDER BY value DESC
LIMIT 5
`

	avgOrderLbsSQL = `
SELECT SAFE_DIVIDE(SUM(COALESCE(amount_lbs, 0)), NULLIF(COUNT(DISTINCT order_id), 0)) AS value
FROM %s
WHERE event_type = 'order_placed'
  AND occurred_at BETWEEN @start AND @end
`

	newReturningSQL = `
WITH prior_buyers AS (
  SELECT DISTINCT user_id
  FROM %s
  WHERE event_type = 'order_placed'
    AND occurred_at < @start
    AND user_id IS NOT NULL
),
current_buyers AS (
  SELECT DISTINCT user_id,
    CASE
      WHEN user_id IN (SELECT user_id FROM prior_buyers) THEN 'returning'
      ELSE 'new'
    END AS category
  FROM %s
  WHERE event_type = 'order_placed'
    AND occurred_at BETWEEN @start AND @end
    AND user_id IS NOT NULL
)
SELECT
  COUNTIF(category = 'new') AS new_buyers,
  COUNTIF(category = 'returning') AS returning_buyers
FROM current_buyers
`
)

// MarketplaceService provides dashboard data from BigQuery marketplace_events.
type MarketplaceService interface {
	Query(ctx context.Context, req types.MarketplaceQueryRequest) (*types.MarketplaceQueryResponse, error)
}

type marketplaceService struct {
	client   *bigquery.Client
	tableRef string
}

// NewMarketplaceService builds a service backed by BigQuery.
func NewMarketplaceService(client *bigquery.Client, project, dataset, table string) (MarketplaceService, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}
	if project == "" || dataset == "" || table == "" {
		return nil, fmt.Errorf("project, dataset, and table are required")
	}
	return &marketplaceService{
		client:   client,
		tableRef: fmt.Sprintf("`%s.%s.%s`", project, dataset, table),
	}, nil
}

func (s *marketplaceService) Query(ctx context.Context, req types.MarketplaceQueryRequest) (*types.MarketplaceQueryResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	params := s.baseParams(req)

	orders, err := s.querySeries(ctx, fmt.Sprintf(timeSeriesOrdersSQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}
	lbsSold, err := s.querySeries(ctx, fmt.Sprintf(timeSeriesLbsSoldSQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}
	payouts, err := s.querySeries(ctx, fmt.Sprintf(timeSeriesPayoutSQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}
	signups, err := s.querySeries(ctx, fmt.Sprintf(timeSeriesSignupsSQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}

	topSold, err := s.queryTopLabels(ctx, fmt.Sprintf(topCropsSoldSQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}
	topSupplied, err := s.queryTopLabels(ctx, fmt.Sprintf(topCropsSuppliedSQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}

	avgOrderLbs, err := s.queryAverage(ctx, fmt.Sprintf(avgOrderLbsSQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}

	newBuyers, returningBuyers, err := s.queryNewReturning(ctx, fmt.Sprintf(newReturningSQL, s.tableRef, s.tableRef), params)
	if err != nil {
		return nil, err
	}

	return &types.MarketplaceQueryResponse{
		OrdersSeries:     orders,
		LbsSoldSeries:    lbsSold,
		PayoutSeries:     payouts,
		SignupsSeries:    signups,
		TopCropsSold:     topSold,
		TopCropsSupplied: topSupplied,
		AvgOrderLbs:      avgOrderLbs,
		NewBuyers:        newBuyers,
		ReturningBuyers:  returningBuyers,
	}, nil
}

func validateRequest(req types.MarketplaceQueryRequest) error {
	if req.Start.IsZero() || req.End.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "start and end are required")
	}
	if req.End.Before(req.Start) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end must be after start")
	}
	return nil
}

func (s *marketplaceService) baseParams(req types.MarketplaceQueryRequest) []cloudbigquery.QueryParameter {
	return []cloudbigquery.QueryParameter{
		{Name: "start", Value: req.Start},
		{Name: "end", Value: req.End},
	}
}

func (s *marketplaceService) querySeries(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) ([]types.TimeSeriesPoint, error) {
	iter, err := s.client.Query(ctx, sql, params)
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}

	var points []types.TimeSeriesPoint
	for {
		var row struct {
			Day   string `bigquery:"day"`
			Value int64  `bigquery:"value"`
		}
		if err := iter.Next(&row); err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("reading series row: %w", err)
		}
		points = append(points, types.TimeSeriesPoint{Date: row.Day, Value: row.Value})
	}
	return points, nil
}

func (s *marketplaceService) queryTopLabels(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) ([]types.LabelValue, error) {
	iter, err := s.client.Query(ctx, sql, params)
	if err != nil {
		return nil, fmt.Errorf("query top labels: %w", err)
	}

	var result []types.LabelValue
	for {
		var row struct {
			Label string `bigquery:"label"`
			Value int64  `bigquery:"value"`
		}
		if err := iter.Next(&row); err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("reading top label row: %w", err)
		}
		result = append(result, types.LabelValue{Label: row.Label, Value: row.Value})
	}
	return result, nil
}

func (s *marketplaceService) queryAverage(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (float64, error) {
	iter, err := s.client.Query(ctx, sql, params)
	if err != nil {
		return 0, fmt.Errorf("query average: %w", err)
	}
	var row struct {
		Value cloudbigquery.NullFloat64 `bigquery:"value"`
	}
	if err := iter.Next(&row); err != nil {
		if err == iterator.Done {
			return 0, nil
		}
		return 0, fmt.Errorf("reading average row: %w", err)
	}
	if !row.Value.Valid {
		return 0, nil
	}
	return row.Value.Float64, nil
}

func (s *marketplaceService) queryNewReturning(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (int64, int64, error) {
	iter, err := s.client.Query(ctx, sql, params)
	if err != nil {
		return 0, 0, fmt.Errorf("query new vs returning: %w", err)
	}
	var row struct {
		NewBuyers       int64 `bigquery:"new_buyers"`
		ReturningBuyers int64 `bigquery:"returning_buyers"`
	}
	if err := iter.Next(&row); err != nil {
		if err == iterator.Done {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("reading new vs returning row: %w", err)
	}
	return row.NewBuyers, row.ReturningBuyers, nil
}
