package analytics

import (
	"context"
	"errors"

	"github.com/mvalverde/agrolink-backend/internal/analytics/query"
	"github.com/mvalverde/agrolink-backend/internal/analytics/types"
	"github.com/mvalverde/agrolink-backend/pkg/bigquery"
)

// Service answers the admin KPI endpoints from the marketplace events
// table the analytics worker fills.
type Service interface {
	Query(ctx context.Context, req types.MarketplaceQueryRequest) (*types.MarketplaceQueryResponse, error)
}

type service struct {
	marketplace query.MarketplaceService
}

func NewService(client *bigquery.Client, project, dataset, table string) (Service, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	marketplace, err := query.NewMarketplaceService(client, project, dataset, table)
	if err != nil {
		return nil, err
	}
	return &service{marketplace: marketplace}, nil
}

func (s *service) Query(ctx context.Context, req types.MarketplaceQueryRequest) (*types.MarketplaceQueryResponse, error) {
	return s.marketplace.Query(ctx, req)
}
