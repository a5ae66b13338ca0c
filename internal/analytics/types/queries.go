package types

import "time"

// MarketplaceQueryRequest carries the input parameters for marketplace analytics queries.
type MarketplaceQueryRequest struct {
	Start time.Time
	End   time.Time
}

// TimeSeriesPoint describes a single date/value pair returned by the query service.
type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Value int64  `json:"value"`
}

// LabelValue represents a top-N entry such as a crop name.
type LabelValue struct {
	Label string `json:"label"`
	Value int64  `json:"value"`
}

// MarketplaceQueryResponse wraps the marketplace KPIs for the admin dashboard.
type MarketplaceQueryResponse struct {
	OrdersSeries     []TimeSeriesPoint `json:"orders"`
	LbsSoldSeries    []TimeSeriesPoint `json:"lbs_sold"`
	PayoutSeries     []TimeSeriesPoint `json:"payout_cents"`
	SignupsSeries    []TimeSeriesPoint `json:"signups"`
	TopCropsSold     []LabelValue      `json:"top_crops_sold"`
	TopCropsSupplied []LabelValue      `json:"top_crops_supplied"`
	AvgOrderLbs      float64           `json:"avg_order_lbs"`
	NewBuyers        int64             `json:"new_buyers"`
	ReturningBuyers  int64             `json:"returning_buyers"`
}
