package models

import "time"

// Requests for chart HTTP endpoints. Times are RFC3339 or unix seconds.
// Target and granularity bounds are enforced by the calculator so the API
// reports the same error codes as in-process callers. Target is only
// honoured when the query carries it.

type GranularityRequest struct {
	From   string `query:"from" json:"from" validate:"required"`
	To     string `query:"to" json:"to" validate:"required"`
	Target int    `query:"target" json:"target"`
}

type DataPointsRequest struct {
	From        string `query:"from" json:"from" validate:"required"`
	To          string `query:"to" json:"to" validate:"required"`
	Granularity string `query:"granularity" json:"granularity" validate:"required"`
}

type CandlesRequest struct {
	Instrument  string `query:"instrument" json:"instrument" validate:"required,max=32"`
	From        string `query:"from" json:"from" validate:"required"`
	To          string `query:"to" json:"to" validate:"required"`
	Granularity string `query:"granularity" json:"granularity"`
	Target      int    `query:"target" json:"target"`
	Price       string `query:"price" json:"price" default:"M" validate:"oneof=M B A"`
}

type LiveRequest struct {
	Instrument string `query:"instrument" json:"instrument" validate:"required,max=32"`
}

type GranularityResponse struct {
	Granularity string    `json:"granularity"`
	Points      int       `json:"points"`
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
}

type DataPointsResponse struct {
	Granularity string `json:"granularity"`
	Points      int    `json:"points"`
}
