package models

import "time"

type Order struct {
	ID              int64
	UserID          int64
	InsertDate      time.Time
	OrderTotal      float64
	ExternalAppName string
	CustomerID      int64
	Lat             float64
	Lng             float64
}

type AppTotal struct {
	App     string  `json:"app"`
	Orders  int64   `json:"orders"`
	Revenue float64 `json:"revenue"`
}

type HourTotal struct {
	Hour   int   `json:"hour"`
	Orders int64 `json:"orders"`
}

// OrderSummary aggregates a user's orders over [From, To).
type OrderSummary struct {
	From       time.Time   `json:"from"`
	To         time.Time   `json:"to"`
	OrderCount int64       `json:"orderCount"`
	Revenue    float64     `json:"revenue"`
	ByApp      []AppTotal  `json:"byApp"`
	ByHour     []HourTotal `json:"byHour"`
}
