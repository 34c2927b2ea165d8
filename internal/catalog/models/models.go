package models

import (
	"time"
)

type Store struct {
	ID              int
	Name            string
	LastRetrievedOn time.Time
	CreatedAt       time.Time
}

type Product struct {
	ID          int
	StoreID     int
	URL         string
	Name        string
	ImageURLs   []string
	LatestPrice int64
	IsActive    bool
	CreatedAt   time.Time
}

// PriceRecord is one row of the append-only price ledger. Records are never
// edited after insertion.
type PriceRecord struct {
	ProductID   int
	Price       int64
	RetrievedOn time.Time
}

// RawListing is a staging document produced by the site scrapers. The price
// field arrives as either a string or a number depending on the scraper, so
// it is decoded into an interface{} and parsed during validation.
type RawListing struct {
	Store    string      `bson:"store"`
	Name     string      `bson:"name"`
	URL      string      `bson:"url"`
	Price    interface{} `bson:"price"`
	Images   []string    `bson:"images"`
	IsActive *bool       `bson:"is_active"`
}

// Active reports the listing's availability flag, defaulting to true when the
// scraper did not set one.
func (l *RawListing) Active() bool {
	if l.IsActive == nil {
		return true
	}
	return *l.IsActive
}
