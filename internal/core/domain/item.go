package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

type Item struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
}

// itemRecord mirrors Item with pointer fields so absent keys can be told
// apart from zero values.
type itemRecord struct {
	ID       *json.Number `json:"id"`
	Name     *string      `json:"name"`
	Category *string      `json:"category"`
	Price    *json.Number `json:"price"`
}

// ParseItems decodes a store document. It rejects anything that is not a
// JSON array of well-formed items, so a half-valid file never yields a
// partial catalog.
func ParseItems(data []byte) ([]Item, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	dec.DisallowUnknownFields()

	var records []itemRecord
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedData, err)
	}
	if records == nil {
		return nil, fmt.Errorf("%w: top-level value must be an array", ErrMalformedData)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after array", ErrMalformedData)
	}

	items := make([]Item, 0, len(records))
	seen := make(map[int64]struct{}, len(records))
	for i, rec := range records {
		item, err := rec.toItem()
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrMalformedData, i, err)
		}
		if _, dup := seen[item.ID]; dup {
			return nil, fmt.Errorf("%w: record %d: duplicate id %d", ErrMalformedData, i, item.ID)
		}
		seen[item.ID] = struct{}{}
		items = append(items, item)
	}

	return items, nil
}

func (r itemRecord) toItem() (Item, error) {
	if r.ID == nil {
		return Item{}, fmt.Errorf("missing id")
	}
	id, err := r.ID.Int64()
	if err != nil || id <= 0 {
		return Item{}, fmt.Errorf("id %q is not a positive integer", r.ID.String())
	}

	if r.Name == nil || strings.TrimSpace(*r.Name) == "" {
		return Item{}, fmt.Errorf("item %d: missing name", id)
	}

	if r.Price == nil {
		return Item{}, fmt.Errorf("item %d: missing price", id)
	}
	price, err := r.Price.Float64()
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return Item{}, fmt.Errorf("item %d: price %q is not a non-negative number", id, r.Price.String())
	}

	var category string
	if r.Category != nil {
		category = *r.Category
	}

	return Item{
		ID:       id,
		Name:     *r.Name,
		Category: category,
		Price:    price,
	}, nil
}

// Matches reports whether the item name or category contains term,
// ignoring case. An empty term matches everything.
func (i Item) Matches(term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(i.Name), term) ||
		strings.Contains(strings.ToLower(i.Category), term)
}
