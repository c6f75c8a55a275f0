package domain

import (
	"fmt"
	"time"
)

type Stats struct {
	Total        int     `json:"total"`
	AveragePrice float64 `json:"averagePrice"`
}

// ComputeStats returns the item count and mean price. The mean of an empty
// catalog is 0.
func ComputeStats(items []Item) Stats {
	if len(items) == 0 {
		return Stats{}
	}

	var sum float64
	for _, item := range items {
		sum += item.Price
	}

	return Stats{
		Total:        len(items),
		AveragePrice: sum / float64(len(items)),
	}
}

// StoreVersion identifies one state of the item store file.
type StoreVersion struct {
	ModTime time.Time
	Size    int64
}

func (v StoreVersion) Equal(other StoreVersion) bool {
	return v.Size == other.Size && v.ModTime.Equal(other.ModTime)
}

func (v StoreVersion) String() string {
	return fmt.Sprintf("%d:%d", v.ModTime.UnixNano(), v.Size)
}
