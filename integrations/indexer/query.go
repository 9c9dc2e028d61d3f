package indexer

import (
	"context"
	"strings"
)

// AssetFilter narrows asset queries. Zero values match everything.
type AssetFilter struct {
	Owner    string
	Category *uint8
	Limit    int
}

// Assets lists indexed assets in id order.
func (i *Indexer) Assets(ctx context.Context, filter AssetFilter) ([]AssetRow, error) {
	q := i.db.WithContext(ctx).Model(&AssetRow{}).Order("id asc")
	if owner := strings.TrimSpace(filter.Owner); owner != "" {
		q = q.Where("owner = ?", owner)
	}
	if filter.Category != nil {
		q = q.Where("category = ?", *filter.Category)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var rows []AssetRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// PendingRequests lists requests still waiting for randomness.
func (i *Indexer) PendingRequests(ctx context.Context) ([]RequestRow, error) {
	var rows []RequestRow
	err := i.db.WithContext(ctx).Where("fulfilled = ?", false).Order("id asc").Find(&rows).Error
	return rows, err
}

// CategoryCount is the number of assets minted in one category.
type CategoryCount struct {
	Category uint8
	Count    int64
}

// CategoryCounts reports the mint distribution across categories.
func (i *Indexer) CategoryCounts(ctx context.Context) ([]CategoryCount, error) {
	var out []CategoryCount
	err := i.db.WithContext(ctx).
		Model(&AssetRow{}).
		Select("category, count(*) as count").
		Group("category").
		Order("category asc").
		Scan(&out).Error
	return out, err
}
