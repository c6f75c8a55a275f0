package domain

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

type ItemQuery struct {
	Page   int
	Limit  int
	Search string
}

// Normalize clamps page and limit into their valid ranges.
func (q ItemQuery) Normalize() ItemQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	return q
}

func (q ItemQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

type PageMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

type ItemPage struct {
	Data []Item   `json:"data"`
	Meta PageMeta `json:"meta"`
}

func NewItemPage(items []Item, total int, q ItemQuery) ItemPage {
	if items == nil {
		items = []Item{}
	}
	return ItemPage{
		Data: items,
		Meta: PageMeta{
			Total:      total,
			Page:       q.Page,
			Limit:      q.Limit,
			TotalPages: (total + q.Limit - 1) / q.Limit,
		},
	}
}

// Paginate filters items by the query's search term and returns the
// requested page.
func Paginate(items []Item, q ItemQuery) ItemPage {
	q = q.Normalize()

	matched := items
	if q.Search != "" {
		matched = make([]Item, 0, len(items))
		for _, item := range items {
			if item.Matches(q.Search) {
				matched = append(matched, item)
			}
		}
	}

	start := q.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + q.Limit
	if end > len(matched) {
		end = len(matched)
	}

	page := make([]Item, end-start)
	copy(page, matched[start:end])
	return NewItemPage(page, len(matched), q)
}
