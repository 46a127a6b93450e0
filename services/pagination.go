package services

import "gorm.io/gorm"

// PageSize is the fixed number of rows per page of every listing.
const PageSize = 10

// Page is one page of a listing.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func (p Page[T]) HasNext() bool {
	return p.Page < p.TotalPages
}

func (p Page[T]) HasPrevious() bool {
	return p.Page > 1
}

// totalPages is never below one so an empty listing still has a first page.
func totalPages(total int64) int {
	if total <= 0 {
		return 1
	}
	return int((total + PageSize - 1) / PageSize)
}

// resolvePage maps a requested page to a valid one. Anything outside
// [1, pages] falls back to the first page.
func resolvePage(requested int, total int64) int {
	if requested < 1 || requested > totalPages(total) {
		return 1
	}
	return requested
}

// paginate counts the rows matched by base, then loads the requested page.
// decorate adds ordering and preloads to the page query only.
func paginate[T any](base *gorm.DB, requested int, decorate func(*gorm.DB) *gorm.DB) (Page[T], error) {
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return Page[T]{}, err
	}

	page := resolvePage(requested, total)
	query := base.Session(&gorm.Session{})
	if decorate != nil {
		query = decorate(query)
	}

	items := make([]T, 0, PageSize)
	if err := query.Offset((page - 1) * PageSize).Limit(PageSize).Find(&items).Error; err != nil {
		return Page[T]{}, err
	}

	return Page[T]{
		Items:      items,
		Page:       page,
		PageSize:   PageSize,
		Total:      total,
		TotalPages: totalPages(total),
	}, nil
}
