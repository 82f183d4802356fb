// Package offset: постраничная выдача списков подписчиков и подписок.
package offset

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/EgorLis/my-feed/internal/domain"
)

const (
	ParamPage = "page"
	ParamSize = "size"
)

type Sizes struct {
	Default int
	Max     int
}

// Params хранит номер страницы с единицы и её размер.
type Params struct {
	Page int
	Size int
}

func ParseParams(q url.Values, sz Sizes) (Params, error) {
	p := Params{Page: 1, Size: sz.Default}

	if raw := q.Get(ParamPage); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Params{}, fmt.Errorf("page %q: %w", raw, domain.ErrBadParams)
		}
		p.Page = n
	}
	if raw := q.Get(ParamSize); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Params{}, fmt.Errorf("size %q: %w", raw, domain.ErrBadParams)
		}
		p.Size = max(n, 1)
	}
	if sz.Max > 0 && p.Size > sz.Max {
		p.Size = sz.Max
	}
	return p, nil
}

// Window возвращает LIMIT/OFFSET для запроса в БД.
func (p Params) Window() (limit, offset int) {
	return p.Size, (p.Page - 1) * p.Size
}

type Page[T any] struct {
	Results     []T  `json:"results"`
	TotalPage   int  `json:"total_page"`
	TotalResult int  `json:"total_result"`
	PageNumber  int  `json:"page_number"`
	HasNextPage bool `json:"has_next_page"`
}

// Check возвращает ErrNotFound, если страница за пределами выборки.
// Первая страница пустого списка допустима.
func Check(p Params, total int) error {
	if p.Page > totalPages(total, p.Size) && !(p.Page == 1 && total == 0) {
		return fmt.Errorf("page %d of %d: %w", p.Page, totalPages(total, p.Size), domain.ErrNotFound)
	}
	return nil
}

func NewPage[T any](items []T, total int, p Params) Page[T] {
	if items == nil {
		items = []T{}
	}
	tp := totalPages(total, p.Size)
	return Page[T]{
		Results:     items,
		TotalPage:   tp,
		TotalResult: total,
		PageNumber:  p.Page,
		HasNextPage: p.Page < tp,
	}
}

func totalPages(total, size int) int {
	if total == 0 || size < 1 {
		return 0
	}
	return (total + size - 1) / size
}
