package cursor

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/EgorLis/my-feed/internal/domain"
)

// Имена query-параметров
const (
	ParamAfter  = "created_at__gt"
	ParamBefore = "created_at__lt"
	ParamSize   = "size"
)

type Sizes struct {
	Default int
	Max     int
}

// Params — разобранный курсор. After имеет приоритет над Before.
type Params struct {
	After  time.Time
	Before time.Time
	Size   int
}

func (p Params) IsAfter() bool { return !p.After.IsZero() }

func ParseParams(q url.Values, sz Sizes) (Params, error) {
	p := Params{Size: sz.Default}

	if raw := q.Get(ParamSize); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Params{}, fmt.Errorf("size %q: %w", raw, domain.ErrBadParams)
		}
		if n < 0 {
			return Params{}, fmt.Errorf("size must not be negative, got %d: %w", n, domain.ErrBadParams)
		}
		// size=0 поднимается до одной записи, как слишком большой опускается до Max
		p.Size = max(n, 1)
	}
	if sz.Max > 0 && p.Size > sz.Max {
		p.Size = sz.Max
	}

	var err error
	if p.After, err = parseTime(q, ParamAfter); err != nil {
		return Params{}, err
	}
	if p.IsAfter() {
		return p, nil
	}
	if p.Before, err = parseTime(q, ParamBefore); err != nil {
		return Params{}, err
	}
	return p, nil
}

func parseTime(q url.Values, name string) (time.Time, error) {
	raw := q.Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	// неэкранированный "+" в смещении зоны приходит пробелом
	raw = strings.ReplaceAll(raw, " ", "+")
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s %q: %w", name, raw, domain.ErrBadParams)
	}
	return t.UTC(), nil
}
