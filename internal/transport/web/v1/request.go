package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/EgorLis/my-feed/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeBody читает JSON-тело в dst и проверяет теги validate.
// Любая ошибка ввода: ErrBadParams.
func DecodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty body: %w", domain.ErrBadParams)
		}
		return fmt.Errorf("decode body: %v: %w", err, domain.ErrBadParams)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("validate: %v: %w", err, domain.ErrBadParams)
	}
	return nil
}

// PathID читает положительный int64 из path-параметра {name}.
func PathID(r *http.Request, name string) (int64, error) {
	return parseID(r.PathValue(name), name)
}

// QueryID читает положительный int64 из query-параметра; обязателен.
func QueryID(r *http.Request, name string) (int64, error) {
	return parseID(r.URL.Query().Get(name), name)
}

func parseID(raw, name string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%s %q: %w", name, raw, domain.ErrBadParams)
	}
	return id, nil
}
