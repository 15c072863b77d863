package repository

import "strings"

// SortDirection направление сортировки
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageRequest параметры постраничной выборки
type PageRequest struct {
	Page      int
	Size      int
	Sort      string
	Direction SortDirection
}

// Page страница результатов
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
}

// CardSortColumns допустимые ключи сортировки карт и соответствующие колонки
var CardSortColumns = map[string]string{
	"expirationDate": "expiration_date",
	"balance":        "balance",
	"status":         "status",
	"createdAt":      "created_at",
}

// DefaultCardSort ключ сортировки карт по умолчанию
const DefaultCardSort = "expirationDate"

// Normalize приводит запрос к допустимым значениям. Неизвестный ключ
// сортировки заменяется на fallback вместе с направлением ASC.
func (r PageRequest) Normalize(allowed map[string]string, fallback string) PageRequest {
	if r.Page < 0 {
		r.Page = 0
	}
	if r.Size <= 0 {
		r.Size = DefaultPageSize
	}
	if r.Size > MaxPageSize {
		r.Size = MaxPageSize
	}

	if _, ok := allowed[r.Sort]; !ok {
		r.Sort = fallback
		r.Direction = SortAsc
		return r
	}
	switch SortDirection(strings.ToUpper(string(r.Direction))) {
	case SortDesc:
		r.Direction = SortDesc
	default:
		r.Direction = SortAsc
	}
	return r
}

// Offset смещение первой записи страницы
func (r PageRequest) Offset() int {
	return r.Page * r.Size
}

// NewPage собирает страницу из уже выбранных элементов
func NewPage[T any](content []T, req PageRequest, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	pages := 0
	if req.Size > 0 {
		pages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return Page[T]{
		Content:       content,
		Page:          req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    pages,
	}
}

// MapPage преобразует элементы страницы
func MapPage[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, len(p.Content))
	for i, item := range p.Content {
		out[i] = fn(item)
	}
	return Page[U]{
		Content:       out,
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
	}
}

// UserSortColumns допустимые ключи сортировки пользователей
var UserSortColumns = map[string]string{
	"name":  "name",
	"email": "email",
}

// DefaultUserSort ключ сортировки пользователей по умолчанию
const DefaultUserSort = "name"
