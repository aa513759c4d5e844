package utils

import (
	"reflect"
	"strconv"
	"strings"
)

// PatchColumns turns a pointer DTO into gorm update columns. Only non-nil pointer fields are
// included, keyed by their json name (or renames[json name]). Values are normalized like
// create DTOs: strings trimmed, decimals rounded to cents. The DTO itself is not modified.
func PatchColumns(dto any, renames map[string]string) map[string]any {
	cols := make(map[string]any)
	v := reflect.ValueOf(dto)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return cols
	}
	s := v.Elem()
	t := s.Type()
	for i := 0; i < t.NumField(); i++ {
		fv := s.Field(i)
		if fv.Kind() != reflect.Ptr || fv.IsNil() {
			continue
		}
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		if alt := renames[name]; alt != "" {
			name = alt
		}
		val := reflect.New(fv.Elem().Type()).Elem()
		val.Set(fv.Elem())
		normalizeValue(val)
		cols[name] = val.Interface()
	}
	return cols
}

// QueryInt parses a non-negative query value. Missing or bad input yields def; values above
// max are capped when max > 0.
func QueryInt(s string, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return def
	}
	if max > 0 && n > max {
		return max
	}
	return n
}
