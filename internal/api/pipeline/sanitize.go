package pipeline

import (
	"reflect"
	"strings"
)

// SanitizeStruct strips HTML/script content from every settable string field
// reachable from v (which must be a pointer). It runs on all bound input
// regardless of schema: type validation alone does not protect stored or
// echoed text against injection.
func SanitizeStruct(v any) {
	if v == nil {
		return
	}
	sanitizeValue(reflect.ValueOf(v))
}

func sanitizeValue(v reflect.Value) {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if !v.IsNil() {
			sanitizeValue(v.Elem())
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			f := v.Field(i)
			if f.CanSet() {
				sanitizeValue(f)
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			sanitizeValue(v.Index(i))
		}
	case reflect.Map:
		for _, key := range v.MapKeys() {
			elem := v.MapIndex(key)
			if elem.Kind() == reflect.String {
				v.SetMapIndex(key, reflect.ValueOf(stripMarkup(elem.String())))
			}
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(stripMarkup(v.String()))
		}
	}
}

// stripMarkup removes anything between angle brackets. Text outside tags is
// preserved; an unclosed tag swallows the remainder, which errs on the safe
// side for truncated payloads.
func stripMarkup(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
