package postgres

import (
	"reflect"
	"sync"
)

// ExtractDBColumns lists the "db" tag names of T, including those of
// embedded structs, in declaration order.
//
//	columns := ExtractDBColumns[product.Product]()
//	// ["id", "lifecycle", "version", "created_at", "updated_at", "name", "active", "sku", ...]
func ExtractDBColumns[T any]() []string {
	var zero T
	return columnsOf(reflect.TypeOf(zero))
}

func columnsOf(t reflect.Type) []string {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	var cols []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous {
			cols = append(cols, columnsOf(field.Type)...)
			continue
		}
		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		cols = append(cols, tag)
	}
	return cols
}

// typeMetadata caches the tagged and embedded field indices of a struct type.
type typeMetadata struct {
	fields   []taggedField
	embedded []int
}

type taggedField struct {
	index int
	tag   string
}

var typeCache sync.Map // map[reflect.Type]*typeMetadata

func metadataOf(t reflect.Type) *typeMetadata {
	if cached, ok := typeCache.Load(t); ok {
		return cached.(*typeMetadata)
	}

	meta := &typeMetadata{}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous {
			meta.embedded = append(meta.embedded, i)
			continue
		}
		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		meta.fields = append(meta.fields, taggedField{index: i, tag: tag})
	}

	actual, _ := typeCache.LoadOrStore(t, meta)
	return actual.(*typeMetadata)
}

// StructToMap converts a struct to a column→value map using "db" tags.
// Fields tagged "-" or untagged are skipped; embedded structs are flattened.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	res := make(map[string]any)
	fillMap(rv, res)
	return res
}

func fillMap(rv reflect.Value, res map[string]any) {
	meta := metadataOf(rv.Type())
	for _, f := range meta.fields {
		res[f.tag] = rv.Field(f.index).Interface()
	}
	for _, idx := range meta.embedded {
		emb := rv.Field(idx)
		if emb.Kind() == reflect.Ptr {
			if emb.IsNil() {
				continue
			}
			emb = emb.Elem()
		}
		if emb.Kind() == reflect.Struct {
			fillMap(emb, res)
		}
	}
}
