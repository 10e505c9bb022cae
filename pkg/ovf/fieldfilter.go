// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ovf

import "reflect"

// cloneExcluding produces a deep structural copy of msg in which the
// named top-level fields are left at their zero value. Every other field
// is copied in full, including nested fields of sub-messages.
//
// msg must be a pointer to a struct whose fields carry `ovf:"..."` tags;
// the tag value, not the Go field name, is what excludedFieldNames is
// matched against (the original C++ implementation resolves this
// equivalently, by protobuf field-descriptor name rather than by the
// generated struct's member name).
func cloneExcluding(msg any, excludedFieldNames ...string) any {
	excluded := make(map[string]bool, len(excludedFieldNames))
	for _, n := range excludedFieldNames {
		excluded[n] = true
	}

	v := reflect.ValueOf(msg)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		panic("ovf: cloneExcluding requires a non-nil pointer to a struct")
	}
	elem := v.Elem()
	out := reflect.New(elem.Type())

	for i := 0; i < elem.NumField(); i++ {
		field := elem.Type().Field(i)
		if excluded[field.Tag.Get("ovf")] {
			continue
		}
		out.Elem().Field(i).Set(deepCopyValue(elem.Field(i)))
	}
	return out.Interface()
}

// deepCopyValue recursively copies v, following pointers, slices and maps
// so that the result shares no mutable state with v.
func deepCopyValue(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(deepCopyValue(v.Elem()))
		return out
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			out.Field(i).Set(deepCopyValue(v.Field(i)))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(deepCopyValue(v.Index(i)))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(deepCopyValue(iter.Key()), deepCopyValue(iter.Value()))
		}
		return out
	default:
		// Scalars (string, bool, numeric kinds, interfaces with no
		// nested mutable state) are copied by value already.
		return v
	}
}
