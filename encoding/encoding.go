// Package encoding copies fixed-layout values (booleans, numbers, arrays and
// structs made only of those) to and from their in-memory byte image.
package encoding

import (
	"errors"
	"fmt"
	"iter"
	"reflect"
	"sync"
	"unsafe"

	"github.com/modern-go/reflect2"
)

var (
	ErrNotPointer = errors.New("value is not a non-nil pointer")
	ErrShortData  = errors.New("data too short")
)

type layout struct {
	size int
	err  error
}

var layouts sync.Map

func Marshal(val any) ([]byte, error) {
	ptr, l, err := inspect(val)
	if err != nil {
		return nil, err
	}
	data := make([]byte, l.size)
	copy(data, unsafe.Slice((*byte)(ptr), l.size))
	return data, nil
}

func Unmarshal(data []byte, val any) error {
	ptr, l, err := inspect(val)
	if err != nil {
		return err
	} else if len(data) < l.size {
		return ErrShortData
	}
	copy(unsafe.Slice((*byte)(ptr), l.size), data)
	return nil
}

func inspect(val any) (unsafe.Pointer, *layout, error) {
	if val == nil {
		return nil, nil, ErrNotPointer
	}
	typ := reflect2.TypeOf(val)
	if typ.Kind() != reflect.Pointer {
		return nil, nil, ErrNotPointer
	}
	ptr := reflect2.PtrOf(val)
	if ptr == nil {
		return nil, nil, ErrNotPointer
	}
	l := getLayout(typ.Type1().Elem())
	if l.err != nil {
		return nil, nil, l.err
	}
	return ptr, l, nil
}

func getLayout(typ reflect.Type) *layout {
	key := reflect2.Type2(typ).RType()
	if v, ok := layouts.Load(key); ok {
		return v.(*layout)
	}
	l := &layout{size: int(typ.Size())}
	if !fixed(typ) {
		l.err = fmt.Errorf("type %s has no fixed layout", typ)
	}
	v, _ := layouts.LoadOrStore(key, l)
	return v.(*layout)
}

func fixed(typ reflect.Type) bool {
	switch typ.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr, reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return fixed(typ.Elem())
	case reflect.Struct:
		for field := range rangeField(typ) {
			if !fixed(field.Type) {
				return false
			}
		}
		return true
	}
	return false
}

func rangeField(typ reflect.Type) iter.Seq[reflect.StructField] {
	return func(yield func(reflect.StructField) bool) {
		count := typ.NumField()
		for i := 0; i < count; i++ {
			if !yield(typ.Field(i)) {
				break
			}
		}
	}
}
