package enum

import (
	"fmt"
	"reflect"
)

// enumManager maps a type to the set of its declared values. Values are
// registered from package level variables, so no locking is needed.
var enumManager = map[reflect.Type]map[string]any{}

// New registers value as a member of its enum type and returns it.
func New[T ~string](value T) T {
	t := reflect.TypeOf(value)
	if _, ok := enumManager[t]; !ok {
		enumManager[t] = map[string]any{}
	}

	enumManager[t][string(value)] = value
	return value
}

// ToEnum returns the declared member of T equal to s.
func ToEnum[T ~string](s string) (T, error) {
	var defaultT T
	values, ok := enumManager[reflect.TypeOf(defaultT)]
	if !ok {
		return defaultT, fmt.Errorf("not found enum type %T", defaultT)
	}

	v, ok := values[s]
	if !ok {
		return defaultT, fmt.Errorf("not found value %s in enum %T", s, defaultT)
	}

	return v.(T), nil
}
