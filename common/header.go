package common

import (
	"fmt"
)

// Header holds FITS keywords by name.
type Header map[string]interface{}

// Int64 returns the keyword as an int64. Integral floats are accepted since
// some writers emit BZERO as 32768.0.
func (h Header) Int64(key string) (int64, error) {
	v, ok := h[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing header %s", key)
	}

	return ToInt64(v)
}

// ToInt64 converts any numeric header value to int64.
func ToInt64(n interface{}) (int64, error) {
	switch n := n.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case float32:
		if float32(int64(n)) != n {
			return 0, fmt.Errorf("%v is not integral", n)
		}
		return int64(n), nil
	case float64:
		if float64(int64(n)) != n {
			return 0, fmt.Errorf("%v is not integral", n)
		}
		return int64(n), nil
	}

	return 0, fmt.Errorf("%T is not a number", n)
}
