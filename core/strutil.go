package core

import "strconv"

// itoa converts an integer to a string without pulling in fmt
func itoa(n int) string {
	return strconv.Itoa(n)
}

// utoa converts an unsigned integer to a string
func utoa(n uint32) string {
	return strconv.FormatUint(uint64(n), 10)
}

// valueToString renders a dictionary constant
func valueToString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return itoa(val)
	case uint32:
		return utoa(val)
	case bool:
		if val {
			return "1"
		}
		return "0"
	default:
		return ""
	}
}
