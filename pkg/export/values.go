package export

import (
	"unicode/utf8"

	"github.com/Sudo-Ivan/geodata-converter/pkg/dataset"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindBool
)

// columnKind infers the storage type of a column from its non-nil values.
// Mixed kinds fall back to string; integers widen to float when mixed.
func columnKind(t *dataset.Table, col string) valueKind {
	kind := valueKind(-1)
	for _, row := range t.Rows {
		v, ok := row[col]
		if !ok || v == nil {
			continue
		}
		k := kindOf(v)
		switch {
		case kind == -1:
			kind = k
		case kind == k:
		case (kind == kindInt && k == kindFloat) || (kind == kindFloat && k == kindInt):
			kind = kindFloat
		default:
			return kindString
		}
	}
	if kind == -1 {
		return kindString
	}
	return kind
}

func kindOf(v any) valueKind {
	switch x := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return kindInt
	case float32:
		return kindFloat
	case float64:
		if x == float64(int64(x)) && x < 1e15 && x > -1e15 {
			return kindInt
		}
		return kindFloat
	case bool:
		return kindBool
	}
	return kindString
}

func toInt(v any) int {
	switch x := v.(type) {
	case int:
		return x
	case int8:
		return int(x)
	case int16:
		return int(x)
	case int32:
		return int(x)
	case int64:
		return int(x)
	case uint:
		return int(x)
	case uint8:
		return int(x)
	case uint16:
		return int(x)
	case uint32:
		return int(x)
	case uint64:
		return int(x)
	case float32:
		return int(x)
	case float64:
		return int(x)
	}
	return 0
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	}
	return float64(toInt(v))
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if n < 0 {
		n = 0
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
