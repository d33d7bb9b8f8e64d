package host

import (
	"math"
	"strconv"
	"strings"

	"github.com/wippyai/napi-go/sys"
)

// arrayIndex parses a canonical array index key.
func arrayIndex(key string) (int, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(key, 10, 32)
	if err != nil || n == math.MaxUint32 {
		return 0, false
	}
	return int(n), true
}

func formatIndex(i int) string {
	return strconv.Itoa(i)
}

func arrayLength(v jsval) (int, bool) {
	n := toNumber(v)
	if n < 0 || n != math.Trunc(n) || n >= math.MaxUint32 {
		return 0, false
	}
	return int(n), true
}

// toBoolean implements ECMAScript ToBoolean.
func toBoolean(v jsval) bool {
	switch v.t {
	case sys.TypeUndefined, sys.TypeNull:
		return false
	case sys.TypeBoolean:
		return v.b
	case sys.TypeNumber:
		return v.n != 0 && !math.IsNaN(v.n)
	case sys.TypeString:
		return v.s != ""
	default:
		return true
	}
}

// toNumber implements ECMAScript ToNumber without user-defined valueOf.
func toNumber(v jsval) float64 {
	switch v.t {
	case sys.TypeUndefined:
		return math.NaN()
	case sys.TypeNull:
		return 0
	case sys.TypeBoolean:
		if v.b {
			return 1
		}
		return 0
	case sys.TypeNumber:
		return v.n
	case sys.TypeString:
		return stringToNumber(v.s)
	default:
		prim := toPrimitive(v)
		if prim.isObject() {
			return math.NaN()
		}
		return toNumber(prim)
	}
}

// toString implements ECMAScript ToString without user-defined toString.
func toString(v jsval) string {
	switch v.t {
	case sys.TypeUndefined:
		return "undefined"
	case sys.TypeNull:
		return "null"
	case sys.TypeBoolean:
		if v.b {
			return "true"
		}
		return "false"
	case sys.TypeNumber:
		return numberToString(v.n)
	case sys.TypeString:
		return v.s
	default:
		return toString(toPrimitive(v))
	}
}

// toPrimitive gives the default primitive of an object.
func toPrimitive(v jsval) jsval {
	o := v.obj
	if o == nil {
		return v
	}
	switch o.class {
	case classPrimitive:
		return o.prim
	case classArray:
		parts := make([]string, len(o.elems))
		for i, e := range o.elems {
			if o.holes[i] || e.t == sys.TypeUndefined || e.t == sys.TypeNull {
				continue
			}
			parts[i] = toString(e)
		}
		return stringVal(strings.Join(parts, ","))
	case classBuffer:
		parts := make([]string, len(o.buf))
		for i, b := range o.buf {
			parts[i] = strconv.Itoa(int(b))
		}
		return stringVal(strings.Join(parts, ","))
	case classFunction:
		return stringVal("function " + o.fn.name + "() { [native code] }")
	case classError:
		name := o.errName
		if n, ok := o.props["name"]; ok {
			name = toString(n)
		}
		msg := ""
		if m, ok := o.props["message"]; ok {
			msg = toString(m)
		}
		if msg == "" {
			return stringVal(name)
		}
		return stringVal(name + ": " + msg)
	case classPromise:
		return stringVal("[object Promise]")
	default:
		return stringVal("[object Object]")
	}
}

func isJSSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', 0xa0, 0x1680, 0x2028, 0x2029, 0x202f, 0x205f, 0x3000, 0xfeff:
		return true
	}
	return r >= 0x2000 && r <= 0x200a
}

func stringToNumber(s string) float64 {
	s = strings.TrimFunc(s, isJSSpace)
	if s == "" {
		return 0
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, err := strconv.ParseUint(s[2:], base, 64)
			if err != nil || strings.ContainsRune(s[2:], '_') {
				return math.NaN()
			}
			return float64(n)
		}
	}
	for _, r := range s {
		if !(r >= '0' && r <= '9') && r != '.' && r != 'e' && r != 'E' && r != '+' && r != '-' {
			return math.NaN()
		}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return n
		}
		return math.NaN()
	}
	return n
}

func numberToString(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		sign := exp[0]
		exp = strings.TrimLeft(exp[1:], "0")
		return mant + "e" + string(sign) + exp
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// toInt32 implements ECMAScript ToInt32.
func toInt32(f float64) int32 {
	return int32(toUint32(f))
}

// toUint32 implements ECMAScript ToUint32.
func toUint32(f float64) uint32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	m := math.Mod(math.Trunc(f), 1<<32)
	if m < 0 {
		m += 1 << 32
	}
	return uint32(m)
}

// toInt64 truncates toward zero and saturates outside the int64 range.
func toInt64(f float64) int64 {
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

// strictEquals implements ===.
func strictEquals(a, b jsval) bool {
	if a.t != b.t {
		return false
	}
	switch a.t {
	case sys.TypeUndefined, sys.TypeNull:
		return true
	case sys.TypeBoolean:
		return a.b == b.b
	case sys.TypeNumber:
		return a.n == b.n
	case sys.TypeString:
		return a.s == b.s
	default:
		return a.obj == b.obj
	}
}
