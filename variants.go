package napi

import (
	"unicode/utf8"

	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/sys"
)

// Unknown holds any host value without a type check.
type Unknown struct{ value }

func (u *Unknown) setRaw(env Env, raw sys.Value) error {
	u.value = value{env: env.raw, raw: raw}
	return nil
}

// Undefined is the strict variant for the undefined singleton.
type Undefined struct{ value }

func (u *Undefined) setRaw(env Env, raw sys.Value) error {
	if err := expectType(env, raw, sys.TypeUndefined, "Undefined"); err != nil {
		return err
	}
	u.value = value{env: env.raw, raw: raw}
	return nil
}

// Null is the strict variant for the null singleton.
type Null struct{ value }

func (n *Null) setRaw(env Env, raw sys.Value) error {
	if err := expectType(env, raw, sys.TypeNull, "Null"); err != nil {
		return err
	}
	n.value = value{env: env.raw, raw: raw}
	return nil
}

// Boolean is lenient: any value is coerced with host truthiness.
type Boolean struct{ value }

func (b *Boolean) setRaw(env Env, raw sys.Value) error {
	raw, err := coerceUnless(env, raw, sys.TypeBoolean, env.api.CoerceToBool, "napi_coerce_to_bool")
	if err != nil {
		return err
	}
	b.value = value{env: env.raw, raw: raw}
	return nil
}

// Value extracts the Go bool.
func (b Boolean) Value(env Env) (bool, error) {
	if err := env.check(b, "napi_get_value_bool"); err != nil {
		return false, err
	}
	v, st := env.api.GetValueBool(env.raw, b.raw)
	if st != sys.StatusOK {
		return false, env.lastError(errors.PhaseCast, "napi_get_value_bool", st)
	}
	return v, nil
}

// CreateBool returns the host boolean singleton for v.
func CreateBool(env Env, v bool) (Boolean, error) {
	raw, st := env.api.GetBoolean(env.raw, v)
	if st != sys.StatusOK {
		return Boolean{}, env.lastError(errors.PhaseCast, "napi_get_boolean", st)
	}
	return Boolean{value{env: env.raw, raw: raw}}, nil
}

// Number is lenient: any value is coerced with host number conversion.
type Number struct{ value }

func (n *Number) setRaw(env Env, raw sys.Value) error {
	raw, err := coerceUnless(env, raw, sys.TypeNumber, env.api.CoerceToNumber, "napi_coerce_to_number")
	if err != nil {
		return err
	}
	n.value = value{env: env.raw, raw: raw}
	return nil
}

// Float64 extracts the number as a double.
func (n Number) Float64(env Env) (float64, error) {
	if err := env.check(n, "napi_get_value_double"); err != nil {
		return 0, err
	}
	v, st := env.api.GetValueDouble(env.raw, n.raw)
	if st != sys.StatusOK {
		return 0, env.lastError(errors.PhaseCast, "napi_get_value_double", st)
	}
	return v, nil
}

// Int32 extracts the number with host int32 truncation.
func (n Number) Int32(env Env) (int32, error) {
	if err := env.check(n, "napi_get_value_int32"); err != nil {
		return 0, err
	}
	v, st := env.api.GetValueInt32(env.raw, n.raw)
	if st != sys.StatusOK {
		return 0, env.lastError(errors.PhaseCast, "napi_get_value_int32", st)
	}
	return v, nil
}

// Uint32 extracts the number with host uint32 truncation.
func (n Number) Uint32(env Env) (uint32, error) {
	if err := env.check(n, "napi_get_value_uint32"); err != nil {
		return 0, err
	}
	v, st := env.api.GetValueUint32(env.raw, n.raw)
	if st != sys.StatusOK {
		return 0, env.lastError(errors.PhaseCast, "napi_get_value_uint32", st)
	}
	return v, nil
}

// Int64 extracts the number as an int64.
func (n Number) Int64(env Env) (int64, error) {
	if err := env.check(n, "napi_get_value_int64"); err != nil {
		return 0, err
	}
	v, st := env.api.GetValueInt64(env.raw, n.raw)
	if st != sys.StatusOK {
		return 0, env.lastError(errors.PhaseCast, "napi_get_value_int64", st)
	}
	return v, nil
}

// CreateNumber creates a host double.
func CreateNumber(env Env, v float64) (Number, error) {
	raw, st := env.api.CreateDouble(env.raw, v)
	if st != sys.StatusOK {
		return Number{}, env.lastError(errors.PhaseCast, "napi_create_double", st)
	}
	return Number{value{env: env.raw, raw: raw}}, nil
}

// CreateInt32 creates a host number from an int32.
func CreateInt32(env Env, v int32) (Number, error) {
	raw, st := env.api.CreateInt32(env.raw, v)
	if st != sys.StatusOK {
		return Number{}, env.lastError(errors.PhaseCast, "napi_create_int32", st)
	}
	return Number{value{env: env.raw, raw: raw}}, nil
}

// CreateUint32 creates a host number from a uint32.
func CreateUint32(env Env, v uint32) (Number, error) {
	raw, st := env.api.CreateUint32(env.raw, v)
	if st != sys.StatusOK {
		return Number{}, env.lastError(errors.PhaseCast, "napi_create_uint32", st)
	}
	return Number{value{env: env.raw, raw: raw}}, nil
}

// CreateInt64 creates a host number from an int64. Magnitudes above 2^53
// lose precision.
func CreateInt64(env Env, v int64) (Number, error) {
	raw, st := env.api.CreateInt64(env.raw, v)
	if st != sys.StatusOK {
		return Number{}, env.lastError(errors.PhaseCast, "napi_create_int64", st)
	}
	return Number{value{env: env.raw, raw: raw}}, nil
}

// String is lenient: any value is coerced with host string conversion.
type String struct{ value }

func (s *String) setRaw(env Env, raw sys.Value) error {
	raw, err := coerceUnless(env, raw, sys.TypeString, env.api.CoerceToString, "napi_coerce_to_string")
	if err != nil {
		return err
	}
	s.value = value{env: env.raw, raw: raw}
	return nil
}

// Value extracts the string as UTF-8. The length is queried first so the
// result is never truncated.
func (s String) Value(env Env) (string, error) {
	if err := env.check(s, "napi_get_value_string_utf8"); err != nil {
		return "", err
	}
	n, st := env.api.GetValueStringUTF8(env.raw, s.raw, nil)
	if st != sys.StatusOK {
		return "", env.lastError(errors.PhaseCast, "napi_get_value_string_utf8", st)
	}
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n+1)
	copied, st := env.api.GetValueStringUTF8(env.raw, s.raw, buf)
	if st != sys.StatusOK {
		return "", env.lastError(errors.PhaseCast, "napi_get_value_string_utf8", st)
	}
	return string(buf[:copied]), nil
}

// CreateString creates a host string. Invalid UTF-8 is rejected.
func CreateString(env Env, s string) (String, error) {
	if !utf8.ValidString(s) {
		return String{}, errors.InvalidInput(errors.PhaseCast, "string is not valid UTF-8")
	}
	raw, st := env.api.CreateStringUTF8(env.raw, []byte(s))
	if st != sys.StatusOK {
		return String{}, env.lastError(errors.PhaseCast, "napi_create_string_utf8", st)
	}
	return String{value{env: env.raw, raw: raw}}, nil
}

// Object is lenient: objects and functions are kept as-is, anything else
// goes through host object coercion, which throws for undefined and null.
type Object struct{ value }

func (o *Object) setRaw(env Env, raw sys.Value) error {
	t, err := typeOf(env, raw)
	if err != nil {
		return err
	}
	if t != sys.TypeObject && t != sys.TypeFunction {
		coerced, st := env.api.CoerceToObject(env.raw, raw)
		if st != sys.StatusOK {
			return env.lastError(errors.PhaseCast, "napi_coerce_to_object", st)
		}
		raw = coerced
	}
	o.value = value{env: env.raw, raw: raw}
	return nil
}

// Keys returns the object's own enumerable string keys.
func (o Object) Keys(env Env) ([]string, error) {
	if err := env.check(o, "napi_get_property_names"); err != nil {
		return nil, err
	}
	raw, st := env.api.GetPropertyNames(env.raw, o.raw)
	if st != sys.StatusOK {
		return nil, env.lastError(errors.PhaseProperty, "napi_get_property_names", st)
	}
	names := Array{value{env: env.raw, raw: raw}}
	n, err := names.Len(env)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		k, err := ElementAs[String](env, names, i)
		if err != nil {
			return nil, err
		}
		s, err := k.Value(env)
		if err != nil {
			return nil, err
		}
		keys = append(keys, s)
	}
	return keys, nil
}

// CreateObject creates an empty host object.
func CreateObject(env Env) (Object, error) {
	raw, st := env.api.CreateObject(env.raw)
	if st != sys.StatusOK {
		return Object{}, env.lastError(errors.PhaseCast, "napi_create_object", st)
	}
	return Object{value{env: env.raw, raw: raw}}, nil
}

// CreateError creates a host Error object with the given code and message.
// An empty code leaves the code property unset.
func CreateError(env Env, code, message string) (Object, error) {
	msg, err := CreateString(env, message)
	if err != nil {
		return Object{}, err
	}
	var codeRaw sys.Value
	if code != "" {
		c, err := CreateString(env, code)
		if err != nil {
			return Object{}, err
		}
		codeRaw = c.raw
	}
	raw, st := env.api.CreateError(env.raw, codeRaw, msg.raw)
	if st != sys.StatusOK {
		return Object{}, env.lastError(errors.PhaseCast, "napi_create_error", st)
	}
	return Object{value{env: env.raw, raw: raw}}, nil
}

func expectType(env Env, raw sys.Value, want sys.ValueType, goType string) error {
	t, err := typeOf(env, raw)
	if err != nil {
		return err
	}
	if t != want {
		return errors.TypeMismatch(errors.PhaseCast, goType, t.String())
	}
	return nil
}

func coerceUnless(env Env, raw sys.Value, keep sys.ValueType,
	coerce func(sys.Env, sys.Value) (sys.Value, sys.Status), op string) (sys.Value, error) {
	t, err := typeOf(env, raw)
	if err != nil {
		return 0, err
	}
	if t == keep {
		return raw, nil
	}
	coerced, st := coerce(env.raw, raw)
	if st != sys.StatusOK {
		return 0, env.lastError(errors.PhaseCast, op, st)
	}
	return coerced, nil
}

// Downcast returns the most specific strict variant for o: an Array,
// Buffer, Promise or Function when the host recognizes one, the Object
// itself otherwise.
func (o Object) Downcast(env Env) (Value, error) {
	if err := env.check(o, "downcast"); err != nil {
		return nil, err
	}
	if ok, err := isArray(env, o.raw); err != nil {
		return nil, err
	} else if ok {
		return Array{o.value}, nil
	}
	if ok, err := isBuffer(env, o.raw); err != nil {
		return nil, err
	} else if ok {
		return Buffer{o.value}, nil
	}
	if ok, err := isPromise(env, o.raw); err != nil {
		return nil, err
	} else if ok {
		return Promise{o.value}, nil
	}
	t, err := typeOf(env, o.raw)
	if err != nil {
		return nil, err
	}
	if t == sys.TypeFunction {
		return Function{o.value}, nil
	}
	return o, nil
}
