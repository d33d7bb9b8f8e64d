package napi

import (
	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/sys"
)

// Value is the capability shared by every host value variant.
type Value interface {
	// Raw returns the underlying handle.
	Raw() sys.Value

	scope() sys.Env
}

// rawValue is satisfied by pointers to value variants. It lets FromRaw build
// any variant with its own runtime type check.
type rawValue[T any] interface {
	*T
	Value
	setRaw(env Env, raw sys.Value) error
}

// FromRaw builds a T from a raw handle, applying T's construction rule:
// lenient variants coerce, strict variants fail with ErrTypeMismatch.
func FromRaw[T any, P rawValue[T]](env Env, raw sys.Value) (T, error) {
	var v T
	if err := P(&v).setRaw(env, raw); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// As re-types v as T under T's construction rule.
func As[T any, P rawValue[T]](env Env, v Value) (T, error) {
	if err := env.check(v, "as"); err != nil {
		var zero T
		return zero, err
	}
	return FromRaw[T, P](env, v.Raw())
}

// value carries the generic capability promoted into every variant.
type value struct {
	env sys.Env
	raw sys.Value
}

func (v value) Raw() sys.Value { return v.raw }

func (v value) scope() sys.Env { return v.env }

// GetProperty reads obj[key]. key may be any value castable to a string.
func (v value) GetProperty(env Env, key any) (Unknown, error) {
	if err := env.check(v, "napi_get_property"); err != nil {
		return Unknown{}, err
	}
	k, err := propertyKey(env, key)
	if err != nil {
		return Unknown{}, err
	}
	raw, st := env.api.GetProperty(env.raw, v.raw, k.raw)
	if st != sys.StatusOK {
		return Unknown{}, env.lastError(errors.PhaseProperty, "napi_get_property", st)
	}
	return Unknown{value{env: env.raw, raw: raw}}, nil
}

// SetProperty writes obj[key] = val.
func (v value) SetProperty(env Env, key any, val Value) error {
	if err := env.check(v, "napi_set_property"); err != nil {
		return err
	}
	if err := env.check(val, "napi_set_property"); err != nil {
		return err
	}
	k, err := propertyKey(env, key)
	if err != nil {
		return err
	}
	if st := env.api.SetProperty(env.raw, v.raw, k.raw, val.Raw()); st != sys.StatusOK {
		return env.lastError(errors.PhaseProperty, "napi_set_property", st)
	}
	return nil
}

// HasProperty reports whether key is in obj, including inherited keys.
func (v value) HasProperty(env Env, key any) (bool, error) {
	if err := env.check(v, "napi_has_property"); err != nil {
		return false, err
	}
	k, err := propertyKey(env, key)
	if err != nil {
		return false, err
	}
	ok, st := env.api.HasProperty(env.raw, v.raw, k.raw)
	if st != sys.StatusOK {
		return false, env.lastError(errors.PhaseProperty, "napi_has_property", st)
	}
	return ok, nil
}

// DeleteProperty removes key from obj.
func (v value) DeleteProperty(env Env, key any) (bool, error) {
	if err := env.check(v, "napi_delete_property"); err != nil {
		return false, err
	}
	k, err := propertyKey(env, key)
	if err != nil {
		return false, err
	}
	ok, st := env.api.DeleteProperty(env.raw, v.raw, k.raw)
	if st != sys.StatusOK {
		return false, env.lastError(errors.PhaseProperty, "napi_delete_property", st)
	}
	return ok, nil
}

// GetNamed reads a property by a fixed string key.
func (v value) GetNamed(env Env, name string) (Unknown, error) {
	if err := env.check(v, "napi_get_named_property"); err != nil {
		return Unknown{}, err
	}
	raw, st := env.api.GetNamedProperty(env.raw, v.raw, name)
	if st != sys.StatusOK {
		return Unknown{}, env.lastError(errors.PhaseProperty, "napi_get_named_property", st)
	}
	return Unknown{value{env: env.raw, raw: raw}}, nil
}

// SetNamed writes a property by a fixed string key.
func (v value) SetNamed(env Env, name string, val Value) error {
	if err := env.check(v, "napi_set_named_property"); err != nil {
		return err
	}
	if err := env.check(val, "napi_set_named_property"); err != nil {
		return err
	}
	if st := env.api.SetNamedProperty(env.raw, v.raw, name, val.Raw()); st != sys.StatusOK {
		return env.lastError(errors.PhaseProperty, "napi_set_named_property", st)
	}
	return nil
}

// HasNamed reports whether a fixed string key is present.
func (v value) HasNamed(env Env, name string) (bool, error) {
	if err := env.check(v, "napi_has_named_property"); err != nil {
		return false, err
	}
	ok, st := env.api.HasNamedProperty(env.raw, v.raw, name)
	if st != sys.StatusOK {
		return false, env.lastError(errors.PhaseProperty, "napi_has_named_property", st)
	}
	return ok, nil
}

// SetFunction registers cb as a host function and stores it under name.
func (v value) SetFunction(env Env, name string, cb Callback) error {
	fn, err := NewFunction(env, name, cb)
	if err != nil {
		return err
	}
	return v.SetNamed(env, name, fn)
}

// ToString applies host string coercion.
func (v value) ToString(env Env) (String, error) {
	if err := env.check(v, "napi_coerce_to_string"); err != nil {
		return String{}, err
	}
	raw, st := env.api.CoerceToString(env.raw, v.raw)
	if st != sys.StatusOK {
		return String{}, env.lastError(errors.PhaseCast, "napi_coerce_to_string", st)
	}
	return String{value{env: env.raw, raw: raw}}, nil
}

// ToNumber applies host number coercion.
func (v value) ToNumber(env Env) (Number, error) {
	if err := env.check(v, "napi_coerce_to_number"); err != nil {
		return Number{}, err
	}
	raw, st := env.api.CoerceToNumber(env.raw, v.raw)
	if st != sys.StatusOK {
		return Number{}, env.lastError(errors.PhaseCast, "napi_coerce_to_number", st)
	}
	return Number{value{env: env.raw, raw: raw}}, nil
}

// ToBool applies host boolean coercion.
func (v value) ToBool(env Env) (Boolean, error) {
	if err := env.check(v, "napi_coerce_to_bool"); err != nil {
		return Boolean{}, err
	}
	raw, st := env.api.CoerceToBool(env.raw, v.raw)
	if st != sys.StatusOK {
		return Boolean{}, env.lastError(errors.PhaseCast, "napi_coerce_to_bool", st)
	}
	return Boolean{value{env: env.raw, raw: raw}}, nil
}

// ToObject applies host object coercion. It fails with a pending exception
// for undefined and null.
func (v value) ToObject(env Env) (Object, error) {
	if err := env.check(v, "napi_coerce_to_object"); err != nil {
		return Object{}, err
	}
	raw, st := env.api.CoerceToObject(env.raw, v.raw)
	if st != sys.StatusOK {
		return Object{}, env.lastError(errors.PhaseCast, "napi_coerce_to_object", st)
	}
	return Object{value{env: env.raw, raw: raw}}, nil
}

// TypeOf queries the host type of the value.
func (v value) TypeOf(env Env) (sys.ValueType, error) {
	if err := env.check(v, "napi_typeof"); err != nil {
		return 0, err
	}
	return typeOf(env, v.raw)
}

func (v value) isType(env Env, t sys.ValueType) (bool, error) {
	got, err := v.TypeOf(env)
	if err != nil {
		return false, err
	}
	return got == t, nil
}

func (v value) IsUndefined(env Env) (bool, error) { return v.isType(env, sys.TypeUndefined) }

func (v value) IsNull(env Env) (bool, error) { return v.isType(env, sys.TypeNull) }

func (v value) IsNumber(env Env) (bool, error) { return v.isType(env, sys.TypeNumber) }

func (v value) IsString(env Env) (bool, error) { return v.isType(env, sys.TypeString) }

func (v value) IsFunction(env Env) (bool, error) { return v.isType(env, sys.TypeFunction) }

// IsObject is true for objects and functions.
func (v value) IsObject(env Env) (bool, error) {
	t, err := v.TypeOf(env)
	if err != nil {
		return false, err
	}
	return t == sys.TypeObject || t == sys.TypeFunction, nil
}

func (v value) IsArray(env Env) (bool, error) {
	if err := env.check(v, "napi_is_array"); err != nil {
		return false, err
	}
	return isArray(env, v.raw)
}

func (v value) IsBuffer(env Env) (bool, error) {
	if err := env.check(v, "napi_is_buffer"); err != nil {
		return false, err
	}
	return isBuffer(env, v.raw)
}

func (v value) IsPromise(env Env) (bool, error) {
	if err := env.check(v, "napi_is_promise"); err != nil {
		return false, err
	}
	return isPromise(env, v.raw)
}

// StrictEquals compares with the host's === semantics.
func (v value) StrictEquals(env Env, other Value) (bool, error) {
	if err := env.check(v, "napi_strict_equals"); err != nil {
		return false, err
	}
	if err := env.check(other, "napi_strict_equals"); err != nil {
		return false, err
	}
	eq, st := env.api.StrictEquals(env.raw, v.raw, other.Raw())
	if st != sys.StatusOK {
		return false, env.lastError(errors.PhaseCall, "napi_strict_equals", st)
	}
	return eq, nil
}

func typeOf(env Env, raw sys.Value) (sys.ValueType, error) {
	t, st := env.api.TypeOf(env.raw, raw)
	if st != sys.StatusOK {
		return 0, env.lastError(errors.PhaseCast, "napi_typeof", st)
	}
	return t, nil
}

func isArray(env Env, raw sys.Value) (bool, error) {
	ok, st := env.api.IsArray(env.raw, raw)
	if st != sys.StatusOK {
		return false, env.lastError(errors.PhaseCast, "napi_is_array", st)
	}
	return ok, nil
}

func isBuffer(env Env, raw sys.Value) (bool, error) {
	ok, st := env.api.IsBuffer(env.raw, raw)
	if st != sys.StatusOK {
		return false, env.lastError(errors.PhaseCast, "napi_is_buffer", st)
	}
	return ok, nil
}

func isPromise(env Env, raw sys.Value) (bool, error) {
	ok, st := env.api.IsPromise(env.raw, raw)
	if st != sys.StatusOK {
		return false, env.lastError(errors.PhaseCast, "napi_is_promise", st)
	}
	return ok, nil
}

// propertyKey casts key to a host string.
func propertyKey(env Env, key any) (String, error) {
	if v, ok := key.(Value); ok {
		if err := env.check(v, "property key"); err != nil {
			return String{}, err
		}
		return FromRaw[String](env, v.Raw())
	}
	if s, ok := key.(string); ok {
		return CreateString(env, s)
	}
	v, err := ToValue(env, key)
	if err != nil {
		return String{}, err
	}
	return FromRaw[String](env, v.Raw())
}

// GetPropertyAs reads obj[key] as T. ok is false when the property is
// undefined, in which case no construction is attempted.
func GetPropertyAs[T any, P rawValue[T]](env Env, obj Value, key any) (out T, ok bool, err error) {
	var base value
	if err := env.check(obj, "napi_get_property"); err != nil {
		return out, false, err
	}
	base = value{env: obj.scope(), raw: obj.Raw()}
	u, err := base.GetProperty(env, key)
	if err != nil {
		return out, false, err
	}
	undef, err := u.IsUndefined(env)
	if err != nil || undef {
		return out, false, err
	}
	out, err = FromRaw[T, P](env, u.raw)
	if err != nil {
		return out, false, err
	}
	return out, true, nil
}
