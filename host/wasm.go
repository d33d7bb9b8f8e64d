package host

import (
	"context"
	"sort"

	"github.com/tetratelabs/wazero"
	wapi "github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/napi-go/errors"
)

// LoadWasm compiles and instantiates a core wasm module and exposes its
// numeric function exports as host functions on an object bound to name.
// Exports taking or returning anything other than i32, i64, f32 or f64, or
// returning more than one value, are skipped.
func (rt *Runtime) LoadWasm(ctx context.Context, name string, bin []byte) error {
	if name == "" {
		return errors.InvalidInput(errors.PhaseHost, "wasm module needs a name")
	}
	compiled, err := rt.wasm.CompileModule(ctx, bin)
	if err != nil {
		return errors.Registration(name, errors.Wrap(errors.PhaseHost, errors.KindInvalidInput, err, "compile wasm"))
	}
	mod, err := rt.wasm.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		_ = compiled.Close(ctx)
		return errors.Registration(name, errors.Wrap(errors.PhaseHost, errors.KindInvalidInput, err, "instantiate wasm"))
	}

	defs := compiled.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for export, def := range defs {
		if numericSignature(def) {
			names = append(names, export)
		}
	}
	sort.Strings(names)

	err = rt.run(ctx, func() error {
		if _, exists := rt.global.get(name); exists {
			return errors.Registration(name, errors.InvalidInput(errors.PhaseHost, "name already bound"))
		}
		exports := rt.newObject(classObject)
		for _, export := range names {
			fn := rt.newObject(classFunction)
			fn.fn = &function{name: export, builtin: wasmExport(mod.ExportedFunction(export), defs[export])}
			exports.set(export, objectVal(fn))
		}
		rt.global.set(name, objectVal(exports))
		rt.modules = append(rt.modules, name)
		return nil
	})
	if err != nil {
		_ = mod.Close(ctx)
		return err
	}
	rt.log.Debug("wasm module loaded", zap.String("module", name), zap.Strings("exports", names))
	return nil
}

func numericSignature(def wapi.FunctionDefinition) bool {
	if len(def.ResultTypes()) > 1 {
		return false
	}
	for _, t := range def.ParamTypes() {
		if !numericType(t) {
			return false
		}
	}
	for _, t := range def.ResultTypes() {
		if !numericType(t) {
			return false
		}
	}
	return true
}

func numericType(t wapi.ValueType) bool {
	switch t {
	case wapi.ValueTypeI32, wapi.ValueTypeI64, wapi.ValueTypeF32, wapi.ValueTypeF64:
		return true
	}
	return false
}

// wasmExport adapts a wasm function to the host calling convention. Missing
// arguments are treated as undefined and coerced like any other.
func wasmExport(fn wapi.Function, def wapi.FunctionDefinition) builtinFunc {
	params := def.ParamTypes()
	results := def.ResultTypes()
	return func(rt *Runtime, _ jsval, args []jsval) (jsval, error) {
		if fn == nil {
			return undefinedVal, typeErrorf("%s is not a function", def.Name())
		}
		stack := make([]uint64, len(params))
		for i, t := range params {
			arg := undefinedVal
			if i < len(args) {
				arg = args[i]
			}
			stack[i] = encodeWasm(t, toNumber(arg))
		}
		out, err := fn.Call(context.Background(), stack...)
		if err != nil {
			return undefinedVal, &jsError{name: "RuntimeError", msg: err.Error()}
		}
		if len(results) == 0 {
			return undefinedVal, nil
		}
		return numberVal(decodeWasm(results[0], out[0])), nil
	}
}

func encodeWasm(t wapi.ValueType, n float64) uint64 {
	switch t {
	case wapi.ValueTypeI32:
		return wapi.EncodeI32(toInt32(n))
	case wapi.ValueTypeI64:
		return wapi.EncodeI64(toInt64(n))
	case wapi.ValueTypeF32:
		return wapi.EncodeF32(float32(n))
	default:
		return wapi.EncodeF64(n)
	}
}

func decodeWasm(t wapi.ValueType, v uint64) float64 {
	switch t {
	case wapi.ValueTypeI32:
		return float64(wapi.DecodeI32(v))
	case wapi.ValueTypeI64:
		return float64(int64(v))
	case wapi.ValueTypeF32:
		return float64(wapi.DecodeF32(v))
	default:
		return wapi.DecodeF64(v)
	}
}
