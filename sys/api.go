package sys

// API is the boundary surface implemented by an embedding runtime.
//
// Out-parameters of the C ABI are returned as leading results; the trailing
// Status is always present and results are meaningless unless it is StatusOK.
type API interface {
	// Errors and exceptions

	GetLastErrorInfo(env Env) (ExtendedErrorInfo, Status)
	IsExceptionPending(env Env) (bool, Status)
	GetAndClearLastException(env Env) (Value, Status)
	Throw(env Env, err Value) Status
	ThrowError(env Env, code, msg string) Status
	CreateError(env Env, code, msg Value) (Value, Status)

	// Singletons and primitive construction

	GetUndefined(env Env) (Value, Status)
	GetNull(env Env) (Value, Status)
	GetGlobal(env Env) (Value, Status)
	GetBoolean(env Env, b bool) (Value, Status)
	CreateObject(env Env) (Value, Status)
	CreateArray(env Env) (Value, Status)
	CreateArrayWithLength(env Env, length int) (Value, Status)
	CreateDouble(env Env, v float64) (Value, Status)
	CreateInt32(env Env, v int32) (Value, Status)
	CreateUint32(env Env, v uint32) (Value, Status)
	CreateInt64(env Env, v int64) (Value, Status)
	CreateStringUTF8(env Env, s []byte) (Value, Status)

	// Primitive extraction

	GetValueBool(env Env, v Value) (bool, Status)
	GetValueDouble(env Env, v Value) (float64, Status)
	GetValueInt32(env Env, v Value) (int32, Status)
	GetValueUint32(env Env, v Value) (uint32, Status)
	GetValueInt64(env Env, v Value) (int64, Status)

	// GetValueStringUTF8 with a nil buf reports the UTF-8 byte length.
	// Otherwise it copies at most len(buf)-1 bytes followed by a NUL and
	// reports the number of bytes copied, excluding the terminator.
	GetValueStringUTF8(env Env, v Value, buf []byte) (int, Status)

	// Type checks and coercion

	TypeOf(env Env, v Value) (ValueType, Status)
	IsArray(env Env, v Value) (bool, Status)
	IsBuffer(env Env, v Value) (bool, Status)
	IsPromise(env Env, v Value) (bool, Status)
	IsError(env Env, v Value) (bool, Status)
	StrictEquals(env Env, a, b Value) (bool, Status)
	CoerceToBool(env Env, v Value) (Value, Status)
	CoerceToNumber(env Env, v Value) (Value, Status)
	CoerceToString(env Env, v Value) (Value, Status)
	CoerceToObject(env Env, v Value) (Value, Status)

	// Properties

	GetProperty(env Env, obj, key Value) (Value, Status)
	SetProperty(env Env, obj, key, v Value) Status
	HasProperty(env Env, obj, key Value) (bool, Status)
	DeleteProperty(env Env, obj, key Value) (bool, Status)
	GetNamedProperty(env Env, obj Value, name string) (Value, Status)
	SetNamedProperty(env Env, obj Value, name string, v Value) Status
	HasNamedProperty(env Env, obj Value, name string) (bool, Status)
	GetPropertyNames(env Env, obj Value) (Value, Status)

	// Arrays

	GetArrayLength(env Env, arr Value) (uint32, Status)
	GetElement(env Env, arr Value, index uint32) (Value, Status)
	SetElement(env Env, arr Value, index uint32, v Value) Status
	HasElement(env Env, arr Value, index uint32) (bool, Status)
	DeleteElement(env Env, arr Value, index uint32) (bool, Status)

	// Functions

	CreateFunction(env Env, name string, cb Callback, data Pointer) (Value, Status)

	// GetCbInfo fills argv with up to len(argv) arguments and reports the
	// real argument count, which may exceed len(argv).
	GetCbInfo(env Env, info CallbackInfo, argv []Value) (argc int, this Value, data Pointer, st Status)
	CallFunction(env Env, recv, fn Value, argv []Value) (Value, Status)

	// Buffers

	CreateBufferCopy(env Env, data []byte) (Value, Status)

	// GetBufferInfo returns the host-owned backing bytes of a buffer. The
	// slice is valid only while the value handle is valid.
	GetBufferInfo(env Env, v Value) ([]byte, Status)

	// Native data attachment

	Wrap(env Env, obj Value, native Pointer, fin Finalize, hint Pointer) Status
	Unwrap(env Env, obj Value) (Pointer, Status)
	RemoveWrap(env Env, obj Value) (Pointer, Status)
	AddFinalizer(env Env, obj Value, data Pointer, fin Finalize, hint Pointer) Status

	// Promises

	CreatePromise(env Env) (Deferred, Value, Status)
	ResolveDeferred(env Env, d Deferred, v Value) Status
	RejectDeferred(env Env, d Deferred, v Value) Status

	// Threadsafe functions

	CreateThreadsafeFunction(env Env, fn Value, resourceName Value, maxQueueSize int, initialThreadCount int,
		finalizeData Pointer, fin Finalize, context Pointer, callJS CallJS) (ThreadsafeFunction, Status)
	CallThreadsafeFunction(tsfn ThreadsafeFunction, data Pointer, mode CallMode) Status
	AcquireThreadsafeFunction(tsfn ThreadsafeFunction) Status
	ReleaseThreadsafeFunction(tsfn ThreadsafeFunction, mode ReleaseMode) Status
}
