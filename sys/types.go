package sys

// Env is the scope token for one boundary call.
type Env uint64

// Value is an opaque reference to a host value.
type Value uint64

// CallbackInfo identifies the invocation record of a host->native call.
type CallbackInfo uint64

// Deferred is the settlement side of a promise.
type Deferred uint64

// ThreadsafeFunction is a cross-thread callable bridge.
type ThreadsafeFunction uint64

// Pointer is opaque native data handed to the host.
type Pointer uint64

// Status is returned by every boundary call.
type Status int32

const (
	StatusOK Status = iota
	StatusInvalidArg
	StatusObjectExpected
	StatusStringExpected
	StatusNameExpected
	StatusFunctionExpected
	StatusNumberExpected
	StatusBooleanExpected
	StatusArrayExpected
	StatusGenericFailure
	StatusPendingException
	StatusCancelled
	StatusEscapeCalledTwice
	StatusHandleScopeMismatch
	StatusCallbackScopeMismatch
	StatusQueueFull
	StatusClosing
	StatusBigintExpected
)

var statusNames = [...]string{
	StatusOK:                    "Ok",
	StatusInvalidArg:            "InvalidArg",
	StatusObjectExpected:        "ObjectExpected",
	StatusStringExpected:        "StringExpected",
	StatusNameExpected:          "NameExpected",
	StatusFunctionExpected:      "FunctionExpected",
	StatusNumberExpected:        "NumberExpected",
	StatusBooleanExpected:       "BooleanExpected",
	StatusArrayExpected:         "ArrayExpected",
	StatusGenericFailure:        "GenericFailure",
	StatusPendingException:      "PendingException",
	StatusCancelled:             "Cancelled",
	StatusEscapeCalledTwice:     "EscapeCalledTwice",
	StatusHandleScopeMismatch:   "HandleScopeMismatch",
	StatusCallbackScopeMismatch: "CallbackScopeMismatch",
	StatusQueueFull:             "QueueFull",
	StatusClosing:               "Closing",
	StatusBigintExpected:        "BigintExpected",
}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "Unknown"
}

// ValueType is the result of TypeOf.
type ValueType int32

const (
	TypeUndefined ValueType = iota
	TypeNull
	TypeBoolean
	TypeNumber
	TypeString
	TypeSymbol
	TypeObject
	TypeFunction
	TypeExternal
	TypeBigint
)

var valueTypeNames = [...]string{
	TypeUndefined: "undefined",
	TypeNull:      "null",
	TypeBoolean:   "boolean",
	TypeNumber:    "number",
	TypeString:    "string",
	TypeSymbol:    "symbol",
	TypeObject:    "object",
	TypeFunction:  "function",
	TypeExternal:  "external",
	TypeBigint:    "bigint",
}

func (t ValueType) String() string {
	if t >= 0 && int(t) < len(valueTypeNames) {
		return valueTypeNames[t]
	}
	return "unknown"
}

// CallMode selects how CallThreadsafeFunction behaves on a full queue.
type CallMode int32

const (
	CallNonBlocking CallMode = iota
	CallBlocking
)

// ReleaseMode selects how ReleaseThreadsafeFunction treats the bridge.
type ReleaseMode int32

const (
	ReleaseNormal ReleaseMode = iota
	ReleaseAbort
)

// ExtendedErrorInfo describes the last failed boundary call.
type ExtendedErrorInfo struct {
	Message string
	Code    Status
}

// Callback is the host-visible entry point of a native function.
// Returning the zero Value yields undefined, or propagates a pending exception.
type Callback func(env Env, info CallbackInfo) Value

// Finalize runs when the host collects a value holding native data.
type Finalize func(env Env, data Pointer, hint Pointer)

// CallJS delivers one queued threadsafe-function item on the control thread.
// env and fn are zero when the bridge is torn down with items still queued.
type CallJS func(env Env, fn Value, context Pointer, data Pointer)

// ModuleInit is the module registration entry point.
type ModuleInit func(env Env, exports Value) Value
