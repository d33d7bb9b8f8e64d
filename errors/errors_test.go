package errors

import (
	"errors"
	"strings"
	"testing"

	"github.com/wippyai/napi-go/sys"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:    PhaseCast,
				Kind:     KindTypeMismatch,
				Path:     []string{"exports", "counter"},
				GoType:   "Array",
				HostType: "object",
				Detail:   "value is not an array",
			},
			contains: []string{"[cast]", "type_mismatch", "exports.counter", "Array", "object", "value is not an array"},
		},
		{
			name: "status error",
			err:  Status(PhaseCall, "napi_get_property", sys.StatusObjectExpected, "Object expected"),
			contains: []string{
				"[call]", "status", "napi_get_property", "ObjectExpected", "Object expected",
			},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseCallback,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[callback]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseHost,
				Kind:   KindInvalidInput,
				Detail: "bad module",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[host]", "invalid_input", "bad module", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(PhaseHost, KindInvalidInput, cause, "load")

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := TypeMismatch(PhaseWrap, "counter", "other")

	if !errors.Is(err, ErrTypeMismatch) {
		t.Error("kind-only sentinel should match any phase")
	}
	if !errors.Is(err, &Error{Phase: PhaseWrap, Kind: KindTypeMismatch}) {
		t.Error("same phase and kind should match")
	}
	if errors.Is(err, &Error{Phase: PhaseCast, Kind: KindTypeMismatch}) {
		t.Error("different phase should not match")
	}
	if errors.Is(err, ErrPendingException) {
		t.Error("different kind should not match")
	}
}

func TestStatus_KindMapping(t *testing.T) {
	tests := []struct {
		status sys.Status
		want   error
	}{
		{sys.StatusPendingException, ErrPendingException},
		{sys.StatusQueueFull, ErrQueueFull},
		{sys.StatusClosing, ErrClosing},
		{sys.StatusHandleScopeMismatch, ErrScopeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			err := Status(PhaseThreadsafe, "op", tt.status, "")
			if !errors.Is(err, tt.want) {
				t.Fatalf("status %s mapped to %s", tt.status, err.Kind)
			}
		})
	}

	if got := Status(PhaseCall, "op", sys.StatusGenericFailure, "").Kind; got != KindStatus {
		t.Fatalf("generic failure kind = %s", got)
	}
}

func TestIsPendingException(t *testing.T) {
	if !IsPendingException(PendingException(PhaseCall, "napi_call_function")) {
		t.Fatal("expected pending exception")
	}
	wrapped := Wrap(PhaseHost, KindInvalidInput, PendingException(PhaseCall, ""), "outer")
	if !IsPendingException(wrapped) {
		t.Fatal("expected pending exception through wrap chain")
	}
	if IsPendingException(errors.New("plain")) {
		t.Fatal("plain error is not a pending exception")
	}
}

func TestThrowCodeAndMessage(t *testing.T) {
	st := Status(PhaseCall, "napi_get_value_string_utf8", sys.StatusStringExpected, "A string was expected")
	if got := ThrowCode(st); got != "ERR_NAPI_STRINGEXPECTED" {
		t.Fatalf("ThrowCode = %q", got)
	}
	if got := ThrowMessage(st); got != "A string was expected" {
		t.Fatalf("ThrowMessage = %q", got)
	}

	tm := TypeMismatch(PhaseCast, "Array", "number")
	if got := ThrowCode(tm); got != "ERR_NAPI_TYPE_MISMATCH" {
		t.Fatalf("ThrowCode = %q", got)
	}
	if got := ThrowMessage(tm); !strings.Contains(got, "Array") {
		t.Fatalf("ThrowMessage = %q", got)
	}

	if got := ThrowCode(errors.New("plain")); got != "" {
		t.Fatalf("plain error code = %q", got)
	}
}

func TestBuilder(t *testing.T) {
	err := New(PhaseCast, KindTypeMismatch).
		Op("napi_is_array").
		Status(sys.StatusArrayExpected).
		GoType("Array").
		HostType("number").
		Value(42).
		Detail("value %d is not an array", 42).
		Build()

	if err.Op != "napi_is_array" || err.Status != sys.StatusArrayExpected {
		t.Fatalf("unexpected builder result: %+v", err)
	}
	if err.Detail != "value 42 is not an array" {
		t.Fatalf("Detail = %q", err.Detail)
	}
	if err.Value != 42 {
		t.Fatalf("Value = %v", err.Value)
	}
}
