package errors

import (
	"errors"
	"strings"
	"testing"
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
				Phase:  PhaseDecode,
				Kind:   KindInvalidData,
				Path:   []string{"deltas", "3", "new_value"},
				Store:  "total_supply",
				Detail: "not a valid int64",
			},
			contains: []string{"[decode]", "invalid_data", "deltas.3.new_value", "total_supply", "not a valid int64"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseState,
				Kind:  KindNotFound,
			},
			contains: []string{"[state]", "not_found"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseRuntime,
				Kind:   KindAllocation,
				Detail: "memory full",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[runtime]", "allocation", "memory full", "caused by", "underlying error"},
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
	err := &Error{
		Phase: PhaseHost,
		Kind:  KindRegistration,
		Cause: cause,
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause through Unwrap")
	}
}

func TestError_Is(t *testing.T) {
	err := InvalidData(PhaseDecode, nil, "bad bytes")

	if !errors.Is(err, &Error{Phase: PhaseDecode, Kind: KindInvalidData}) {
		t.Error("expected match on phase and kind")
	}
	if errors.Is(err, &Error{Phase: PhaseEncode, Kind: KindInvalidData}) {
		t.Error("expected no match on differing phase")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("parse int")
	err := New(PhaseDecode, KindInvalidData).
		Path("store", "key").
		Store("volumes").
		Detail("value %q is not a number", "abc").
		Cause(cause).
		Build()

	if err.Phase != PhaseDecode || err.Kind != KindInvalidData {
		t.Fatalf("unexpected phase/kind: %s/%s", err.Phase, err.Kind)
	}
	if err.Detail != `value "abc" is not a number` {
		t.Errorf("unexpected detail: %q", err.Detail)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not wired through builder")
	}
}

func TestGuestPanic_Error(t *testing.T) {
	tests := []struct {
		name  string
		panic *GuestPanic
		want  string
	}{
		{
			name:  "with location",
			panic: &GuestPanic{Message: "division by zero", File: "handlers.go", Line: 42, Column: 7},
			want:  "guest panicked: division by zero (handlers.go:42:7)",
		},
		{
			name:  "without location",
			panic: &GuestPanic{Message: "boom"},
			want:  "guest panicked: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.panic.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGuestPanic_Is(t *testing.T) {
	var err error = &GuestPanic{Message: "boom"}
	if !errors.Is(err, &GuestPanic{}) {
		t.Error("expected GuestPanic to match its type")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		kind Kind
	}{
		{"invalid utf8", InvalidUTF8(PhaseDecode, nil, []byte{0xff, 0xfe}), KindInvalidUTF8},
		{"out of bounds", OutOfBounds(PhaseHost, 1024, 64), KindOutOfBounds},
		{"overflow", Overflow(PhaseScalar, "1e9999", "int64"), KindOverflow},
		{"allocation", AllocationFailed(PhaseHost, 4096), KindAllocation},
		{"not found", NotFound(PhaseLoad, "export", "map_transfers"), KindNotFound},
		{"registration", Registration("state", "get_at", errors.New("x")), KindRegistration},
		{"instantiation", Instantiation(errors.New("x")), KindInstantiation},
		{"parse failed", ParseFailed("key expression", errors.New("x")), KindInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", tt.err.Kind, tt.kind)
			}
			if tt.err.Error() == "" {
				t.Error("empty error message")
			}
		})
	}
}
