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
				Phase:    PhaseCall,
				Kind:     KindFirmware,
				Path:     []string{"shell", "ReadFile"},
				Protocol: "shell",
				Detail:   "device error",
			},
			contains: []string{"[call]", "firmware", "shell.ReadFile", "protocol shell", "device error"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseIterate,
				Kind:  KindClosed,
			},
			contains: []string{"[iterate]", "closed"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseEmulate,
				Kind:   KindAllocation,
				Detail: "pool exhausted",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[emulate]", "allocation", "pool exhausted", "caused by", "underlying error"},
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
		Phase: PhaseCall,
		Kind:  KindFirmware,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is should see the cause through the chain")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseEncode,
		Kind:  KindInvalidInput,
		Path:  []string{"name"},
	}

	if !err.Is(&Error{Phase: PhaseEncode, Kind: KindInvalidInput}) {
		t.Error("Is should match same phase and kind")
	}

	if err.Is(&Error{Phase: PhaseDecode, Kind: KindInvalidInput}) {
		t.Error("Is should not match different phase")
	}

	if err.Is(&Error{Phase: PhaseEncode, Kind: KindOverflow}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhaseEncode, Kind: KindInvalidInput}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseCall, KindFirmware).
		Path("shell", "WriteFile").
		Protocol("shell").
		Value(42).
		Cause(cause).
		Detail("wrote %d of %d bytes", 3, 4).
		Build()

	if err.Phase != PhaseCall {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseCall)
	}
	if err.Kind != KindFirmware {
		t.Errorf("Kind = %v, want %v", err.Kind, KindFirmware)
	}
	if len(err.Path) != 2 || err.Path[0] != "shell" || err.Path[1] != "WriteFile" {
		t.Errorf("Path = %v, want [shell WriteFile]", err.Path)
	}
	if err.Protocol != "shell" {
		t.Errorf("Protocol = %v, want 'shell'", err.Protocol)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "wrote 3 of 4 bytes" {
		t.Errorf("Detail = %v, want 'wrote 3 of 4 bytes'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("InvalidInput", func(t *testing.T) {
		err := InvalidInput(PhaseValidate, "empty pattern")
		if err.Kind != KindInvalidInput {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidInput)
		}
	})

	t.Run("NilPointer", func(t *testing.T) {
		err := NilPointer(PhaseBind, []string{"shell"}, "interface")
		if err.Kind != KindNilPointer {
			t.Errorf("Kind = %v, want %v", err.Kind, KindNilPointer)
		}
		if err.Detail != "nil interface" {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhaseLocate, "protocol", "shell")
		if err.Kind != KindNotFound {
			t.Errorf("Kind = %v, want %v", err.Kind, KindNotFound)
		}
		if !strings.Contains(err.Detail, `"shell"`) {
			t.Errorf("Detail = %q, should quote the name", err.Detail)
		}
	})

	t.Run("AllocationFailed", func(t *testing.T) {
		err := AllocationFailed(PhaseEmulate, 1024, 8)
		if err.Kind != KindAllocation {
			t.Errorf("Kind = %v, want %v", err.Kind, KindAllocation)
		}
		if !strings.Contains(err.Detail, "1024") {
			t.Errorf("Detail = %v, should contain size", err.Detail)
		}
	})

	t.Run("Overflow", func(t *testing.T) {
		err := Overflow(PhaseEncode, []string{"name"}, 70000, "CHAR16 range")
		if err.Kind != KindOverflow {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOverflow)
		}
		if err.Value != 70000 {
			t.Errorf("Value = %v, want 70000", err.Value)
		}
	})

	t.Run("Closed", func(t *testing.T) {
		err := Closed(PhaseIterate, "file list")
		if err.Kind != KindClosed {
			t.Errorf("Kind = %v, want %v", err.Kind, KindClosed)
		}
		if err.Detail != "file list already released" {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("LayoutMismatch", func(t *testing.T) {
		err := LayoutMismatch("shell", []string{"FindFiles"}, "offset 344, want 352")
		if err.Phase != PhaseLayout || err.Kind != KindLayoutMismatch {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
		if !strings.Contains(err.Error(), "protocol shell - offset 344") {
			t.Errorf("Error() = %q", err.Error())
		}
	})

	t.Run("Firmware", func(t *testing.T) {
		cause := errors.New("EFI_DEVICE_ERROR")
		err := Firmware(PhaseCall, "shell", "FlushFile", cause)
		if !errors.Is(err, cause) {
			t.Error("Firmware error should unwrap to its cause")
		}
		if len(err.Path) != 1 || err.Path[0] != "FlushFile" {
			t.Errorf("Path = %v", err.Path)
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		cause := errors.New("disk")
		err := Wrap(PhaseEmulate, KindInvalidData, cause, "seed file")
		if err.Cause != cause || err.Detail != "seed file" {
			t.Errorf("Wrap = %+v", err)
		}
	})

	t.Run("Load", func(t *testing.T) {
		err := Load("parse config", errors.New("bad toml"))
		if err.Phase != PhaseLoad {
			t.Errorf("Phase = %v, want %v", err.Phase, PhaseLoad)
		}
	})
}
