package guid

import (
	"errors"
	"testing"

	rterrors "github.com/wippyai/efi-runtime/errors"
)

func TestParseByteOrder(t *testing.T) {
	g, err := Parse("6302d008-7f9b-4f30-87ac-60c9fef5da4e")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := GUID{
		0x08, 0xd0, 0x02, 0x63,
		0x9b, 0x7f,
		0x30, 0x4f,
		0x87, 0xac, 0x60, 0xc9, 0xfe, 0xf5, 0xda, 0x4e,
	}
	if g != want {
		t.Fatalf("bytes = % x, want % x", g[:], want[:])
	}
	if g.Data1() != 0x6302d008 {
		t.Fatalf("Data1 = %#x", g.Data1())
	}
}

func TestNewMatchesParse(t *testing.T) {
	parsed := MustParse("752f3136-4e16-4fdc-a22a-e5f46812f4ca")
	built := New(0x752f3136, 0x4e16, 0x4fdc, [8]byte{0xa2, 0x2a, 0xe5, 0xf4, 0x68, 0x12, 0xf4, 0xca})
	if parsed != built {
		t.Fatalf("New = % x, Parse = % x", built[:], parsed[:])
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, s := range []string{
		"6302d008-7f9b-4f30-87ac-60c9fef5da4e",
		"8be4df61-93ca-11d2-aa0d-00e098032b8c",
		"00000000-0000-0000-0000-000000000000",
	} {
		t.Run(s, func(t *testing.T) {
			if got := MustParse(s).String(); got != s {
				t.Fatalf("String() = %q, want %q", got, s)
			}
		})
	}
}

func TestParseUpperCase(t *testing.T) {
	g := MustParse("8BE4DF61-93CA-11D2-AA0D-00E098032B8C")
	if g.String() != "8be4df61-93ca-11d2-aa0d-00e098032b8c" {
		t.Fatalf("String() = %q", g.String())
	}
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse("not-a-guid")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, &rterrors.Error{Phase: rterrors.PhaseValidate, Kind: rterrors.KindInvalidInput}) {
		t.Fatalf("unexpected error type: %v", err)
	}
}

func TestMustParsePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("MustParse should panic on bad input")
		}
	}()
	MustParse("zz")
}

func TestIsNil(t *testing.T) {
	if !Nil.IsNil() {
		t.Fatal("Nil.IsNil() = false")
	}
	if MustParse("6302d008-7f9b-4f30-87ac-60c9fef5da4e").IsNil() {
		t.Fatal("shell GUID reported nil")
	}
}
