package shell

import (
	"testing"
	"time"
	"unsafe"
)

func TestTimeConversion(t *testing.T) {
	east := time.FixedZone("", 2*60*60)
	tm := time.Date(2023, 12, 31, 23, 59, 58, 500, east)

	et := TimeOf(tm)
	if et.Year != 2023 || et.Month != 12 || et.Day != 31 || et.Nanosecond != 500 {
		t.Fatalf("TimeOf = %+v", et)
	}
	if et.TimeZone != -120 {
		t.Fatalf("TimeZone = %d, want -120", et.TimeZone)
	}
	if !et.Time().Equal(tm) {
		t.Fatalf("Time() = %v, want %v", et.Time(), tm)
	}

	if !TimeOf(time.Time{}).IsZero() {
		t.Fatal("zero time should encode as zero")
	}

	local := Time{Year: 2020, Month: 1, Day: 2, TimeZone: UnspecifiedTimezone}
	if got := local.Time(); got.Location() != time.UTC || got.Day() != 2 {
		t.Fatalf("unspecified zone = %v", got)
	}
}

func TestFileInfoRecord(t *testing.T) {
	fi := &FileInfo{
		FileName:  "kernel.efi",
		FileSize:  1234,
		Attribute: AttrReadOnly | AttrArchive,
	}
	raw, err := fi.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != FileInfoHeaderSize+22 {
		t.Fatalf("record is %d bytes", len(raw))
	}

	got, err := FileInfoAt(uintptr(unsafe.Pointer(&raw[0])))
	if err != nil {
		t.Fatalf("FileInfoAt: %v", err)
	}
	if *got != *fi {
		t.Fatalf("decoded %+v, want %+v", got, fi)
	}

	raw[0] = 10
	if _, err := FileInfoAt(uintptr(unsafe.Pointer(&raw[0]))); err == nil {
		t.Fatal("undersized record accepted")
	}
	if _, err := FileInfoAt(0); err == nil {
		t.Fatal("null record accepted")
	}
}
