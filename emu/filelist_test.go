package emu

import (
	"slices"
	"testing"

	"github.com/wippyai/efi-runtime/abi"
	"github.com/wippyai/efi-runtime/layout"
	"github.com/wippyai/efi-runtime/list"
	"github.com/wippyai/efi-runtime/proto/shell"
	"github.com/wippyai/efi-runtime/status"
	"github.com/wippyai/efi-runtime/ucs2"
)

func shellTable(t *testing.T, fw *Firmware) *shell.Protocol {
	t.Helper()
	addr, err := fw.Services().HandleProtocol(fw.ShellHandle(), shell.ProtocolGUID)
	if err != nil {
		t.Fatalf("HandleProtocol: %v", err)
	}
	return layout.At[shell.Protocol](addr)
}

// openList calls OpenFileList with *out primed to head and returns the
// head the firmware left there.
func openList(t *testing.T, fw *Firmware, p *shell.Protocol, pattern string, head uintptr) uintptr {
	t.Helper()
	f := abi.NewFrame()
	defer f.Release()
	pat, err := abi.String16(f, pattern)
	if err != nil {
		t.Fatal(err)
	}
	out := abi.NewOut[uintptr](f)
	out.Set(head)
	if st := f.Call(fw, p.OpenFileList, pat, uintptr(shell.ModeRead), out.Ptr()); st != status.Success {
		t.Fatalf("OpenFileList(%s) = %v", pattern, st)
	}
	return out.Assume()
}

// walk collects file names and record addresses through a list cursor.
func walk(t *testing.T, head uintptr) ([]string, []uintptr) {
	t.Helper()
	var names []string
	var addrs []uintptr
	c := list.NewCursor[shell.FileEntry](head)
	for e := range c.All() {
		name, err := ucs2.FromPtr(e.FileName)
		if err != nil {
			t.Fatal(err)
		}
		names = append(names, name)
		addrs = append(addrs, c.Addr())
	}
	return names, addrs
}

func freeList(t *testing.T, fw *Firmware, p *shell.Protocol, head uintptr) {
	t.Helper()
	f := abi.NewFrame()
	defer f.Release()
	if st := f.Call(fw, p.FreeFileList, abi.Ref(f, &head)); st != status.Success {
		t.Fatalf("FreeFileList = %v", st)
	}
	if head != 0 {
		t.Fatalf("head left at %#x after free", head)
	}
}

var listFiles = []FileConfig{
	{Path: `\dir\a.txt`, Content: "a"},
	{Path: `\dir\b.txt`, Content: "bb"},
	{Path: `\dir\c.txt`, Content: "ccc"},
	{Path: `\only.txt`, Content: "1"},
}

func TestFindFilesListShape(t *testing.T) {
	fw := newFirmware(t, listFiles...)
	p := shellTable(t, fw)
	live := fw.pool.Live()

	f := abi.NewFrame()
	defer f.Release()
	pat, err := abi.String16(f, `\dir\*.txt`)
	if err != nil {
		t.Fatal(err)
	}
	out := abi.NewOut[uintptr](f)
	if st := f.Call(fw, p.FindFiles, pat, out.Ptr()); st != status.Success {
		t.Fatalf("FindFiles = %v", st)
	}
	head := out.Assume()
	if head == 0 {
		t.Fatal("null head for three matches")
	}

	h := layout.At[shell.FileEntry](head)
	if h.FullName != 0 || h.FileName != 0 || h.Info != 0 || h.Handle != 0 {
		t.Fatalf("head carries a file: %+v", *h)
	}

	names, addrs := walk(t, head)
	if want := []string{"a.txt", "b.txt", "c.txt"}; !slices.Equal(names, want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	if slices.Contains(addrs, head) {
		t.Fatal("placeholder yielded")
	}
	last := addrs[len(addrs)-1]
	if h.Link.Prev != last {
		t.Errorf("head Prev = %#x, want last entry %#x", h.Link.Prev, last)
	}
	if layout.At[shell.FileEntry](last).Link.Next != 0 {
		t.Error("last entry not null terminated")
	}
	if layout.At[shell.FileEntry](addrs[0]).Link.Prev != head {
		t.Error("first entry Prev should point at the head")
	}
	if fw.OpenFiles() != 3 || fw.Outstanding() != 1 {
		t.Fatalf("files=%d outstanding=%d", fw.OpenFiles(), fw.Outstanding())
	}

	freeList(t, fw, p, head)
	if fw.Outstanding() != 0 || fw.OpenFiles() != 0 {
		t.Fatalf("leak: outstanding=%d files=%d", fw.Outstanding(), fw.OpenFiles())
	}
	if fw.pool.Live() != live {
		t.Fatalf("pool blocks = %d, want %d", fw.pool.Live(), live)
	}
}

func TestSingleMatchYieldsOneRecord(t *testing.T) {
	fw := newFirmware(t, listFiles...)
	p := shellTable(t, fw)

	head := openList(t, fw, p, `\only.txt`, 0)
	names, _ := walk(t, head)
	if !slices.Equal(names, []string{"only.txt"}) {
		t.Fatalf("names = %v", names)
	}
	freeList(t, fw, p, head)
}

func TestEmptyMatchIsNullList(t *testing.T) {
	fw := newFirmware(t, listFiles...)
	p := shellTable(t, fw)

	if head := openList(t, fw, p, `\dir\*.efi`, 0); head != 0 {
		t.Fatalf("head = %#x for no matches", head)
	}
	if fw.Outstanding() != 0 {
		t.Fatalf("outstanding = %d", fw.Outstanding())
	}
}

func TestAppendAndRemoveDupKeepHead(t *testing.T) {
	fw := newFirmware(t, listFiles...)
	p := shellTable(t, fw)

	head := openList(t, fw, p, `\dir\*.txt`, 0)
	if got := openList(t, fw, p, `\dir\b.txt`, head); got != head {
		t.Fatalf("append moved head %#x -> %#x", head, got)
	}
	if got := openList(t, fw, p, `\only.txt`, head); got != head {
		t.Fatalf("append moved head %#x -> %#x", head, got)
	}
	names, _ := walk(t, head)
	if want := []string{"a.txt", "b.txt", "c.txt", "b.txt", "only.txt"}; !slices.Equal(names, want) {
		t.Fatalf("names = %v, want %v", names, want)
	}

	f := abi.NewFrame()
	defer f.Release()
	ref := head
	if st := f.Call(fw, p.RemoveDupInFileList, abi.Ref(f, &ref)); st != status.Success {
		t.Fatalf("RemoveDupInFileList = %v", st)
	}
	if ref != head {
		t.Fatalf("dedup moved head %#x -> %#x", head, ref)
	}
	names, addrs := walk(t, head)
	if want := []string{"a.txt", "b.txt", "c.txt", "only.txt"}; !slices.Equal(names, want) {
		t.Fatalf("names after dedup = %v, want %v", names, want)
	}
	if layout.At[shell.FileEntry](head).Link.Prev != addrs[len(addrs)-1] {
		t.Error("head Prev not relinked to the last kept entry")
	}
	if fw.OpenFiles() != 4 {
		t.Fatalf("dedup left %d handles, want 4", fw.OpenFiles())
	}

	freeList(t, fw, p, head)
	if fw.Outstanding() != 0 || fw.OpenFiles() != 0 {
		t.Fatalf("leak: outstanding=%d files=%d", fw.Outstanding(), fw.OpenFiles())
	}
}
