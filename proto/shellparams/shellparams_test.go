package shellparams_test

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/wippyai/efi-runtime/emu"
	"github.com/wippyai/efi-runtime/layout"
	"github.com/wippyai/efi-runtime/proto/shell"
	"github.com/wippyai/efi-runtime/proto/shellparams"
	"github.com/wippyai/efi-runtime/status"
)

func TestLayout(t *testing.T) {
	if err := layout.Verify[shellparams.Protocol](shellparams.Contract); err != nil {
		t.Fatal(err)
	}
}

func boot(t *testing.T, cfg emu.Config) *emu.Firmware {
	t.Helper()
	fw, err := emu.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("emu.New: %v", err)
	}
	t.Cleanup(func() { _ = fw.Close() })
	return fw
}

func TestArguments(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		args []string
	}{
		{"program only", []string{"app.efi"}, []string{}},
		{"with arguments", []string{"fs0:\\tool.efi", "-v", "file name.txt"}, []string{"-v", "file name.txt"}},
		{"unicode", []string{"app.efi", "Grüße"}, []string{"Grüße"}},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := emu.DefaultConfig()
			cfg.Args = tt.argv
			fw := boot(t, cfg)

			p, err := shellparams.Open(fw.Services(), fw.ImageHandle())
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer p.Close()

			argv, err := p.Argv()
			if err != nil {
				t.Fatalf("Argv: %v", err)
			}
			if !slices.Equal(argv, tt.argv) {
				t.Errorf("Argv = %q, want %q", argv, tt.argv)
			}
			args, err := p.Args()
			if err != nil {
				t.Fatalf("Args: %v", err)
			}
			if !slices.Equal(args, tt.args) {
				t.Errorf("Args = %q, want %q", args, tt.args)
			}
		})
	}
}

func TestStdio(t *testing.T) {
	var stdout, stderr bytes.Buffer
	cfg := emu.DefaultConfig()
	cfg.Stdin = strings.NewReader("typed input")
	cfg.Stdout = &stdout
	cfg.Stderr = &stderr
	fw := boot(t, cfg)
	bs := fw.Services()

	p, err := shellparams.Open(bs, fw.ImageHandle())
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	sh, err := shell.Find(bs)
	if err != nil {
		t.Fatal(err)
	}
	defer sh.Close()

	in, out, errh := p.Stdio()
	if in == 0 || out == 0 || errh == 0 || in == out || out == errh {
		t.Fatalf("stdio handles = %#x %#x %#x", in, out, errh)
	}

	if _, err := sh.WriteFile(out, []byte("to stdout")); err != nil {
		t.Fatalf("write stdout: %v", err)
	}
	if _, err := sh.WriteFile(errh, []byte("to stderr")); err != nil {
		t.Fatalf("write stderr: %v", err)
	}
	if stdout.String() != "to stdout" || stderr.String() != "to stderr" {
		t.Fatalf("stdout %q, stderr %q", stdout.String(), stderr.String())
	}

	buf := make([]byte, 32)
	n, err := sh.ReadFile(in, buf)
	if err != nil || string(buf[:n]) != "typed input" {
		t.Fatalf("read stdin = %q, %v", buf[:n], err)
	}
	if _, err := sh.GetFileSize(out); !errors.Is(err, status.ErrUnsupported) {
		t.Fatalf("GetFileSize(stdout) = %v", err)
	}
}

func TestOpenWrongHandle(t *testing.T) {
	fw := boot(t, emu.DefaultConfig())
	p, err := shellparams.Open(fw.Services(), fw.ShellHandle())
	if !errors.Is(err, status.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	if p != nil {
		t.Fatal("binding returned on failure")
	}
}

func TestDecodeEmpty(t *testing.T) {
	argv, err := shellparams.Decode(&shellparams.Protocol{})
	if err != nil || argv != nil {
		t.Fatalf("Decode = %v, %v", argv, err)
	}
}
