package emu

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	rterrors "github.com/wippyai/efi-runtime/errors"
)

const sampleConfig = `
args = ["demo.efi", "-v", "input.txt"]
memory_limit_pages = 64

[shell]
mapping = "FS1:"
cwd = '\efi'
batch = true

[shell.env]
path = '.\;fs1:\efi\tools\'
profiles = "debug"

[[files]]
path = '\efi\readme.txt'
content = "hello"
read_only = true

[[files]]
path = '\efi\tools'
dir = true
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(sampleConfig)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}

	if cfg.Shell.Mapping != "FS1:" || cfg.Shell.CurDir != `\efi` || !cfg.Shell.Batch {
		t.Errorf("shell = %+v", cfg.Shell)
	}
	if cfg.Shell.MajorVersion != 2 || cfg.Shell.MinorVersion != 2 {
		t.Errorf("version defaults lost: %d.%d", cfg.Shell.MajorVersion, cfg.Shell.MinorVersion)
	}
	if cfg.Shell.Env["profiles"] != "debug" {
		t.Errorf("env = %v", cfg.Shell.Env)
	}
	if len(cfg.Args) != 3 || cfg.Args[2] != "input.txt" {
		t.Errorf("args = %v", cfg.Args)
	}
	if len(cfg.Files) != 2 || !cfg.Files[0].ReadOnly || !cfg.Files[1].Dir {
		t.Errorf("files = %+v", cfg.Files)
	}
	if cfg.MemoryLimitPages != 64 {
		t.Errorf("memory_limit_pages = %d", cfg.MemoryLimitPages)
	}
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig("")
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	def := DefaultConfig()
	if cfg.Shell.Mapping != def.Shell.Mapping || cfg.Shell.CurDir != def.Shell.CurDir {
		t.Errorf("shell = %+v, want %+v", cfg.Shell, def.Shell)
	}
	if len(cfg.Args) != 1 || cfg.Args[0] != "app.efi" {
		t.Errorf("args = %v", cfg.Args)
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		phase rterrors.Phase
	}{
		{"syntax", "args = [", rterrors.PhaseLoad},
		{"unknown key", "colour = 1", rterrors.PhaseLoad},
		{"bad mapping", "[shell]\nmapping = \"fs0\"", rterrors.PhaseValidate},
		{"nested mapping", "[shell]\nmapping = \"a:b:\"", rterrors.PhaseValidate},
		{"empty path", "[[files]]\npath = \" \"", rterrors.PhaseValidate},
		{"dir with content", "[[files]]\npath = 'x'\ndir = true\ncontent = \"y\"", rterrors.PhaseValidate},
		{"content and source", "[[files]]\npath = 'x'\ncontent = \"y\"\nsource = \"z\"", rterrors.PhaseValidate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig(tt.input)
			var re *rterrors.Error
			if !errors.As(err, &re) {
				t.Fatalf("err = %v, want *errors.Error", err)
			}
			if re.Phase != tt.phase {
				t.Errorf("phase = %v, want %v", re.Phase, tt.phase)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fw.toml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Shell.Mapping != "FS1:" {
		t.Errorf("mapping = %q", cfg.Shell.Mapping)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestNewRejectsBadCurDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Shell.CurDir = `\nowhere`
	if _, err := New(t.Context(), cfg); err == nil {
		t.Fatal("cwd outside the volume accepted")
	}
}

func TestSeedFiles(t *testing.T) {
	host := filepath.Join(t.TempDir(), "payload.bin")
	if err := os.WriteFile(host, []byte("from host"), 0o600); err != nil {
		t.Fatal(err)
	}
	fw := newFirmware(t,
		FileConfig{Path: `fs0:\efi\boot\startup.nsh`, Content: "echo hi", Hidden: true},
		FileConfig{Path: `\data\payload.bin`, Source: host, ReadOnly: true},
		FileConfig{Path: `\logs`, Dir: true, System: true},
	)

	n := fw.fs.lookup(`\efi\boot\startup.nsh`)
	if n == nil || string(n.data) != "echo hi" || n.attr&0x02 == 0 {
		t.Fatalf("startup.nsh = %+v", n)
	}
	p := fw.fs.lookup(`\data\payload.bin`)
	if p == nil || p.loaded {
		t.Fatalf("payload should load lazily: %+v", p)
	}
	if st := p.load(); st != 0 || string(p.data) != "from host" {
		t.Fatalf("load = %v, %q", st, p.data)
	}
	if d := fw.fs.lookup(`\logs`); d == nil || !d.isDir() {
		t.Fatal("logs dir missing")
	}
}
