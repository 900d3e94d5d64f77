package emu

import (
	"io"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/wippyai/efi-runtime/errors"
)

// Config describes the emulated firmware image.
//
// MemoryLimitPages caps the linear memory of programs run through Execute,
// in 64 KiB pages. Zero keeps the engine default.
type Config struct {
	Stdin            io.Reader        `toml:"-"`
	Stdout           io.Writer        `toml:"-"`
	Stderr           io.Writer        `toml:"-"`
	Clock            func() time.Time `toml:"-"`
	Shell            ShellConfig      `toml:"shell"`
	Args             []string         `toml:"args"`
	Files            []FileConfig     `toml:"files"`
	MemoryLimitPages uint32           `toml:"memory_limit_pages"`
}

// ShellConfig is the initial shell state.
type ShellConfig struct {
	Env          map[string]string `toml:"env"`
	Mapping      string            `toml:"mapping"`
	CurDir       string            `toml:"cwd"`
	MajorVersion uint32            `toml:"major_version"`
	MinorVersion uint32            `toml:"minor_version"`
	Nested       bool              `toml:"nested"`
	Batch        bool              `toml:"batch"`
	PageBreak    bool              `toml:"page_break"`
}

// FileConfig seeds one file or directory. Content is inline; Source names a
// host file read on first open.
type FileConfig struct {
	Path     string `toml:"path"`
	Content  string `toml:"content"`
	Source   string `toml:"source"`
	Dir      bool   `toml:"dir"`
	ReadOnly bool   `toml:"read_only"`
	Hidden   bool   `toml:"hidden"`
	System   bool   `toml:"system"`
}

// DefaultConfig is a root shell 2.2 on an empty fs0: volume.
func DefaultConfig() Config {
	return Config{
		Shell: ShellConfig{
			Env:          map[string]string{"path": `.\;fs0:\efi\tools\`},
			Mapping:      "fs0:",
			CurDir:       `\`,
			MajorVersion: 2,
			MinorVersion: 2,
		},
		Args: []string{"app.efi"},
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	m := c.Shell.Mapping
	if m == "" || !strings.HasSuffix(m, ":") || strings.ContainsAny(m[:len(m)-1], `:\/ `) {
		return errors.New(errors.PhaseValidate, errors.KindInvalidInput).
			Path("shell", "mapping").
			Detail("mapping %q must be a name followed by a colon", m).
			Build()
	}
	for i, f := range c.Files {
		if strings.TrimSpace(f.Path) == "" {
			return errors.New(errors.PhaseValidate, errors.KindInvalidInput).
				Path("files").
				Value(i).
				Detail("file %d has no path", i).
				Build()
		}
		if f.Dir && (f.Content != "" || f.Source != "") {
			return errors.New(errors.PhaseValidate, errors.KindInvalidInput).
				Path("files", f.Path).
				Detail("directory with content").
				Build()
		}
		if f.Content != "" && f.Source != "" {
			return errors.New(errors.PhaseValidate, errors.KindInvalidInput).
				Path("files", f.Path).
				Detail("content and source are exclusive").
				Build()
		}
	}
	return nil
}

type fileConfig struct {
	Shell            ShellConfig  `toml:"shell"`
	Args             []string     `toml:"args"`
	Files            []FileConfig `toml:"files"`
	MemoryLimitPages uint32       `toml:"memory_limit_pages"`
}

// LoadConfig reads a TOML firmware description from path. Keys that are
// absent keep their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, errors.Load("read firmware config "+path, err)
	}
	return fromFile(raw, meta)
}

// ParseConfig is LoadConfig for in-memory TOML.
func ParseConfig(data string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, errors.Load("parse firmware config", err)
	}
	return fromFile(raw, meta)
}

func fromFile(raw fileConfig, meta toml.MetaData) (Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errors.New(errors.PhaseLoad, errors.KindInvalidInput).
			Detail("unknown keys: %s", strings.Join(keys, ", ")).
			Build()
	}

	cfg := DefaultConfig()
	if meta.IsDefined("shell", "env") {
		cfg.Shell.Env = raw.Shell.Env
	}
	if meta.IsDefined("shell", "mapping") {
		cfg.Shell.Mapping = strings.TrimSpace(raw.Shell.Mapping)
	}
	if meta.IsDefined("shell", "cwd") {
		cfg.Shell.CurDir = strings.TrimSpace(raw.Shell.CurDir)
	}
	if meta.IsDefined("shell", "major_version") {
		cfg.Shell.MajorVersion = raw.Shell.MajorVersion
	}
	if meta.IsDefined("shell", "minor_version") {
		cfg.Shell.MinorVersion = raw.Shell.MinorVersion
	}
	cfg.Shell.Nested = raw.Shell.Nested
	cfg.Shell.Batch = raw.Shell.Batch
	cfg.Shell.PageBreak = raw.Shell.PageBreak
	if meta.IsDefined("args") {
		cfg.Args = raw.Args
	}
	cfg.Files = raw.Files
	cfg.MemoryLimitPages = raw.MemoryLimitPages

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func configError(section, key, format string, a ...any) error {
	return errors.New(errors.PhaseValidate, errors.KindInvalidInput).
		Path(section, key).
		Detail(format, a...).
		Build()
}
