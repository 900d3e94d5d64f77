package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/efi-runtime/boot"
	"github.com/wippyai/efi-runtime/emu"
	"github.com/wippyai/efi-runtime/proto/shell"
	"github.com/wippyai/efi-runtime/proto/shellparams"
	"github.com/wippyai/efi-runtime/status"
)

type options struct {
	config  string
	mount   string
	find    string
	cat     string
	exec    string
	args    string
	verbose bool
}

func main() {
	var (
		opts        options
		interactive bool
	)
	flag.StringVar(&opts.config, "config", "", "Firmware description (TOML)")
	flag.StringVar(&opts.mount, "mount", "", "Host directory exposed as the volume root")
	flag.StringVar(&opts.find, "find", "", "List files matching a shell pattern")
	flag.StringVar(&opts.cat, "cat", "", "Print a file from the volume")
	flag.StringVar(&opts.exec, "exec", "", "Run a shell command line")
	flag.StringVar(&opts.args, "argv", "", "Image arguments (comma-separated)")
	flag.BoolVar(&opts.verbose, "v", false, "Log firmware calls")
	flag.BoolVar(&interactive, "i", false, "Interactive mode with TUI")
	flag.Parse()

	if !interactive && opts.find == "" && opts.cat == "" && opts.exec == "" {
		fmt.Fprintln(os.Stderr, "Usage: efish [-config fw.toml] [-mount dir] -find <pattern>")
		fmt.Fprintln(os.Stderr, "       efish [-config fw.toml] [-mount dir] -cat <path>")
		fmt.Fprintln(os.Stderr, "       efish [-config fw.toml] [-mount dir] -exec <command line>")
		fmt.Fprintln(os.Stderr, "       efish [-config fw.toml] [-mount dir] -i  (interactive mode)")
		os.Exit(1)
	}

	if opts.verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		emu.SetLogger(logger.Named("emu"))
		boot.SetLogger(logger.Named("boot"))
		shell.SetLogger(logger.Named("shell"))
	}

	if interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	code, err := run(opts, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(code)
}

// loadConfig builds the firmware description from the flags.
func loadConfig(opts options, stdout, stderr io.Writer) (emu.Config, error) {
	cfg := emu.DefaultConfig()
	if opts.config != "" {
		var err error
		if cfg, err = emu.LoadConfig(opts.config); err != nil {
			return cfg, err
		}
	}
	if opts.mount != "" {
		files, err := mountDir(opts.mount)
		if err != nil {
			return cfg, err
		}
		cfg.Files = append(cfg.Files, files...)
	}
	if opts.args != "" {
		cfg.Args = strings.Split(opts.args, ",")
	}
	cfg.Stdin = os.Stdin
	cfg.Stdout = stdout
	cfg.Stderr = stderr
	return cfg, nil
}

// mountDir describes every entry under root as a host-backed file.
func mountDir(root string) ([]emu.FileConfig, error) {
	var files []emu.FileConfig
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil || rel == "." {
			return err
		}
		fc := emu.FileConfig{Path: `\` + strings.ReplaceAll(rel, string(filepath.Separator), `\`)}
		if d.IsDir() {
			fc.Dir = true
		} else {
			fc.Source = p
		}
		files = append(files, fc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mount %s: %w", root, err)
	}
	return files, nil
}

// session is a booted firmware with the shell bound.
type session struct {
	fw *emu.Firmware
	sh *shell.Shell
}

func open(ctx context.Context, cfg emu.Config) (*session, error) {
	fw, err := emu.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("boot firmware: %w", err)
	}
	sh, err := shell.Find(fw.Services())
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("bind shell: %w", err)
	}
	return &session{fw: fw, sh: sh}, nil
}

func (s *session) Close() {
	s.sh.Close()
	s.fw.Close()
}

func run(opts options, out io.Writer) (int, error) {
	cfg, err := loadConfig(opts, out, os.Stderr)
	if err != nil {
		return 0, err
	}
	s, err := open(context.Background(), cfg)
	if err != nil {
		return 0, err
	}
	defer s.Close()

	if opts.verbose {
		if err := showImage(s, out); err != nil {
			return 0, err
		}
	}

	switch {
	case opts.find != "":
		return 0, find(s.sh, opts.find, out)
	case opts.cat != "":
		return 0, cat(s.sh, opts.cat, out)
	default:
		st, err := s.sh.Execute(s.fw.ImageHandle(), opts.exec, nil)
		if err != nil {
			return 0, err
		}
		if st != status.Success {
			fmt.Fprintf(os.Stderr, "%s: %v\n", opts.exec, st)
			return 1, nil
		}
		return 0, nil
	}
}

func showImage(s *session, out io.Writer) error {
	p, err := shellparams.Open(s.fw.Services(), s.fw.ImageHandle())
	if err != nil {
		return fmt.Errorf("shell parameters: %w", err)
	}
	defer p.Close()
	argv, err := p.Argv()
	if err != nil {
		return err
	}
	major, minor := s.sh.Version()
	fmt.Fprintf(out, "Shell %d.%d, image argv %q\n", major, minor, argv)
	return nil
}

func find(sh *shell.Shell, pattern string, out io.Writer) error {
	l, err := sh.FindFiles(pattern)
	if err != nil {
		return fmt.Errorf("find %s: %w", pattern, err)
	}
	if l == nil {
		fmt.Fprintln(out, "No files found.")
		return nil
	}
	defer l.Free()

	files, err := l.Files()
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Fprintln(out, formatEntry(f))
	}
	return nil
}

func formatEntry(f shell.File) string {
	if f.Info == nil {
		return f.Path
	}
	size := fmt.Sprintf("%10d", f.Info.FileSize)
	if f.Info.IsDir() {
		size = fmt.Sprintf("%10s", "<DIR>")
	}
	mod := f.Info.ModificationTime.Time().Format("2006-01-02 15:04")
	return fmt.Sprintf("%s %s %s %s", mod, size, attrString(f.Info.Attribute), f.Path)
}

func attrString(a shell.Attribute) string {
	flags := []struct {
		bit  shell.Attribute
		char byte
	}{
		{shell.AttrDirectory, 'd'},
		{shell.AttrArchive, 'a'},
		{shell.AttrReadOnly, 'r'},
		{shell.AttrHidden, 'h'},
		{shell.AttrSystem, 's'},
	}
	b := make([]byte, len(flags))
	for i, f := range flags {
		b[i] = '-'
		if a&f.bit != 0 {
			b[i] = f.char
		}
	}
	return string(b)
}

func cat(sh *shell.Shell, path string, out io.Writer) error {
	data, err := readAll(sh, path)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

func readAll(sh *shell.Shell, path string) ([]byte, error) {
	h, _, err := sh.OpenFileByName(path, shell.ModeRead)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer sh.CloseFile(h)

	size, err := sh.GetFileSize(h)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	n, err := sh.ReadFile(h, buf)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return buf[:n], nil
}
