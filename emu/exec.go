package emu

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	"github.com/wippyai/efi-runtime/errors"
	"github.com/wippyai/efi-runtime/internal/handle"
	"github.com/wippyai/efi-runtime/status"
)

// startRuntime prepares the engine that runs programs started through
// Execute. Programs are WASI command modules stored on the volume.
func (fw *Firmware) startRuntime(ctx context.Context, cfg Config) error {
	rc := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	r := wazero.NewRuntimeWithConfig(ctx, rc)

	builder := r.NewHostModuleBuilder(wasi_snapshot_preview1.ModuleName)
	wasi_snapshot_preview1.NewFunctionExporter().ExportFunctions(builder)
	if _, err := builder.Instantiate(ctx); err != nil {
		_ = r.Close(ctx)
		return errors.Wrap(errors.PhaseEmulate, errors.KindNotInitialized, err, "instantiate wasi")
	}
	fw.runtime = r
	return nil
}

func (fw *Firmware) shExecute(a args) uintptr {
	parent, line, envp, out := a.at(0), a.at(1), a.at(2), a.at(3)
	if parent == 0 || out == 0 {
		return uintptr(status.InvalidParameter)
	}
	if _, ok := fw.handles.Get(handle.Handle(readWord(parent))); !ok {
		return uintptr(status.InvalidParameter)
	}
	cmdline, ok, st := readString(line)
	if !ok || st != status.Success {
		return uintptr(status.InvalidParameter)
	}
	env, st := readStringArray(envp)
	if st != status.Success {
		return uintptr(st)
	}

	code, st := fw.execute(cmdline, env)
	if st != status.Success {
		return uintptr(st)
	}
	writeWord(out, uintptr(code))
	return uintptr(status.Success)
}

// execute runs one command line. The first result is the command's own
// status; the second reports whether it could be started. A nil env runs
// the command with the shell environment.
func (fw *Firmware) execute(cmdline string, env []string) (status.Status, status.Status) {
	argv := splitCommandLine(cmdline)
	if len(argv) == 0 {
		return status.Success, status.Success
	}
	Logger().Debug("execute", zap.Strings("argv", argv))

	switch strings.ToLower(argv[0]) {
	case "echo":
		fmt.Fprintln(fw.sh.stdout, strings.Join(argv[1:], " "))
		return status.Success, status.Success
	case "set":
		return fw.builtinSet(argv[1:]), status.Success
	case "cd":
		if len(argv) < 2 {
			fmt.Fprintln(fw.sh.stdout, fw.fullName(fw.sh.cwd))
			return status.Success, status.Success
		}
		return fw.chdir(argv[1]), status.Success
	}

	prog := fw.program(argv[0])
	if prog == nil {
		return 0, status.NotFound
	}
	if st := prog.load(); st != status.Success {
		return 0, st
	}
	return fw.run(prog, argv, env)
}

func (fw *Firmware) builtinSet(argv []string) status.Status {
	switch len(argv) {
	case 0:
		for _, v := range fw.sortedEnv() {
			fmt.Fprintf(fw.sh.stdout, "%s = %s\n", v.name, v.value)
		}
		return status.Success
	case 1:
		delete(fw.sh.env, strings.ToLower(argv[0]))
		return status.Success
	}
	fw.sh.env[strings.ToLower(argv[0])] = envVar{name: argv[0], value: strings.Join(argv[1:], " ")}
	return status.Success
}

// program finds a command module. Names without a path are searched in
// the current directory, then along the path variable. The .wasm suffix is
// optional.
func (fw *Firmware) program(name string) *node {
	dirs := []string{""}
	if !strings.ContainsAny(name, `\/:`) {
		if v, ok := fw.sh.env["path"]; ok {
			for _, d := range strings.Split(v.value, ";") {
				if d = strings.TrimSpace(d); d != "" {
					dirs = append(dirs, d)
				}
			}
		}
	}
	for _, dir := range dirs {
		for _, cand := range []string{name, name + ".wasm"} {
			full := cand
			if dir != "" {
				full = strings.TrimSuffix(dir, `\`) + `\` + cand
			}
			p, ok := fw.resolve(full)
			if !ok {
				continue
			}
			if n := fw.fs.lookup(p); n != nil && !n.isDir() {
				return n
			}
		}
	}
	return nil
}

func (fw *Firmware) run(prog *node, argv []string, env []string) (status.Status, status.Status) {
	ctx := context.Background()
	compiled, err := fw.runtime.CompileModule(ctx, prog.data)
	if err != nil {
		Logger().Debug("compile failed", zap.String("program", prog.path()), zap.Error(err))
		return 0, status.LoadError
	}
	defer compiled.Close(ctx)

	mc := wazero.NewModuleConfig().
		WithName("").
		WithArgs(argv...).
		WithStdin(fw.sh.stdin).
		WithStdout(fw.sh.stdout).
		WithStderr(fw.sh.stderr)
	if env == nil {
		for _, v := range fw.sortedEnv() {
			mc = mc.WithEnv(v.name, v.value)
		}
	} else {
		for _, kv := range env {
			k, v, _ := strings.Cut(kv, "=")
			mc = mc.WithEnv(k, v)
		}
	}

	mod, err := fw.runtime.InstantiateModule(ctx, compiled, mc)
	if mod != nil {
		_ = mod.Close(ctx)
	}
	return exitStatus(err), status.Success
}

// exitStatus maps a program's outcome to a status. Exit code n becomes the
// error status with code n.
func exitStatus(err error) status.Status {
	if err == nil {
		return status.Success
	}
	var exit *sys.ExitError
	if stderrors.As(err, &exit) {
		if exit.ExitCode() == 0 {
			return status.Success
		}
		return status.ErrorCode(uintptr(exit.ExitCode()))
	}
	Logger().Debug("program trapped", zap.Error(err))
	return status.Aborted
}

// splitCommandLine splits on blanks. Double quotes group words and are
// removed.
func splitCommandLine(s string) []string {
	var out []string
	var cur strings.Builder
	quoted, inWord := false, false
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			inWord = true
		case (r == ' ' || r == '\t') && !quoted:
			if inWord {
				out = append(out, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if inWord {
		out = append(out, cur.String())
	}
	return out
}
