package emu

import (
	"io"
	"slices"
	"strings"
	"unsafe"

	"github.com/wippyai/efi-runtime/layout"
	"github.com/wippyai/efi-runtime/proto/shell"
	"github.com/wippyai/efi-runtime/status"
)

// executionBreakEvent is the opaque event value published in the shell
// table. Nothing signals it.
const executionBreakEvent = 0xEB00

type shellState struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	// env maps a lower-cased name to its variable.
	env map[string]envVar
	// cached holds shell-owned strings handed out by GetEnv and GetCurDir.
	cached    map[string]uintptr
	mapping   string
	cwd       string
	batch     bool
	pageBreak bool
	root      bool
}

type envVar struct {
	name     string
	value    string
	volatile bool
}

// sortedEnv returns the variables in name order.
func (fw *Firmware) sortedEnv() []envVar {
	vars := make([]envVar, 0, len(fw.sh.env))
	for _, v := range fw.sh.env {
		vars = append(vars, v)
	}
	slices.SortFunc(vars, func(a, b envVar) int {
		return strings.Compare(strings.ToLower(a.name), strings.ToLower(b.name))
	})
	return vars
}

func (fw *Firmware) installShell(cfg Config) error {
	sc := cfg.Shell
	fw.sh = &shellState{
		stdin:     cfg.Stdin,
		stdout:    cfg.Stdout,
		stderr:    cfg.Stderr,
		env:       map[string]envVar{},
		cached:    map[string]uintptr{},
		mapping:   strings.ToLower(sc.Mapping),
		cwd:       `\`,
		batch:     sc.Batch,
		pageBreak: sc.PageBreak,
		root:      !sc.Nested,
	}
	if fw.sh.stdout == nil {
		fw.sh.stdout = io.Discard
	}
	if fw.sh.stderr == nil {
		fw.sh.stderr = io.Discard
	}
	if fw.sh.stdin == nil {
		fw.sh.stdin = eofReader{}
	}
	for k, v := range sc.Env {
		fw.sh.env[strings.ToLower(k)] = envVar{name: k, value: v}
	}
	if sc.CurDir != "" {
		p, ok := fw.resolve(sc.CurDir)
		if !ok {
			return configError("shell", "cwd", "mapping of %q is unknown", sc.CurDir)
		}
		n := fw.fs.lookup(p)
		if n == nil || !n.isDir() {
			return configError("shell", "cwd", "%q is not a directory", sc.CurDir)
		}
		fw.sh.cwd = p
	}

	addr, err := fw.pool.Alloc(unsafe.Sizeof(shell.Protocol{}), 8)
	if err != nil {
		return err
	}
	p := layout.At[shell.Protocol](addr)
	p.MajorVersion = sc.MajorVersion
	p.MinorVersion = sc.MinorVersion
	p.ExecutionBreak = executionBreakEvent

	p.Execute = fw.register("Execute", fw.shExecute, 3)
	p.GetEnv = fw.registerPtr("GetEnv", fw.shGetEnv)
	p.SetEnv = fw.register("SetEnv", fw.shSetEnv)
	p.GetCurDir = fw.registerPtr("GetCurDir", fw.shGetCurDir)
	p.SetCurDir = fw.register("SetCurDir", fw.shSetCurDir)
	p.OpenFileList = fw.register("OpenFileList", fw.shOpenFileList, 2)
	p.FreeFileList = fw.register("FreeFileList", fw.shFreeFileList)
	p.RemoveDupInFileList = fw.register("RemoveDupInFileList", fw.shRemoveDup)
	p.BatchIsActive = fw.registerPtr("BatchIsActive", func(args) uintptr { return boolWord(fw.sh.batch) })
	p.IsRootShell = fw.registerPtr("IsRootShell", func(args) uintptr { return boolWord(fw.sh.root) })
	p.EnablePageBreak = fw.registerPtr("EnablePageBreak", func(args) uintptr {
		fw.sh.pageBreak = true
		return 0
	})
	p.DisablePageBreak = fw.registerPtr("DisablePageBreak", func(args) uintptr {
		fw.sh.pageBreak = false
		return 0
	})
	p.GetPageBreak = fw.registerPtr("GetPageBreak", func(args) uintptr { return boolWord(fw.sh.pageBreak) })
	p.GetFileInfo = fw.registerPtr("GetFileInfo", fw.shGetFileInfo)
	p.SetFileInfo = fw.register("SetFileInfo", fw.shSetFileInfo)
	p.OpenFileByName = fw.register("OpenFileByName", fw.shOpenFileByName, 1)
	p.CloseFile = fw.register("CloseFile", fw.shCloseFile)
	p.CreateFile = fw.register("CreateFile", fw.shCreateFile, 2)
	p.ReadFile = fw.register("ReadFile", fw.shReadFile, 1)
	p.WriteFile = fw.register("WriteFile", fw.shWriteFile, 1)
	p.DeleteFile = fw.register("DeleteFile", fw.shDeleteFile)
	p.DeleteFileByName = fw.register("DeleteFileByName", fw.shDeleteFileByName)
	p.GetFilePosition = fw.register("GetFilePosition", fw.shGetFilePosition, 1)
	p.SetFilePosition = fw.register("SetFilePosition", fw.shSetFilePosition)
	p.FlushFile = fw.register("FlushFile", fw.shFlushFile)
	p.FindFiles = fw.register("FindFiles", fw.shFindFiles, 1)
	p.FindFilesInDir = fw.register("FindFilesInDir", fw.shFindFilesInDir, 1)
	p.GetFileSize = fw.register("GetFileSize", fw.shGetFileSize, 1)

	h, err := fw.installProtocol(0, shell.ProtocolGUID, addr)
	if err != nil {
		return err
	}
	fw.shellH = h
	return nil
}

func boolWord(b bool) uintptr {
	if b {
		return 1
	}
	return 0
}

// resolve turns a shell path into a canonical volume path. Paths may carry
// the volume's mapping; relative paths start at the current directory.
func (fw *Firmware) resolve(p string) (string, bool) {
	if i := strings.IndexByte(p, ':'); i >= 0 {
		if !strings.EqualFold(p[:i+1], fw.sh.mapping) {
			return "", false
		}
		p = p[i+1:]
		if p == "" {
			p = `\`
		}
	}
	return cleanPath(fw.sh.cwd, p), true
}

// fullName is the mapped form of a canonical path, e.g. fs0:\efi\boot.
func (fw *Firmware) fullName(p string) string {
	return fw.sh.mapping + p
}

// cache keeps one shell-owned copy of s under key and returns it. The
// previous copy under key is freed.
func (fw *Firmware) cache(key, s string) uintptr {
	if old, ok := fw.sh.cached[key]; ok {
		_ = fw.pool.Free(old)
		delete(fw.sh.cached, key)
	}
	addr, st := fw.allocString(s)
	if st != status.Success {
		return 0
	}
	fw.sh.cached[key] = addr
	return addr
}

func (fw *Firmware) shGetEnv(a args) uintptr {
	name, ok, st := readString(a.at(0))
	if !ok || st != status.Success {
		return 0
	}
	v, ok := fw.sh.env[strings.ToLower(name)]
	if !ok {
		return 0
	}
	return fw.cache("env:"+strings.ToLower(name), v.value)
}

func (fw *Firmware) shSetEnv(a args) uintptr {
	name, ok, st := readString(a.at(0))
	if !ok || st != status.Success || name == "" {
		return uintptr(status.InvalidParameter)
	}
	value, ok, st := readString(a.at(1))
	if !ok || st != status.Success {
		return uintptr(status.InvalidParameter)
	}
	key := strings.ToLower(name)
	if value == "" {
		delete(fw.sh.env, key)
		return uintptr(status.Success)
	}
	fw.sh.env[key] = envVar{name: name, value: value, volatile: a.at(2)&0xff != 0}
	return uintptr(status.Success)
}

func (fw *Firmware) shGetCurDir(a args) uintptr {
	m, ok, st := readString(a.at(0))
	if st != status.Success {
		return 0
	}
	if ok && !strings.EqualFold(strings.TrimSuffix(m, ":")+":", fw.sh.mapping) {
		return 0
	}
	return fw.cache("cwd", fw.fullName(fw.sh.cwd))
}

func (fw *Firmware) shSetCurDir(a args) uintptr {
	fs, ok, st := readString(a.at(0))
	if st != status.Success {
		return uintptr(st)
	}
	if ok && !strings.EqualFold(strings.TrimSuffix(fs, ":")+":", fw.sh.mapping) {
		return uintptr(status.NotFound)
	}
	dir, ok, st := readString(a.at(1))
	if !ok || st != status.Success {
		return uintptr(status.InvalidParameter)
	}
	return uintptr(fw.chdir(dir))
}

func (fw *Firmware) chdir(dir string) status.Status {
	p, ok := fw.resolve(dir)
	if !ok {
		return status.NotFound
	}
	n := fw.fs.lookup(p)
	if n == nil || !n.isDir() {
		return status.NotFound
	}
	fw.sh.cwd = p
	return status.Success
}
