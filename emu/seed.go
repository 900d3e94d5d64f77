package emu

import (
	"strings"

	"github.com/wippyai/efi-runtime/errors"
	"github.com/wippyai/efi-runtime/proto/shell"
	"github.com/wippyai/efi-runtime/status"
)

// seed populates the volume. Paths are absolute; a leading mapping such as
// "fs0:" is ignored.
func (fw *Firmware) seed(files []FileConfig) error {
	for _, fc := range files {
		p := fc.Path
		if i := strings.IndexByte(p, ':'); i >= 0 {
			p = p[i+1:]
		}
		p = cleanPath(`\`, p)

		var attr shell.Attribute
		if fc.ReadOnly {
			attr |= shell.AttrReadOnly
		}
		if fc.Hidden {
			attr |= shell.AttrHidden
		}
		if fc.System {
			attr |= shell.AttrSystem
		}

		if fc.Dir {
			n, st := fw.fs.mkdirAll(p)
			if st != status.Success {
				return seedError(fc.Path, st)
			}
			n.attr |= attr
			continue
		}

		parts := splitPath(p)
		if len(parts) == 0 {
			return seedError(fc.Path, status.AccessDenied)
		}
		if _, st := fw.fs.mkdirAll(`\` + strings.Join(parts[:len(parts)-1], `\`)); st != status.Success {
			return seedError(fc.Path, st)
		}
		n, st := fw.fs.create(p, attr|shell.AttrArchive)
		if st != status.Success {
			return seedError(fc.Path, st)
		}
		if fc.Source != "" {
			n.source = fc.Source
			n.loaded = false
		} else {
			n.data = []byte(fc.Content)
		}
	}
	return nil
}

func seedError(path string, st status.Status) error {
	return errors.New(errors.PhaseEmulate, errors.KindInvalidInput).
		Path("files", path).
		Cause(st.Err()).
		Detail("cannot seed %q", path).
		Build()
}
