package emu

import (
	"os"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/wippyai/efi-runtime/proto/shell"
	"github.com/wippyai/efi-runtime/status"
)

// node is a file or directory in the emulated volume. Names are case
// preserving and looked up case-insensitively, as on FAT.
type node struct {
	created  time.Time
	accessed time.Time
	modified time.Time
	parent   *node
	children map[string]*node
	name     string
	source   string
	data     []byte
	attr     shell.Attribute
	loaded   bool
}

func (n *node) isDir() bool {
	return n.attr&shell.AttrDirectory != 0
}

// path returns the canonical path, "\" for the root.
func (n *node) path() string {
	if n.parent == nil {
		return `\`
	}
	var parts []string
	for c := n; c.parent != nil; c = c.parent {
		parts = append(parts, c.name)
	}
	slices.Reverse(parts)
	return `\` + strings.Join(parts, `\`)
}

// sorted returns the children in name order.
func (n *node) sorted() []*node {
	out := make([]*node, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *node) int {
		return strings.Compare(strings.ToLower(a.name), strings.ToLower(b.name))
	})
	return out
}

// load reads a host-backed file on first access.
func (n *node) load() status.Status {
	if n.loaded || n.source == "" {
		n.loaded = true
		return status.Success
	}
	data, err := os.ReadFile(n.source)
	if err != nil {
		return mapOSError(err)
	}
	n.data = data
	n.loaded = true
	return status.Success
}

func (n *node) info() *shell.FileInfo {
	name := n.name
	if n.parent == nil {
		name = ""
	}
	return &shell.FileInfo{
		FileName:         name,
		CreateTime:       shell.TimeOf(n.created),
		LastAccessTime:   shell.TimeOf(n.accessed),
		ModificationTime: shell.TimeOf(n.modified),
		FileSize:         uint64(len(n.data)),
		PhysicalSize:     uint64(len(n.data)+511) &^ 511,
		Attribute:        n.attr,
	}
}

type memFS struct {
	root *node
	now  func() time.Time
}

func newMemFS(now func() time.Time) *memFS {
	t := now()
	return &memFS{
		root: &node{
			attr:     shell.AttrDirectory,
			children: map[string]*node{},
			created:  t,
			accessed: t,
			modified: t,
			loaded:   true,
		},
		now: now,
	}
}

func splitPath(p string) []string {
	var parts []string
	for _, s := range strings.Split(p, `\`) {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

// cleanPath joins rel onto the canonical directory dir and resolves "." and
// "..". Climbing above the root stays at the root.
func cleanPath(dir, rel string) string {
	rel = strings.ReplaceAll(rel, "/", `\`)
	var parts []string
	if !strings.HasPrefix(rel, `\`) {
		parts = splitPath(dir)
	}
	for _, s := range splitPath(rel) {
		switch s {
		case ".":
		case "..":
			if len(parts) > 0 {
				parts = parts[:len(parts)-1]
			}
		default:
			parts = append(parts, s)
		}
	}
	return `\` + strings.Join(parts, `\`)
}

func (fs *memFS) lookup(p string) *node {
	n := fs.root
	for _, part := range splitPath(p) {
		if !n.isDir() {
			return nil
		}
		c, ok := n.children[strings.ToLower(part)]
		if !ok {
			return nil
		}
		n = c
	}
	return n
}

// create adds a file or directory at p. The parent must exist.
func (fs *memFS) create(p string, attr shell.Attribute) (*node, status.Status) {
	parts := splitPath(p)
	if len(parts) == 0 {
		return nil, status.AccessDenied
	}
	parent := fs.lookup(`\` + strings.Join(parts[:len(parts)-1], `\`))
	if parent == nil || !parent.isDir() {
		return nil, status.NotFound
	}
	name := parts[len(parts)-1]
	key := strings.ToLower(name)
	if _, ok := parent.children[key]; ok {
		return nil, status.AccessDenied
	}

	t := fs.now()
	n := &node{
		parent:   parent,
		name:     name,
		attr:     attr & shell.AttrValid,
		created:  t,
		accessed: t,
		modified: t,
		loaded:   true,
	}
	if n.isDir() {
		n.children = map[string]*node{}
	}
	parent.children[key] = n
	parent.modified = t
	return n, status.Success
}

// mkdirAll creates every missing directory along p.
func (fs *memFS) mkdirAll(p string) (*node, status.Status) {
	n := fs.root
	for i, part := range splitPath(p) {
		c, ok := n.children[strings.ToLower(part)]
		if !ok {
			var st status.Status
			sub := `\` + strings.Join(splitPath(p)[:i+1], `\`)
			if c, st = fs.create(sub, shell.AttrDirectory); st != status.Success {
				return nil, st
			}
		}
		if !c.isDir() {
			return nil, status.AccessDenied
		}
		n = c
	}
	return n, status.Success
}

func (fs *memFS) remove(n *node) status.Status {
	if n.parent == nil {
		return status.AccessDenied
	}
	if n.isDir() && len(n.children) > 0 {
		return status.AccessDenied
	}
	delete(n.parent.children, strings.ToLower(n.name))
	n.parent.modified = fs.now()
	n.parent = nil
	return status.Success
}

func (fs *memFS) rename(n *node, name string) status.Status {
	if n.parent == nil || name == "" || strings.ContainsAny(name, `\/`) {
		return status.AccessDenied
	}
	key := strings.ToLower(name)
	if c, ok := n.parent.children[key]; ok && c != n {
		return status.AccessDenied
	}
	delete(n.parent.children, strings.ToLower(n.name))
	n.name = name
	n.parent.children[key] = n
	return status.Success
}

// glob expands a canonical pattern whose components may hold *, ? and [...]
// wildcards. Matches come back in path order.
func (fs *memFS) glob(pattern string) ([]*node, status.Status) {
	parts := splitPath(pattern)
	if len(parts) == 0 {
		return []*node{fs.root}, status.Success
	}

	level := []*node{fs.root}
	for i, part := range parts {
		want := strings.ToLower(part)
		var next []*node
		for _, dir := range level {
			if !dir.isDir() {
				continue
			}
			for _, c := range dir.sorted() {
				ok, err := path.Match(want, strings.ToLower(c.name))
				if err != nil {
					return nil, status.InvalidParameter
				}
				if ok && (i == len(parts)-1 || c.isDir()) {
					next = append(next, c)
				}
			}
		}
		level = next
	}
	return level, status.Success
}
