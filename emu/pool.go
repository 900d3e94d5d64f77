package emu

import (
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/efi-runtime/errors"
	"github.com/wippyai/efi-runtime/layout"
)

// Pool is firmware pool memory. Every allocation is a separate mapping
// outside the Go heap, so addresses handed to callers never move and are
// invisible to the collector. Freed blocks are unmapped.
type Pool struct {
	blocks map[uintptr][]byte
	mu     sync.Mutex
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{blocks: make(map[uintptr][]byte)}
}

// Alloc returns size zeroed bytes aligned to align. Blocks are mapped
// individually, so any align up to the mapping granularity is honored.
func (p *Pool) Alloc(size, align uintptr) (uintptr, error) {
	if align == 0 || align&(align-1) != 0 || align > pageSize() {
		return 0, errors.AllocationFailed(errors.PhaseEmulate, size, align)
	}
	if size == 0 {
		size = 1
	}

	b, err := mapBlock(int(size))
	if err != nil {
		return 0, errors.New(errors.PhaseEmulate, errors.KindAllocation).
			Cause(err).
			Detail("map %d bytes", size).
			Build()
	}
	addr := uintptr(unsafe.Pointer(&b[0]))

	p.mu.Lock()
	p.blocks[addr] = b
	p.mu.Unlock()

	Logger().Debug("pool alloc", zap.Uintptr("addr", addr), zap.Uintptr("size", size))
	return addr, nil
}

// Free releases a block returned by Alloc.
func (p *Pool) Free(addr uintptr) error {
	p.mu.Lock()
	b, ok := p.blocks[addr]
	if ok {
		delete(p.blocks, addr)
	}
	p.mu.Unlock()

	if !ok {
		return errors.New(errors.PhaseEmulate, errors.KindInvalidInput).
			Value(addr).
			Detail("free of unknown block %#x", addr).
			Build()
	}
	Logger().Debug("pool free", zap.Uintptr("addr", addr))
	return unmapBlock(b)
}

// Owns reports whether addr is the start of a live block.
func (p *Pool) Owns(addr uintptr) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.blocks[addr]
	return ok
}

// Live returns the number of blocks not yet freed.
func (p *Pool) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.blocks)
}

// Close frees every block.
func (p *Pool) Close() error {
	p.mu.Lock()
	blocks := p.blocks
	p.blocks = make(map[uintptr][]byte)
	p.mu.Unlock()

	var first error
	for _, b := range blocks {
		if err := unmapBlock(b); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Bytes allocates a copy of b.
func (p *Pool) Bytes(b []byte) (uintptr, error) {
	addr, err := p.Alloc(uintptr(len(b)), 8)
	if err != nil {
		return 0, err
	}
	copy(bytesAt(addr, uintptr(len(b))), b)
	return addr, nil
}

func bytesAt(addr, n uintptr) []byte {
	if n == 0 {
		return nil
	}
	return unsafe.Slice(layout.At[byte](addr), n)
}

func readWord(addr uintptr) uintptr {
	return *layout.At[uintptr](addr)
}

func writeWord(addr, v uintptr) {
	*layout.At[uintptr](addr) = v
}

func writeU64(addr uintptr, v uint64) {
	*layout.At[uint64](addr) = v
}
