package vm

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/kolkov/pyxc/internal/types"
)

// alloc reserves zeroed storage for a value of type t on the stack.
func (e *Engine) alloc(t *types.Type) (uint64, error) {
	size := uint64(types.Size(t))
	align := uint64(types.Align(t))
	addr := (e.sp + align - 1) / align * align
	if addr+size > uint64(len(e.mem)) {
		return 0, ErrStackOverflow
	}
	clear(e.mem[addr : addr+size])
	e.sp = addr + size
	return addr, nil
}

// bytes returns the live memory at addr holding a value of size n.
func (e *Engine) bytes(addr, n uint64) ([]byte, error) {
	if addr < nullGuard || addr+n > e.sp || addr+n < addr {
		return nil, fmt.Errorf("%w 0x%x", ErrBadAddress, addr)
	}
	return e.mem[addr : addr+n], nil
}

// load reads a scalar of type t from addr.
func (e *Engine) load(t *types.Type, addr uint64) (types.Value, error) {
	b, err := e.bytes(addr, uint64(types.Size(t)))
	if err != nil {
		return types.Value{}, err
	}
	switch {
	case t.IsFloat() && t.Bits == 32:
		return types.Float(t, float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))), nil
	case t.IsFloat():
		return types.Float(t, math.Float64frombits(binary.LittleEndian.Uint64(b))), nil
	case t.IsPointer():
		return types.Pointer(t, binary.LittleEndian.Uint64(b)), nil
	case t.IsBool():
		return types.Truth(b[0] != 0), nil
	}
	return types.Uint(t, readUint(b)), nil
}

// store writes the scalar v to addr.
func (e *Engine) store(v types.Value, addr uint64) error {
	t := v.Type()
	b, err := e.bytes(addr, uint64(types.Size(t)))
	if err != nil {
		return err
	}
	switch {
	case t.IsFloat() && t.Bits == 32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v.Float())))
	case t.IsFloat():
		binary.LittleEndian.PutUint64(b, math.Float64bits(v.Float()))
	default:
		writeUint(b, v.Bits())
	}
	return nil
}

func readUint(b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	}
	return binary.LittleEndian.Uint64(b)
}

func writeUint(b []byte, x uint64) {
	switch len(b) {
	case 1:
		b[0] = byte(x)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(x))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(x))
	default:
		binary.LittleEndian.PutUint64(b, x)
	}
}
