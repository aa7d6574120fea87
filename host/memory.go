package host

import (
	"encoding/binary"

	substate "github.com/wasmflow/substate"
	"github.com/wasmflow/substate/errors"
)

// readBytes copies length bytes of guest memory at ptr.
func readBytes(mem substate.Memory, ptr, length uint32) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	data, err := mem.Read(ptr, length)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseHost, errors.KindOutOfBounds, err,
			"read guest memory")
	}
	return append([]byte(nil), data...), nil
}

// readString copies a guest string at (ptr, length).
func readString(mem substate.Memory, ptr, length uint32) (string, error) {
	data, err := readBytes(mem, ptr, length)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// writeToSlot places data in guest memory through the guest's allocator and
// records the location in the 8-byte slot at slotPtr: ptr then len, both
// u32 little endian. Empty payloads record a null location.
func writeToSlot(mem substate.Memory, alloc substate.Allocator, slotPtr uint32, data []byte) error {
	var loc [8]byte
	if len(data) > 0 {
		ptr, err := alloc.Alloc(uint32(len(data)))
		if err != nil {
			return errors.New(errors.PhaseHost, errors.KindAllocation).
				Detail("allocate %d bytes in guest memory", len(data)).
				Cause(err).
				Build()
		}
		if err := mem.Write(ptr, data); err != nil {
			return errors.Wrap(errors.PhaseHost, errors.KindOutOfBounds, err,
				"write guest memory")
		}
		binary.LittleEndian.PutUint32(loc[0:4], ptr)
		binary.LittleEndian.PutUint32(loc[4:8], uint32(len(data)))
	}
	if err := mem.Write(slotPtr, loc[:]); err != nil {
		return errors.Wrap(errors.PhaseHost, errors.KindOutOfBounds, err,
			"write output slot")
	}
	return nil
}

// writeBytes places data in guest memory through the guest's allocator and
// returns its location, for building handler argument vectors.
func writeBytes(mem substate.Memory, alloc substate.Allocator, data []byte) (uint32, uint32, error) {
	if len(data) == 0 {
		return 0, 0, nil
	}
	ptr, err := alloc.Alloc(uint32(len(data)))
	if err != nil {
		return 0, 0, errors.New(errors.PhaseHost, errors.KindAllocation).
			Detail("allocate %d bytes in guest memory", len(data)).
			Cause(err).
			Build()
	}
	if err := mem.Write(ptr, data); err != nil {
		return 0, 0, errors.Wrap(errors.PhaseHost, errors.KindOutOfBounds, err,
			"write guest memory")
	}
	return ptr, uint32(len(data)), nil
}
