package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimmyTango/tango-vm/vm"
)

func imageBytes(t *testing.T, image map[uint16]byte, origin uint16, n int) []byte {
	t.Helper()
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		b, ok := image[origin+uint16(i)]
		require.True(t, ok, "missing byte at offset %d", i)
		out[i] = b
	}
	return out
}

func TestAssembleMovImmediate(t *testing.T) {
	image, err := Assemble("mov r0, #5\nend\n")
	require.NoError(t, err)

	got := imageBytes(t, image, vm.ResetVector, 4)
	assert.Equal(t, []byte{vm.OpMovBase | vm.ModeImmediate, 0x00, 0x05, vm.OpEnd}, got)
}

func TestAssembleDefaultsOriginToResetVector(t *testing.T) {
	image, err := Assemble("nop\nend\n")
	require.NoError(t, err)

	_, ok := image[vm.ResetVector]
	assert.True(t, ok)
}

func TestAssembleOrgDirective(t *testing.T) {
	image, err := Assemble(".org 0x300\nnop\nend\n")
	require.NoError(t, err)

	assert.Equal(t, byte(vm.OpNop), image[0x0300])
	assert.Equal(t, byte(vm.OpEnd), image[0x0301])
}

func TestAssembleLabelResolution(t *testing.T) {
	image, err := Assemble("jmp loop\nloop:\nnop\nend\n")
	require.NoError(t, err)

	// jmp target should point at "loop", which sits right after the 3-byte jmp.
	target := uint16(image[vm.ResetVector+1]) | uint16(image[vm.ResetVector+2])<<8
	assert.Equal(t, vm.ResetVector+3, target)
}

func TestAssembleUndefinedLabelFails(t *testing.T) {
	_, err := Assemble("jmp nowhere\nend\n")
	require.Error(t, err)
}

func TestAssembleRegisterPseudoOperand(t *testing.T) {
	image, err := Assemble("mov r0, x\nend\n")
	require.NoError(t, err)

	got := imageBytes(t, image, vm.ResetVector, 3)
	assert.Equal(t, []byte{vm.OpMovBase | vm.ModeRegister, 0x00, 0xF0}, got)
}

func TestAssembleMemoryIndirectOperand(t *testing.T) {
	image, err := Assemble("mov r0, <x>\nend\n")
	require.NoError(t, err)

	got := imageBytes(t, image, vm.ResetVector, 4)
	assert.Equal(t, []byte{vm.OpMovBase | vm.ModeIndirect, 0x00, 0xF0, 0x00}, got)
}

func TestAssembleMovMemoryAddressDest(t *testing.T) {
	image, err := Assemble("mov 512, r0\nend\n")
	require.NoError(t, err)

	got := imageBytes(t, image, vm.ResetVector, 4)
	assert.Equal(t, []byte{vm.OpMovToMemBase | vm.ModeRegister, 0x00, 0x02, 0x00}, got)
}

func TestAssemblePopDirectMemoryDest(t *testing.T) {
	image, err := Assemble("pop 512\nend\n")
	require.NoError(t, err)

	got := imageBytes(t, image, vm.ResetVector, 3)
	assert.Equal(t, []byte{vm.OpPopBase | vm.ModeDirect, 0x00, 0x02}, got)
}

func TestAssemblePopIndirectMemoryDest(t *testing.T) {
	image, err := Assemble("pop <y>\nend\n")
	require.NoError(t, err)

	got := imageBytes(t, image, vm.ResetVector, 3)
	assert.Equal(t, []byte{vm.OpPopBase | vm.ModeIndirect, 0xF1, 0x00}, got)
}

func TestDisassembleRoundTrip(t *testing.T) {
	image, err := Assemble("mov r0, #5\nadd r0, #3\nend\n")
	require.NoError(t, err)

	bytes := imageBytes(t, image, vm.ResetVector, 6)

	src, err := Disassemble(bytes, vm.ResetVector)
	require.NoError(t, err)

	reassembled, err := Assemble(src)
	require.NoError(t, err)

	assert.Equal(t, bytes, imageBytes(t, reassembled, vm.ResetVector, 6))
}

func TestDisassembleRoundTripMemoryIndirectMovToMemAndPop(t *testing.T) {
	image, err := Assemble("mov r0, <x>\nmov 600, #9\npop <y>\nend\n")
	require.NoError(t, err)

	n := 0
	for addr := range image {
		if int(addr-vm.ResetVector) >= n {
			n = int(addr-vm.ResetVector) + 1
		}
	}
	bytes := imageBytes(t, image, vm.ResetVector, n)

	src, err := Disassemble(bytes, vm.ResetVector)
	require.NoError(t, err)

	reassembled, err := Assemble(src)
	require.NoError(t, err)

	assert.Equal(t, bytes, imageBytes(t, reassembled, vm.ResetVector, n))
}
