package emulator

import "fmt"

type Arch int

const (
	ARCH_UNKNOWN Arch = iota
	ARCH_ARM
	ARCH_ARM64
	ARCH_X86
	ARCH_X86_64
	ARCH_SIM
)

type Mode int

const (
	MODE_LITTLE_ENDIAN Mode = 0
	MODE_BIG_ENDIAN    Mode = 1 << 30

	MODE_ARM   Mode = 0
	MODE_THUMB Mode = 1 << 4
	MODE_16    Mode = 1 << 1
	MODE_32    Mode = 1 << 2
	MODE_64    Mode = 1 << 3
)

func (a Arch) String() string {
	switch a {
	case ARCH_ARM:
		return "arm"
	case ARCH_ARM64:
		return "arm64"
	case ARCH_X86:
		return "x86"
	case ARCH_X86_64:
		return "x86_64"
	case ARCH_SIM:
		return "sim"
	}
	return fmt.Sprintf("arch(%d)", int(a))
}
