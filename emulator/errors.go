package emulator

import "fmt"

// Errno is a status code reported by an Emulator Core. ERR_OK is the only
// success value; every other code is a failure and can be returned as an error.
type Errno int

const (
	ERR_OK Errno = iota
	ERR_NOMEM
	ERR_ARCH
	ERR_HANDLE
	ERR_MODE
	ERR_VERSION
	ERR_READ_UNMAPPED
	ERR_WRITE_UNMAPPED
	ERR_FETCH_UNMAPPED
	ERR_HOOK
	ERR_INSN_INVALID
	ERR_MAP
	ERR_WRITE_PROT
	ERR_READ_PROT
	ERR_FETCH_PROT
	ERR_ARG
	ERR_READ_UNALIGNED
	ERR_WRITE_UNALIGNED
	ERR_FETCH_UNALIGNED
	ERR_HOOK_EXIST
	ERR_RESOURCE
	ERR_EXCEPTION
)

var errnoText = [...]string{
	ERR_OK:              "OK (UC_ERR_OK)",
	ERR_NOMEM:           "No memory available or memory not present (UC_ERR_NOMEM)",
	ERR_ARCH:            "Invalid/unsupported architecture (UC_ERR_ARCH)",
	ERR_HANDLE:          "Invalid handle (UC_ERR_HANDLE)",
	ERR_MODE:            "Invalid mode (UC_ERR_MODE)",
	ERR_VERSION:         "Different API version between core & binding (UC_ERR_VERSION)",
	ERR_READ_UNMAPPED:   "Invalid memory read (UC_ERR_READ_UNMAPPED)",
	ERR_WRITE_UNMAPPED:  "Invalid memory write (UC_ERR_WRITE_UNMAPPED)",
	ERR_FETCH_UNMAPPED:  "Invalid memory fetch (UC_ERR_FETCH_UNMAPPED)",
	ERR_HOOK:            "Invalid hook type (UC_ERR_HOOK)",
	ERR_INSN_INVALID:    "Invalid instruction (UC_ERR_INSN_INVALID)",
	ERR_MAP:             "Invalid memory mapping (UC_ERR_MAP)",
	ERR_WRITE_PROT:      "Write to write-protected memory (UC_ERR_WRITE_PROT)",
	ERR_READ_PROT:       "Read from non-readable memory (UC_ERR_READ_PROT)",
	ERR_FETCH_PROT:      "Fetch from non-executable memory (UC_ERR_FETCH_PROT)",
	ERR_ARG:             "Invalid argument (UC_ERR_ARG)",
	ERR_READ_UNALIGNED:  "Read from unaligned memory (UC_ERR_READ_UNALIGNED)",
	ERR_WRITE_UNALIGNED: "Write to unaligned memory (UC_ERR_WRITE_UNALIGNED)",
	ERR_FETCH_UNALIGNED: "Fetch from unaligned memory (UC_ERR_FETCH_UNALIGNED)",
	ERR_HOOK_EXIST:      "Hook for this type event already exists (UC_ERR_HOOK_EXIST)",
	ERR_RESOURCE:        "Insufficient resource (UC_ERR_RESOURCE)",
	ERR_EXCEPTION:       "Unhandled CPU exception (UC_ERR_EXCEPTION)",
}

func (e Errno) Error() string {
	if e >= 0 && int(e) < len(errnoText) {
		return errnoText[e]
	}
	return fmt.Sprintf("Unknown error code %d", int(e))
}

// Code returns the numeric value of the status.
func (e Errno) Code() int {
	return int(e)
}

// ErrnoNames maps the script-visible constant name of every status to its value.
func ErrnoNames() map[string]Errno {
	return map[string]Errno{
		"UC_ERR_OK":              ERR_OK,
		"UC_ERR_NOMEM":           ERR_NOMEM,
		"UC_ERR_ARCH":            ERR_ARCH,
		"UC_ERR_HANDLE":          ERR_HANDLE,
		"UC_ERR_MODE":            ERR_MODE,
		"UC_ERR_VERSION":         ERR_VERSION,
		"UC_ERR_READ_UNMAPPED":   ERR_READ_UNMAPPED,
		"UC_ERR_WRITE_UNMAPPED":  ERR_WRITE_UNMAPPED,
		"UC_ERR_FETCH_UNMAPPED":  ERR_FETCH_UNMAPPED,
		"UC_ERR_HOOK":            ERR_HOOK,
		"UC_ERR_INSN_INVALID":    ERR_INSN_INVALID,
		"UC_ERR_MAP":             ERR_MAP,
		"UC_ERR_WRITE_PROT":      ERR_WRITE_PROT,
		"UC_ERR_READ_PROT":       ERR_READ_PROT,
		"UC_ERR_FETCH_PROT":      ERR_FETCH_PROT,
		"UC_ERR_ARG":             ERR_ARG,
		"UC_ERR_READ_UNALIGNED":  ERR_READ_UNALIGNED,
		"UC_ERR_WRITE_UNALIGNED": ERR_WRITE_UNALIGNED,
		"UC_ERR_FETCH_UNALIGNED": ERR_FETCH_UNALIGNED,
		"UC_ERR_HOOK_EXIST":      ERR_HOOK_EXIST,
		"UC_ERR_RESOURCE":        ERR_RESOURCE,
		"UC_ERR_EXCEPTION":       ERR_EXCEPTION,
	}
}
