package asmgen

import "golang.org/x/sys/unix"

// SyscallNumber looks up the amd64 Linux syscall number for a libc-ish
// name. cmd/cc's tests use it to check the numbers the wrapper
// functions in testdata/runtime/syscall.cc are written with against the
// real kernel ABI rather than a hand-copied magic-number table; the
// synthesized `syscall` thunk itself does not consult it.
func SyscallNumber(name string) (int64, bool) {
	n, ok := syscallNumbers[name]
	return n, ok
}

var syscallNumbers = map[string]int64{
	"read":        unix.SYS_READ,
	"write":       unix.SYS_WRITE,
	"open":        unix.SYS_OPEN,
	"close":       unix.SYS_CLOSE,
	"mmap":        unix.SYS_MMAP,
	"exit":        unix.SYS_EXIT,
	"fork":        unix.SYS_FORK,
	"execve":      unix.SYS_EXECVE,
	"wait4":       unix.SYS_WAIT4,
	"pipe":        unix.SYS_PIPE,
	"dup2":        unix.SYS_DUP2,
	"socket":      unix.SYS_SOCKET,
	"bind":        unix.SYS_BIND,
	"listen":      unix.SYS_LISTEN,
	"accept":      unix.SYS_ACCEPT,
	"unlink":      unix.SYS_UNLINK,
	"getdents64":  unix.SYS_GETDENTS64,
}
