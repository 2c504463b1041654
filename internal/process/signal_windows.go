//go:build windows

package process

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	wmClose             = 0x0010
	smtoAbortIfHung     = 0x0002
	sendMessageTimeout  = 2000 // milliseconds
	forcedTerminateCode = 1
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")
	procSendMessageTimeoutW = user32.NewProc("SendMessageTimeoutW")
)

// EnumWindows callbacks cannot be released once created, so a single one is
// shared and the search state is guarded by windowSearchMu.
var (
	windowSearchMu  sync.Mutex
	windowSearchPID uint32
	windowSearchHit windows.HWND

	enumWindowsCallback = windows.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
		var owner uint32
		if _, err := windows.GetWindowThreadProcessId(hwnd, &owner); err != nil {
			return 1
		}
		if owner == windowSearchPID {
			windowSearchHit = hwnd
			return 0
		}
		return 1
	})
)

type windowsSignaler struct{}

// NewSignaler returns the signaler for this platform. Windows has no
// graceful signals, name is only validated.
func NewSignaler(name string) (Signaler, error) {
	if _, err := NormalizeSignal(name); err != nil {
		return nil, err
	}
	return windowsSignaler{}, nil
}

func platformSignalers(name string) (Signaler, GroupSignaler, error) {
	s, err := NewSignaler(name)
	if err != nil {
		return nil, nil, err
	}
	return s, nil, nil
}

// RequestExit escalates through a close message to the primary thread, a
// close message to the top-level window and finally TerminateProcess,
// stopping at the first step that reports success.
func (windowsSignaler) RequestExit(pid int) {
	if pid <= 0 {
		return
	}
	steps := []func(uint32) bool{
		postCloseToThread,
		sendCloseToWindow,
		terminateProcess,
	}
	for _, step := range steps {
		if step(uint32(pid)) {
			return
		}
	}
}

func postCloseToThread(pid uint32) bool {
	tid, ok := primaryThread(pid)
	if !ok {
		return false
	}
	r, _, _ := procPostThreadMessageW.Call(uintptr(tid), wmClose, 0, 0)
	return r != 0
}

func primaryThread(pid uint32) (uint32, bool) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPTHREAD, 0)
	if err != nil {
		return 0, false
	}
	defer windows.CloseHandle(snap)

	var te windows.ThreadEntry32
	te.Size = uint32(unsafe.Sizeof(te))
	for err = windows.Thread32First(snap, &te); err == nil; err = windows.Thread32Next(snap, &te) {
		if te.OwnerProcessID == pid {
			return te.ThreadID, true
		}
	}
	return 0, false
}

func topLevelWindow(pid uint32) (windows.HWND, bool) {
	windowSearchMu.Lock()
	defer windowSearchMu.Unlock()

	windowSearchPID = pid
	windowSearchHit = 0
	// EnumWindows reports an error when the callback stops the enumeration.
	_ = windows.EnumWindows(enumWindowsCallback, nil)
	return windowSearchHit, windowSearchHit != 0
}

func sendCloseToWindow(pid uint32) bool {
	hwnd, ok := topLevelWindow(pid)
	if !ok {
		return false
	}
	var result uintptr
	r, _, _ := procSendMessageTimeoutW.Call(
		uintptr(hwnd),
		wmClose,
		0,
		0,
		smtoAbortIfHung,
		sendMessageTimeout,
		uintptr(unsafe.Pointer(&result)),
	)
	return r != 0
}

func terminateProcess(pid uint32) bool {
	h, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, pid)
	if err != nil {
		return false
	}
	defer windows.CloseHandle(h)
	return windows.TerminateProcess(h, forcedTerminateCode) == nil
}
