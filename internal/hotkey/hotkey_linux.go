//go:build linux

package hotkey

/*
#cgo pkg-config: x11
#include <X11/Xlib.h>
#include <X11/keysym.h>
#include <stdlib.h>

Display* displayPtr = NULL;

static int openDisplay() {
    if (displayPtr == NULL) {
        displayPtr = XOpenDisplay(NULL);
    }
    return displayPtr != NULL;
}

static int keycodeFor(const char* name) {
    if (!openDisplay()) return 0;
    KeySym sym = XStringToKeysym(name);
    if (sym == NoSymbol) return 0;
    return XKeysymToKeycode(displayPtr, sym);
}

// Lock and NumLock change the modifier state, so each combination is grabbed.
static unsigned int lockMasks[4] = {0, LockMask, Mod2Mask, LockMask | Mod2Mask};

int grabKey(int keycode, int modifiers) {
    if (!openDisplay()) return 0;

    Window root = DefaultRootWindow(displayPtr);
    for (int i = 0; i < 4; i++) {
        XGrabKey(displayPtr, keycode, modifiers | lockMasks[i], root, False, GrabModeAsync, GrabModeAsync);
    }
    XSelectInput(displayPtr, root, KeyPressMask | KeyReleaseMask);
    XSync(displayPtr, False);

    return 1;
}

void ungrabKey(int keycode, int modifiers) {
    if (displayPtr == NULL) return;

    Window root = DefaultRootWindow(displayPtr);
    for (int i = 0; i < 4; i++) {
        XUngrabKey(displayPtr, keycode, modifiers | lockMasks[i], root);
    }
    XSync(displayPtr, False);
}

int checkEvent(int* keycode, int* pressed) {
    if (displayPtr == NULL) return 0;

    XEvent event;
    if (XPending(displayPtr) > 0) {
        XNextEvent(displayPtr, &event);
        if (event.type == KeyPress || event.type == KeyRelease) {
            *keycode = event.xkey.keycode;
            *pressed = (event.type == KeyPress) ? 1 : 0;
            return 1;
        }
    }
    return 0;
}
*/
import "C"

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unsafe"
)

// X11 modifier masks
const (
	shiftMask   = 1
	controlMask = 4
	mod1Mask    = 8  // Alt
	mod4Mask    = 64 // Super
)

type grab struct {
	keycode   int
	modifiers int
}

type linuxManager struct {
	mu        sync.Mutex
	callbacks map[int]func(bool)
	grabs     map[string]grab
	stop      chan struct{}
}

// New creates a new Linux hotkey manager using X11
func New() (Manager, error) {
	mgr := &linuxManager{
		callbacks: make(map[int]func(bool)),
		grabs:     make(map[string]grab),
		stop:      make(chan struct{}),
	}

	go mgr.eventLoop()

	return mgr, nil
}

func (m *linuxManager) Register(accel string, callback func(pressed bool)) error {
	g, err := resolve(accel)
	if err != nil {
		return err
	}

	if C.grabKey(C.int(g.keycode), C.int(g.modifiers)) == 0 {
		return fmt.Errorf("failed to grab %s: no X display", accel)
	}

	m.mu.Lock()
	m.callbacks[g.keycode] = callback
	m.grabs[accel] = g
	m.mu.Unlock()
	return nil
}

func resolve(accel string) (grab, error) {
	acc, err := ParseAccelerator(accel)
	if err != nil {
		return grab{}, err
	}

	name := C.CString(keysymName(acc.Key))
	defer C.free(unsafe.Pointer(name))
	keycode := int(C.keycodeFor(name))
	if keycode == 0 {
		return grab{}, fmt.Errorf("no keycode for %s", acc.Key)
	}
	return grab{keycode: keycode, modifiers: x11Modifiers(acc.Mods)}, nil
}

func keysymName(key string) string {
	switch key {
	case "Space":
		return "space"
	case "Enter":
		return "Return"
	case "Tab", "Escape":
		return key
	}
	if len(key) == 1 {
		return strings.ToLower(key)
	}
	return key // F1..F12
}

func x11Modifiers(mods Modifier) int {
	var out int
	if mods&ModShift != 0 {
		out |= shiftMask
	}
	if mods&ModCtrl != 0 {
		out |= controlMask
	}
	if mods&ModAlt != 0 {
		out |= mod1Mask
	}
	if mods&ModSuper != 0 {
		out |= mod4Mask
	}
	return out
}

func (m *linuxManager) eventLoop() {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			var keycode, pressed C.int
			if C.checkEvent(&keycode, &pressed) != 0 {
				m.mu.Lock()
				cb, ok := m.callbacks[int(keycode)]
				m.mu.Unlock()
				if ok {
					cb(pressed == 1)
				}
			}
		}
	}
}

func (m *linuxManager) Unregister(accel string) error {
	m.mu.Lock()
	g, ok := m.grabs[accel]
	delete(m.grabs, accel)
	if ok {
		delete(m.callbacks, g.keycode)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%s is not registered", accel)
	}
	C.ungrabKey(C.int(g.keycode), C.int(g.modifiers))
	return nil
}

func (m *linuxManager) Close() error {
	m.mu.Lock()
	for accel, g := range m.grabs {
		C.ungrabKey(C.int(g.keycode), C.int(g.modifiers))
		delete(m.grabs, accel)
	}
	m.mu.Unlock()
	close(m.stop)
	return nil
}
