package hotkey

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidAccelerator is returned for accelerator strings that cannot be
// bound
var ErrInvalidAccelerator = errors.New("invalid accelerator")

// Modifier is a bit set of modifier keys
type Modifier uint8

const (
	ModShift Modifier = 1 << iota
	ModCtrl
	ModAlt
	ModSuper // Command on macOS
)

// Accelerator is a parsed key combination such as "Alt+Space"
type Accelerator struct {
	Mods Modifier
	// Key is the canonical key name: "A".."Z", "0".."9", "F1".."F12",
	// "Space", "Enter", "Tab" or "Escape".
	Key string
}

func (a Accelerator) String() string {
	var parts []string
	for _, m := range []struct {
		mod  Modifier
		name string
	}{{ModCtrl, "Ctrl"}, {ModAlt, "Alt"}, {ModShift, "Shift"}, {ModSuper, "Super"}} {
		if a.Mods&m.mod != 0 {
			parts = append(parts, m.name)
		}
	}
	return strings.Join(append(parts, a.Key), "+")
}

var modifierNames = map[string]Modifier{
	"shift":   ModShift,
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"option":  ModAlt,
	"opt":     ModAlt,
	"super":   ModSuper,
	"cmd":     ModSuper,
	"command": ModSuper,
	"meta":    ModSuper,
	"win":     ModSuper,
}

var keyNames = map[string]string{
	"space":  "Space",
	"enter":  "Enter",
	"return": "Enter",
	"tab":    "Tab",
	"esc":    "Escape",
	"escape": "Escape",
}

// ParseAccelerator parses strings like "Alt+Space" or "ctrl+shift+p".
// Exactly one non-modifier key is required.
func ParseAccelerator(s string) (Accelerator, error) {
	var acc Accelerator
	if strings.TrimSpace(s) == "" {
		return acc, fmt.Errorf("%w: empty", ErrInvalidAccelerator)
	}

	for _, part := range strings.Split(s, "+") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			return Accelerator{}, fmt.Errorf("%w: %q has an empty part", ErrInvalidAccelerator, s)
		}
		if mod, ok := modifierNames[name]; ok {
			acc.Mods |= mod
			continue
		}
		if acc.Key != "" {
			return Accelerator{}, fmt.Errorf("%w: %q has more than one key", ErrInvalidAccelerator, s)
		}
		key, ok := canonicalKey(name)
		if !ok {
			return Accelerator{}, fmt.Errorf("%w: unknown key %q", ErrInvalidAccelerator, part)
		}
		acc.Key = key
	}

	if acc.Key == "" {
		return Accelerator{}, fmt.Errorf("%w: %q has no key", ErrInvalidAccelerator, s)
	}
	return acc, nil
}

func canonicalKey(name string) (string, bool) {
	if k, ok := keyNames[name]; ok {
		return k, true
	}
	if len(name) == 1 {
		c := name[0]
		if c >= 'a' && c <= 'z' {
			return strings.ToUpper(name), true
		}
		if c >= '0' && c <= '9' {
			return name, true
		}
		return "", false
	}
	var n int
	if _, err := fmt.Sscanf(name, "f%d", &n); err == nil && n >= 1 && n <= 12 && name == fmt.Sprintf("f%d", n) {
		return fmt.Sprintf("F%d", n), true
	}
	return "", false
}
