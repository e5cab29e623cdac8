// Package ui implements the minimal operator surface: a raw-terminal key
// reader that turns 'r' and 'q'+'y' into session requests, and a peak
// meter renderer that writes one line per device. There is no
// ncurses-equivalent; this is deliberately thin.
package ui

import (
	"github.com/pkg/term"

	"github.com/rom9/multirec/internal/audiocore/session"
	"github.com/rom9/multirec/internal/errors"
)

// KeyReader reads single keystrokes from the controlling terminal in raw
// mode and translates them into session requests.
type KeyReader struct {
	t *term.Term
}

// OpenKeyReader puts the controlling terminal into raw mode.
func OpenKeyReader() (*KeyReader, error) {
	t, err := term.Open("/dev/tty", term.RawMode)
	if err != nil {
		return nil, errors.New(err).Component("ui").Category(errors.CategoryResource).Build()
	}
	return &KeyReader{t: t}, nil
}

// Close restores the terminal's original mode.
func (k *KeyReader) Close() error {
	return k.t.Close()
}

// Next blocks until a keystroke maps to a session.Request and returns it;
// keys with no meaning are skipped. session.ReqNone is returned only
// together with a read error. 'q' arms a stop request that only fires if
// the very next key is 'y'; any other key cancels the arm.
func (k *KeyReader) Next() (session.Request, error) {
	buf := make([]byte, 1)
	for {
		n, err := k.t.Read(buf)
		if err != nil {
			return session.ReqNone, errors.New(err).Component("ui").Category(errors.CategoryResource).Build()
		}
		if n == 0 {
			continue
		}

		switch buf[0] {
		case 'r', 'R':
			return session.ReqStart, nil
		case 'q', 'Q':
			if !k.confirmQuit() {
				continue
			}
			return session.ReqStop, nil
		}
	}
}

// confirmQuit blocks for one more keystroke and reports whether it was
// 'y'/'Y'.
func (k *KeyReader) confirmQuit() bool {
	buf := make([]byte, 1)
	n, err := k.t.Read(buf)
	if err != nil || n == 0 {
		return false
	}
	return buf[0] == 'y' || buf[0] == 'Y'
}
