package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyStateBitOrder(t *testing.T) {
	assert.Equal(t, KeyState(0x001), Up)
	assert.Equal(t, KeyState(0x008), Right)
	assert.Equal(t, KeyState(0x040), Q)
	assert.Equal(t, KeyState(0x100), Enter)
	assert.Equal(t, KeyState(0x1FF), AllKeys)
}

func TestKeyStateString(t *testing.T) {
	assert.Equal(t, "-", KeyState(0).String())
	assert.Equal(t, "up+right", Up.With(Right).String())
	assert.Equal(t, "shift+esc", (Shift | Esc).String())
	assert.False(t, KeyState(0x200).Valid())
	assert.True(t, Up.With(Enter).Has(Enter))
	assert.False(t, Up.With(Enter).Without(Enter).Has(Enter))
}

func TestSampleApplyNeutralize(t *testing.T) {
	buf := make([]byte, BufferSize)
	b := DefaultBindings()

	Apply(buf, b, Up|Space|Enter)
	assert.Equal(t, KeyPressed, buf[KeyUp])
	assert.Equal(t, KeyPressed, buf[KeySpace])
	assert.Equal(t, KeyPressed, buf[KeyReturn])
	assert.Equal(t, KeyIdle, buf[KeyDown])
	assert.Equal(t, Up|Space|Enter, Sample(buf, b))

	// Отпущенная клавиша (KeyReleased) не считается нажатой
	buf[KeyLeft] = KeyReleased
	assert.False(t, Sample(buf, b).Has(Left))

	Neutralize(buf, b)
	assert.Equal(t, KeyState(0), Sample(buf, b))
}

func TestRemappedBindings(t *testing.T) {
	buf := make([]byte, BufferSize)
	b := DefaultBindings()
	b.Up = KeyCode(0x11) // W

	buf[0x11] = KeyPressed
	buf[KeyUp] = KeyPressed
	assert.Equal(t, Up, Sample(buf, b))
}

func TestShortBufferIgnored(t *testing.T) {
	buf := make([]byte, 8)
	Apply(buf, DefaultBindings(), AllKeys)
	assert.Equal(t, make([]byte, 8), buf)
	assert.Equal(t, KeyState(0), Sample(buf, DefaultBindings()))
}

func TestParseKey(t *testing.T) {
	code, ok := ParseKey("f3")
	assert.True(t, ok)
	assert.Equal(t, KeyF3, code)
	_, ok = ParseKey("hyper")
	assert.False(t, ok)
}
