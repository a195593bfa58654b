package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func press(code string) KeyEvent   { return KeyEvent{Code: code, Pressed: true} }
func release(code string) KeyEvent { return KeyEvent{Code: code, Pressed: false} }

func feedAll(d *Decoder, evs ...KeyEvent) (string, bool) {
	var (
		got string
		ok  bool
	)
	for _, ev := range evs {
		if code, done := d.Feed(ev); done {
			got, ok = code, true
		}
	}
	return got, ok
}

func TestDecoderAssemblesBarcode(t *testing.T) {
	d := NewDecoder()

	code, ok := feedAll(d,
		press("KEY_A"), release("KEY_A"),
		press("KEY_B"), release("KEY_B"),
		press("KEY_C"), release("KEY_C"),
		press("KEY_ENTER"),
	)
	require.True(t, ok)
	assert.Equal(t, "abc", code)
}

func TestDecoderIgnoresModifierKeys(t *testing.T) {
	d := NewDecoder()

	code, ok := feedAll(d,
		press("KEY_A"),
		press("KEY_LEFTSHIFT"), // 修飾キーは1文字も追加しない
		press("KEY_B"),
		press("KEY_C"),
		press("KEY_ENTER"),
	)
	require.True(t, ok)
	assert.Equal(t, "abc", code)
}

func TestDecoderIgnoresReleaseEvents(t *testing.T) {
	d := NewDecoder()

	code, ok := feedAll(d,
		press("KEY_X"),
		release("KEY_Y"), // リリースのみのキーは入らない
		press("KEY_ENTER"),
	)
	require.True(t, ok)
	assert.Equal(t, "x", code)
}

func TestDecoderEmptyEnterIsNoop(t *testing.T) {
	d := NewDecoder()

	_, ok := d.Feed(press("KEY_ENTER"))
	assert.False(t, ok)

	// 直後の通常スキャンには影響しない
	code, ok := feedAll(d, press("KEY_1"), press("KEY_2"), press("KEY_ENTER"))
	require.True(t, ok)
	assert.Equal(t, "12", code)
}

func TestDecoderSkipsUnmappedKeys(t *testing.T) {
	d := NewDecoder()

	code, ok := feedAll(d,
		press("KEY_F12"),
		press("KEY_A"),
		press("KEY_CAPSLOCK"),
		press("KEY_VOLUMEUP"),
		press("KEY_1"),
		press("KEY_ENTER"),
	)
	require.True(t, ok)
	assert.Equal(t, "a1", code)
}

func TestDecoderDigitsAndSymbols(t *testing.T) {
	d := NewDecoder()

	code, ok := feedAll(d,
		press("KEY_KP4"),
		press("KEY_MINUS"),
		press("KEY_DOT"),
		press("KEY_SLASH"),
		press("KEY_9"),
		press("KEY_KPENTER"),
	)
	require.True(t, ok)
	assert.Equal(t, "4-./9", code)
}

func TestDecoderResetDiscardsBuffer(t *testing.T) {
	d := NewDecoder()

	d.Feed(press("KEY_A"))
	d.Reset()

	_, ok := d.Feed(press("KEY_ENTER"))
	assert.False(t, ok)
}

func TestDecoderConsecutiveBarcodes(t *testing.T) {
	d := NewDecoder()

	first, ok := feedAll(d, press("KEY_A"), press("KEY_ENTER"))
	require.True(t, ok)
	assert.Equal(t, "a", first)

	second, ok := feedAll(d, press("KEY_B"), press("KEY_ENTER"))
	require.True(t, ok)
	assert.Equal(t, "b", second)
}
