package hotkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.design/x/hotkey"
)

func TestParseChordCtrlAltM(t *testing.T) {
	c, err := ParseChord("Ctrl+Alt+M")
	require.NoError(t, err)
	assert.Equal(t, hotkey.KeyM, c.Key)
	assert.ElementsMatch(t, []hotkey.Modifier{hotkey.ModCtrl, hotkey.ModOption}, c.Mods)
}

func TestParseChordCaseInsensitive(t *testing.T) {
	c, err := ParseChord("ctrl+shift+space")
	require.NoError(t, err)
	assert.Equal(t, hotkey.KeySpace, c.Key)
}

func TestParseChordRejectsUnknownModifier(t *testing.T) {
	_, err := ParseChord("Super+M")
	assert.Error(t, err)
}

func TestParseChordRejectsUnknownKey(t *testing.T) {
	_, err := ParseChord("Ctrl+F99")
	assert.Error(t, err)
}

func TestParseChordRejectsMissingModifier(t *testing.T) {
	_, err := ParseChord("M")
	assert.Error(t, err)
}
