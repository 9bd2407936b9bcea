package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentences(t *testing.T) {
	got := Sentences("Fire burns. Cold freezes!  And a tail without stop")
	assert.Equal(t, []string{"Fire burns.", "Cold freezes!", "And a tail without stop"}, got)
	assert.Nil(t, Sentences("   "))
}

func TestWindow(t *testing.T) {
	s := []string{"a.", "b.", "c.", "d."}
	assert.Equal(t, []string{"a. b. c.", "c. d."}, Window(s, 3, 1))
	assert.Equal(t, []string{"a. b. c. d."}, Window(s, 10, 0))
	assert.Nil(t, Window(nil, 3, 1))
}

func TestContentTokens(t *testing.T) {
	assert.Equal(t, []string{"ring", "fire", "resistance", "10"}, ContentTokens("The Ring of Fire Resistance 10"))
	assert.Equal(t, []string{"bonus", "potenziamento", "destrezza"}, ContentTokens("bonus di potenziamento alla destrezza"))
}

func TestOchiai(t *testing.T) {
	q := TokenSet("fire ring")
	assert.InDelta(t, 1.0, Ochiai(q, "ring fire"), 1e-9)
	assert.InDelta(t, 0.0, Ochiai(q, "cold boots"), 1e-9)
	assert.InDelta(t, 1/2.0, Ochiai(q, "fire boots"), 1e-9)
	assert.Zero(t, Ochiai(map[string]struct{}{}, "anything"))
}
