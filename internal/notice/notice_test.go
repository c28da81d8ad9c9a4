package notice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoardDrain(t *testing.T) {
	var b Board
	b.Notify(Error("Connection failed", "retry later"))
	b.Notify(Info("Joined", "chat is live"))

	got := b.Drain()
	assert.Len(t, got, 2)
	assert.Equal(t, LevelError, got[0].Level)
	assert.True(t, got[0].Dismissible)
	assert.Equal(t, "info", got[1].Level.String())

	assert.Empty(t, b.Drain())
}

func TestFuncAdapter(t *testing.T) {
	var seen []string
	var n Notifier = Func(func(n Notice) { seen = append(seen, n.Title) })

	n.Notify(Error("a", ""))
	assert.Equal(t, []string{"a"}, seen)
}
