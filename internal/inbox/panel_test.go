package inbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPanelToggle(t *testing.T) {
	var p Panel
	assert.False(t, p.Visible())

	p.Toggle()
	assert.True(t, p.Visible())
	p.Toggle()
	assert.False(t, p.Visible())

	p.Show()
	p.Show()
	assert.True(t, p.Visible())
	p.Hide()
	assert.False(t, p.Visible())
}

func TestPanelHandleClick(t *testing.T) {
	trigger := Rect{X: 70, Y: 0, W: 10, H: 1}
	panel := Rect{X: 40, Y: 1, W: 40, H: 12}

	tests := []struct {
		name        string
		open        bool
		x, y        int
		wantOpen    bool
		wantChanged bool
	}{
		{"trigger opens", false, 72, 0, true, true},
		{"trigger closes", true, 79, 0, false, true},
		{"inside panel keeps open", true, 50, 5, true, false},
		{"outside hides", true, 5, 5, false, true},
		{"outside while hidden", false, 5, 5, false, false},
		{"panel area while hidden", false, 50, 5, false, false},
		{"just past panel edge", true, 80, 5, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Panel{visible: tt.open}
			changed := p.HandleClick(tt.x, tt.y, trigger, panel)
			assert.Equal(t, tt.wantOpen, p.Visible())
			assert.Equal(t, tt.wantChanged, changed)
		})
	}
}

func TestRectContains(t *testing.T) {
	r := Rect{X: 2, Y: 3, W: 4, H: 2}
	assert.True(t, r.Contains(2, 3))
	assert.True(t, r.Contains(5, 4))
	assert.False(t, r.Contains(6, 4))
	assert.False(t, r.Contains(5, 5))
	assert.False(t, Rect{}.Contains(0, 0))
}
