package inbox

// Rect is a screen region in terminal cells. X and Y are the top-left
// corner; W and H are zero for a region that is not drawn.
type Rect struct {
	X, Y, W, H int
}

// Contains reports whether the cell (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Panel tracks whether the notification panel is open.
type Panel struct {
	visible bool
}

// Toggle flips the panel between shown and hidden.
func (p *Panel) Toggle() { p.visible = !p.visible }

// Show opens the panel.
func (p *Panel) Show() { p.visible = true }

// Hide closes the panel.
func (p *Panel) Hide() { p.visible = false }

// Visible reports whether the panel is open.
func (p *Panel) Visible() bool { return p.visible }

// HandleClick applies a mouse click at (x, y). A click on the trigger
// toggles the panel, a click outside both the trigger and the panel hides
// it, and a click inside the panel leaves it open. It reports whether
// visibility changed.
func (p *Panel) HandleClick(x, y int, trigger, panel Rect) bool {
	before := p.visible

	switch {
	case trigger.Contains(x, y):
		p.Toggle()
	case p.visible && panel.Contains(x, y):
	default:
		p.Hide()
	}

	return p.visible != before
}
