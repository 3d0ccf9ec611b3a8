package overlay

import (
	"fmt"
	"interactiveplayer/internal/models"
	"io"
	"sync"
)

// Console renders moments as plain text. Choices are numbered from 1 while their moment is shown.
// It is safe for concurrent use.
type Console struct {
	mu      sync.Mutex
	w       io.Writer
	shown   []models.Moment
	choices []models.Choice
}

// NewConsole creates a console overlay writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// MomentShown prints the moment's text and its choices.
func (c *Console) MomentShown(m models.Moment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.shown = append(c.shown, m)
	c.rebuildChoices()

	if m.BodyText != "" {
		fmt.Fprintf(c.w, "[%s] %s\n", m.ID, m.BodyText)
	} else {
		fmt.Fprintf(c.w, "[%s] (%s)\n", m.ID, m.Kind)
	}
	for i, choice := range c.choices {
		if choice.MomentID == m.ID {
			fmt.Fprintf(c.w, "  %d) %s\n", i+1, choice.Text)
		}
	}
}

// MomentHidden removes the moment and its choices.
func (c *Console) MomentHidden(m models.Moment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.shown {
		if c.shown[i].ID == m.ID {
			c.shown = append(c.shown[:i], c.shown[i+1:]...)
			break
		}
	}
	c.rebuildChoices()
	fmt.Fprintf(c.w, "[%s] hidden\n", m.ID)
}

// Fatal prints a terminal failure notice.
func (c *Console) Fatal(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "cannot load content: %v\n", err)
}

// Choice returns the n-th (1-based) choice currently on screen.
func (c *Console) Choice(n int) (models.Choice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < 1 || n > len(c.choices) {
		return models.Choice{}, false
	}
	return c.choices[n-1], true
}

// Visible returns the ids of shown moments in the order they appeared.
func (c *Console) Visible() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.shown))
	for _, m := range c.shown {
		ids = append(ids, m.ID)
	}
	return ids
}

func (c *Console) rebuildChoices() {
	c.choices = c.choices[:0]
	for _, m := range c.shown {
		c.choices = append(c.choices, m.Choices...)
	}
}
