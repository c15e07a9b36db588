package notify

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/ladderbot/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console imprime el estado del ladder por mercado en una tabla.
type Console struct {
	out io.Writer
	now func() time.Time
}

// NewConsole crea un reporter que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout, now: time.Now}
}

// NewConsoleWriter crea un reporter para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w, now: time.Now}
}

// Report imprime una fila por mercado con su ladder actual.
func (c *Console) Report(markets []*domain.TrackedMarket) {
	if len(markets) == 0 {
		fmt.Fprintf(c.out, "[%s] no markets tracked\n", c.now().Format("15:04:05"))
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Market", "Orders", "Ladder", "Cancels", "Cooldown")

	now := c.now()
	for i, m := range markets {
		name := m.Title
		if name == "" {
			name = truncate(m.ID, 16)
		}

		cooldown := "-"
		if m.InCooldown(now) {
			cooldown = m.CooldownUntil.Sub(now).Round(time.Second).String()
		}

		table.Append(
			fmt.Sprintf("%d", i+1),
			truncate(name, 40),
			fmt.Sprintf("%d", len(m.Orders)),
			ladderLabel(m),
			fmt.Sprintf("%d", m.CancelCount),
			cooldown,
		)
	}
	table.Render()
}

// ladderLabel resume los precios del ladder en "top..bottom".
func ladderLabel(m *domain.TrackedMarket) string {
	if len(m.Orders) == 0 {
		return "-"
	}
	if len(m.Orders) == 1 {
		return fmt.Sprintf("%.3f", m.Orders[0].Price)
	}
	return fmt.Sprintf("%.3f..%.3f", m.Top(), m.Bottom())
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max-3]) + "..."
}
