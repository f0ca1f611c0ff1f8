// Package inspector is a live bubbletea TUI that subscribes to a kvtap
// topic and renders every value published to it as it arrives.
package inspector

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/mickamy/kvtap/client"
	"github.com/mickamy/kvtap/highlight"
	"github.com/mickamy/kvtap/tlsconf"
	"github.com/mickamy/kvtap/wire"
)

// entry is one value received on the subscription, stamped with arrival
// time for display.
type entry struct {
	receivedAt time.Time
	value      wire.Value
}

// connectedMsg carries the dialed client and its allocated subscription
// id back to Update once Subscribe completes.
type connectedMsg struct {
	client *client.Client
	subID  uint32
}

// valueMsg carries one published value.
type valueMsg struct{ value wire.Value }

// errMsg carries a fatal connection or read error.
type errMsg struct{ err error }

// Model is the Bubble Tea model driving the inspector view.
type Model struct {
	addr      string
	connector *tlsconf.ClientConnector
	topic     string

	client *client.Client
	subID  uint32

	entries []entry
	cursor  int
	width   int
	height  int
	err     error
}

// New returns a Model that will dial addr and subscribe to topic once
// started.
func New(addr string, connector *tlsconf.ClientConnector, topic string) Model {
	return Model{addr: addr, connector: connector, topic: topic}
}

// Init connects and subscribes.
func (m Model) Init() tea.Cmd {
	return connect(m.addr, m.connector, m.topic)
}

func connect(addr string, connector *tlsconf.ClientConnector, topic string) tea.Cmd {
	return func() tea.Msg {
		c, err := client.Dial(addr, connector)
		if err != nil {
			return errMsg{err: fmt.Errorf("dial %s: %w", addr, err)}
		}
		id, err := c.Subscribe(topic)
		if err != nil {
			_ = c.Close()
			return errMsg{err: fmt.Errorf("subscribe %q: %w", topic, err)}
		}
		return connectedMsg{client: c, subID: id}
	}
}

func recvValue(c *client.Client) tea.Cmd {
	return func() tea.Msg {
		resp, err := c.Recv()
		if err != nil {
			return errMsg{err: err}
		}
		if len(resp.Values) == 0 {
			return valueMsg{}
		}
		return valueMsg{value: resp.Values[0]}
	}
}

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case connectedMsg:
		m.client = msg.client
		m.subID = msg.subID
		return m, recvValue(m.client)

	case valueMsg:
		m.entries = append(m.entries, entry{receivedAt: time.Now(), value: msg.value})
		m.cursor = max(len(m.entries)-1, 0)
		return m, recvValue(m.client)

	case errMsg:
		m.err = msg.err
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			// Closing the connection (rather than sending an explicit
			// Unsubscribe, which would race the in-flight Recv) is
			// enough: the server unsubscribes every subscription still
			// open on a connection when that connection ends.
			if m.client != nil {
				_ = m.client.Close()
			}
			return m, tea.Quit
		case "j", "down":
			if m.cursor < len(m.entries)-1 {
				m.cursor++
			}
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}
	return m, nil
}

// View renders the received-values list.
func (m Model) View() string {
	if m.width == 0 {
		return ""
	}
	if m.err != nil {
		return lipgloss.NewStyle().Width(m.width).Render("Error: " + m.err.Error())
	}

	title := fmt.Sprintf(" kvtap inspector — topic %q (subscription #%d, %d values) ",
		m.topic, m.subID, len(m.entries))

	innerWidth := max(m.width-4, 20)
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(innerWidth)

	maxRows := max(m.height-4, 1)
	start := 0
	if len(m.entries) > maxRows {
		start = len(m.entries) - maxRows
	}

	var rows []string
	for i := start; i < len(m.entries); i++ {
		rows = append(rows, m.renderRow(i, innerWidth))
	}
	if len(rows) == 0 {
		rows = append(rows, "waiting for values...")
	}

	box := border.Render(strings.Join(rows, "\n"))
	lines := strings.Split(box, "\n")
	if len(lines) > 0 {
		borderFg := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
		titleStyle := lipgloss.NewStyle().Bold(true)
		dashes := max(innerWidth-len([]rune(title)), 0)
		lines[0] = borderFg.Render("╭") + titleStyle.Render(title) + borderFg.Render(strings.Repeat("─", dashes)+"╮")
		box = strings.Join(lines, "\n")
	}

	footer := "q: quit  j/k: scroll"
	return box + "\n" + footer
}

func (m Model) renderRow(i int, width int) string {
	e := m.entries[i]
	marker := "  "
	if i == m.cursor {
		marker = "▶ "
	}

	t := e.receivedAt.Format("15:04:05.000")
	rendered := renderValue(e.value)
	rendered = ansi.Truncate(rendered, max(width-len(t)-4, 10), "…")

	row := fmt.Sprintf("%s%s  %s", marker, t, rendered)
	if i == m.cursor {
		row = lipgloss.NewStyle().Bold(true).Render(row)
	}
	return row
}

// renderValue formats a wire.Value for display, syntax-highlighting
// string and byte payloads that look like JSON.
func renderValue(v wire.Value) string {
	switch v.Kind {
	case wire.KindString:
		return highlight.Value(v.String)
	case wire.KindBytes:
		return highlight.Value(string(v.Bytes))
	case wire.KindInt64:
		return fmt.Sprintf("%d", v.Int64)
	case wire.KindFloat64:
		return fmt.Sprintf("%g", v.Float64)
	case wire.KindBool:
		return fmt.Sprintf("%t", v.Bool)
	default:
		return "<unset>"
	}
}
