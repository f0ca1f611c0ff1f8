package inspector

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mickamy/kvtap/wire"
)

func TestUpdateAppendsReceivedValues(t *testing.T) {
	t.Parallel()

	m := New("127.0.0.1:9527", nil, "lobby")
	m.width, m.height = 80, 24

	model, cmd := m.Update(connectedMsg{client: nil, subID: 7})
	m = model.(Model)
	if m.subID != 7 {
		t.Fatalf("subID = %d, want 7", m.subID)
	}
	if cmd == nil {
		t.Fatal("expected a Cmd to keep receiving")
	}

	model, _ = m.Update(valueMsg{value: wire.StringValue("hello")})
	m = model.(Model)
	if len(m.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(m.entries))
	}
	if m.entries[0].value.String != "hello" {
		t.Fatalf("entry value = %q, want hello", m.entries[0].value.String)
	}
	if m.cursor != 0 {
		t.Fatalf("cursor = %d, want 0", m.cursor)
	}
}

func TestUpdateSetsErrAndQuitsOnErrMsg(t *testing.T) {
	t.Parallel()

	m := New("127.0.0.1:9527", nil, "lobby")
	model, cmd := m.Update(errMsg{err: errors.New("boom")})
	m = model.(Model)

	if m.err == nil || m.err.Error() != "boom" {
		t.Fatalf("err = %v, want boom", m.err)
	}
	if cmd == nil {
		t.Fatal("expected tea.Quit")
	}
}

func TestViewRendersPlaceholderWhenEmpty(t *testing.T) {
	t.Parallel()

	m := New("127.0.0.1:9527", nil, "lobby")
	m.width, m.height = 80, 24
	if got := m.View(); got == "" {
		t.Fatal("expected non-empty view once width is set")
	}
}

func TestKeyMsgQuitsWithoutPanickingWithNilClient(t *testing.T) {
	t.Parallel()

	m := New("127.0.0.1:9527", nil, "lobby")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected tea.Quit for 'q'")
	}
}
