// Package ui holds the interactive terminal surfaces: the account picker
// shown by `gitswitch switch` when no label is given.
package ui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gitswitch/cli/internal/account"
)

// ErrCancelled is returned when the user dismisses the picker.
var ErrCancelled = errors.New("selection cancelled")

var docStyle = lipgloss.NewStyle().Margin(1, 2)

type item struct {
	acct account.Account
}

func (i item) Title() string {
	title := i.acct.Label
	if i.acct.Authenticated {
		title += " ●"
	}
	return title
}

func (i item) Description() string {
	if i.acct.Username != "" {
		return fmt.Sprintf("%s <%s> @%s", i.acct.Name, i.acct.Email, i.acct.Username)
	}
	return fmt.Sprintf("%s <%s>", i.acct.Name, i.acct.Email)
}

func (i item) FilterValue() string {
	return i.acct.Label + " " + i.acct.Username + " " + i.acct.Email
}

type pickerModel struct {
	list   list.Model
	choice *account.Account
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if sel, ok := m.list.SelectedItem().(item); ok {
				m.choice = &sel.acct
			}
			return m, tea.Quit
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m pickerModel) View() string {
	if m.choice != nil {
		return ""
	}
	return docStyle.Render(m.list.View())
}

// PickAccount shows an interactive list of accounts and returns the chosen
// one, or ErrCancelled.
func PickAccount(accounts []account.Account) (*account.Account, error) {
	items := make([]list.Item, len(accounts))
	for i, a := range accounts {
		items[i] = item{acct: a}
	}

	l := list.New(items, list.NewDefaultDelegate(), 48, 16)
	l.Title = "Switch account"

	final, err := tea.NewProgram(pickerModel{list: l}).Run()
	if err != nil {
		return nil, err
	}
	m, ok := final.(pickerModel)
	if !ok || m.choice == nil {
		return nil, ErrCancelled
	}
	return m.choice, nil
}
