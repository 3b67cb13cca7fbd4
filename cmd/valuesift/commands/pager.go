package commands

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	pagerHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	pagerFooterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8"))
)

// pager is a full-screen scrollable view of already rendered output.
type pager struct {
	title    string
	content  string
	width    int
	viewport viewport.Model
	ready    bool
}

func newPager(title, content string) pager {
	return pager{title: title, content: content}
}

func (m pager) Init() tea.Cmd { return nil }

func (m pager) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		// One line each for the header and footer bars.
		vpHeight := msg.Height - 2
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, vpHeight)
			m.viewport.MouseWheelEnabled = true
			m.viewport.SetContent(m.content)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = vpHeight
		}
		return m, nil
	}

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m pager) View() string {
	if !m.ready {
		return "loading..."
	}
	header := pagerHeaderStyle.Width(m.width).Render(" " + m.title)
	footer := pagerFooterStyle.Width(m.width).Render(
		fmt.Sprintf(" q quit  up/dn pgup/pgdn scroll  %3.0f%%", m.viewport.ScrollPercent()*100))
	return header + "\n" + m.viewport.View() + "\n" + footer
}

// page renders through write and shows the result in the pager when
// --pager is set and stdout is a terminal. Otherwise it writes straight to
// the command's output.
func page(cmd *cobra.Command, title string, write func(io.Writer) error) error {
	if !usePager || !isatty.IsTerminal(os.Stdout.Fd()) {
		return write(cmd.OutOrStdout())
	}

	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}
	p := tea.NewProgram(
		newPager(title, buf.String()),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(cmd.Context()),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("pager: %w", err)
	}
	return nil
}
