package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"valuesift/internal/store"
	"valuesift/internal/strategy"
	"valuesift/internal/util"
)

// Theme styles the terminal output.
type Theme struct {
	Header lipgloss.Style
	ID     lipgloss.Style
	Gain   lipgloss.Style
	Loss   lipgloss.Style
	Dim    lipgloss.Style
}

// PlainTheme renders without escape sequences.
func PlainTheme() Theme {
	return Theme{
		Header: lipgloss.NewStyle(),
		ID:     lipgloss.NewStyle(),
		Gain:   lipgloss.NewStyle(),
		Loss:   lipgloss.NewStyle(),
		Dim:    lipgloss.NewStyle(),
	}
}

// ColorTheme is the theme used on a terminal.
func ColorTheme() Theme {
	return Theme{
		Header: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		ID:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Gain:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Loss:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		Dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

func (t Theme) overall(s Summary) string {
	if s.Investable == 0 {
		return t.Dim.Render("-")
	}
	if s.Overall() == "GAIN" {
		return t.Gain.Render("GAIN")
	}
	return t.Loss.Render("LOSS")
}

const historyRow = "%-36s  %-16s  %-10s  %-10s  %10s  %10s  %9s  %s\n"

// WriteRuns renders one line per run, newest first as given.
func WriteRuns(w io.Writer, runs []store.Run, theme Theme) error {
	var b strings.Builder
	b.WriteString(theme.Header.Render(fmt.Sprintf(strings.TrimSuffix(historyRow, "\n"),
		"ID", "CREATED", "BUY", "SELL", "CONSIDERED", "INVESTABLE", "SUCCESS", "RESULT")))
	b.WriteByte('\n')
	for i := range runs {
		s := FromRun(&runs[i])
		fmt.Fprintf(&b, historyRow,
			theme.ID.Render(runs[i].ID),
			runs[i].CreatedAt.Local().Format("2006-01-02 15:04"),
			s.BuyDate.Format(util.DateLayout),
			s.SellDate.Format(util.DateLayout),
			FormatInt(s.Considered),
			FormatInt(s.Investable),
			fmt.Sprintf("%.1f%%", s.SuccessRate()),
			theme.overall(s),
		)
	}
	return writeString(w, b.String())
}

// WriteRun renders a stored run in full: options, the results report and
// every per-company outcome.
func WriteRun(w io.Writer, run *store.Run, theme Theme) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (%s)\n", theme.ID.Render(run.ID), run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	if run.Ignored != "" {
		fmt.Fprintf(&b, "Ignored metrics: %s\n", run.Ignored)
	}
	b.WriteString(theme.Dim.Render(strings.TrimRight(run.Options, "\n")))
	b.WriteString("\n\n")

	s := FromRun(run)
	if err := s.Write(&b); err != nil {
		return err
	}
	if len(s.Entries) > 0 {
		b.WriteByte('\n')
	}
	for _, e := range s.Entries {
		style := theme.Loss
		if e.Outcome != strategy.LossAtEnd {
			style = theme.Gain
		}
		fmt.Fprintf(&b, "  %-8s %-22s %10s -> %-10s %s\n", e.Symbol, e.Outcome,
			FormatPrice(e.BuyPrice), FormatPrice(e.Price), style.Render(FormatChange(e.BuyPrice, e.Price)))
	}
	return writeString(w, b.String())
}
