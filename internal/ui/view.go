package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hughe/shiori-share/internal/shiori"
)

// View implements tea.Model.
func (m Model) View() string {
	styles := m.theme.Styles()

	var body string
	switch m.phase {
	case phaseSaving:
		body = m.spinner.View() + " " + styles.Text.Render("Saving bookmark...")
	case phaseSuccess:
		body = m.renderSuccess(styles)
	case phaseError:
		body = m.renderError(styles)
	default:
		body = m.renderForm(styles)
	}

	var b strings.Builder
	b.WriteString(m.renderHeader(styles))
	b.WriteString("\n")
	b.WriteString(styles.Panel.Render(body))
	b.WriteString("\n")
	b.WriteString(styles.Footer.Render(m.helpLine()))
	return b.String()
}

func (m Model) renderHeader(styles Styles) string {
	parts := []string{styles.Logo.Render("shiori"), styles.Header.Render("Save to Shiori")}
	if m.server != "" {
		parts = append(parts, styles.MutedText.Render(m.server))
	}
	return strings.Join(parts, styles.FaintText.Render("  ·  "))
}

func (m Model) renderForm(styles Styles) string {
	var rows []string
	row := func(f field, label, content string) {
		labelStyle := styles.Label
		if m.focus == f {
			labelStyle = styles.FocusedLabel
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), content))
	}

	row(fieldURL, "URL", m.url.View())
	if m.notice != "" {
		rows = append(rows, strings.Repeat(" ", labelWidth)+styles.DangerText.Render(m.notice))
	}
	row(fieldTitle, "Title", m.title.View())
	row(fieldDescription, "Notes", m.description.View())
	row(fieldKeywords, "Keywords", m.keywords.View())
	if tags := m.renderTags(styles); tags != "" {
		rows = append(rows, strings.Repeat(" ", labelWidth)+tags)
	}
	row(fieldArchive, "Archive", checkbox(m.createArchive)+" Create archive")
	row(fieldPublic, "Public", checkbox(m.makePublic)+" Make public")
	return strings.Join(rows, "\n")
}

// renderTags shows completions for the tag being typed, or else the most
// recent tags numbered for alt+N.
func (m Model) renderTags(styles Styles) string {
	if suggestions := Suggestions(m.recent, m.keywords.Value()); len(suggestions) > 0 {
		rendered := make([]string, len(suggestions))
		for i, s := range suggestions {
			rendered[i] = styles.Suggestion.Render(s)
		}
		return strings.Join(rendered, " ")
	}
	recent := chips(m.recent)
	if len(recent) == 0 {
		return ""
	}
	rendered := make([]string, len(recent))
	for i, tag := range recent {
		rendered[i] = styles.Chip.Render(fmt.Sprintf("%d %s", (i+1)%10, tag))
	}
	return strings.Join(rendered, " ")
}

func (m Model) renderSuccess(styles Styles) string {
	msg := styles.SuccessText.Render("✓ Bookmark saved!")
	if id := m.result.Bookmark.ID; id != 0 {
		msg += styles.MutedText.Render(fmt.Sprintf("  (id %d)", id))
	}
	return msg
}

func (m Model) renderError(styles Styles) string {
	text := "Save failed"
	if m.err != nil {
		text = m.err.Error()
	}
	return styles.WarningText.Render("⚠ ") + styles.DangerText.Render(text)
}

func (m Model) helpLine() string {
	switch m.phase {
	case phaseSaving:
		return "esc cancel"
	case phaseSuccess:
		return "any key close"
	case phaseError:
		if shiori.IsRetryable(m.err) {
			return "r retry  e edit  esc close"
		}
		return "e edit  esc close"
	}
	help := "ctrl+s save  tab next  esc cancel  ctrl+t theme"
	if m.focus == fieldKeywords {
		help = "tab complete  alt+N add tag  " + help
	}
	if m.focus == fieldArchive || m.focus == fieldPublic {
		help = "space toggle  " + help
	}
	return help
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}
