package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const logo = `╔╦╗╔╦╗  ╔═╗╔═╗╦═╗╔═╗╔═╗╔═╗╦═╗
 ║ ║║║  ╚═╗║  ╠╦╝╠═╣╠═╝║╣ ╠╦╝
 ╩ ╩ ╩  ╚═╝╚═╝╩╚═╩ ╩╩  ╚═╝╩╚═`

// View renders the current screen
func (m *Model) View() string {
	if m.state == StateQuit {
		return ""
	}

	sections := []string{m.renderHeader(), m.renderBody()}
	if m.status != "" {
		style := successStyle
		if m.statusErr {
			style = errorStyle
		}
		sections = append(sections, "  "+style.Render(m.status))
	}
	sections = append(sections, helpStyle.Render(m.helpText()))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderHeader() string {
	sub := "Image dataset builder for Teachable Machine"
	if m.opts.Version != "" {
		sub += " v" + strings.TrimPrefix(m.opts.Version, "v")
	}
	if m.sess.Dirty {
		sub += "  " + warningStyle.Render("(unsaved changes)")
	}
	return lipgloss.JoinVertical(lipgloss.Left, logoStyle.Render(logo), subtitleStyle.Render(sub))
}

func (m *Model) renderBody() string {
	switch m.state {
	case StateMainMenu:
		return m.panel("What do you want to do next?", m.renderMenu())
	case StateSettings:
		return m.panel("Configuration", m.renderMenu())
	case StateClassList:
		return m.panel(fmt.Sprintf("Classes (%d)", m.sess.Scrape.Len()), m.renderMenu())
	case StateClassEdit:
		return m.panel("Class "+m.currentClass().Name, m.renderClassDetails()+"\n\n"+m.renderMenu())
	case StateClassField, StateManifestField:
		return m.panel("Edit", labelStyle.Render(fieldPrompts[m.field])+m.input.View())
	case StateConfirmRemove:
		return m.panel("Remove class",
			errorStyle.Render(fmt.Sprintf("You are about to remove class '%s'. Are you sure? (y/n)", m.currentClass().Name)))
	case StateManifestEdit:
		return m.panel("Manifest", m.renderMenu())
	case StateSavePrompt:
		return m.panel("Save scrape configuration", m.renderPathPrompt())
	case StateLoadPrompt:
		return m.panel("Load scrape configuration", m.renderPathPrompt())
	case StatePackPrompt:
		return m.panel("Pack images into a tm file", m.renderPathPrompt())
	case StateScraping, StatePacking:
		return m.renderRun()
	case StateDone:
		return m.renderDone()
	case StateExitConfirm:
		return m.panel("Exit",
			warningStyle.Render("Warning: Changes are not saved automatically. Do you want to save them? (y/n)"))
	}
	return ""
}

func (m *Model) panel(title, content string) string {
	body := lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(" "+title+" "), "", content)
	style := panelStyle
	if m.width > 4 {
		style = style.Width(m.width - 4)
	}
	return style.Render(body)
}

func (m *Model) renderMenu() string {
	items := m.menuItems()
	lines := make([]string, len(items))
	for i, item := range items {
		if i == m.cursor {
			lines[i] = menuActiveStyle.Render("> " + item)
			continue
		}
		lines[i] = menuItemStyle.Render("  " + item)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderClassDetails() string {
	c := m.currentClass()
	rows := []string{
		labelStyle.Render("Name:   ") + valueStyle.Render(c.Name),
		labelStyle.Render("Query:  ") + valueStyle.Render(c.Query),
		labelStyle.Render("Folder: ") + valueStyle.Render(c.Folder),
	}
	return strings.Join(rows, "\n")
}

func (m *Model) renderPathPrompt() string {
	prompt := labelStyle.Render("Type file path: ") + m.input.View()
	if m.busy {
		prompt += "\n\n" + m.spinner.View() + " " + m.status
	}
	return prompt
}

func (m *Model) renderRun() string {
	var lines []string

	heading := m.spinner.View() + " " + m.runTitle
	if m.state == StateScraping {
		if m.classTotal > 0 {
			heading += fmt.Sprintf(" %s (%d/%d)", m.className, m.classIndex+1, m.classTotal)
		} else {
			heading += "; this may take a while..."
		}
	}
	lines = append(lines, warningStyle.Render(heading), "", m.progress.ViewAs(m.ratio), "")

	shown := m.logLines
	if limit := m.logRows(); len(shown) > limit {
		shown = shown[len(shown)-limit:]
	}
	for _, l := range shown {
		lines = append(lines, logLineStyle(l).Render(l))
	}

	return m.panel(m.runTitle, strings.Join(lines, "\n"))
}

// logRows is how many log lines fit under the progress bar
func (m *Model) logRows() int {
	if m.height <= 0 {
		return 10
	}
	return clamp(m.height-18, 3, maxLogLines)
}

func (m *Model) renderDone() string {
	lines := make([]string, 0, len(m.summary))
	for i, l := range m.summary {
		switch {
		case i == 0 && strings.HasSuffix(l, "finished."):
			lines = append(lines, successStyle.Render(l))
		case i == 0:
			lines = append(lines, errorStyle.Render(l))
		case strings.HasPrefix(l, "You "):
			lines = append(lines, warningStyle.Render(l))
		default:
			lines = append(lines, logMessageStyle.Render(l))
		}
	}
	lines = append(lines, "", "Press any key to continue...")
	return m.panel("Done", strings.Join(lines, "\n"))
}

func (m *Model) helpText() string {
	switch m.state {
	case StateClassField, StateManifestField, StateSavePrompt, StateLoadPrompt, StatePackPrompt:
		return "enter: confirm • esc: cancel"
	case StateConfirmRemove, StateExitConfirm:
		return "y: yes • n: no • esc: back"
	case StateScraping, StatePacking:
		return "esc: cancel"
	case StateDone:
		return "any key: continue"
	}
	return "↑/↓: move • enter: select • esc: back • ctrl+c: quit"
}
