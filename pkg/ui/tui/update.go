package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"tmscraper/pkg/packer"
	"tmscraper/pkg/scraper"
	"tmscraper/pkg/session"
)

// Message types for the TUI

// ClassStartMsg is sent when the scrape moves on to a class
type ClassStartMsg struct {
	Index int
	Total int
	Class session.ClassConfig
}

// ProgressMsg carries the completed fraction of the current step
type ProgressMsg struct {
	Ratio float64
}

// LogMsg is one user-facing line from a run
type LogMsg struct {
	Text string
}

// FinishedMsg ends a scrape or pack run
type FinishedMsg struct {
	Kind    string // "scrape" or "pack"
	Report  *scraper.Report
	Archive string
	Result  packer.Result
	Err     error
}

type savedMsg struct {
	path string
	err  error
}

type loadedMsg struct {
	sess *session.Session
	path string
	err  error
}

const (
	runScrape = "scrape"
	runPack   = "pack"
)

// Update handles a message and returns the next command
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = clamp(msg.Width-20, 20, 80)

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)

	case tea.KeyMsg:
		cmd = m.handleKey(msg)

	case ClassStartMsg:
		m.classIndex = msg.Index
		m.classTotal = msg.Total
		m.className = msg.Class.Name
		m.ratio = 0
		m.appendLog(fmt.Sprintf("Scraping %s (%d/%d)", msg.Class.Name, msg.Index+1, msg.Total))
		cmd = m.listen()

	case ProgressMsg:
		m.ratio = msg.Ratio
		cmd = m.listen()

	case LogMsg:
		m.appendLog(msg.Text)
		cmd = m.listen()

	case FinishedMsg:
		m.finish(msg)

	case savedMsg:
		m.saved(msg)

	case loadedMsg:
		m.loaded(msg)
	}

	if m.state == StateQuit {
		return m, tea.Quit
	}
	return m, cmd
}

// fire applies e to the current state. Unknown moves are ignored.
func (m *Model) fire(e Event) bool {
	to, ok := Next(m.state, e)
	if !ok {
		return false
	}
	m.logger.DebugWithFields("wizard transition", map[string]interface{}{
		"from": m.state.String(),
		"to":   to.String(),
	})
	m.state = to
	m.cursor = 0
	return true
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyCtrlC {
		return m.interrupt()
	}
	if m.busy {
		return nil
	}
	m.setStatus("", false)

	switch m.state {
	case StateMainMenu, StateSettings, StateClassList, StateClassEdit, StateManifestEdit:
		return m.handleMenuKey(msg)
	case StateClassField, StateManifestField, StateSavePrompt, StateLoadPrompt, StatePackPrompt:
		return m.handleInputKey(msg)
	case StateConfirmRemove, StateExitConfirm:
		m.handleConfirmKey(msg)
	case StateScraping, StatePacking:
		if msg.Type == tea.KeyEsc && m.cancel != nil {
			m.appendLog("Cancelling...")
			m.cancel()
		}
	case StateDone:
		m.summary = nil
		m.fire(EventContinue)
	}
	return nil
}

// interrupt handles ctrl+c: it stops a run, leaves a sub screen, or starts
// the exit flow from the main menu
func (m *Model) interrupt() tea.Cmd {
	switch m.state {
	case StateScraping, StatePacking:
		if m.cancel != nil {
			m.appendLog("Cancelling...")
			m.cancel()
		}
	case StateMainMenu:
		m.requestExit()
	case StateExitConfirm:
		m.fire(EventNo)
	default:
		if !m.busy {
			m.back()
		}
	}
	return nil
}

func (m *Model) requestExit() {
	if m.sess.Dirty {
		m.fire(EventExitDirty)
		return
	}
	m.fire(EventExit)
}

// back leaves the current screen the way esc does
func (m *Model) back() {
	switch m.state {
	case StateSettings, StateClassList, StateClassEdit, StateManifestEdit:
		m.fire(EventBack)
	case StateClassField, StateManifestField, StatePackPrompt, StateLoadPrompt:
		m.input.Blur()
		m.fire(EventCancel)
	case StateSavePrompt:
		m.input.Blur()
		m.exitAfterSave = false
		m.fire(EventCancel)
	case StateConfirmRemove:
		m.fire(EventNo)
	case StateExitConfirm:
		m.fire(EventCancel)
	case StateDone:
		m.fire(EventContinue)
	}
}

func (m *Model) handleMenuKey(msg tea.KeyMsg) tea.Cmd {
	items := m.menuItems()
	switch msg.String() {
	case "up", "k":
		m.cursor--
		if m.cursor < 0 {
			m.cursor = len(items) - 1
		}
	case "down", "j", "tab":
		m.cursor++
		if m.cursor >= len(items) {
			m.cursor = 0
		}
	case "esc":
		m.back()
	case "enter":
		return m.choose(m.cursor)
	}
	return nil
}

// choose acts on menu entry i of the current screen
func (m *Model) choose(i int) tea.Cmd {
	switch m.state {
	case StateMainMenu:
		switch i {
		case 0:
			m.fire(EventEditConfig)
		case 1:
			m.fire(EventScrape)
			return m.startScrape()
		case 2:
			m.fire(EventPack)
			return m.openInput("")
		case 3:
			m.fire(EventSave)
			return m.openInput("")
		case 4:
			m.fire(EventLoad)
			return m.openInput("")
		case 5:
			m.requestExit()
		}

	case StateSettings:
		switch i {
		case 0:
			m.fire(EventEditClasses)
		case 1:
			m.fire(EventEditManifest)
		case 2:
			m.fire(EventBack)
		}

	case StateClassList:
		n := m.sess.Scrape.Len()
		switch {
		case i == 0:
			m.fire(EventBack)
		case i == n+1:
			m.addClass()
		default:
			m.class = i - 1
			m.fire(EventSelect)
		}

	case StateClassEdit:
		switch i {
		case 0, 1, 2:
			m.field = field(i)
			m.fire(EventEditField)
			return m.openInput(m.fieldValue(m.field))
		case 3:
			if m.sess.Scrape.Len() <= session.MinClasses {
				m.setStatus("Classes must have at least two classes!", true)
				return nil
			}
			m.fire(EventRemove)
		case 4:
			m.fire(EventBack)
		}

	case StateManifestEdit:
		if i == 0 {
			m.fire(EventBack)
			return nil
		}
		m.field = fieldEpochs + field(i-1)
		m.fire(EventEditField)
		return m.openInput(m.fieldValue(m.field))
	}
	return nil
}

func (m *Model) addClass() {
	d := session.NewClassDefaults()
	name := m.uniqueClassName(d.Name)
	err := m.sess.Mutate(func(sc *session.ScrapeConfiguration, _ *session.ManifestConfiguration) error {
		return sc.AddClass(name, d.Query, d.Folder)
	})
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.fire(EventAdd)
	// keep the cursor on the new entry
	m.cursor = m.sess.Scrape.Len()
}

func (m *Model) openInput(value string) tea.Cmd {
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) handleInputKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.back()
		return nil
	case tea.KeyEnter:
		return m.submit(strings.TrimSpace(m.input.Value()))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

// submit applies the text prompt value for the current screen
func (m *Model) submit(value string) tea.Cmd {
	switch m.state {
	case StateClassField:
		err := m.sess.Mutate(func(sc *session.ScrapeConfiguration, _ *session.ManifestConfiguration) error {
			switch m.field {
			case fieldName:
				return sc.SetName(m.class, value)
			case fieldQuery:
				return sc.SetQuery(m.class, value)
			default:
				return sc.SetFolder(m.class, value)
			}
		})
		if err != nil {
			m.setStatus(err.Error(), true)
			return nil
		}
		edited := int(m.field)
		m.input.Blur()
		m.fire(EventSubmit)
		m.cursor = edited

	case StateManifestField:
		err := m.sess.Mutate(func(_ *session.ScrapeConfiguration, mf *session.ManifestConfiguration) error {
			switch m.field {
			case fieldEpochs:
				return mf.SetEpochsString(value)
			case fieldBatchSize:
				return mf.SetBatchSizeString(value)
			default:
				return mf.SetLearningRateString(value)
			}
		})
		if err != nil {
			m.setStatus(err.Error(), true)
			return nil
		}
		edited := int(m.field-fieldEpochs) + 1
		m.input.Blur()
		m.fire(EventSubmit)
		m.cursor = edited

	case StateSavePrompt:
		if value == "" {
			m.setStatus("Type a file path", true)
			return nil
		}
		m.busy = true
		m.setStatus("Saving...", false)
		return saveCmd(m.sess, value)

	case StateLoadPrompt:
		if value == "" {
			m.setStatus("Type a file path", true)
			return nil
		}
		m.busy = true
		m.setStatus("Loading...", false)
		return loadCmd(value)

	case StatePackPrompt:
		if value == "" {
			m.setStatus("Type a file path", true)
			return nil
		}
		m.input.Blur()
		m.fire(EventSubmit)
		return m.startPack(value)
	}
	return nil
}

func (m *Model) handleConfirmKey(msg tea.KeyMsg) {
	switch strings.ToLower(msg.String()) {
	case "y":
		if m.state == StateConfirmRemove {
			err := m.sess.Mutate(func(sc *session.ScrapeConfiguration, _ *session.ManifestConfiguration) error {
				return sc.RemoveClass(m.class)
			})
			if err != nil {
				m.setStatus(err.Error(), true)
				m.fire(EventNo)
				return
			}
			m.fire(EventYes)
			return
		}
		m.exitAfterSave = true
		m.fire(EventYes)
		m.input.SetValue("")
		m.input.Focus()
	case "n":
		m.fire(EventNo)
	case "esc":
		m.back()
	}
}

func saveCmd(sess *session.Session, base string) tea.Cmd {
	return func() tea.Msg {
		path, err := sess.Save(base)
		return savedMsg{path: path, err: err}
	}
}

func loadCmd(path string) tea.Cmd {
	return func() tea.Msg {
		sess, err := session.Load(path)
		return loadedMsg{sess: sess, path: path, err: err}
	}
}

func (m *Model) saved(msg savedMsg) {
	m.busy = false
	if msg.err != nil {
		m.logger.WithError(msg.err).Warn("failed to save session")
		m.setStatus(fmt.Sprintf("Could not save configuration: %v", msg.err), true)
		return
	}
	m.logger.InfoWithFields("session saved", map[string]interface{}{"path": msg.path})
	m.input.Blur()
	m.setStatus(fmt.Sprintf("Successfully saved configuration to %s", msg.path), false)
	if m.exitAfterSave {
		m.fire(EventSavedQuit)
		return
	}
	m.fire(EventSaved)
}

func (m *Model) loaded(msg loadedMsg) {
	m.busy = false
	if msg.err != nil {
		m.logger.WithError(msg.err).Warn("failed to load session")
		m.setStatus(fmt.Sprintf("Could not load configuration: %v", msg.err), true)
		return
	}
	m.logger.InfoWithFields("session loaded", map[string]interface{}{"path": msg.path})
	m.sess = msg.sess
	m.input.Blur()
	m.setStatus(fmt.Sprintf("Loaded configuration from %s", msg.path), false)
	m.fire(EventLoaded)
}

// beginRun resets the run view and returns the channel and send function
// used by the worker goroutine
func (m *Model) beginRun(title string) (context.Context, chan tea.Msg, func(tea.Msg)) {
	ctx, cancel := context.WithCancel(m.ctx)
	ch := make(chan tea.Msg, eventBuffer)

	m.cancel = cancel
	m.events = ch
	m.runTitle = title
	m.classIndex, m.classTotal, m.className = 0, 0, ""
	m.ratio = 0
	m.logLines = nil
	m.summary = nil

	send := func(msg tea.Msg) {
		select {
		case ch <- msg:
		case <-ctx.Done():
		}
	}
	return ctx, ch, send
}

func (m *Model) startScrape() tea.Cmd {
	ctx, ch, send := m.beginRun("Scraping")
	cancel := m.cancel
	runner := m.opts.Scraper
	classes := m.sess.Scrape.ClassList()
	m.logger.InfoWithFields("scrape started from wizard", map[string]interface{}{"classes": len(classes)})

	return func() tea.Msg {
		if runner == nil {
			cancel()
			return FinishedMsg{Kind: runScrape, Err: errors.New("scraping is not configured")}
		}
		go func() {
			defer cancel()
			report, err := runner.Run(ctx, classes, scraper.Hooks{
				OnClassStart: func(index, total int, class session.ClassConfig) {
					send(ClassStartMsg{Index: index, Total: total, Class: class})
				},
				OnLog: func(_ session.ClassConfig, message string) {
					send(LogMsg{Text: message})
				},
				OnProgress: func(_ session.ClassConfig, ratio float64) {
					send(ProgressMsg{Ratio: ratio})
				},
			})
			ch <- FinishedMsg{Kind: runScrape, Report: report, Err: err}
		}()
		return <-ch
	}
}

func (m *Model) startPack(out string) tea.Cmd {
	ctx, ch, send := m.beginRun("Packing")
	cancel := m.cancel
	pack := m.opts.Pack
	sess := m.sess
	m.logger.InfoWithFields("pack started from wizard", map[string]interface{}{"out": out})

	return func() tea.Msg {
		if pack == nil {
			cancel()
			return FinishedMsg{Kind: runPack, Err: errors.New("packing is not configured")}
		}
		go func() {
			defer cancel()
			path, res, err := pack(ctx, sess, out,
				func(ratio float64) { send(ProgressMsg{Ratio: ratio}) },
				func(message string) { send(LogMsg{Text: message}) },
			)
			ch <- FinishedMsg{Kind: runPack, Archive: path, Result: res, Err: err}
		}()
		return <-ch
	}
}

// listen waits for the next message of the current run
func (m *Model) listen() tea.Cmd {
	ch := m.events
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (m *Model) finish(msg FinishedMsg) {
	m.cancel = nil
	m.events = nil
	m.summary = summarize(msg, m.opts.OutputDir)

	fields := map[string]interface{}{"kind": msg.Kind}
	if msg.Err != nil {
		m.logger.WithError(msg.Err).WarnWithFields("wizard run ended with error", fields)
	} else {
		m.logger.InfoWithFields("wizard run finished", fields)
	}
	m.fire(EventFinished)
}

// summarize turns a finished run into the lines of the done screen
func summarize(msg FinishedMsg, outputDir string) []string {
	var lines []string

	switch msg.Kind {
	case runScrape:
		if msg.Report != nil && msg.Report.OutputDir != "" {
			outputDir = msg.Report.OutputDir
		}
		switch {
		case errors.Is(msg.Err, context.Canceled):
			lines = append(lines, "Scraping cancelled.")
		case msg.Err != nil:
			lines = append(lines, fmt.Sprintf("Scraping failed: %v", msg.Err))
		default:
			lines = append(lines, "Scraping finished.")
		}
		if msg.Report != nil {
			for _, c := range msg.Report.Classes {
				line := fmt.Sprintf("%s: %d saved, %d failed, %d skipped", c.Class.Name, c.Result.Saved, c.Result.Failed, c.Result.Skipped)
				if c.Result.TimedOut {
					line += " (timed out)"
				}
				lines = append(lines, line)
			}
		}
		if msg.Err == nil {
			lines = append(lines,
				fmt.Sprintf("You can now view the images in the %s folder.", outputDir),
				"You should remove unrelated images before packing to tm file for more accuracy.",
			)
		}

	case runPack:
		switch {
		case errors.Is(msg.Err, context.Canceled):
			lines = append(lines, "Packing cancelled.")
		case msg.Err != nil:
			lines = append(lines, fmt.Sprintf("Packing failed: %v", msg.Err))
		default:
			lines = append(lines,
				"Packing finished.",
				fmt.Sprintf("%d of %d images packed, %d skipped.", msg.Result.Written, msg.Result.Total, msg.Result.Skipped),
				fmt.Sprintf("Successfully saved to %s.", msg.Archive),
			)
		}
	}
	return lines
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
