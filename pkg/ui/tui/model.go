package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"tmscraper/pkg/logger"
	"tmscraper/pkg/packer"
	"tmscraper/pkg/scraper"
	"tmscraper/pkg/session"
)

const (
	maxLogLines = 50
	// run events queued before the worker waits on the UI
	eventBuffer = 64
)

var (
	mainMenuItems = []string{
		"Edit configurations (Classes, Scrape, Manifest)",
		"Scrape images (Start scraping)",
		"Pack images into a tm file",
		"Save configuration",
		"Load configuration",
		"Exit",
	}
	settingsItems = []string{
		"Edit class configuration (Search query, folder name, etc.)",
		"Edit manifest configuration (Epochs, batch size, etc.)",
		"Back",
	}
	classEditItems = []string{"Class Name", "Scrape Query", "Folder Name", "Remove Class", "Done"}
)

// field is the value a text prompt edits
type field int

const (
	fieldName field = iota
	fieldQuery
	fieldFolder
	fieldEpochs
	fieldBatchSize
	fieldLearningRate
)

var fieldPrompts = map[field]string{
	fieldName:         "Type class name: ",
	fieldQuery:        "Type scrape query: ",
	fieldFolder:       "Type folder name: ",
	fieldEpochs:       "Type epochs: ",
	fieldBatchSize:    "Type batch size: ",
	fieldLearningRate: "Type learning rate: ",
}

// ScrapeRunner downloads images for a list of classes
type ScrapeRunner interface {
	Run(ctx context.Context, classes []session.ClassConfig, hooks scraper.Hooks) (*scraper.Report, error)
}

// PackFunc packs the images of sess into the archive named out and returns
// the archive path
type PackFunc func(ctx context.Context, sess *session.Session, out string, onProgress func(ratio float64), onLog func(message string)) (string, packer.Result, error)

// NewPackFunc packs images found under sourceRoot with opts
func NewPackFunc(opts packer.Options, sourceRoot string) PackFunc {
	return func(ctx context.Context, sess *session.Session, out string, onProgress func(float64), onLog func(string)) (string, packer.Result, error) {
		return packer.Run(ctx, sess.Scrape, sess.Manifest, opts, sourceRoot, out, onProgress, onLog)
	}
}

// Options wires the wizard to the rest of the application
type Options struct {
	Scraper ScrapeRunner
	Pack    PackFunc
	// OutputDir is where scraped images land
	OutputDir string
	Version   string
	Logger    logger.Logger
}

// Model is the wizard state. It is only touched from the bubbletea event
// loop; background runs talk to it through messages.
type Model struct {
	ctx    context.Context
	opts   Options
	sess   *session.Session
	logger logger.Logger

	state  State
	cursor int
	class  int
	field  field

	input    textinput.Model
	spinner  spinner.Model
	progress progress.Model

	status    string
	statusErr bool
	busy      bool
	// set when saving was reached through the exit confirmation
	exitAfterSave bool

	// current scrape or pack run
	cancel     context.CancelFunc
	events     <-chan tea.Msg
	runTitle   string
	classIndex int
	classTotal int
	className  string
	ratio      float64
	logLines   []string
	summary    []string

	width  int
	height int
}

// NewModel creates a wizard editing sess. A nil sess starts from defaults.
func NewModel(ctx context.Context, sess *session.Session, opts Options) *Model {
	if sess == nil {
		sess = session.New()
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "out"
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 255

	p := progress.New(progress.WithGradient(string(colorAccent), string(colorPrimary)))
	p.Width = 50

	return &Model{
		ctx:      ctx,
		opts:     opts,
		sess:     sess,
		logger:   opts.Logger.WithField("component", "wizard"),
		state:    StateMainMenu,
		input:    ti,
		spinner:  s,
		progress: p,
	}
}

// Init starts the spinner
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// State returns the current screen
func (m *Model) State() State { return m.state }

// Session returns the session being edited. Loading a file replaces it.
func (m *Model) Session() *session.Session { return m.sess }

// menuItems returns the entries of the current menu screen
func (m *Model) menuItems() []string {
	switch m.state {
	case StateMainMenu:
		return mainMenuItems
	case StateSettings:
		return settingsItems
	case StateClassList:
		items := []string{"Back"}
		for _, c := range m.sess.Scrape.ClassList() {
			items = append(items, c.Name)
		}
		return append(items, "Add New")
	case StateClassEdit:
		return classEditItems
	case StateManifestEdit:
		mf := m.sess.Manifest
		return []string{
			"Back",
			fmt.Sprintf("Epochs (%d)", mf.Epochs()),
			fmt.Sprintf("Batch Size (%d)", mf.BatchSize()),
			fmt.Sprintf("Learning Rate (%g)", mf.LearningRate()),
		}
	}
	return nil
}

// currentClass returns the class being edited
func (m *Model) currentClass() session.ClassConfig {
	c, _ := m.sess.Scrape.Class(m.class)
	return c
}

// fieldValue returns the current value of f as text
func (m *Model) fieldValue(f field) string {
	c := m.currentClass()
	mf := m.sess.Manifest
	switch f {
	case fieldName:
		return c.Name
	case fieldQuery:
		return c.Query
	case fieldFolder:
		return c.Folder
	case fieldEpochs:
		return fmt.Sprint(mf.Epochs())
	case fieldBatchSize:
		return fmt.Sprint(mf.BatchSize())
	case fieldLearningRate:
		return fmt.Sprint(mf.LearningRate())
	}
	return ""
}

// uniqueClassName returns base, or base with the first free numeric suffix
func (m *Model) uniqueClassName(base string) string {
	name := base
	for n := 2; m.sess.Scrape.IndexByName(name) >= 0; n++ {
		name = fmt.Sprintf("%s %d", base, n)
	}
	return name
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.status = msg
	m.statusErr = isErr
}

func (m *Model) appendLog(line string) {
	m.logLines = append(m.logLines, line)
	if len(m.logLines) > maxLogLines {
		m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
	}
}
