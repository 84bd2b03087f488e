package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hughe/shiori-share/internal/extract"
	"github.com/hughe/shiori-share/internal/logger"
	"github.com/hughe/shiori-share/internal/prefs"
	"github.com/hughe/shiori-share/internal/shiori"
)

// DefaultAutoClose is how long the success screen stays up.
const DefaultAutoClose = 1500 * time.Millisecond

const labelWidth = 10

// Saver saves a bookmark. *shiori.Client implements it.
type Saver interface {
	AddBookmark(ctx context.Context, req shiori.BookmarkRequest) (shiori.Bookmark, error)
}

// TagSource lists recently used tags, most recent first.
type TagSource interface {
	RecentTags() []string
}

// Options configures the share form.
type Options struct {
	Context context.Context
	Saver   Saver
	Tags    TagSource
	// RefreshTags, when set, runs once in the background on start and the
	// tag chips are reloaded when it returns.
	RefreshTags func(ctx context.Context)
	Content     extract.Content
	Prefs       prefs.Prefs
	PrefsPath   string
	Server      string
	AutoClose   time.Duration
	Logger      logger.Logger
}

// Result is how the form ended.
type Result struct {
	Saved     bool
	Bookmark  shiori.Bookmark
	Cancelled bool
	Err       error
}

type phase int

const (
	phaseEditing phase = iota
	phaseSaving
	phaseSuccess
	phaseError
)

type field int

const (
	fieldURL field = iota
	fieldTitle
	fieldDescription
	fieldKeywords
	fieldArchive
	fieldPublic
	fieldCount
)

// Model is the Bubble Tea model for the share form.
type Model struct {
	ctx         context.Context
	saver       Saver
	tags        TagSource
	refreshTags func(ctx context.Context)
	prefs       prefs.Prefs
	prefsPath   string
	server      string
	autoClose   time.Duration
	log         logger.Logger

	theme  Theme
	width  int
	phase  phase
	focus  field
	notice string

	url         textinput.Model
	title       textinput.Model
	description textarea.Model
	keywords    textinput.Model
	spinner     spinner.Model

	createArchive bool
	makePublic    bool
	recent        []string

	cancel context.CancelFunc
	err    error
	result Result
}

// New creates the share form model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	autoClose := opts.AutoClose
	if autoClose <= 0 {
		autoClose = DefaultAutoClose
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	urlInput := textinput.New()
	urlInput.Placeholder = "https://"
	urlInput.Prompt = ""
	urlInput.SetValue(opts.Content.URL)

	titleInput := textinput.New()
	titleInput.Placeholder = "Optional"
	titleInput.Prompt = ""
	titleInput.SetValue(opts.Content.Title)

	desc := textarea.New()
	desc.Placeholder = "Optional notes"
	desc.ShowLineNumbers = false
	desc.Prompt = ""
	desc.SetHeight(3)

	kw := textinput.New()
	kw.Placeholder = "comma, separated, tags"
	kw.Prompt = ""

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	m := Model{
		ctx:           ctx,
		saver:         opts.Saver,
		tags:          opts.Tags,
		refreshTags:   opts.RefreshTags,
		prefs:         opts.Prefs,
		prefsPath:     opts.PrefsPath,
		server:        opts.Server,
		autoClose:     autoClose,
		log:           log,
		theme:         GetTheme(opts.Prefs.Theme),
		url:           urlInput,
		title:         titleInput,
		description:   desc,
		keywords:      kw,
		spinner:       spin,
		createArchive: opts.Prefs.CreateArchive,
		makePublic:    opts.Prefs.MakePublic,
	}
	if m.tags != nil {
		m.recent = m.tags.RecentTags()
	}
	first := fieldTitle
	if strings.TrimSpace(opts.Content.URL) == "" {
		first = fieldURL
	}
	m.setFocus(first)
	return m
}

// Result reports how the form ended. It is meaningful once the program
// has exited.
func (m Model) Result() Result {
	return m.result
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.refreshTags != nil {
		cmds = append(cmds, refreshTagsCmd(m.ctx, m.refreshTags))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.resize()
		return m, nil

	case tagsRefreshedMsg:
		if m.tags != nil {
			m.recent = m.tags.RecentTags()
		}
		return m, nil

	case savedMsg:
		m.cancel = nil
		m.phase = phaseSuccess
		m.result = Result{Saved: true, Bookmark: msg.bookmark}
		return m, closeAfter(m.autoClose)

	case saveFailedMsg:
		m.cancel = nil
		if m.phase != phaseSaving {
			return m, nil
		}
		m.phase = phaseError
		m.err = msg.err
		m.result = Result{Err: msg.err}
		return m, nil

	case closeMsg:
		return m, tea.Quit

	case spinner.TickMsg:
		if m.phase != phaseSaving {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m.updateFocused(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.phase {
	case phaseSaving:
		switch msg.String() {
		case "esc", "ctrl+c":
			if m.cancel != nil {
				m.cancel()
				m.cancel = nil
			}
			m.result = Result{Cancelled: true}
			return m, tea.Quit
		}
		return m, nil

	case phaseSuccess:
		return m, tea.Quit

	case phaseError:
		switch msg.String() {
		case "r":
			if shiori.IsRetryable(m.err) {
				return m.save()
			}
		case "e":
			m.phase = phaseEditing
			m.err = nil
			m.result = Result{}
			return m, m.setFocus(m.focus)
		case "esc", "q", "ctrl+c":
			return m, tea.Quit
		}
		return m, nil
	}

	// Global keys
	switch msg.String() {
	case "ctrl+c", "esc":
		m.result = Result{Cancelled: true}
		return m, tea.Quit

	case "ctrl+s":
		return m.save()

	case "ctrl+t":
		m.cycleTheme()
		return m, nil

	case "tab":
		if m.focus == fieldKeywords {
			if s := Suggestions(m.recent, m.keywords.Value()); len(s) > 0 {
				m.keywords.SetValue(CompleteTag(m.keywords.Value(), s[0]))
				m.keywords.CursorEnd()
				return m, nil
			}
		}
		return m, m.setFocus((m.focus + 1) % fieldCount)

	case "shift+tab":
		return m, m.setFocus((m.focus + fieldCount - 1) % fieldCount)

	case "down":
		if m.focus != fieldDescription {
			return m, m.setFocus((m.focus + 1) % fieldCount)
		}

	case "up":
		if m.focus != fieldDescription {
			return m, m.setFocus((m.focus + fieldCount - 1) % fieldCount)
		}

	case "enter":
		switch m.focus {
		case fieldDescription:
			// newline
		case fieldArchive, fieldPublic:
			m.toggle()
			return m, nil
		default:
			return m.save()
		}

	case " ", "space":
		if m.focus == fieldArchive || m.focus == fieldPublic {
			m.toggle()
			return m, nil
		}
	}

	if m.focus == fieldKeywords {
		if n, ok := chipKey(msg.String()); ok {
			if c := chips(m.recent); n < len(c) {
				m.keywords.SetValue(AddTag(m.keywords.Value(), c[n]))
				m.keywords.CursorEnd()
			}
			return m, nil
		}
	}

	return m.updateFocused(msg)
}

// chipKey maps alt+1..alt+9 and alt+0 to chip indexes 0..9.
func chipKey(key string) (int, bool) {
	if len(key) != 5 || !strings.HasPrefix(key, "alt+") {
		return 0, false
	}
	d := key[4]
	if d < '0' || d > '9' {
		return 0, false
	}
	if d == '0' {
		return 9, true
	}
	return int(d - '1'), true
}

func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.phase != phaseEditing {
		return m, nil
	}
	var cmd tea.Cmd
	switch m.focus {
	case fieldURL:
		m.url, cmd = m.url.Update(msg)
	case fieldTitle:
		m.title, cmd = m.title.Update(msg)
	case fieldDescription:
		m.description, cmd = m.description.Update(msg)
	case fieldKeywords:
		m.keywords, cmd = m.keywords.Update(msg)
	}
	return m, cmd
}

func (m *Model) setFocus(f field) tea.Cmd {
	m.focus = f
	m.url.Blur()
	m.title.Blur()
	m.description.Blur()
	m.keywords.Blur()
	switch f {
	case fieldURL:
		return m.url.Focus()
	case fieldTitle:
		return m.title.Focus()
	case fieldDescription:
		return m.description.Focus()
	case fieldKeywords:
		return m.keywords.Focus()
	}
	return nil
}

func (m *Model) toggle() {
	switch m.focus {
	case fieldArchive:
		m.createArchive = !m.createArchive
	case fieldPublic:
		m.makePublic = !m.makePublic
	}
}

func (m *Model) cycleTheme() {
	m.theme = GetTheme(NextTheme(m.theme.Name))
	m.prefs.Theme = m.theme.Name
	if m.prefsPath == "" {
		return
	}
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		m.log.Warn("save theme preference failed", logger.Error(err))
	}
}

func (m *Model) resize() {
	inputWidth := m.width - labelWidth - 6
	if inputWidth < 20 {
		inputWidth = 20
	}
	m.url.Width = inputWidth
	m.title.Width = inputWidth
	m.keywords.Width = inputWidth
	m.description.SetWidth(inputWidth)
}

// request builds the bookmark request from the form fields.
func (m Model) request() shiori.BookmarkRequest {
	return shiori.BookmarkRequest{
		URL:           strings.TrimSpace(m.url.Value()),
		Title:         m.title.Value(),
		Description:   m.description.Value(),
		Keywords:      m.keywords.Value(),
		CreateArchive: m.createArchive,
		Public:        m.makePublic,
	}
}

func (m Model) save() (tea.Model, tea.Cmd) {
	req := m.request()
	if !shiori.IsValidHTTPURL(req.URL) {
		m.phase = phaseEditing
		m.notice = "Enter an http or https URL"
		return m, m.setFocus(fieldURL)
	}
	if m.saver == nil {
		m.phase = phaseError
		m.err = errors.New("no client configured")
		m.result = Result{Err: m.err}
		return m, nil
	}

	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	m.notice = ""
	m.err = nil
	m.phase = phaseSaving
	return m, tea.Batch(m.spinner.Tick, saveCmd(ctx, cancel, m.saver, req))
}

// Messages

type savedMsg struct{ bookmark shiori.Bookmark }

type saveFailedMsg struct{ err error }

type tagsRefreshedMsg struct{}

type closeMsg struct{}

// Commands

func saveCmd(ctx context.Context, cancel context.CancelFunc, saver Saver, req shiori.BookmarkRequest) tea.Cmd {
	return func() tea.Msg {
		defer cancel()
		bookmark, err := saver.AddBookmark(ctx, req)
		if err != nil {
			return saveFailedMsg{err: err}
		}
		return savedMsg{bookmark: bookmark}
	}
}

func refreshTagsCmd(ctx context.Context, refresh func(context.Context)) tea.Cmd {
	return func() tea.Msg {
		refresh(ctx)
		return tagsRefreshedMsg{}
	}
}

func closeAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return closeMsg{}
	})
}
