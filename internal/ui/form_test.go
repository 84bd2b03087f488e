package ui

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/hughe/shiori-share/internal/extract"
	"github.com/hughe/shiori-share/internal/prefs"
	"github.com/hughe/shiori-share/internal/shiori"
)

type fakeSaver struct {
	mu       sync.Mutex
	requests []shiori.BookmarkRequest
	errs     []error
	block    bool
}

func (f *fakeSaver) AddBookmark(ctx context.Context, req shiori.BookmarkRequest) (shiori.Bookmark, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	var err error
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}
	block := f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return shiori.Bookmark{}, shiori.Classify(ctx.Err())
	}
	if err != nil {
		return shiori.Bookmark{}, err
	}
	return shiori.Bookmark{ID: 42, URL: req.URL}, nil
}

type staticTags []string

func (s staticTags) RecentTags() []string { return s }

func key(s string) tea.KeyMsg {
	switch s {
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+t":
		return tea.KeyMsg{Type: tea.KeyCtrlT}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	if strings.HasPrefix(s, "alt+") {
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s[4:]), Alt: true}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

// drain runs cmd and any batched commands, returning the messages that
// are not spinner or cursor ticks.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	switch msg.(type) {
	case savedMsg, saveFailedMsg, tagsRefreshedMsg, tea.QuitMsg:
		return []tea.Msg{msg}
	}
	return nil
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func newForm(saver Saver, recent ...string) Model {
	return New(Options{
		Saver:     saver,
		Tags:      staticTags(recent),
		Content:   extract.Content{URL: "https://go.dev/blog", Title: "The Go Blog"},
		Prefs:     prefs.Default(),
		AutoClose: time.Millisecond,
	})
}

func TestNew_PrefillsFromContentAndPrefs(t *testing.T) {
	m := newForm(&fakeSaver{})
	require.Equal(t, fieldTitle, m.focus)

	req := m.request()
	require.Equal(t, "https://go.dev/blog", req.URL)
	require.Equal(t, "The Go Blog", req.Title)
	require.True(t, req.CreateArchive)
	require.False(t, req.Public)

	empty := New(Options{Prefs: prefs.Prefs{MakePublic: true}})
	require.Equal(t, fieldURL, empty.focus)
	require.True(t, empty.request().Public)
	require.False(t, empty.request().CreateArchive)
}

func TestSave_SuccessShowsConfirmationAndCloses(t *testing.T) {
	saver := &fakeSaver{}
	m := newForm(saver)

	m, cmd := send(t, m, key("ctrl+s"))
	require.Equal(t, phaseSaving, m.phase)
	require.Contains(t, m.View(), "Saving bookmark")

	msgs := drain(cmd)
	require.Len(t, msgs, 1)
	m, cmd = send(t, m, msgs[0])
	require.Equal(t, phaseSuccess, m.phase)
	require.True(t, m.Result().Saved)
	require.Equal(t, 42, m.Result().Bookmark.ID)
	require.Contains(t, m.View(), "Bookmark saved!")

	// The auto-close timer fires a close message.
	require.NotNil(t, cmd)
	m, cmd = send(t, m, cmd())
	require.True(t, isQuit(cmd))

	require.Len(t, saver.requests, 1)
	require.Equal(t, "https://go.dev/blog", saver.requests[0].URL)
}

func TestSave_InvalidURLStaysOnForm(t *testing.T) {
	saver := &fakeSaver{}
	m := New(Options{Saver: saver, Content: extract.Content{URL: "go.dev"}})

	m, _ = send(t, m, key("ctrl+s"))
	require.Equal(t, phaseEditing, m.phase)
	require.Equal(t, fieldURL, m.focus)
	require.Contains(t, m.View(), "Enter an http or https URL")
	require.Empty(t, saver.requests)
}

func TestSave_RetryOnlyWhenRetryable(t *testing.T) {
	saver := &fakeSaver{errs: []error{&shiori.APIError{Kind: shiori.KindServerError, StatusCode: 502}}}
	m := newForm(saver)

	m, cmd := send(t, m, key("ctrl+s"))
	m, _ = send(t, m, drain(cmd)[0])
	require.Equal(t, phaseError, m.phase)
	require.Contains(t, m.View(), "server error (502)")
	require.Contains(t, m.View(), "r retry")

	m, cmd = send(t, m, key("r"))
	require.Equal(t, phaseSaving, m.phase)
	m, _ = send(t, m, drain(cmd)[0])
	require.Equal(t, phaseSuccess, m.phase)
	require.Len(t, saver.requests, 2)
}

func TestSave_NonRetryableErrorOffersEditOnly(t *testing.T) {
	saver := &fakeSaver{errs: []error{&shiori.APIError{Kind: shiori.KindInvalidCredentials}}}
	m := newForm(saver)

	m, cmd := send(t, m, key("ctrl+s"))
	m, _ = send(t, m, drain(cmd)[0])
	require.Equal(t, phaseError, m.phase)
	require.NotContains(t, m.View(), "r retry")

	m, cmd = send(t, m, key("r"))
	require.Nil(t, cmd)
	require.Equal(t, phaseError, m.phase)

	m, _ = send(t, m, key("e"))
	require.Equal(t, phaseEditing, m.phase)
	require.Len(t, saver.requests, 1)
}

func TestEsc_CancelsInFlightSave(t *testing.T) {
	saver := &fakeSaver{block: true}
	m := newForm(saver)

	m, cmd := send(t, m, key("ctrl+s"))

	done := make(chan []tea.Msg, 1)
	go func() { done <- drain(cmd) }()

	m, quit := send(t, m, key("esc"))
	require.True(t, isQuit(quit))
	require.True(t, m.Result().Cancelled)

	select {
	case msgs := <-done:
		require.Len(t, msgs, 1)
		failed, ok := msgs[0].(saveFailedMsg)
		require.True(t, ok)
		require.ErrorIs(t, failed.err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("save did not observe cancellation")
	}
}

func TestEsc_WhileEditingCancels(t *testing.T) {
	m := newForm(&fakeSaver{})
	m, cmd := send(t, m, key("esc"))
	require.True(t, isQuit(cmd))
	require.True(t, m.Result().Cancelled)
}

func TestKeywords_TabCompletesSuggestion(t *testing.T) {
	m := newForm(&fakeSaver{}, "swift", "golang")
	m, _ = send(t, m, key("tab")) // description
	m, _ = send(t, m, key("tab")) // keywords
	require.Equal(t, fieldKeywords, m.focus)

	m, _ = send(t, m, key("ios, go"))
	require.Contains(t, m.View(), "golang")

	m, _ = send(t, m, key("tab"))
	require.Equal(t, fieldKeywords, m.focus)
	require.Equal(t, "ios, golang, ", m.keywords.Value())

	// Nothing left to complete, so tab moves on.
	m, _ = send(t, m, key("tab"))
	require.Equal(t, fieldArchive, m.focus)
}

func TestKeywords_AltNumberAddsChip(t *testing.T) {
	m := newForm(&fakeSaver{}, "swift", "golang")
	m.setFocus(fieldKeywords)

	m, _ = send(t, m, key("alt+2"))
	require.Equal(t, "golang", m.keywords.Value())
	m, _ = send(t, m, key("alt+1"))
	require.Equal(t, "golang, swift", m.keywords.Value())
	m, _ = send(t, m, key("alt+9"))
	require.Equal(t, "golang, swift", m.keywords.Value())
}

func TestToggles(t *testing.T) {
	m := newForm(&fakeSaver{})
	m.setFocus(fieldArchive)
	m, _ = send(t, m, key(" "))
	require.False(t, m.request().CreateArchive)

	m.setFocus(fieldPublic)
	m, _ = send(t, m, key("enter"))
	require.True(t, m.request().Public)
	require.Contains(t, m.View(), "[x] Make public")
}

func TestCtrlT_CyclesAndSavesTheme(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	m := New(Options{Prefs: prefs.Default(), PrefsPath: path})
	require.Equal(t, "Nightfox", m.theme.Name)

	m, _ = send(t, m, key("ctrl+t"))
	require.Equal(t, "Kanagawa", m.theme.Name)

	saved, err := prefs.Load(path)
	require.NoError(t, err)
	require.Equal(t, "Kanagawa", saved.Theme)
	require.True(t, saved.CreateArchive)
}

type mutableTags struct{ names []string }

func (m *mutableTags) RecentTags() []string { return m.names }

func TestInit_RefreshesTagsInBackground(t *testing.T) {
	tags := &mutableTags{names: []string{"old"}}
	m := New(Options{
		Tags:        tags,
		RefreshTags: func(context.Context) { tags.names = []string{"go", "tui"} },
	})
	require.Equal(t, []string{"old"}, m.recent)

	msgs := drain(m.Init())
	require.Len(t, msgs, 1)

	m, _ = send(t, m, msgs[0])
	require.Equal(t, []string{"go", "tui"}, m.recent)
}

func TestSave_WithoutSaverFails(t *testing.T) {
	m := New(Options{Content: extract.Content{URL: "https://go.dev"}})
	m, _ = send(t, m, key("ctrl+s"))
	require.Equal(t, phaseError, m.phase)
	require.Error(t, m.Result().Err)
}
