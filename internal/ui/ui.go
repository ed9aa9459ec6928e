package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"tododay/internal/config"
	"tododay/internal/controller"
	"tododay/internal/stream"
	"tododay/internal/todo"
)

// Controller is the part of *controller.Controller the UI drives.
type Controller interface {
	Grouped() stream.Observable[todo.Groups]
	Editing() stream.Observable[*todo.Todo]
	Initialized() stream.Observable[bool]
	SearchQuery() stream.Observable[string]
	RecentlyDeleted() stream.Observable[*todo.Todo]
	ExportState() stream.Observable[controller.ExportState]

	AddTodo(title string)
	DeleteTodo(id int64)
	RestoreTodo()
	Toggle(id int64)
	StartEditing(id int64)
	UpdateTodo(title string)
	CancelEditing()
	UpdateSearchQuery(query string)
	ExportTodos()
	ClearExportState()
}

type mode int

const (
	modeList mode = iota
	modeAdd
	modeEdit
	modeSearch
	modeConfirmDelete
	modeConfirmExport
)

type (
	groupedMsg     todo.Groups
	editingMsg     struct{ todo *todo.Todo }
	initializedMsg bool
	queryMsg       string
	deletedMsg     struct{ todo *todo.Todo }
	exportMsg      struct{ state controller.ExportState }
	exportClearMsg struct{}
	closedMsg      struct{}
)

type subscriptions struct {
	grouped     <-chan todo.Groups
	editing     <-chan *todo.Todo
	initialized <-chan bool
	query       <-chan string
	deleted     <-chan *todo.Todo
	export      <-chan controller.ExportState
}

type Model struct {
	ctrl   Controller
	cfg    config.Config
	styles styles
	subs   subscriptions

	groups      todo.Groups
	rows        []todo.Todo
	cursor      int
	mode        mode
	input       textinput.Model
	status      string
	statusErr   bool
	query       string
	editing     *todo.Todo
	// editID is the todo this model asked to edit; editSeen turns true
	// once the controller reports that edit, so an older nil is ignored.
	editID      int64
	editSeen    bool
	deleted     *todo.Todo
	initialized bool
	pendingDel  *todo.Todo
}

// NewModel subscribes to ctrl's streams for the lifetime of ctx.
func NewModel(ctx context.Context, ctrl Controller, cfg config.Config) Model {
	ti := textinput.New()
	ti.Placeholder = "Todo title"
	ti.CharLimit = 256
	ti.Width = 40

	return Model{
		ctrl:   ctrl,
		cfg:    cfg,
		styles: newStyles(cfg.Theme),
		subs: subscriptions{
			grouped:     ctrl.Grouped().Subscribe(ctx),
			editing:     ctrl.Editing().Subscribe(ctx),
			initialized: ctrl.Initialized().Subscribe(ctx),
			query:       ctrl.SearchQuery().Subscribe(ctx),
			deleted:     ctrl.RecentlyDeleted().Subscribe(ctx),
			export:      ctrl.ExportState().Subscribe(ctx),
		},
		input:  ti,
		mode:   modeList,
		status: "Press 'a' to add, space to toggle, 'd' to delete, '/' to search.",
	}
}

func Run(ctx context.Context, ctrl Controller, cfg config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	program := tea.NewProgram(NewModel(ctx, ctrl, cfg), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

// listen waits for the next value on ch. Every handled message re-arms
// its own listener, so each stream has exactly one pending read.
func listen[T any](ch <-chan T, wrap func(T) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		v, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return wrap(v)
	}
}

func (m Model) listenGrouped() tea.Cmd {
	return listen(m.subs.grouped, func(g todo.Groups) tea.Msg { return groupedMsg(g) })
}

func (m Model) listenEditing() tea.Cmd {
	return listen(m.subs.editing, func(t *todo.Todo) tea.Msg { return editingMsg{t} })
}

func (m Model) listenInitialized() tea.Cmd {
	return listen(m.subs.initialized, func(b bool) tea.Msg { return initializedMsg(b) })
}

func (m Model) listenQuery() tea.Cmd {
	return listen(m.subs.query, func(q string) tea.Msg { return queryMsg(q) })
}

func (m Model) listenDeleted() tea.Cmd {
	return listen(m.subs.deleted, func(t *todo.Todo) tea.Msg { return deletedMsg{t} })
}

func (m Model) listenExport() tea.Cmd {
	return listen(m.subs.export, func(s controller.ExportState) tea.Msg { return exportMsg{s} })
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.listenGrouped(),
		m.listenEditing(),
		m.listenInitialized(),
		m.listenQuery(),
		m.listenDeleted(),
		m.listenExport(),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case groupedMsg:
		m.setGroups(todo.Groups(msg))
		return m, m.listenGrouped()
	case editingMsg:
		m.editing = msg.todo
		switch {
		case msg.todo != nil && msg.todo.ID == m.editID:
			m.editSeen = true
		case msg.todo == nil && m.mode == modeEdit && m.editSeen:
			// The edit ended elsewhere, for example the todo was deleted.
			m.leaveInput()
			m.setStatus("Edit cancelled")
		}
		return m, m.listenEditing()
	case initializedMsg:
		m.initialized = bool(msg)
		return m, m.listenInitialized()
	case queryMsg:
		m.query = string(msg)
		return m, m.listenQuery()
	case deletedMsg:
		m.deleted = msg.todo
		return m, m.listenDeleted()
	case exportMsg:
		m.applyExport(msg.state)
		if controller.Terminal(msg.state) {
			return m, m.clearExport()
		}
		return m, m.listenExport()
	case exportClearMsg:
		return m, m.listenExport()
	case closedMsg:
		return m, nil
	case tea.KeyMsg:
		switch m.mode {
		case modeAdd:
			return m.updateAddMode(msg)
		case modeEdit:
			return m.updateEditMode(msg)
		case modeSearch:
			return m.updateSearchMode(msg)
		case modeConfirmDelete:
			return m.updateDeleteConfirm(msg.String())
		case modeConfirmExport:
			return m.updateExportConfirm(msg.String())
		default:
			return m.updateListMode(msg.String())
		}
	case tea.WindowSizeMsg:
		m.input.Width = max(msg.Width-10, 10)
	}
	return m, nil
}

// setGroups keeps the cursor on the same todo when it is still listed.
func (m *Model) setGroups(groups todo.Groups) {
	var selected int64
	if m.cursor < len(m.rows) {
		selected = m.rows[m.cursor].ID
	}
	m.groups = groups
	m.rows = groups.Flatten()
	for i, t := range m.rows {
		if t.ID == selected {
			m.cursor = i
			return
		}
	}
	m.cursor = clampCursor(m.cursor, len(m.rows))
}

func (m *Model) applyExport(state controller.ExportState) {
	switch s := state.(type) {
	case controller.ExportLoading:
		m.setStatus("Exporting...")
	case controller.ExportSuccess:
		m.setStatus("Saved to " + s.Path)
	case controller.ExportError:
		m.setError(s.Message)
	}
}

// clearExport hands a consumed result back to the controller off the
// update loop; the export listener re-arms once the clear is queued.
func (m Model) clearExport() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctrl.ClearExportState()
		return exportClearMsg{}
	}
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(s string) {
	m.status = s
	m.statusErr = true
}

func (m Model) selected() (todo.Todo, bool) {
	if len(m.rows) == 0 {
		return todo.Todo{}, false
	}
	return m.rows[clampCursor(m.cursor, len(m.rows))], true
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	k := m.cfg.Keys
	switch key {
	case "ctrl+c", k.Quit:
		return m, tea.Quit
	case k.Down, "down":
		m.cursor = clampCursor(m.cursor+1, len(m.rows))
	case k.Up, "up":
		m.cursor = clampCursor(m.cursor-1, len(m.rows))
	case k.Add:
		m.mode = modeAdd
		m.input.SetValue("")
		m.input.Placeholder = "Todo title"
		m.input.Focus()
		m.setStatus("Add mode: type a title and press Enter")
	case k.Toggle:
		if t, ok := m.selected(); ok {
			m.ctrl.Toggle(t.ID)
		}
	case k.Delete:
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.pendingDel = &t
		m.mode = modeConfirmDelete
		m.setStatus(fmt.Sprintf("Delete \"%s\"? y/n", t.Title))
	case k.Undo:
		if m.deleted == nil {
			m.setStatus("Nothing to restore")
			return m, nil
		}
		m.ctrl.RestoreTodo()
		m.setStatus(fmt.Sprintf("Restored \"%s\"", m.deleted.Title))
	case k.Edit:
		t, ok := m.selected()
		if !ok {
			m.setStatus("No todos to edit")
			return m, nil
		}
		m.ctrl.StartEditing(t.ID)
		m.editID = t.ID
		m.editSeen = false
		m.mode = modeEdit
		m.input.SetValue(t.Title)
		m.input.CursorEnd()
		m.input.Focus()
		m.setStatus("Edit mode: Enter to save, Esc to cancel")
	case k.Search:
		m.mode = modeSearch
		m.input.SetValue(m.query)
		m.input.Placeholder = "Search"
		m.input.CursorEnd()
		m.input.Focus()
		m.setStatus("Search: type to filter, Enter to keep, Esc to clear")
	case k.Export:
		m.mode = modeConfirmExport
		m.setStatus(fmt.Sprintf("Save todos to %s? y/n", m.cfg.ExportDir))
	}
	return m, nil
}

func (m Model) updateAddMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case m.cfg.Keys.Cancel:
		m.leaveInput()
		m.setStatus("Cancelled")
		return m, nil
	case m.cfg.Keys.Confirm:
		title := strings.TrimSpace(m.input.Value())
		if title == "" {
			m.setError("Title cannot be empty")
			return m, nil
		}
		m.ctrl.AddTodo(title)
		m.leaveInput()
		m.setStatus("Added todo")
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) updateEditMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case m.cfg.Keys.Cancel:
		m.ctrl.CancelEditing()
		m.leaveInput()
		m.setStatus("Edit cancelled")
		return m, nil
	case m.cfg.Keys.Confirm:
		title := strings.TrimSpace(m.input.Value())
		if title == "" {
			m.setError("Title cannot be empty")
			return m, nil
		}
		m.ctrl.UpdateTodo(title)
		m.leaveInput()
		m.setStatus("Saved")
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) updateSearchMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case m.cfg.Keys.Cancel:
		m.ctrl.UpdateSearchQuery("")
		m.leaveInput()
		m.setStatus("Search cleared")
		return m, nil
	case m.cfg.Keys.Confirm:
		m.leaveInput()
		m.setStatus("")
		return m, nil
	default:
		before := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if v := m.input.Value(); v != before {
			m.ctrl.UpdateSearchQuery(v)
		}
		return m, cmd
	}
}

func (m Model) updateDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "n", "N", m.cfg.Keys.Cancel:
		m.setStatus("Delete cancelled")
	case "y", "Y", m.cfg.Keys.Confirm:
		if m.pendingDel == nil {
			m.setStatus("Nothing to delete")
			break
		}
		m.ctrl.DeleteTodo(m.pendingDel.ID)
		m.setStatus(fmt.Sprintf("Deleted \"%s\". Press %s to undo.", m.pendingDel.Title, m.cfg.Keys.Undo))
	default:
		return m, nil
	}
	m.mode = modeList
	m.pendingDel = nil
	return m, nil
}

func (m Model) updateExportConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "n", "N", m.cfg.Keys.Cancel:
		m.setStatus("Export cancelled")
	case "y", "Y", m.cfg.Keys.Confirm:
		m.ctrl.ExportTodos()
		m.setStatus("Exporting...")
	default:
		return m, nil
	}
	m.mode = modeList
	return m, nil
}

func (m *Model) leaveInput() {
	m.mode = modeList
	m.editID = 0
	m.editSeen = false
	m.input.SetValue("")
	m.input.Blur()
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.title.Render("tododay"))
	if m.query != "" {
		b.WriteString(m.styles.muted.Render(fmt.Sprintf("  search: %q", m.query)))
	}
	b.WriteString("\n\n")

	switch {
	case !m.initialized:
		b.WriteString(m.styles.muted.Render("Loading..."))
		b.WriteString("\n")
	case len(m.rows) == 0 && m.query != "":
		b.WriteString(m.styles.muted.Render(fmt.Sprintf("No todos match %q.", m.query)))
		b.WriteString("\n")
	case len(m.rows) == 0:
		b.WriteString(m.styles.muted.Render(fmt.Sprintf("No todos yet. Press '%s' to add one.", m.cfg.Keys.Add)))
		b.WriteString("\n")
	default:
		b.WriteString(m.renderGroups())
	}

	b.WriteString("\n---\n")

	switch m.mode {
	case modeAdd, modeEdit, modeSearch:
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
	}

	if m.statusErr {
		b.WriteString(m.styles.err.Render(m.status))
	} else {
		b.WriteString(m.status)
	}
	b.WriteString("\n")
	b.WriteString(m.styles.help.Render(renderHelp(m.cfg.Keys)))

	return b.String()
}

func renderHelp(k config.Keymap) string {
	return fmt.Sprintf("%s/%s move • %s add • space toggle • %s delete • %s undo • %s edit • %s search • %s export • %s quit",
		k.Up, k.Down, k.Add, k.Delete, k.Undo, k.Edit, k.Search, k.Export, k.Quit)
}

func (m Model) renderGroups() string {
	var b strings.Builder
	i := 0
	for gi, g := range m.groups {
		if gi > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.styles.day.Render(g.Day))
		b.WriteString("\n")
		for _, t := range g.Todos {
			b.WriteString(m.renderRow(t, i == m.cursor && m.mode == modeList))
			b.WriteString("\n")
			i++
		}
	}
	return b.String()
}

func (m Model) renderRow(t todo.Todo, selected bool) string {
	cursor := " "
	if selected {
		cursor = ">"
	}
	checkbox := "[ ]"
	if t.Done {
		checkbox = m.styles.success.Render("[x]")
	}
	title := m.highlight(t.Title)
	if t.Done {
		title = m.styles.done.Render(title)
	}
	if selected {
		cursor = m.styles.selected.Render(cursor)
	}
	return fmt.Sprintf("%s %s %s", cursor, checkbox, title)
}

func (m Model) highlight(title string) string {
	start, end := todo.MatchIndex(title, m.query)
	if start < 0 {
		return title
	}
	return title[:start] + m.styles.match.Render(title[start:end]) + title[end:]
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
