package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/docmap/pkg/core/expand"
	"github.com/matzehuels/docmap/pkg/core/tree"
	"github.com/matzehuels/docmap/pkg/mindmap"
)

var (
	treeSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	treeNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	treeDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	treeLoadingStyle  = lipgloss.NewStyle().Foreground(colorYellow)
	detailBoxStyle    = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorDim).
				Padding(0, 1)
)

// Messages delivered to the explorer.
type (
	snapshotMsg tree.Snapshot
	loadedMsg   struct{ err error }
	toggledMsg  struct {
		id      string
		outcome expand.Outcome
		err     error
	}
)

// ExploreModel is the bubbletea model of the interactive tree explorer.
//
// Toggles run as commands, so a slow fetch never blocks the UI: other
// nodes can be moved to and toggled while it is in flight. The model
// re-renders from store snapshots pushed by the store subscription.
type ExploreModel struct {
	ctx        context.Context
	ctrl       *expand.Controller
	documentID string

	snap   tree.Snapshot
	view   tree.View
	cursor string // id of the selected node, stable across updates
	offset int
	height int
	width  int

	status  string
	loadErr error
}

// NewExploreModel creates an explorer for documentID driven by ctrl.
func NewExploreModel(ctx context.Context, ctrl *expand.Controller, documentID string) ExploreModel {
	return ExploreModel{
		ctx:        ctx,
		ctrl:       ctrl,
		documentID: documentID,
		height:     20,
		width:      80,
		status:     "loading " + documentID + "...",
	}
}

func (m ExploreModel) Init() tea.Cmd {
	return m.load
}

func (m ExploreModel) load() tea.Msg {
	return loadedMsg{err: m.ctrl.Load(m.ctx, m.documentID)}
}

func (m ExploreModel) toggle(id string) tea.Cmd {
	return func() tea.Msg {
		out, err := m.ctrl.Toggle(m.ctx, id)
		return toggledMsg{id: id, outcome: out, err: err}
	}
}

func (m ExploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.setSnapshot(tree.Snapshot(msg))

	case loadedMsg:
		m.loadErr = msg.err
		m.setSnapshot(m.ctrl.Store.Snapshot())
		if msg.err != nil {
			m.status = "load failed: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("%d nodes loaded", m.snap.Len())
		}

	case toggledMsg:
		m.setSnapshot(m.ctrl.Store.Snapshot())
		m.status = toggleStatus(m.snap, msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = max(msg.Height-12, 5)
		m.scroll()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m ExploreModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "pgup":
		m.move(-m.height)
	case "pgdown":
		m.move(m.height)
	case "home", "g":
		m.move(-len(m.view.Order))
	case "end", "G":
		m.move(len(m.view.Order))
	case "enter", " ":
		if m.cursor != "" {
			return m, m.toggle(m.cursor)
		}
	case "right", "l":
		if n, ok := m.snap.Node(m.cursor); ok && n.Expandable() && !m.snap.IsExpanded(m.cursor) {
			return m, m.toggle(m.cursor)
		}
	case "left", "h":
		if m.snap.IsExpanded(m.cursor) {
			return m, m.toggle(m.cursor)
		}
		if n, ok := m.snap.Node(m.cursor); ok && n.ParentID != "" {
			m.cursor = n.ParentID
			m.scroll()
		}
	case "r":
		m.status = "reloading " + m.documentID + "..."
		return m, m.load
	}
	return m, nil
}

// setSnapshot adopts s, keeping the cursor on the same node when it is
// still visible, otherwise on its nearest visible ancestor.
func (m *ExploreModel) setSnapshot(s tree.Snapshot) {
	m.snap = s
	m.view = tree.Resolve(s)
	for m.cursor != "" && !m.view.Contains(m.cursor) {
		n, ok := s.Node(m.cursor)
		if !ok {
			m.cursor = ""
			break
		}
		m.cursor = n.ParentID
	}
	if m.cursor == "" && !m.view.Empty() {
		m.cursor = m.view.Order[0]
	}
	m.scroll()
}

func (m *ExploreModel) index() int {
	for i, id := range m.view.Order {
		if id == m.cursor {
			return i
		}
	}
	return 0
}

func (m *ExploreModel) move(delta int) {
	if m.view.Empty() {
		return
	}
	i := min(max(m.index()+delta, 0), len(m.view.Order)-1)
	m.cursor = m.view.Order[i]
	m.scroll()
}

func (m *ExploreModel) scroll() {
	i := m.index()
	if i < m.offset {
		m.offset = i
	}
	if i >= m.offset+m.height {
		m.offset = i - m.height + 1
	}
	m.offset = max(min(m.offset, len(m.view.Order)-m.height), 0)
}

func (m ExploreModel) View() string {
	var b strings.Builder

	title := m.documentID
	if root, ok := m.snap.Node(m.snap.RootID); ok {
		title = root.DisplayTitle()
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n")
	b.WriteString(treeDimStyle.Render("↑/↓ move  ⏎/space toggle  ←/→ collapse/expand  r reload  q quit"))
	b.WriteString("\n\n")

	if m.view.Empty() {
		if m.loadErr != nil {
			b.WriteString(StyleError.Render(m.status))
		} else {
			b.WriteString(treeDimStyle.Render(m.status))
		}
		b.WriteString("\n")
		return b.String()
	}

	end := min(m.offset+m.height, len(m.view.Order))
	for _, id := range m.view.Order[m.offset:end] {
		b.WriteString(m.row(id))
		b.WriteString("\n")
	}
	b.WriteString(treeDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.index()+1, len(m.view.Order))))
	b.WriteString("\n")

	if n, ok := m.snap.Node(m.cursor); ok {
		b.WriteString(detailBoxStyle.Width(max(m.width-2, 20)).Render(m.detail(n)))
		b.WriteString("\n")
	}
	b.WriteString(treeDimStyle.Render(m.status))
	return b.String()
}

// row renders one visible node with its indentation and state marker.
func (m ExploreModel) row(id string) string {
	n, _ := m.snap.Node(id)
	cursor := "  "
	if id == m.cursor {
		cursor = "▸ "
	}

	marker, style := " ", treeNormalStyle
	switch {
	case m.snap.IsLoading(id):
		marker, style = "…", treeLoadingStyle
	case m.snap.Failure(id) != nil:
		marker, style = "!", StyleError
	case m.snap.IsExpanded(id):
		marker = "▾"
	case n.Expandable():
		marker = "▸"
	default:
		style = treeDimStyle
	}
	if id == m.cursor {
		style = treeSelectedStyle
	}

	indent := strings.Repeat("  ", m.view.Depths[id])
	line := fmt.Sprintf("%s%s%s %s", cursor, indent, marker, n.DisplayTitle())
	if pages := n.Pages(); pages != "" {
		line += " " + treeDimStyle.Render(pages)
	}
	return style.Render(line)
}

func (m ExploreModel) detail(n mindmap.Node) string {
	var b strings.Builder
	b.WriteString(StyleValue.Render(n.DisplayTitle()))
	b.WriteString(treeDimStyle.Render("  " + string(n.Kind)))
	if n.Summary != "" {
		b.WriteString("\n" + n.Summary)
	}
	if len(n.KeyConcepts) > 0 {
		b.WriteString("\n" + treeDimStyle.Render("concepts: "+strings.Join(n.KeyConcepts, ", ")))
	}
	if err := m.snap.Failure(n.ID); err != nil {
		b.WriteString("\n" + StyleError.Render("error: "+err.Error()))
	}
	return b.String()
}

func toggleStatus(s tree.Snapshot, msg toggledMsg) string {
	n, _ := s.Node(msg.id)
	name := n.DisplayTitle()
	if name == "" {
		name = msg.id
	}
	switch {
	case msg.err != nil:
		return fmt.Sprintf("%s: %s", name, msg.err.Error())
	case msg.outcome == expand.OutcomeSuppressed:
		return name + ": still loading"
	default:
		return fmt.Sprintf("%s %s", name, msg.outcome)
	}
}
