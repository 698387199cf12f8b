package cli

import (
	"context"
	"fmt"
	"html"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/gitlanes/pkg/core/lanes"
	"github.com/matzehuels/gitlanes/pkg/errors"
	"github.com/matzehuels/gitlanes/pkg/graph"
	"github.com/matzehuels/gitlanes/pkg/pipeline"
)

const (
	glyphCommit = '●'
	glyphMerge  = '◆'
	glyphLane   = '│'
	shortID     = 7
)

// Browse styles
var (
	browseSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	browseNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	browseDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// browseCommand creates the browse command, a terminal view of the lanes.
func (c *CLI) browseCommand() *cobra.Command {
	var (
		noCache bool
		rf      repoFlags
		opts    pipeline.Options
	)

	cmd := &cobra.Command{
		Use:   "browse [repository]",
		Short: "Browse the commit graph in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			c.config.applyTo(&opts)
			return c.runBrowse(cmd.Context(), path, opts, rf, noCache)
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "ignore cached results")
	rf.register(cmd)
	registerWalkFlags(cmd, &opts)

	return cmd
}

func (c *CLI) runBrowse(ctx context.Context, path string, opts pipeline.Options, rf repoFlags, noCache bool) error {
	repo, err := openRepository(ctx, path, rf)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	spinner := startSpinner(ctx, "Laying out lanes...")
	l, err := runner.Layout(ctx, repoName(path), repo, opts)
	spinner.Stop()
	if err != nil {
		printError("%s", errors.UserMessage(err))
		return err
	}
	if len(l.Cells) == 0 {
		printWarning("No commits to show")
		return nil
	}

	_, err = tea.NewProgram(newBrowseModel(l), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// =============================================================================
// BrowseModel - Scrollable lane view
// =============================================================================

// BrowseModel is the bubbletea model for scrolling through a layout.
type BrowseModel struct {
	Layout graph.Layout
	Rows   []string
	Cursor int
	Offset int
	Height int
}

func newBrowseModel(l graph.Layout) BrowseModel {
	return BrowseModel{
		Layout: l,
		Rows:   textRows(l, 0, len(l.Cells)),
		Height: 20,
	}
}

func (m BrowseModel) Init() tea.Cmd {
	return nil
}

func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			m.move(-1)
		case "down", "j":
			m.move(1)
		case "pgup", "ctrl+b":
			m.move(-m.Height)
		case "pgdown", "ctrl+f", " ":
			m.move(m.Height)
		case "home", "g":
			m.move(-len(m.Rows))
		case "end", "G":
			m.move(len(m.Rows))
		}
	case tea.WindowSizeMsg:
		// Title, help line and the detail table take the rest.
		m.Height = max(msg.Height-12, 5)
		m.move(0)
	}
	return m, nil
}

// move shifts the cursor by delta and keeps it inside the window.
func (m *BrowseModel) move(delta int) {
	m.Cursor = min(max(m.Cursor+delta, 0), len(m.Rows)-1)
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m BrowseModel) View() string {
	var b strings.Builder

	title := fmt.Sprintf("%d commits, %d lanes", len(m.Layout.Cells), m.Layout.Columns)
	if m.Layout.Truncated {
		title += " (truncated)"
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n")
	b.WriteString(browseDimStyle.Render("↑/↓ move  pgup/pgdn page  g/G first/last  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Rows))
	for i := m.Offset; i < end; i++ {
		if i == m.Cursor {
			b.WriteString(browseSelectedStyle.Render("▸ " + m.Rows[i]))
		} else {
			b.WriteString(browseNormalStyle.Render("  " + m.Rows[i]))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.detail())
	return b.String()
}

// detail renders the selected commit.
func (m BrowseModel) detail() string {
	cell := m.Layout.Cells[m.Cursor]
	rows := [][]string{
		{"commit", cell.ID},
		{"author", cell.Author},
		{"date", cell.Time.Format("2006-01-02 15:04")},
		{"subject", html.UnescapeString(cell.Message)},
	}
	if len(cell.Branches) > 0 {
		rows = append(rows, []string{"branches", strings.Join(cell.Branches, ", ")})
	}
	if cell.Source != "" {
		rows = append(rows, []string{"source", cell.Source})
	}

	labelStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return labelStyle
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})
	return t.Render()
}

// =============================================================================
// Text Rendering
// =============================================================================

// textRows draws limit rows of the layout, starting at cell index start, as
// plain text: one glyph per lane followed by the short ID and subject.
//
// An edge that skips rows is drawn in the child's lane when that lane has no
// commit in between, otherwise in the parent's lane. Parents outside the
// layout continue to the bottom in the child's lane.
func textRows(l graph.Layout, start, limit int) []string {
	start = max(start, 0)
	end := min(start+limit, len(l.Cells))
	if start >= end {
		return nil
	}

	index := make(map[string]int, len(l.Cells))
	occ := lanes.New()
	for i, c := range l.Cells {
		index[c.ID] = i
		occ.Set(c.Column, i)
	}

	width := max(l.Columns, 1) * 2
	grid := make([][]rune, end-start)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}
	mark := func(col, from, to int) {
		for r := max(from+1, start); r < min(to, end); r++ {
			if x := col * 2; x < width && grid[r-start][x] == ' ' {
				grid[r-start][x] = glyphLane
			}
		}
	}

	for i, c := range l.Cells {
		if i >= end {
			break
		}
		for _, p := range c.Parents {
			pi, ok := index[p]
			if !ok {
				mark(c.Column, i, len(l.Cells))
				continue
			}
			if pi <= i+1 || pi < start {
				continue
			}
			col := c.Column
			if occ.Between(col, i, pi) {
				col = l.Cells[pi].Column
			}
			mark(col, i, pi)
		}
	}

	out := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		c := l.Cells[i]
		glyph := glyphCommit
		if c.Merge {
			glyph = glyphMerge
		}
		if x := c.Column * 2; x < width {
			grid[i-start][x] = glyph
		}
		id := c.ID
		if len(id) > shortID {
			id = id[:shortID]
		}
		line := strings.TrimRight(string(grid[i-start]), " ")
		line = fmt.Sprintf("%-*s %s %s", width, line, id, firstLine(html.UnescapeString(c.Message)))
		out = append(out, strings.TrimRight(line, " "))
	}
	return out
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
