package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wasmflow/substate/host"
	"github.com/wasmflow/substate/manifest"
)

func newInspectCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <manifest>",
		Short: "Browse a package's modules and wasm exports",
		Long: `Open an interactive view of a manifest: its modules, their kinds and
update policies, and the exports of the wasm binaries they run in.
Type to filter modules by name.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(args[0])
		},
	}
}

var (
	inspectTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FAFAFA")).
				Background(lipgloss.Color("#5F5FD7")).
				Padding(0, 1)

	moduleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#98FB98"))
	kindStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB"))
	exportOkStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90"))
	missingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	detailStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	inspectHelp   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

type moduleRow struct {
	mod       manifest.Module
	binary    string
	hasExport bool
	loadErr   error
}

type inspectModel struct {
	manifestPath string
	man          *manifest.Manifest
	rows         []moduleRow
	filter       textinput.Model
	selected     int
	width        int
	err          error
}

type inspectLoadedMsg struct {
	rows []moduleRow
	err  error
}

func newInspectModel(manifestPath string, width int) *inspectModel {
	ti := textinput.New()
	ti.Placeholder = "filter modules"
	ti.Prompt = "/ "
	ti.Focus()
	return &inspectModel{manifestPath: manifestPath, filter: ti, width: width}
}

func (m *inspectModel) Init() tea.Cmd {
	return m.loadManifest
}

// loadManifest parses the manifest and compiles each referenced binary
// once to learn its exports.
func (m *inspectModel) loadManifest() tea.Msg {
	man, err := manifest.Load(m.manifestPath)
	if err != nil {
		return inspectLoadedMsg{err: err}
	}
	m.man = man

	ctx := context.Background()
	rt, err := host.NewRuntime(ctx, nil)
	if err != nil {
		return inspectLoadedMsg{err: err}
	}
	defer rt.Close(ctx)

	exportsByBinary := make(map[string]map[string]bool)
	errsByBinary := make(map[string]error)

	rows := make([]moduleRow, 0, len(man.Modules))
	for i := range man.Modules {
		mod := man.Modules[i]
		binPath, err := man.BinaryFor(&mod)
		if err != nil {
			rows = append(rows, moduleRow{mod: mod, loadErr: err})
			continue
		}
		if !filepath.IsAbs(binPath) {
			binPath = filepath.Join(filepath.Dir(m.manifestPath), binPath)
		}

		exports, ok := exportsByBinary[binPath]
		if !ok {
			if _, tried := errsByBinary[binPath]; !tried {
				exports, errsByBinary[binPath] = loadExports(ctx, rt, binPath)
				exportsByBinary[binPath] = exports
			}
		}
		rows = append(rows, moduleRow{
			mod:       mod,
			binary:    binPath,
			hasExport: exports[mod.Name],
			loadErr:   errsByBinary[binPath],
		})
	}
	return inspectLoadedMsg{rows: rows}
}

func loadExports(ctx context.Context, rt *host.Runtime, binPath string) (map[string]bool, error) {
	wasmBytes, err := os.ReadFile(binPath)
	if err != nil {
		return nil, err
	}
	guest, err := rt.Load(ctx, wasmBytes)
	if err != nil {
		return nil, err
	}
	defer guest.Close(ctx)

	names := guest.Exports()
	sort.Strings(names)
	exports := make(map[string]bool, len(names))
	for _, name := range names {
		exports[name] = true
	}
	return exports, nil
}

func (m *inspectModel) visibleRows() []moduleRow {
	needle := strings.ToLower(m.filter.Value())
	if needle == "" {
		return m.rows
	}
	var out []moduleRow
	for _, r := range m.rows {
		if strings.Contains(strings.ToLower(r.mod.Name), needle) {
			out = append(out, r)
		}
	}
	return out
}

func (m *inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "up":
			if m.selected > 0 {
				m.selected--
			}
			return m, nil
		case "down":
			if m.selected < len(m.visibleRows())-1 {
				m.selected++
			}
			return m, nil
		}

	case inspectLoadedMsg:
		m.rows = msg.rows
		m.err = msg.err
		return m, nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	if m.selected >= len(m.visibleRows()) {
		m.selected = 0
	}
	return m, cmd
}

func (m *inspectModel) View() string {
	var b strings.Builder

	b.WriteString(inspectTitleStyle.Render("substate inspect"))
	b.WriteString(" ")
	b.WriteString(m.manifestPath)
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(missingStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
		b.WriteString(inspectHelp.Render("esc quit"))
		return b.String()
	}
	if m.rows == nil {
		b.WriteString("Loading manifest...")
		return b.String()
	}

	b.WriteString(m.filter.View())
	b.WriteString("\n\n")

	rows := m.visibleRows()
	if len(rows) == 0 {
		b.WriteString(detailStyle.Render("No modules match."))
		b.WriteString("\n")
	}
	for i, r := range rows {
		cursor := "  "
		if i == m.selected {
			cursor = "> "
		}
		line := cursor + moduleStyle.Render(r.mod.Name) + " " + kindStyle.Render(r.mod.Kind)
		if r.mod.Kind == manifest.KindStore {
			line += detailStyle.Render(fmt.Sprintf(" %s<%s>", r.mod.UpdatePolicy, r.mod.ValueType))
		}
		switch {
		case r.loadErr != nil:
			line += " " + missingStyle.Render("binary unavailable")
		case r.hasExport:
			line += " " + exportOkStyle.Render("export ok")
		default:
			line += " " + missingStyle.Render("export missing")
		}
		b.WriteString(truncateLine(line, m.width))
		b.WriteString("\n")
	}

	if m.selected < len(rows) {
		r := rows[m.selected]
		b.WriteString("\n")
		b.WriteString(detailStyle.Render(fmt.Sprintf("binary: %s", r.binary)))
		b.WriteString("\n")
		for _, in := range r.mod.Inputs {
			b.WriteString(detailStyle.Render("input: " + describeInput(in)))
			b.WriteString("\n")
		}
		if r.loadErr != nil {
			b.WriteString(missingStyle.Render(fmt.Sprintf("load error: %v", r.loadErr)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(inspectHelp.Render("↑/↓ select • type to filter • esc quit"))
	return b.String()
}

func describeInput(in manifest.Input) string {
	switch {
	case in.Source != "":
		return "source " + in.Source
	case in.Map != "":
		return "map " + in.Map
	default:
		return "store " + in.Store + " (" + in.InputMode() + ")"
	}
}

func truncateLine(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}

func runInspect(manifestPath string) error {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		width = 80
	}
	p := tea.NewProgram(newInspectModel(manifestPath, width), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
