package cleanup

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// ConfirmWord must be typed to approve deleting the data directory.
const ConfirmWord = "delete"

var (
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	pathStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	hintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// confirmModel asks the user to type ConfirmWord.
type confirmModel struct {
	path      string
	input     textinput.Model
	confirmed bool
	done      bool
}

func newConfirmModel(path string) confirmModel {
	input := textinput.New()
	input.Placeholder = ConfirmWord
	input.CharLimit = 32
	input.Width = 20
	input.Focus()

	return confirmModel{path: path, input: input}
}

func (m confirmModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyEnter:
			m.confirmed = strings.TrimSpace(m.input.Value()) == ConfirmWord
			m.done = true
			return m, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			m.done = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m confirmModel) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	b.WriteString(warnStyle.Render("This permanently deletes installed data:"))
	b.WriteString("\n  ")
	b.WriteString(pathStyle.Render(m.path))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Type %q to confirm: %s\n", ConfirmWord, m.input.View())
	b.WriteString(hintStyle.Render("enter to submit, esc to keep the data"))
	b.WriteString("\n")
	return b.String()
}

// PromptConfirm returns a Confirm function that runs an interactive prompt
// on in/out. It reports false without prompting when in is not a terminal.
func PromptConfirm(in *os.File, out io.Writer) func(path string) (bool, error) {
	return func(path string) (bool, error) {
		if !term.IsTerminal(int(in.Fd())) {
			return false, nil
		}
		return runConfirm(path, tea.WithInput(in), tea.WithOutput(out))
	}
}

func runConfirm(path string, opts ...tea.ProgramOption) (bool, error) {
	final, err := tea.NewProgram(newConfirmModel(path), opts...).Run()
	if err != nil {
		return false, fmt.Errorf("confirmation prompt: %w", err)
	}
	m, ok := final.(confirmModel)
	return ok && m.confirmed, nil
}
