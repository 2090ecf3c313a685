package main

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/lorekeeper/pkg/chat"
	"github.com/jwebster45206/lorekeeper/pkg/state"
)

const NotePlaceholderText = "Describe what happened, then press Enter to save it to the lore..."

// sceneEntry is one resolved step of the playthrough, kept raw so the
// transcript can be rewrapped on resize.
type sceneEntry struct {
	Title     string
	Text      string
	Choice    string // label of the choice that left this scene
	Generated bool
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	client       *http.Client
	save         *state.SaveState
	scene        *state.Scene
	history      []sceneEntry
	chatViewport viewport.Model
	metaViewport viewport.Model
	noteInput    textarea.Model
	ready        bool
	width        int
	height       int
	err          error
	loading      bool

	selectedChoice int
	noteMode       bool
	statusLine     string

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int
}

type turnResultMsg struct {
	response *chat.TurnResponse
	err      error
}

type saveStateMsg struct {
	save *state.SaveState
	err  error
}

type narrativeSavedMsg struct {
	err error
}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	sceneTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	selectedChoiceStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)

	chosenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client, save *state.SaveState, scene *state.Scene) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = NotePlaceholderText
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 2000
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:       cfg,
		client:       client,
		save:         save,
		scene:        scene,
		noteInput:    ta,
		chatViewport: chatVp,
		metaViewport: metaVp,
		ready:        false,
	}
}

func writeMetadata(s *state.SaveState) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("LOREKEEPER") + "\n\n")

	content.WriteString("Save ID:\n")
	content.WriteString(s.ID.String()[:8] + "...\n\n")

	content.WriteString("Position:\n")
	content.WriteString(fmt.Sprintf("%s / %s\n%s\n\n", s.Position.Act, s.Position.Chapter, s.Position.Scene))

	lvl := state.ComputeLevel(s.Stats)
	content.WriteString("Level:\n")
	content.WriteString(fmt.Sprintf("%s (%d)\n\n", lvl.Title, lvl.Total))

	if len(s.Stats) > 0 {
		content.WriteString("Stats:\n")
		names := make([]string, 0, len(s.Stats))
		for k := range s.Stats {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			content.WriteString(fmt.Sprintf("• %s: %d\n", k, s.Stats[k]))
		}
		content.WriteString("\n")
	}

	if len(s.Companions) > 0 {
		content.WriteString("Companions:\n")
		for _, c := range s.Companions {
			if c.Status != "" {
				content.WriteString(fmt.Sprintf("• %s (%s)\n", c.Name, c.Status))
			} else {
				content.WriteString(fmt.Sprintf("• %s\n", c.Name))
			}
		}
		content.WriteString("\n")
	}

	content.WriteString("Commands:\n")
	content.WriteString("• ↑/↓: Select choice\n")
	content.WriteString("• Enter or 1-4: Choose\n")
	content.WriteString("• s: Save narrative\n")
	content.WriteString("• y: Copy save ID\n")
	content.WriteString("• Ctrl+C: Quit\n")

	return content.String()
}

// writeChatContent rebuilds the transcript and current scene for the
// current viewport width.
func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6
	if chatWidth < 20 {
		chatWidth = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("LOREKEEPER") + "\n\n")
	content.WriteString("Choose how the story unfolds.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", chatWidth-6)) + "\n\n")

	for _, entry := range m.history {
		content.WriteString(sceneTitleStyle.Render(entry.Title) + "\n")
		content.WriteString(narratorStyle.Render(wordwrap.String(entry.Text, chatWidth)) + "\n")
		content.WriteString(chosenStyle.Render("You chose: "+entry.Choice) + "\n\n")
	}

	if m.scene != nil {
		content.WriteString(sceneTitleStyle.Render(m.scene.Title) + "\n")
		content.WriteString(narratorStyle.Render(wordwrap.String(m.scene.Text, chatWidth)) + "\n\n")

		for i, c := range m.scene.Choices {
			line := fmt.Sprintf(" %d. %s", i+1, c.Label)
			if i == m.selectedChoice && !m.loading && !m.noteMode {
				content.WriteString(selectedChoiceStyle.Render("▶"+line) + "\n")
			} else {
				content.WriteString(choiceStyle.Render(" "+line) + "\n")
			}
		}
		content.WriteString("\n")
	}

	if m.loading {
		content.WriteString(m.renderProgressBar())
	}

	if m.statusLine != "" {
		content.WriteString(loadingStyle.Render(m.statusLine) + "\n")
	}

	if m.err != nil {
		content.WriteString(errorStyle.Render("Error: "+m.err.Error()) + "\n")
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func (m ConsoleUI) Init() tea.Cmd {
	return nil
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		chatWidth := int(float64(m.width)*0.75) - 4
		metaWidth := m.width - chatWidth - 6

		m.chatViewport.Width = chatWidth - 2
		m.chatViewport.Height = m.height - 7
		m.metaViewport.Width = metaWidth - 2
		m.metaViewport.Height = m.height - 4
		m.noteInput.SetWidth(chatWidth - 4)

		m.ready = true
		m.writeChatContent()
		if m.save != nil {
			m.metaViewport.SetContent(writeMetadata(m.save))
		}

	case tea.KeyMsg:
		if m.noteMode {
			return m.updateNoteMode(msg)
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil

		case tea.KeyUp:
			if m.selectedChoice > 0 {
				m.selectedChoice--
				m.writeChatContent()
			}
			return m, nil

		case tea.KeyDown:
			if m.scene != nil && m.selectedChoice < len(m.scene.Choices)-1 {
				m.selectedChoice++
				m.writeChatContent()
			}
			return m, nil

		case tea.KeyEnter:
			return m.resolveSelectedChoice()

		default:
			switch msg.String() {
			case "1", "2", "3", "4":
				idx := int(msg.String()[0] - '1')
				if m.scene != nil && idx < len(m.scene.Choices) {
					m.selectedChoice = idx
					return m.resolveSelectedChoice()
				}
			case "s":
				if !m.loading {
					m.noteMode = true
					m.statusLine = ""
					m.noteInput.Focus()
					m.writeChatContent()
					return m, textarea.Blink
				}
			case "y":
				if m.save != nil {
					if err := clipboard.WriteAll(m.save.ID.String()); err != nil {
						m.statusLine = "Could not copy save ID"
					} else {
						m.statusLine = "Save ID copied to clipboard"
					}
					m.writeChatContent()
				}
			}
		}

	case turnResultMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.writeChatContent()
			return m, nil
		}
		m.err = nil
		m.scene = msg.response.Scene
		m.selectedChoice = 0
		if msg.response.Generated {
			m.statusLine = "The path ahead was conjured just for you."
		} else {
			m.statusLine = ""
		}
		m.writeChatContent()
		return m, m.refreshSaveState()

	case saveStateMsg:
		if msg.err == nil && msg.save != nil {
			m.save = msg.save
			m.metaViewport.SetContent(writeMetadata(m.save))
		}

	case narrativeSavedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.statusLine = "Narrative saved to the lore."
		}
		m.writeChatContent()
		return m, nil

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeChatContent()
			return m, progressTick()
		}
	}

	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func (m ConsoleUI) updateNoteMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.noteMode = false
		m.noteInput.Reset()
		m.noteInput.Blur()
		m.writeChatContent()
		return m, nil

	case tea.KeyCtrlC:
		m.showQuitModal = true
		return m, nil

	case tea.KeyEnter:
		note := strings.TrimSpace(m.noteInput.Value())
		if note == "" {
			return m, nil
		}
		m.noteMode = false
		m.noteInput.Reset()
		m.noteInput.Blur()
		m.loading = true
		m.progressTick = 0
		m.statusLine = "Weaving the narrative into the lore..."
		m.writeChatContent()
		return m, tea.Batch(m.saveNarrative(note), progressTick())
	}

	var cmd tea.Cmd
	m.noteInput, cmd = m.noteInput.Update(msg)
	return m, cmd
}

func (m ConsoleUI) resolveSelectedChoice() (tea.Model, tea.Cmd) {
	if m.loading || m.scene == nil || len(m.scene.Choices) == 0 {
		return m, nil
	}
	if m.selectedChoice >= len(m.scene.Choices) {
		m.selectedChoice = 0
	}

	choice := m.scene.Choices[m.selectedChoice]
	m.history = append(m.history, sceneEntry{
		Title:  m.scene.Title,
		Text:   m.scene.Text,
		Choice: choice.Label,
	})

	m.loading = true
	m.progressTick = 0
	m.statusLine = ""
	m.err = nil
	m.writeChatContent()

	return m, tea.Batch(m.resolveTurn(choice.ID), progressTick())
}

func (m ConsoleUI) resolveTurn(choiceID string) tea.Cmd {
	return func() tea.Msg {
		resp, err := postTurn(m.client, m.config.APIBaseURL, m.save.ID, choiceID)
		return turnResultMsg{resp, err}
	}
}

func (m ConsoleUI) refreshSaveState() tea.Cmd {
	return func() tea.Msg {
		s, err := getSaveState(m.client, m.config.APIBaseURL, m.save.ID)
		return saveStateMsg{s, err}
	}
}

// saveNarrative sends the visible transcript plus the player's note for
// a lore update.
func (m ConsoleUI) saveNarrative(note string) tea.Cmd {
	var narrative strings.Builder
	for _, entry := range m.history {
		narrative.WriteString(entry.Title + "\n")
		narrative.WriteString(entry.Text + "\n")
		narrative.WriteString("Chose: " + entry.Choice + "\n\n")
	}
	narrative.WriteString(note)

	return func() tea.Msg {
		err := postNarrativeSave(m.client, m.config.APIBaseURL, m.save.ID, narrative.String())
		return narrativeSavedMsg{err}
	}
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				if m.noteMode {
					m.noteInput.Focus()
					return m, textarea.Blink
				}
				return m, nil
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to leave the story?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	var bottom string
	if m.noteMode {
		bottom = lipgloss.JoinVertical(lipgloss.Left,
			separatorStyle.Render(strings.Repeat("─", chatWidth-4)),
			m.noteInput.View(),
		)
	} else {
		bottom = separatorStyle.Render(strings.Repeat("─", chatWidth-4))
	}

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			bottom,
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar draws the animated bar shown while a request is in
// flight.
func (m ConsoleUI) renderProgressBar() string {
	usable := m.chatViewport.Width - 6
	if usable <= 0 {
		usable = 30
	}

	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓")
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String()) + "\n"
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
