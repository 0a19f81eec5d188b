package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/gamemaster-agent/pkg/character"
	"github.com/jwebster45206/gamemaster-agent/pkg/chat"
	"github.com/jwebster45206/gamemaster-agent/pkg/events"
	"github.com/jwebster45206/gamemaster-agent/pkg/story"
)

const (
	AgentName       = "Game Master"
	PlaceHolderText = "What do you do?"
	maxNotes        = 5
)

type screen int

const (
	screenSelect screen = iota
	screenCreate
	screenChat
)

type lineKind int

const (
	lineUser lineKind = iota
	lineGM
	lineTool
	lineNotice
	lineError
)

type chatLine struct {
	kind lineKind
	text string
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config *ConsoleConfig
	api    *APIClient
	screen screen

	// story selection
	stories        []story.Summary
	selected       int
	loadingStories bool

	// story creation form
	worldInput textinput.Model
	charInput  textinput.Model
	creating   bool

	// current story
	storyID   uuid.UUID
	record    *story.Record
	lines     []chatLine
	streaming string
	notes     []string
	events    chan events.Event
	stopSSE   context.CancelFunc

	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error
	loading      bool

	showQuitModal bool
	progressTick  int
}

type storiesLoadedMsg struct {
	stories []story.Summary
	err     error
}

type storyCreatedMsg struct {
	id  uuid.UUID
	err error
}

type storyMsg struct {
	record *story.Record
	err    error
}

type chatSentMsg struct {
	requestID string
	err       error
}

type characterMsg struct {
	snapshot *character.Snapshot
	err      error
}

type exportedMsg struct {
	path string
	err  error
}

type sseEventMsg struct{ event events.Event }

type sseClosedMsg struct{}

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

	gmStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	toolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

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

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

func NewConsoleUI(cfg *ConsoleConfig, api *APIClient) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = chat.MaxMessageLength
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	world := textinput.New()
	world.Placeholder = "A drowned city ruled by smugglers..."
	world.CharLimit = 4000
	world.Width = 50

	char := textinput.New()
	char.Placeholder = "A disgraced lighthouse keeper..."
	char.CharLimit = 4000
	char.Width = 50

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	return ConsoleUI{
		config:         cfg,
		api:            api,
		screen:         screenSelect,
		loadingStories: true,
		worldInput:     world,
		charInput:      char,
		textarea:       ta,
		chatViewport:   chatVp,
		metaViewport:   viewport.New(20, 20),
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.loadStories()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}
	if ws, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = ws.Width
		m.height = ws.Height
		m.layout()
	}

	switch m.screen {
	case screenSelect:
		return m.updateSelect(msg)
	case screenCreate:
		return m.updateCreate(msg)
	}
	return m.updateChat(msg)
}

func (m *ConsoleUI) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	chatWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - chatWidth - 6

	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)

	if m.screen == screenChat {
		m.ready = true
		m.writeChatContent()
		m.metaViewport.SetContent(m.writeMetadata())
	}
}

func (m ConsoleUI) updateSelect(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case storiesLoadedMsg:
		m.loadingStories = false
		m.err = msg.err
		m.stories = msg.stories

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			if m.loadingStories {
				return m, tea.Quit
			}
			m.showQuitModal = true
		case tea.KeyUp:
			if m.selected > 0 {
				m.selected--
			}
		case tea.KeyDown:
			// the last entry is "new story"
			if m.selected < len(m.stories) {
				m.selected++
			}
		case tea.KeyEnter:
			if m.loadingStories || m.err != nil {
				return m, nil
			}
			if m.selected == len(m.stories) {
				m.screen = screenCreate
				return m, m.worldInput.Focus()
			}
			return m.openStory(m.stories[m.selected].ID, false)
		}
	}
	return m, nil
}

func (m ConsoleUI) updateCreate(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case storyCreatedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.loading = false
			return m, nil
		}
		return m.openStory(msg.id, true)

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEsc:
			m.screen = screenSelect
			m.err = nil
			return m, nil
		case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
			if m.worldInput.Focused() {
				m.worldInput.Blur()
				return m, m.charInput.Focus()
			}
			m.charInput.Blur()
			return m, m.worldInput.Focus()
		case tea.KeyEnter:
			if m.worldInput.Focused() {
				m.worldInput.Blur()
				return m, m.charInput.Focus()
			}
			if m.loading || strings.TrimSpace(m.charInput.Value()) == "" {
				return m, nil
			}
			m.loading = true
			m.err = nil
			return m, m.createStory(m.worldInput.Value(), m.charInput.Value())
		}
	}

	var wCmd, cCmd tea.Cmd
	m.worldInput, wCmd = m.worldInput.Update(msg)
	m.charInput, cCmd = m.charInput.Update(msg)
	return m, tea.Batch(wCmd, cCmd)
}

// openStory switches to the chat screen and subscribes to the story's
// events. The story itself is fetched once the stream is connected so no
// event between the two is lost.
func (m ConsoleUI) openStory(id uuid.UUID, creating bool) (tea.Model, tea.Cmd) {
	m.screen = screenChat
	m.storyID = id
	m.creating = creating
	m.loading = creating
	m.err = nil
	m.lines = nil
	m.notes = nil
	m.streaming = ""
	if creating {
		m.lines = []chatLine{{kind: lineNotice, text: "Creating your character..."}}
	}
	m.layout()

	ctx, cancel := context.WithCancel(context.Background())
	m.stopSSE = cancel
	m.events = make(chan events.Event, 64)
	go func(api *APIClient, ch chan events.Event) {
		_ = api.listenToSSE(ctx, id, ch)
	}(m.api, m.events)

	cmds := []tea.Cmd{waitForEvent(m.events), m.textarea.Focus(), textarea.Blink}
	if creating {
		cmds = append(cmds, progressTick())
	}
	return m, tea.Batch(cmds...)
}

func (m ConsoleUI) updateChat(msg tea.Msg) (tea.Model, tea.Cmd) {
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

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()
			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}

			m.loading = true
			m.progressTick = 0
			m.lines = append(m.lines, chatLine{kind: lineUser, text: input})
			m.writeChatContent()
			return m, tea.Batch(m.sendChat(input), progressTick())
		}

	case sseEventMsg:
		cmd := m.handleEvent(msg.event)
		m.writeChatContent()
		m.metaViewport.SetContent(m.writeMetadata())
		return m, tea.Batch(cmd, waitForEvent(m.events))

	case sseClosedMsg:
		m.lines = append(m.lines, chatLine{kind: lineError, text: "Event stream closed. Restart the console to reconnect."})
		m.loading = false
		m.writeChatContent()
		return m, nil

	case storyMsg:
		if msg.err != nil {
			m.lines = append(m.lines, chatLine{kind: lineError, text: msg.err.Error()})
		} else {
			m.record = msg.record
			m.lines = linesFromHistory(msg.record.ChatHistory)
			if m.creating && msg.record.Character != nil && len(m.lines) > 0 {
				m.creating = false
				m.loading = false
			}
			if m.creating {
				m.lines = append(m.lines, chatLine{kind: lineNotice, text: "Creating your character..."})
			}
		}
		m.writeChatContent()
		m.metaViewport.SetContent(m.writeMetadata())

	case chatSentMsg:
		if msg.err != nil {
			m.loading = false
			m.lines = append(m.lines, chatLine{kind: lineError, text: "Error: " + msg.err.Error()})
			m.writeChatContent()
		}

	case characterMsg:
		if msg.err != nil {
			m.lines = append(m.lines, chatLine{kind: lineError, text: "Error: " + msg.err.Error()})
		} else if m.record != nil {
			m.record.Character = msg.snapshot
			m.lines = append(m.lines, chatLine{kind: lineNotice, text: "Character renamed to " + msg.snapshot.Name + "."})
		}
		m.writeChatContent()
		m.metaViewport.SetContent(m.writeMetadata())

	case exportedMsg:
		if msg.err != nil {
			m.lines = append(m.lines, chatLine{kind: lineError, text: "Export failed: " + msg.err.Error()})
		} else {
			m.lines = append(m.lines, chatLine{kind: lineNotice, text: "Story exported to " + msg.path})
		}
		m.writeChatContent()

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeChatContent()
			return m, progressTick()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

// handleEvent folds one story event into the view
func (m *ConsoleUI) handleEvent(e events.Event) tea.Cmd {
	switch e.Type {
	case "connected":
		return m.refreshStory()
	case events.KindPartialContent:
		m.streaming += e.Content
	case events.KindComplete:
		if strings.TrimSpace(e.Content) != "" {
			m.lines = append(m.lines, chatLine{kind: lineGM, text: e.Content})
		}
		m.streaming = ""
	case events.KindToolCallAnnounced:
		if e.ToolCall != nil {
			args, _ := json.Marshal(e.ToolCall.Arguments)
			m.lines = append(m.lines, chatLine{kind: lineTool, text: fmt.Sprintf("⚙ %s %s", e.ToolCall.Name, args)})
		}
	case events.KindToolOutput:
		if e.ToolCall != nil {
			m.lines = append(m.lines, chatLine{kind: lineTool, text: "  ↳ " + e.ToolCall.Output})
		}
	case events.KindObservationResult:
		m.notes = append(m.notes, e.Content)
		if len(m.notes) > maxNotes {
			m.notes = m.notes[len(m.notes)-maxNotes:]
		}
	case events.KindCharacterSnapshot:
		if m.record != nil && e.Character != nil {
			m.record.Character = e.Character
		}
	case events.KindSystemNotice:
		m.lines = append(m.lines, chatLine{kind: lineNotice, text: e.Content})
	case events.KindError:
		m.lines = append(m.lines, chatLine{kind: lineError, text: "Error: " + e.Content})
	case events.KindRequestFailed:
		m.loading = false
		m.creating = false
		m.streaming = ""
		if msg, ok := e.Data["error"].(string); ok {
			m.lines = append(m.lines, chatLine{kind: lineError, text: "Request failed: " + msg})
		}
	case events.KindRequestCompleted:
		m.loading = false
		m.streaming = ""
		return m.refreshStory()
	}
	return nil
}

// linesFromHistory renders a persisted transcript. System entries are not shown.
func linesFromHistory(history []chat.Entry) []chatLine {
	var out []chatLine
	for _, e := range history {
		switch e.Role {
		case chat.RoleUser:
			out = append(out, chatLine{kind: lineUser, text: e.Content})
		case chat.RoleAssistant:
			if strings.TrimSpace(e.Content) != "" {
				out = append(out, chatLine{kind: lineGM, text: e.Content})
			}
		case chat.RoleTool:
			out = append(out, chatLine{kind: lineTool, text: "  ↳ " + e.Content})
		}
	}
	return out
}

func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6
	if chatWidth < 20 {
		chatWidth = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("GAME MASTER") + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", chatWidth)) + "\n\n")

	for _, l := range m.lines {
		content.WriteString(renderLine(l, chatWidth) + "\n\n")
	}
	if m.streaming != "" {
		content.WriteString(renderLine(chatLine{kind: lineGM, text: m.streaming}, chatWidth) + "\n\n")
	}
	if m.loading {
		content.WriteString(m.renderProgressBar())
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func renderLine(l chatLine, width int) string {
	switch l.kind {
	case lineUser:
		return userStyle.Render("You: ") + wordwrap.String(l.text, width-5)
	case lineGM:
		return gmStyle.Render(AgentName+": ") + wordwrap.String(l.text, width-len(AgentName)-2)
	case lineTool:
		return toolStyle.Render(wordwrap.String(l.text, width))
	case lineError:
		return errorStyle.Render(wordwrap.String(l.text, width))
	}
	return loadingStyle.Render(wordwrap.String(l.text, width))
}

func (m ConsoleUI) writeMetadata() string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("CHARACTER") + "\n\n")

	if m.record == nil || m.record.Character == nil {
		content.WriteString("Not created yet\n\n")
	} else {
		content.WriteString(characterSheet(m.record.Character))
	}

	if len(m.notes) > 0 {
		content.WriteString("\n" + titleStyle.Render("OBSERVATIONS") + "\n\n")
		for _, n := range m.notes {
			content.WriteString(wordwrap.String("• "+n, max(m.metaViewport.Width, 10)) + "\n")
		}
	}

	content.WriteString("\nStory:\n")
	content.WriteString(m.storyID.String()[:8] + "...\n\n")
	content.WriteString("Commands:\n")
	content.WriteString("• Enter: Send\n")
	content.WriteString("• /help: Help\n")
	content.WriteString("• Ctrl+C: Quit\n")
	return content.String()
}

func characterSheet(c *character.Snapshot) string {
	var b strings.Builder
	b.WriteString(c.Name + "\n")
	b.WriteString(fmt.Sprintf("Level %d  (XP %d/%d)\n", c.LevelAndExperience.Level, c.LevelAndExperience.Experience, c.LevelAndExperience.ExperienceToNextLevel))
	b.WriteString(fmt.Sprintf("Health %d/%d\n", c.HealthAndMana.CurrentHealth, c.HealthAndMana.MaxHealth))
	b.WriteString(fmt.Sprintf("Mana   %d/%d\n\n", c.HealthAndMana.CurrentMana, c.HealthAndMana.MaxMana))
	b.WriteString(fmt.Sprintf("STR %2d  DEX %2d  CON %2d\n", c.Stats.Strength, c.Stats.Dexterity, c.Stats.Constitution))
	b.WriteString(fmt.Sprintf("INT %2d  WIS %2d  CHA %2d\n\n", c.Stats.Intelligence, c.Stats.Wisdom, c.Stats.Charisma))

	b.WriteString("Equipment:\n")
	for _, slot := range character.Slots {
		if itm := c.Equipment[slot]; itm != nil {
			b.WriteString(fmt.Sprintf("• %s: %s\n", slot.DisplayName(), itm.Name))
		}
	}
	b.WriteString("\nInventory:\n")
	if len(c.Inventory.Items) == 0 {
		b.WriteString("Empty\n")
	}
	items := append([]character.Item(nil), c.Inventory.Items...)
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	for _, itm := range items {
		b.WriteString(fmt.Sprintf("• %s x%d\n", itm.Name, itm.Amount))
	}
	return b.String()
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	cmd, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "/help":
		m.lines = append(m.lines, chatLine{kind: lineNotice, text: `Commands:
• /help - Show this help
• /sheet - Show the character sheet
• /copy - Copy the last narration to the clipboard
• /rename <name> - Rename your character
• /export - Save the story as a PDF
• Ctrl+C - Quit

Type your actions and press Enter. The game master narrates the result.`})

	case "/sheet":
		if m.record != nil && m.record.Character != nil {
			m.lines = append(m.lines, chatLine{kind: lineNotice, text: characterSheet(m.record.Character)})
		}

	case "/copy":
		for i := len(m.lines) - 1; i >= 0; i-- {
			if m.lines[i].kind != lineGM {
				continue
			}
			if err := clipboard.WriteAll(m.lines[i].text); err != nil {
				m.lines = append(m.lines, chatLine{kind: lineError, text: "Copy failed: " + err.Error()})
			} else {
				m.lines = append(m.lines, chatLine{kind: lineNotice, text: "Copied to clipboard."})
			}
			break
		}

	case "/rename":
		if arg == "" {
			m.lines = append(m.lines, chatLine{kind: lineError, text: "Usage: /rename <name>"})
			break
		}
		m.writeChatContent()
		return m, m.renameCharacter(arg)

	case "/export":
		return m, m.exportStory()

	default:
		m.lines = append(m.lines, chatLine{kind: lineError, text: "Unknown command " + cmd + ". Try /help."})
	}

	m.writeChatContent()
	return m, nil
}

func waitForEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return sseClosedMsg{}
		}
		return sseEventMsg{event: e}
	}
}

func (m ConsoleUI) loadStories() tea.Cmd {
	return func() tea.Msg {
		stories, err := m.api.listStories(m.config.Owner)
		return storiesLoadedMsg{stories, err}
	}
}

func (m ConsoleUI) createStory(world, characterDesc string) tea.Cmd {
	return func() tea.Msg {
		id, err := m.api.createStory(m.config.Owner, world, characterDesc)
		return storyCreatedMsg{id, err}
	}
}

func (m ConsoleUI) refreshStory() tea.Cmd {
	id := m.storyID
	return func() tea.Msg {
		rec, err := m.api.getStory(id)
		return storyMsg{rec, err}
	}
}

func (m ConsoleUI) sendChat(message string) tea.Cmd {
	id := m.storyID
	return func() tea.Msg {
		requestID, err := m.api.sendChat(id, message)
		return chatSentMsg{requestID, err}
	}
}

func (m ConsoleUI) renameCharacter(name string) tea.Cmd {
	id := m.storyID
	return func() tea.Msg {
		snap, err := m.api.renameCharacter(id, name)
		return characterMsg{snap, err}
	}
}

func (m ConsoleUI) exportStory() tea.Cmd {
	id := m.storyID
	return func() tea.Msg {
		path, err := m.api.exportStory(id, m.config.ExportDir)
		return exportedMsg{path, err}
	}
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m.quit()
		default:
			switch msg.String() {
			case "y", "Y":
				return m.quit()
			case "n", "N":
				m.showQuitModal = false
				if m.screen == screenChat {
					return m, m.textarea.Focus()
				}
			}
		}
	}
	return m, nil
}

func (m ConsoleUI) quit() (tea.Model, tea.Cmd) {
	if m.stopSSE != nil {
		m.stopSSE()
	}
	return m, tea.Quit
}

func (m ConsoleUI) renderQuitModal() string {
	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to leave your adventure? It is saved after every turn.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderSelectModal() string {
	var content strings.Builder

	switch {
	case m.loadingStories:
		content.WriteString(modalTitleStyle.Render("Loading Stories..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Please wait while we fetch your stories..."))
	case m.err != nil:
		content.WriteString(modalTitleStyle.Render("Error"))
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(fmt.Sprintf("Failed to load stories: %v", m.err)))
		content.WriteString("\n\n")
		content.WriteString("Press Ctrl+C to exit")
	default:
		content.WriteString(modalTitleStyle.Render("Select a Story"))
		content.WriteString("\n\n")

		options := make([]string, 0, len(m.stories)+1)
		for _, s := range m.stories {
			label := s.Title
			if label == "" {
				label = "Untitled"
			}
			if s.CharacterName != "" {
				label = fmt.Sprintf("%s (%s, level %d)", label, s.CharacterName, s.Level)
			}
			options = append(options, label)
		}
		options = append(options, "✚ New story")

		for i, opt := range options {
			if i == m.selected {
				content.WriteString(modalSelectedItemStyle.Render("▶ " + opt))
			} else {
				content.WriteString(modalItemStyle.Render("  " + opt))
			}
			content.WriteString("\n")
		}
		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderCreateModal() string {
	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("New Story"))
	content.WriteString("\n\n")
	content.WriteString("Describe the world:\n")
	content.WriteString(m.worldInput.View())
	content.WriteString("\n\n")
	content.WriteString("Describe your character:\n")
	content.WriteString(m.charInput.View())
	content.WriteString("\n\n")
	switch {
	case m.loading:
		content.WriteString(loadingStyle.Render("Setting up your adventure..."))
	case m.err != nil:
		content.WriteString(errorStyle.Render(m.err.Error()))
	default:
		content.WriteString(promptStyle.Render("Tab to switch fields, Enter to begin, Esc to go back"))
	}

	modal := modalStyle.Width(64).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	switch m.screen {
	case screenSelect:
		return m.renderSelectModal()
	case screenCreate:
		return m.renderCreateModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", chatWidth-4)),
			m.textarea.View(),
		),
	)
	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.chatViewport.Width - 6
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
	return separatorStyle.Render(bar.String())
}

func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
