package ui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/ragchat/pkg/controller"
	"github.com/go-go-golems/ragchat/pkg/dropzone"
	"github.com/go-go-golems/ragchat/pkg/events"
	"github.com/go-go-golems/ragchat/pkg/timeline"
	"github.com/go-go-golems/ragchat/pkg/upload"
	"github.com/muesli/reflow/wordwrap"
	"github.com/rs/zerolog/log"
)

type State string

const (
	StateUserInput    State = "user_input"
	StateMovingAround State = "moving_around"
	StatePickingFile  State = "picking_file"
)

// RefreshMsg tells the model that controller state changed. Events are
// invalidation signals: the model re-reads the controller snapshot.
type RefreshMsg struct {
	Type events.EventType
}

type model struct {
	ctx        context.Context
	controller *controller.Controller

	viewport   viewport.Model
	textArea   textarea.Model
	filePicker filepicker.Model
	progress   progress.Model
	spinner    spinner.Model
	help       help.Model

	keyMap KeyMap
	style  *Style

	renderer      *glamour.TermRenderer
	rendererMode  controller.DisplayMode
	rendererWidth int

	// index into the timeline, only meaningful while moving around
	selectedIdx int
	spinning    bool

	state  State
	width  int
	height int
}

type ModelOption func(*model)

func WithAcceptedTypes(types []string) ModelOption {
	return func(m *model) {
		m.filePicker.AllowedTypes = types
	}
}

func WithStartDirectory(dir string) ModelOption {
	return func(m *model) {
		m.filePicker.CurrentDirectory = dir
	}
}

func WithKeyMap(k KeyMap) ModelOption {
	return func(m *model) {
		m.keyMap = k
	}
}

func InitialModel(ctx context.Context, c *controller.Controller, options ...ModelOption) model {
	ret := model{
		ctx:        ctx,
		controller: c,
		keyMap:     DefaultKeyMap,
		viewport:   viewport.New(0, 0),
		help:       help.New(),
		progress:   progress.New(progress.WithDefaultGradient()),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		filePicker: filepicker.New(),
		state:      StateUserInput,
	}
	if wd, err := os.Getwd(); err == nil {
		ret.filePicker.CurrentDirectory = wd
	}
	ret.filePicker.AllowedTypes = upload.DefaultAcceptedTypes
	ret.filePicker.AutoHeight = false

	ret.textArea = textarea.New()
	ret.textArea.Placeholder = "Ask something about your documents..."
	ret.textArea.ShowLineNumbers = false
	ret.textArea.SetHeight(3)
	ret.textArea.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	ret.textArea.Focus()

	for _, o := range options {
		o(&ret)
	}

	ret.style = StylesFor(c.DisplayMode())
	ret.updateKeyBindings()
	ret.viewport.SetContent(ret.messageView())
	ret.viewport.GotoBottom()

	return ret
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.filePicker.Init())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keyMap.Quit) {
			return m, tea.Quit
		}
		if m.state == StatePickingFile {
			return m.updatePicker(msg)
		}
		if msg.Paste && m.state == StateUserInput {
			if path, ok := pastedFilePath(string(msg.Runes)); ok {
				m.dropFile(path)
				return m, nil
			}
		}

		switch {
		case key.Matches(msg, m.keyMap.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.recomputeSize()

		case key.Matches(msg, m.keyMap.UnfocusMessage):
			m.textArea.Blur()
			m.state = StateMovingAround
			m.selectedIdx = len(m.controller.Messages()) - 1
			m.refresh(false)

		case key.Matches(msg, m.keyMap.FocusMessage):
			if m.state == StateMovingAround {
				cmds = append(cmds, m.textArea.Focus())
				m.state = StateUserInput
				m.refresh(false)
			}

		case key.Matches(msg, m.keyMap.SubmitMessage):
			if m.controller.SubmitMessage(m.ctx, m.textArea.Value()) {
				m.textArea.Reset()
			}

		case key.Matches(msg, m.keyMap.SelectPrevMessage):
			if m.selectedIdx > 0 {
				m.selectedIdx--
				m.refresh(false)
			}

		case key.Matches(msg, m.keyMap.SelectNextMessage):
			if m.selectedIdx < len(m.controller.Messages())-1 {
				m.selectedIdx++
				m.refresh(false)
			}

		case key.Matches(msg, m.keyMap.PickFile):
			m.textArea.Blur()
			m.state = StatePickingFile
			cmds = append(cmds, m.filePicker.Init())

		case key.Matches(msg, m.keyMap.CancelUpload):
			m.controller.CancelUpload()

		case key.Matches(msg, m.keyMap.NewChat):
			m.controller.StartNewChat()
			m.selectedIdx = 0

		case key.Matches(msg, m.keyMap.ToggleDisplayMode):
			m.controller.ToggleDisplayMode()

		case key.Matches(msg, m.keyMap.CopyMessage):
			m.copySelected()

		case key.Matches(msg, m.keyMap.DismissNotification):
			m.controller.DismissNotification()

		case key.Matches(msg, m.keyMap.ScrollUp), key.Matches(msg, m.keyMap.ScrollDown):
			m.viewport, cmd = m.viewport.Update(msg)
			cmds = append(cmds, cmd)

		default:
			if m.state == StateUserInput {
				m.textArea, cmd = m.textArea.Update(msg)
				cmds = append(cmds, cmd)
				m.controller.SetInput(m.textArea.Value())
			} else {
				m.viewport, cmd = m.viewport.Update(msg)
				cmds = append(cmds, cmd)
			}
		}
		m.updateKeyBindings()
		return m, tea.Batch(cmds...)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recomputeSize()

	case RefreshMsg:
		switch msg.Type {
		case events.EventTypeDisplayMode:
			m.style = StylesFor(m.controller.DisplayMode())
		case events.EventTypeChatBusy:
			if m.controller.Busy() && !m.spinning {
				m.spinning = true
				cmds = append(cmds, m.spinner.Tick)
			}
		case events.EventTypeTimelineAppended,
			events.EventTypeTimelineCleared,
			events.EventTypeUploadState,
			events.EventTypeUploadProgress,
			events.EventTypeNotification,
			events.EventTypeDragState,
			events.EventTypeInput:
		}
		m.updateKeyBindings()
		// also scrolls to the latest message
		m.recomputeSize()

	case spinner.TickMsg:
		if !m.controller.Busy() {
			m.spinning = false
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// directory listings arrive as unexported messages
	m.filePicker, cmd = m.filePicker.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keyMap.CancelPick) {
		m.closePicker()
		return m, m.textArea.Focus()
	}

	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if ok, path := m.filePicker.DidSelectFile(msg); ok {
		m.closePicker()
		if err := m.controller.SubmitFile(m.ctx, upload.NewLocalFile(path)); err != nil {
			log.Warn().Err(err).Str("component", "ui").Str("file", path).Msg("could not start upload")
		}
		return m, tea.Batch(cmd, m.textArea.Focus())
	}
	if ok, path := m.filePicker.DidSelectDisabledFile(msg); ok {
		log.Debug().Str("component", "ui").Str("file", path).Msg("file type not accepted")
	}
	return m, cmd
}

func (m *model) closePicker() {
	m.state = StateUserInput
	m.updateKeyBindings()
}

// dropFile turns a path pasted into the terminal, which is what dragging a
// file onto most terminals produces, into a drop gesture.
func (m *model) dropFile(path string) {
	f := upload.NewLocalFile(path)
	for _, g := range []*dropzone.Gesture{
		dropzone.NewGesture(dropzone.GestureEnter),
		dropzone.NewGesture(dropzone.GestureDrop, f),
	} {
		if err := m.controller.HandleGesture(m.ctx, g); err != nil {
			log.Warn().Err(err).Str("component", "ui").Str("file", path).Msg("could not start upload from drop")
		}
	}
}

func (m *model) copySelected() {
	msgs := m.controller.Messages()
	if len(msgs) == 0 {
		return
	}
	idx := len(msgs) - 1
	if m.state == StateMovingAround && m.selectedIdx >= 0 && m.selectedIdx < len(msgs) {
		idx = m.selectedIdx
	}
	if err := m.controller.CopyMessage(msgs[idx].ID); err != nil {
		log.Warn().Err(err).Str("component", "ui").Msg("could not copy message")
	}
}

func (m *model) updateKeyBindings() {
	s := m.controller.Snapshot()
	uploadIdle := s.Upload.Status == upload.StatusIdle

	m.keyMap.SelectNextMessage.SetEnabled(m.state == StateMovingAround)
	m.keyMap.SelectPrevMessage.SetEnabled(m.state == StateMovingAround)
	m.keyMap.FocusMessage.SetEnabled(m.state == StateMovingAround)
	m.keyMap.UnfocusMessage.SetEnabled(m.state == StateUserInput)
	// input stays disabled while a reply is pending
	m.keyMap.SubmitMessage.SetEnabled(m.state == StateUserInput && !s.Busy)

	m.keyMap.PickFile.SetEnabled(m.state != StatePickingFile && uploadIdle)
	m.keyMap.CancelPick.SetEnabled(m.state == StatePickingFile)
	m.keyMap.CancelUpload.SetEnabled(s.Upload.Status == upload.StatusInFlight)

	m.keyMap.NewChat.SetEnabled(m.state != StatePickingFile)
	m.keyMap.CopyMessage.SetEnabled(len(s.Messages) > 0)
	m.keyMap.DismissNotification.SetEnabled(s.Notification.Visible)
}

func (m *model) recomputeSize() {
	headerHeight := lipgloss.Height(m.headerView())
	statusHeight := lipgloss.Height(m.statusView())
	inputHeight := lipgloss.Height(m.inputView())
	helpHeight := lipgloss.Height(m.help.View(m.keyMap))

	newHeight := m.height - headerHeight - statusHeight - inputHeight - helpHeight
	if newHeight < 0 {
		newHeight = 0
	}
	m.viewport.Width = m.width
	m.viewport.Height = newHeight
	m.viewport.YPosition = headerHeight

	h, _ := m.style.FocusedInput.GetFrameSize()
	m.textArea.SetWidth(max(m.width-h, 10))
	m.progress.Width = max(m.width/3, 10)
	m.help.Width = m.width
	m.filePicker.Height = max(newHeight, 5)

	m.refresh(true)
}

func (m *model) refresh(goToBottom bool) {
	m.viewport.SetContent(m.messageView())
	if goToBottom && m.state != StateMovingAround {
		m.viewport.GotoBottom()
	}
}

func (m *model) markdown(text string, width int) string {
	mode := m.controller.DisplayMode()
	if m.renderer == nil || m.rendererMode != mode || m.rendererWidth != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(string(mode)),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			log.Warn().Err(err).Str("component", "ui").Msg("could not create markdown renderer")
			return wordwrap.String(text, width)
		}
		m.renderer, m.rendererMode, m.rendererWidth = r, mode, width
	}

	out, err := m.renderer.Render(text)
	if err != nil {
		return wordwrap.String(text, width)
	}
	return strings.Trim(out, "\n")
}

func (m *model) messageView() string {
	if m.style == nil {
		return ""
	}
	msgs := m.controller.Messages()
	if len(msgs) == 0 {
		return m.style.Timestamp.Render("No messages yet. Ask a question or press ctrl+o to upload a document.")
	}

	w, _ := m.style.SelectedMessage.GetFrameSize()
	boxWidth := max(m.width-w, 10)
	ret := make([]string, 0, len(msgs))
	for idx, msg := range msgs {
		body := m.renderBody(msg, boxWidth-m.style.SelectedMessage.GetHorizontalPadding())
		header := m.renderLabel(msg) + " " + m.style.Timestamp.Render(msg.Timestamp)

		box := m.style.UnselectedMessage
		if m.state == StateMovingAround && idx == m.selectedIdx {
			box = m.style.SelectedMessage
		}
		ret = append(ret, box.Width(boxWidth).Render(header+"\n"+body))
	}

	return strings.Join(ret, "\n")
}

func (m *model) renderLabel(msg timeline.Message) string {
	if msg.Sender == timeline.SenderUser {
		return m.style.UserLabel.Render("You")
	}
	return m.style.AssistantLabel.Render("Assistant")
}

func (m *model) renderBody(msg timeline.Message, width int) string {
	switch {
	case msg.IsFileResult:
		return m.style.FileResult.Render(wordwrap.String(msg.Text, width))
	case msg.Sender == timeline.SenderAssistant:
		return m.markdown(msg.Text, width)
	default:
		return wordwrap.String(msg.Text, width)
	}
}

func (m model) headerView() string {
	s := m.controller.Snapshot()
	title := m.style.Header.Render("RAG CHAT")
	mode := m.style.Timestamp.Render(fmt.Sprintf("[%s]", s.DisplayMode))
	if s.Busy {
		return title + " " + mode + " " + m.spinner.View() + " thinking..."
	}
	return title + " " + mode
}

func (m model) statusView() string {
	s := m.controller.Snapshot()

	var lines []string
	if s.Upload.Status != upload.StatusIdle {
		lines = append(lines, m.style.Upload.Render(
			fmt.Sprintf("Uploading %s ", s.Upload.FileName))+
			m.progress.ViewAs(float64(s.Upload.Progress)/100.0))
	}
	if s.Dragging {
		lines = append(lines, m.style.Upload.Render("Drop file to upload"))
	}
	if n := s.Notification; n.Visible {
		lines = append(lines, m.style.Notifications[n.Severity].Render(n.Message))
	}
	return strings.Join(lines, "\n")
}

func (m model) inputView() string {
	switch m.state {
	case StatePickingFile:
		return m.style.FocusedInput.Render("Pick a file to upload:\n" + m.filePicker.View())
	case StateMovingAround:
		return m.style.BlurredInput.Render(m.textArea.View())
	case StateUserInput:
	}
	return m.style.FocusedInput.Render(m.textArea.View())
}

func (m model) View() string {
	parts := []string{m.headerView(), m.viewport.View()}
	if status := m.statusView(); status != "" {
		parts = append(parts, status)
	}
	parts = append(parts, m.inputView(), m.help.View(m.keyMap))
	return strings.Join(parts, "\n")
}

// pastedFilePath reports whether text is a single path to an existing file,
// as terminals paste it when a file is dragged onto them.
func pastedFilePath(text string) (string, bool) {
	p := strings.TrimSpace(text)
	if p == "" || strings.Contains(p, "\n") {
		return "", false
	}
	if len(p) >= 2 && (p[0] == '\'' || p[0] == '"') && p[len(p)-1] == p[0] {
		p = p[1 : len(p)-1]
	}
	p = strings.TrimPrefix(p, "file://")
	p = strings.ReplaceAll(p, `\ `, " ")

	fi, err := os.Stat(p)
	if err != nil || fi.IsDir() {
		return "", false
	}
	return p, true
}
