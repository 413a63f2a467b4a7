package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"

	branches "github.com/temirov/branchprune/internal/branches"
)

const (
	applicationTitleConstant         = "Branch Prune"
	repositoryInfoTemplateConstant   = "Repository: %s | Default: %s"
	repositoryPendingConstant        = "resolving..."
	filterPlaceholderConstant        = "Filter branches (press / to focus, ESC to clear)..."
	filterPromptConstant             = "/ "
	authenticationWarningConstant    = "GitHub authentication failed: run 'gh auth login' or set GITHUB_TOKEN"
	selectionColumnHeaderConstant    = "Sel"
	nameColumnHeaderConstant         = "Branch Name"
	statusColumnHeaderConstant       = "Status"
	infoColumnHeaderConstant         = "Info"
	selectedMarkerConstant           = "[x]"
	unselectedMarkerConstant         = "[ ]"
	cursorMarkerConstant             = "> "
	noCursorMarkerConstant           = "  "
	columnGapConstant                = "  "
	truncationTailConstant           = "…"
	modalPromptConstant              = "[y] Yes   [n] No"
	emptyTableMessageConstant        = "No branches to show"
	defaultTerminalWidthConstant     = 100
	defaultTerminalHeightConstant    = 30
	chromeLineCountConstant          = 10
	minimumVisibleRowsConstant       = 3
	filterInputPaddingConstant       = 4
	logMessageAuthenticationFailed   = "Authentication check failed"
	workspaceNotConfiguredMessage    = "branch workspace not configured"
	modalSectionSeparatorConstant    = ""
	headerSpinnerSeparatorConstant   = " "
	statusSpinnerSeparatorConstant   = " "
	logMessageWorkspaceUpdateSkipped = "Workspace update stream closed"
)

// ErrWorkspaceNotConfigured indicates the model was constructed without a workspace.
var ErrWorkspaceNotConfigured = errors.New(workspaceNotConfiguredMessage)

type inputMode int

const (
	inputModeBrowsing inputMode = iota
	inputModeFiltering
	inputModeConfirming
)

// AuthenticationChecker is implemented by gateways that can verify credentials before the first fetch.
type AuthenticationChecker interface {
	CheckAuthentication(executionContext context.Context) error
}

// WorkspaceUpdateMsg carries one background update into the event loop.
type WorkspaceUpdateMsg struct {
	Update branches.Update
}

type refreshRequestedMsg struct{}

type authenticationCheckedMsg struct {
	err error
}

// ModelOptions carries optional collaborators of the model.
type ModelOptions struct {
	AuthenticationChecker AuthenticationChecker
	Logger                *zap.Logger
}

// Model is the Bubble Tea model of the branch browser. Exactly one command waiting on the workspace
// update channel is outstanding at any time, so updates are applied in the order they were sent.
type Model struct {
	executionContext context.Context
	workspace        *branches.Workspace
	authChecker      AuthenticationChecker
	logger           *zap.Logger
	keys             KeyMap
	help             help.Model
	filterInput      textinput.Model
	spinner          spinner.Model
	mode             inputMode
	pending          branches.ConfirmationRequest
	cursor           int
	cursorName       string
	authWarning      string
	width            int
	height           int
}

// NewModel constructs a Model around the workspace.
func NewModel(executionContext context.Context, workspace *branches.Workspace, options ModelOptions) (Model, error) {
	if workspace == nil {
		return Model{}, ErrWorkspaceNotConfigured
	}
	if executionContext == nil {
		executionContext = context.Background()
	}

	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	filterInput := textinput.New()
	filterInput.Placeholder = filterPlaceholderConstant
	filterInput.Prompt = filterPromptConstant

	return Model{
		executionContext: executionContext,
		workspace:        workspace,
		authChecker:      options.AuthenticationChecker,
		logger:           logger,
		keys:             DefaultKeyMap(),
		help:             help.New(),
		filterInput:      filterInput,
		spinner:          spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(titleStyle)),
		width:            defaultTerminalWidthConstant,
		height:           defaultTerminalHeightConstant,
	}, nil
}

// Init starts the first refresh, the update listener, and the optional authentication check.
func (m Model) Init() tea.Cmd {
	return tea.Batch(requestRefresh, m.awaitUpdate(), m.checkAuthentication())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typedMsg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typedMsg.Width
		m.height = typedMsg.Height
		m.help.Width = typedMsg.Width
		m.filterInput.Width = max(typedMsg.Width-filterInputPaddingConstant, 0)
		return m, nil
	case refreshRequestedMsg:
		refreshCommand := m.startRefresh()
		return m, refreshCommand
	case WorkspaceUpdateMsg:
		m.workspace.Apply(m.executionContext, typedMsg.Update)
		m.syncCursor()
		return m, m.awaitUpdate()
	case authenticationCheckedMsg:
		if typedMsg.err != nil {
			m.logger.Warn(logMessageAuthenticationFailed, zap.Error(typedMsg.err))
			m.authWarning = authenticationWarningConstant
		}
		return m, nil
	case spinner.TickMsg:
		if !m.workspace.Busy() {
			return m, nil
		}
		var tickCommand tea.Cmd
		m.spinner, tickCommand = m.spinner.Update(typedMsg)
		return m, tickCommand
	case tea.KeyMsg:
		switch m.mode {
		case inputModeFiltering:
			return m.handleFilteringKey(typedMsg)
		case inputModeConfirming:
			return m.handleConfirmingKey(typedMsg)
		default:
			return m.handleBrowsingKey(typedMsg)
		}
	}

	var inputCommand tea.Cmd
	m.filterInput, inputCommand = m.filterInput.Update(msg)
	return m, inputCommand
}

func (m Model) handleBrowsingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Refresh):
		refreshCommand := m.startRefresh()
		return m, refreshCommand
	case key.Matches(msg, m.keys.AutoSelect):
		m.workspace.AutoSelectMerged()
	case key.Matches(msg, m.keys.Toggle):
		m.toggleCursorRow()
	case key.Matches(msg, m.keys.Clear):
		m.workspace.ClearSelection()
	case key.Matches(msg, m.keys.FocusFilter):
		m.mode = inputModeFiltering
		focusCommand := m.filterInput.Focus()
		return m, focusCommand
	case key.Matches(msg, m.keys.ClearFilter):
		m.anchorCursor()
		m.filterInput.SetValue("")
		m.workspace.ClearFilter()
		m.syncCursor()
	case key.Matches(msg, m.keys.Sort):
		m.anchorCursor()
		m.workspace.CycleSortMode()
		m.syncCursor()
	case key.Matches(msg, m.keys.Delete):
		request, requestError := m.workspace.RequestDeletion()
		if requestError == nil {
			m.pending = request
			m.mode = inputModeConfirming
		}
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m Model) handleFilteringKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Dismiss):
		return m, tea.Quit
	case key.Matches(msg, m.keys.ClearFilter):
		m.anchorCursor()
		m.filterInput.SetValue("")
		m.filterInput.Blur()
		m.workspace.ClearFilter()
		m.mode = inputModeBrowsing
		m.syncCursor()
		return m, nil
	case key.Matches(msg, m.keys.ApplyFilter):
		m.filterInput.Blur()
		m.mode = inputModeBrowsing
		return m, nil
	}

	m.anchorCursor()
	var inputCommand tea.Cmd
	m.filterInput, inputCommand = m.filterInput.Update(msg)
	m.workspace.SetFilterText(m.filterInput.Value())
	m.syncCursor()
	return m, inputCommand
}

func (m Model) handleConfirmingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		return m.answerConfirmation(branches.ConfirmationAccepted)
	case key.Matches(msg, m.keys.Decline):
		return m.answerConfirmation(branches.ConfirmationDeclined)
	case key.Matches(msg, m.keys.Dismiss):
		return m.answerConfirmation(branches.ConfirmationDismissed)
	}
	return m, nil
}

func (m Model) answerConfirmation(confirmation branches.Confirmation) (tea.Model, tea.Cmd) {
	request := m.pending
	m.pending = branches.ConfirmationRequest{}
	m.mode = inputModeBrowsing

	if startError := m.workspace.StartDeletion(m.executionContext, request, confirmation); startError != nil {
		return m, nil
	}
	spinnerCommand := m.startSpinner()
	return m, spinnerCommand
}

func (m *Model) startRefresh() tea.Cmd {
	if refreshError := m.workspace.StartRefresh(m.executionContext); refreshError != nil {
		return nil
	}
	m.syncCursor()
	return m.startSpinner()
}

// startSpinner restarts the spinner tick chain. A duplicate chain is harmless because the spinner
// drops ticks whose tag it no longer expects.
func (m Model) startSpinner() tea.Cmd {
	if !m.workspace.Busy() {
		return nil
	}
	return m.spinner.Tick
}

func (m *Model) toggleCursorRow() {
	rows := m.workspace.Rows()
	if len(rows) == 0 {
		return
	}
	m.cursor = min(max(m.cursor, 0), len(rows)-1)
	if _, toggleError := m.workspace.ToggleSelection(rows[m.cursor].Name); toggleError != nil {
		return
	}
	m.moveCursor(1)
}

func (m *Model) moveCursor(delta int) {
	rows := m.workspace.Rows()
	if len(rows) == 0 {
		m.cursor = 0
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(rows)-1)
	m.cursorName = rows[m.cursor].Name
}

// anchorCursor remembers the branch under the cursor before an operator action reshapes the rows.
// Streaming updates do not anchor, so an untouched cursor stays on the first row while a fetch runs.
func (m *Model) anchorCursor() {
	if branchName := m.CursorBranch(); len(branchName) > 0 {
		m.cursorName = branchName
	}
}

// syncCursor moves the cursor to the anchored branch. When that branch is not visible the index
// is clamped and the anchor is kept, so the cursor returns to it once a refresh lists it again.
func (m *Model) syncCursor() {
	rows := m.workspace.Rows()
	if len(rows) == 0 {
		m.cursor = 0
		return
	}
	for rowIndex, row := range rows {
		if row.Name == m.cursorName {
			m.cursor = rowIndex
			return
		}
	}
	m.cursor = min(max(m.cursor, 0), len(rows)-1)
}

func (m Model) awaitUpdate() tea.Cmd {
	updates := m.workspace.Updates()
	executionContext := m.executionContext
	logger := m.logger
	return func() tea.Msg {
		select {
		case update, open := <-updates:
			if !open {
				logger.Debug(logMessageWorkspaceUpdateSkipped)
				return nil
			}
			return WorkspaceUpdateMsg{Update: update}
		case <-executionContext.Done():
			return nil
		}
	}
}

func (m Model) checkAuthentication() tea.Cmd {
	if m.authChecker == nil {
		return nil
	}
	checker := m.authChecker
	executionContext := m.executionContext
	return func() tea.Msg {
		return authenticationCheckedMsg{err: checker.CheckAuthentication(executionContext)}
	}
}

func requestRefresh() tea.Msg {
	return refreshRequestedMsg{}
}

// CursorBranch returns the name of the branch under the cursor, or an empty string when no rows are visible.
func (m Model) CursorBranch() string {
	rows := m.workspace.Rows()
	if len(rows) == 0 {
		return ""
	}
	return rows[min(max(m.cursor, 0), len(rows)-1)].Name
}

// Confirming reports whether the deletion confirmation dialog is open.
func (m Model) Confirming() bool {
	return m.mode == inputModeConfirming
}

// Filtering reports whether the filter input has focus.
func (m Model) Filtering() bool {
	return m.mode == inputModeFiltering
}

// AuthenticationWarning returns the warning shown when the credential check failed.
func (m Model) AuthenticationWarning() string {
	return m.authWarning
}

// View implements tea.Model.
func (m Model) View() string {
	if m.mode == inputModeConfirming {
		return m.renderConfirmation()
	}

	sections := []string{m.renderHeader(), infoStyle.Render(m.renderRepositoryInfo())}
	if len(m.authWarning) > 0 {
		sections = append(sections, warningStyle.Render(m.authWarning))
	}
	sections = append(sections,
		m.filterInput.View(),
		infoStyle.Render(m.workspace.FilterSummary()),
		m.renderTable(),
		m.renderStatus(),
		m.help.View(m.keys),
	)
	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	header := titleStyle.Render(applicationTitleConstant)
	if m.workspace.Busy() {
		header += headerSpinnerSeparatorConstant + m.spinner.View()
	}
	return header
}

func (m Model) renderRepositoryInfo() string {
	identity := m.workspace.Identity()
	repositoryName := identity.NameWithOwner
	if len(repositoryName) == 0 {
		repositoryName = repositoryPendingConstant
	}
	defaultBranch := identity.DefaultBranch
	if len(defaultBranch) == 0 {
		defaultBranch = repositoryPendingConstant
	}
	return fmt.Sprintf(repositoryInfoTemplateConstant, repositoryName, defaultBranch)
}

func (m Model) renderTable() string {
	rows := m.workspace.Rows()
	if len(rows) == 0 {
		return headerStyle.Render(nameColumnHeaderConstant) + "\n" + infoStyle.Render(emptyTableMessageConstant)
	}

	nameWidth := runewidth.StringWidth(nameColumnHeaderConstant)
	statusWidth := runewidth.StringWidth(statusColumnHeaderConstant)
	for _, row := range rows {
		nameWidth = max(nameWidth, runewidth.StringWidth(row.Name))
		statusWidth = max(statusWidth, runewidth.StringWidth(row.StatusLabel))
	}

	formatLine := func(cursorMarker string, selection string, name string, status string, info string) string {
		line := cursorMarker +
			runewidth.FillRight(selection, runewidth.StringWidth(selectionColumnHeaderConstant)) + columnGapConstant +
			runewidth.FillRight(name, nameWidth) + columnGapConstant +
			runewidth.FillRight(status, statusWidth) + columnGapConstant +
			info
		return runewidth.Truncate(strings.TrimRight(line, " "), m.width, truncationTailConstant)
	}

	visibleRowCount := max(m.height-chromeLineCountConstant, minimumVisibleRowsConstant)
	firstRow := 0
	if m.cursor >= visibleRowCount {
		firstRow = m.cursor - visibleRowCount + 1
	}
	lastRow := min(firstRow+visibleRowCount, len(rows))

	lines := make([]string, 0, lastRow-firstRow+1)
	lines = append(lines, headerStyle.Render(formatLine(noCursorMarkerConstant, selectionColumnHeaderConstant, nameColumnHeaderConstant, statusColumnHeaderConstant, infoColumnHeaderConstant)))
	for rowIndex := firstRow; rowIndex < lastRow; rowIndex++ {
		row := rows[rowIndex]
		selectionMarker := unselectedMarkerConstant
		if row.Selected {
			selectionMarker = selectedMarkerConstant
		}
		cursorMarker := noCursorMarkerConstant
		if rowIndex == m.cursor {
			cursorMarker = cursorMarkerConstant
		}

		line := formatLine(cursorMarker, selectionMarker, row.Name, row.StatusLabel, row.InfoSummary)
		switch {
		case rowIndex == m.cursor:
			line = cursorRowStyle.Render(line)
		case row.Selected:
			line = selectedRowStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderStatus() string {
	status := m.workspace.Status()
	text := status.Text
	if m.workspace.Busy() {
		text = m.spinner.View() + statusSpinnerSeparatorConstant + text
	}
	if status.IsError {
		return statusErrorStyle.Render(text)
	}
	return statusStyle.Render(text)
}

func (m Model) renderConfirmation() string {
	dialogLines := []string{modalTitleStyle.Render(m.pending.Title()), modalSectionSeparatorConstant}
	dialogLines = append(dialogLines, m.pending.Lines()...)
	dialogLines = append(dialogLines, modalSectionSeparatorConstant, modalPromptConstant)

	dialog := modalStyle.Render(lipgloss.JoinVertical(lipgloss.Left, dialogLines...))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, dialog)
}
