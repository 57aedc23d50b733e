package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/lifecycled/internal/server"
)

const (
	sparklineWidth  = 30
	sparklineHeight = 3
	historySize     = 30

	// Phases completed per pass: preStart/start/postStart or the stop side.
	phasesPerPass = 3
)

// Model represents the BubbleTea dashboard model
type Model struct {
	baseURL    string
	interval   time.Duration
	lastUpdate time.Time
	health     server.HealthResponse
	status     server.StatusResponse
	err        error
	quitting   bool

	// Pass duration history for the sparkline, newest last. lastRunID
	// dedupes: only a pass not yet seen pushes a point.
	lastRunID string
	durations []float64

	passProgress progress.Model
}

// Lipgloss styles (k9s-inspired color scheme)
var (
	// Header style - bright cyan background, bold black text
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	// Section title style - bold bright cyan
	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	// Label style - dim cyan
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	// Value style - bright white
	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	// Dim style - for units and secondary info
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	// Status styles with unicode symbols
	healthyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	// Container style - rounded border with dim gray
	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)

	// Footer style - bright keys on dim background
	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	// Sparkline container
	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))
)

// NewModel creates a new dashboard model
func NewModel(baseURL string, interval time.Duration) Model {
	passProg := progress.New(
		progress.WithGradient("#00ffff", "#ff00ff"),
		progress.WithWidth(40),
	)

	return Model{
		baseURL:      baseURL,
		interval:     interval,
		passProgress: passProg,
		durations:    make([]float64, 0, historySize),
	}
}

// appendToHistory appends a value to history, maintaining max size
func appendToHistory(history []float64, value float64) []float64 {
	history = append(history, value)
	if len(history) > historySize {
		history = history[1:]
	}
	return history
}

// createSparkline creates a sparkline chart from historical data
func createSparkline(data []float64) string {
	if len(data) == 0 {
		return dimStyle.Render(fmt.Sprintf("%*s", sparklineWidth, "no data"))
	}

	spark := sparkline.New(sparklineWidth, sparklineHeight)
	for _, v := range data {
		spark.Push(v)
	}

	return sparklineStyle.Render(spark.View())
}

// Message types
type tickMsg time.Time

type statusMsg struct {
	health server.HealthResponse
	status server.StatusResponse
}

type errMsg error

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tick(m.interval),
		fetchStatus(m.baseURL),
	)
}

// tick creates a tick command for auto-refresh
func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetchStatus polls the daemon health and status endpoints
func fetchStatus(baseURL string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		client := NewStatusClient(baseURL)

		health, err := client.Health(ctx)
		if err != nil {
			return errMsg(err)
		}

		status, err := client.Status(ctx)
		if err != nil {
			return errMsg(err)
		}

		return statusMsg{health: health, status: status}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, fetchStatus(m.baseURL)
		}

	case tickMsg:
		// Auto-refresh triggered
		return m, tea.Batch(
			tick(m.interval),
			fetchStatus(m.baseURL),
		)

	case statusMsg:
		m.health = msg.health
		m.status = msg.status
		if lp := msg.status.LastPass; lp != nil && lp.RunID != m.lastRunID {
			m.durations = appendToHistory(m.durations, float64(lp.DurationMS))
			m.lastRunID = lp.RunID
		}
		m.lastUpdate = time.Now()
		m.err = nil
		return m, nil

	case errMsg:
		m.err = error(msg)
		return m, nil
	}

	return m, nil
}

// View renders the dashboard
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if m.err != nil {
		return m.renderError()
	}

	return m.renderDashboard()
}

// statusBadge summarizes the daemon state for the header line
func (m Model) statusBadge() string {
	switch {
	case m.lastUpdate.IsZero():
		return dimStyle.Render("○ WAITING")
	case m.status.CurrentPass != nil:
		return warningStyle.Render("● " + strings.ToUpper(m.status.CurrentPass.Op))
	case m.status.LastPass == nil:
		return dimStyle.Render("○ IDLE")
	case m.status.LastPass.Status == "ok":
		return healthyStyle.Render("✓ OK")
	default:
		return errorStyle.Render("✗ FAILED")
	}
}

// renderError renders the error view
func (m Model) renderError() string {
	header := headerStyle.Render(" lifecycled Monitor ")

	var content string
	content += "\n"
	content += errorStyle.Render("⚠ Cannot reach lifecycled") + "\n"
	content += "\n"
	content += dimStyle.Render("URL: ") + valueStyle.Render(m.baseURL) + "\n"
	content += dimStyle.Render("Error: ") + errorStyle.Render(m.err.Error()) + "\n"
	content += "\n"
	content += dimStyle.Render("Please ensure:") + "\n"
	content += dimStyle.Render("  1. lifecycled is running") + "\n"
	content += dimStyle.Render("  2. the API is listening at the URL above") + "\n"
	content += "\n"
	content += footerStyle.Render("[q] quit  [r] retry") + "\n"

	return containerStyle.Render(header + "\n" + content)
}

// renderDashboard renders the main dashboard view
func (m Model) renderDashboard() string {
	var content string

	lastUpdateStr := "Never"
	if !m.lastUpdate.IsZero() {
		lastUpdateStr = m.lastUpdate.Format("3:04:05 PM")
	}

	service := m.health.Service
	if service == "" {
		service = "lifecycled"
	}
	header := headerStyle.Render(" " + service + " Monitor ")
	headerLine := fmt.Sprintf("%s   %s %s   %s   %s",
		m.statusBadge(),
		dimStyle.Render("Order:"),
		valueStyle.Render(FormatOrder(m.status.Order)),
		dimStyle.Render(m.health.Version),
		dimStyle.Render(lastUpdateStr))

	content += header + "\n"
	content += headerLine + "\n"

	// Groups as the next pass would see them
	content += "\n" + sectionStyle.Render("┃ Groups") + "\n"
	if len(m.status.Groups) == 0 {
		content += dimStyle.Render("  no observers registered") + "\n"
	}
	for _, g := range m.status.Groups {
		name := g.Name
		if name == "" {
			name = "(unnamed)"
		}
		members := make([]string, len(g.Members))
		for i, mem := range g.Members {
			members[i] = valueStyle.Render(mem.Key)
			if len(mem.Phases) > 0 {
				members[i] += " " + dimStyle.Render("["+strings.Join(mem.Phases, " ")+"]")
			}
		}
		content += labelStyle.Render(fmt.Sprintf("  %-12s", name)) + strings.Join(members, "  ") + "\n"
	}

	// Last pass with duration sparkline
	content += "\n" + sectionStyle.Render("┃ Last Pass") + "\n"
	if lp := m.status.LastPass; lp != nil {
		badge := healthyStyle.Render("✓")
		if lp.Status != "ok" {
			badge = errorStyle.Render("✗")
		}
		content += labelStyle.Render("  "+lp.Op+" ") + badge +
			" " + valueStyle.Render(FormatDurationMS(lp.DurationMS)) +
			"  " + dimStyle.Render(FormatAge(time.Since(lp.FinishedAt))) + "\n"
		content += labelStyle.Render("  Phases: ") + valueStyle.Render(FormatPhases(lp.Phases)) + "\n"
		if lp.Error != "" {
			content += labelStyle.Render("  Error: ") + errorStyle.Render(lp.Error) + "\n"
		}
	} else {
		content += dimStyle.Render("  no passes yet") + "\n"
	}
	content += labelStyle.Render("  Durations: ") + createSparkline(m.durations) + "\n"

	// Current pass with phase progress
	if cp := m.status.CurrentPass; cp != nil {
		content += "\n" + sectionStyle.Render("┃ Current Pass") + "\n"
		done := float64(len(cp.Phases)) / phasesPerPass
		if done > 1.0 {
			done = 1.0
		}
		content += labelStyle.Render("  "+cp.Op+": ") +
			m.passProgress.ViewAs(done) +
			" " + dimStyle.Render(fmt.Sprintf("%d/%d phases", len(cp.Phases), phasesPerPass)) + "\n"
	}

	// Footer with keyboard shortcuts
	footer := footerKeyStyle.Render("[q]") + footerStyle.Render(" quit  ") +
		footerKeyStyle.Render("[r]") + footerStyle.Render(" refresh  ") +
		footerStyle.Render(fmt.Sprintf("Auto: %v", m.interval))

	content += "\n" + footer

	return containerStyle.Render(content)
}
