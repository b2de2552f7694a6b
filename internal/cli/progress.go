package cli

import (
	"context"
	"fmt"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/iris-analytics/iris/internal/client"
	"github.com/iris-analytics/iris/internal/models"
)

const pollInterval = time.Second

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// tickMsg triggers polling the job status
type tickMsg time.Time

// jobUpdateMsg carries the updated job view
type jobUpdateMsg struct {
	view *models.JobView
	err  error
}

// progressModel is the bubbletea model for job progress.
type progressModel struct {
	client   *client.Client
	jobID    string
	view     *models.JobView
	progress progress.Model
	theme    Theme
	done     bool
	quitting bool
	err      error
}

func newProgressModel(c *client.Client, jobID string) progressModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return progressModel{
		client:   c,
		jobID:    jobID,
		progress: prog,
		theme:    defaultTheme,
	}
}

// Init returns the initial command (start polling).
func (m progressModel) Init() tea.Cmd {
	return tea.Batch(
		m.fetchJob(),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		return m, m.fetchJob()

	case jobUpdateMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("failed to fetch job status: %w", msg.err)
			m.done = true
			return m, tea.Quit
		}

		m.view = msg.view

		if m.view.Job.Status.Terminal() {
			m.done = true
			if m.view.Job.Status == models.JobFailed {
				m.err = fmt.Errorf("%s", m.view.Job.Error)
			}
			return m, tea.Quit
		}

		// Continue polling for running jobs
		return m, tickCmd()

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m progressModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	if m.view == nil {
		return "Loading job status...\n"
	}

	settled := settledStages(m.view)
	total := len(models.PipelineKinds())
	pct := float64(settled) / float64(total)

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.view.Job.Status))
	progressBar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d stages", settled, total)
	hint := m.theme.hintStyle().Render("Press Ctrl+C to continue in background")

	return fmt.Sprintf("%s %s %s\n%s\n", status, progressBar, counts, hint)
}

// finalView renders the completion message.
func (m progressModel) finalView() string {
	if m.quitting {
		msg := fmt.Sprintf("\nJob %s continues in background.\nUse 'iris jobs %s' to check status.\n",
			m.jobID, m.jobID)
		return m.theme.hintStyle().Render(msg)
	}

	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Job failed: %s\n", m.err))
	}

	if m.view == nil {
		return m.theme.completedStyle().Render("✓ Completed\n")
	}

	var output string
	switch m.view.Job.Status {
	case models.JobPartial:
		output = m.theme.statusStyle().Render("◐ Completed with failures") + "\n\n"
	case models.JobCancelled:
		output = m.theme.hintStyle().Render("⊘ Cancelled") + "\n\n"
	default:
		output = m.theme.completedStyle().Render("✓ Completed") + "\n\n"
	}

	for _, stage := range m.view.Stages {
		line := fmt.Sprintf("  %-16s %s\n", stage.Kind, stage.Status)
		if stage.Status == models.ResultFailed {
			line = m.theme.errorStyle().Render(line)
		}
		output += line
	}
	output += m.theme.hintStyle().Render(fmt.Sprintf("\nUse 'iris results %s' for details.\n", m.jobID))
	return output
}

// fetchJob fetches the current job status from the server.
// Runs in a separate goroutine (command) to avoid blocking Update().
func (m progressModel) fetchJob() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		view, err := m.client.Job(ctx, m.jobID)
		return jobUpdateMsg{view: view, err: err}
	}
}

// tickCmd returns a command that sends a tick after the poll interval.
func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func settledStages(view *models.JobView) int {
	n := 0
	for _, stage := range view.Stages {
		switch stage.Status {
		case models.ResultSucceeded, models.ResultFailed, models.ResultSkipped:
			n++
		}
	}
	return n
}

// runJobProgress runs the interactive progress UI for a job.
// Returns nil on success or Ctrl+C (background), error on job failure.
func runJobProgress(c *client.Client, jobID string) error {
	model := newProgressModel(c, jobID)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(progressModel); ok {
		// Ctrl+C leaves the job running in the background, not an error
		if m.quitting {
			return nil
		}
		if m.err != nil {
			return m.err
		}
	}

	return nil
}
