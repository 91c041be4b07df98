package cli

import (
	"context"
	"fmt"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/tuneboard/tuneboard/internal/client"
	"github.com/tuneboard/tuneboard/internal/models"
)

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status     lipgloss.Color
	Success    lipgloss.Color
	Error      lipgloss.Color
	Hint       lipgloss.Color
	ProgressBg lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:     lipgloss.Color("#5FAFD7"), // light blue
	Success:    lipgloss.Color("#00D787"), // green
	Error:      lipgloss.Color("#FF005F"), // red
	Hint:       lipgloss.Color("#6C6C6C"), // dim gray
	ProgressBg: lipgloss.Color("#3A3A3A"), // dark gray
}

// Style functions for dynamic theming
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

// statusMsg carries a non-terminal status update from the poller.
type statusMsg struct {
	status models.JobStatus
}

// watchDoneMsg carries the terminal status, or the error that ended polling.
type watchDoneMsg struct {
	status models.JobStatus
	err    error
}

// watchModel is the bubbletea model for following a job.
type watchModel struct {
	jobID     string
	statusCh  <-chan models.JobStatus
	doneCh    <-chan watchDoneMsg
	cancel    context.CancelFunc
	startedAt time.Time

	status   models.JobStatus
	progress progress.Model
	theme    Theme
	done     bool
	quitting bool
	err      error
}

func newWatchModel(jobID string, statusCh <-chan models.JobStatus, doneCh <-chan watchDoneMsg, cancel context.CancelFunc) watchModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return watchModel{
		jobID:     jobID,
		statusCh:  statusCh,
		doneCh:    doneCh,
		cancel:    cancel,
		startedAt: time.Now(),
		progress:  prog,
		theme:     defaultTheme,
	}
}

// waitForUpdate blocks on the poller's channels and forwards the next event.
func (m watchModel) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		select {
		case s, ok := <-m.statusCh:
			if !ok {
				return <-m.doneCh
			}
			return statusMsg{status: s}
		case d := <-m.doneCh:
			return d
		}
	}
}

// Init returns the initial command (start listening for updates).
func (m watchModel) Init() tea.Cmd {
	return tea.Batch(
		m.waitForUpdate(),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}

	case statusMsg:
		m.status = msg.status
		return m, m.waitForUpdate()

	case watchDoneMsg:
		m.done = true
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.status = msg.status
		if failed, ok := msg.status.(models.FailedStatus); ok {
			m.err = fmt.Errorf("%s", failed.Message)
		}
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m watchModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string.
func (m watchModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	if m.status == nil {
		return "Fetching job status...\n"
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.status.Kind()))

	detail := ""
	var pct float64
	if pending, ok := m.status.(models.PendingStatus); ok {
		if pending.Message != "" {
			detail = pending.Message
		}
		if pending.TrainedTokens != nil {
			detail += fmt.Sprintf(" · %d tokens", *pending.TrainedTokens)
		}
		// Without a sample count from the backend, estimate progress from
		// the time remaining until the provider's predicted finish.
		if pending.EstimatedFinish != nil {
			total := pending.EstimatedFinish.Sub(m.startedAt)
			if total > 0 {
				pct = min(float64(time.Since(m.startedAt))/float64(total), 1)
			}
		}
	}

	progressBar := m.progress.ViewAs(pct)
	hint := m.theme.hintStyle().Render("Press Ctrl+C to continue in background")

	return fmt.Sprintf("%s %s %s\n%s\n", status, progressBar, detail, hint)
}

// finalView renders the completion message.
func (m watchModel) finalView() string {
	if m.quitting {
		msg := fmt.Sprintf("\nJob %s continues in background.\nUse 'tuneboard jobs %s' to check status.\n",
			m.jobID, m.jobID)
		return m.theme.hintStyle().Render(msg)
	}

	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Job failed: %s\n", m.err))
	}

	if completed, ok := m.status.(models.CompletedStatus); ok {
		var output string
		output += m.theme.completedStyle().Render("✓ Completed") + "\n\n"
		output += fmt.Sprintf("  Fine-tuned model: %s\n", completed.Result.FineTunedModel)
		if completed.Result.ModelFragment != "" {
			output += "\nModel config fragment:\n" + completed.Result.ModelFragment
		}
		if completed.Result.VariantFragment != "" {
			output += "\nVariant config fragment:\n" + completed.Result.VariantFragment
		}
		return output
	}

	return m.theme.completedStyle().Render("✓ Completed\n")
}

// runWatchTUI runs the interactive watch UI for a job.
// Returns nil on success or Ctrl+C (background), error on job failure.
func runWatchTUI(ctx context.Context, c *client.Client, jobID string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	statusCh := make(chan models.JobStatus, 1)
	doneCh := make(chan watchDoneMsg, 1)

	poller := client.NewPoller(c, nil)
	go func() {
		defer close(statusCh)
		terminal, err := poller.Run(ctx, jobID, func(s models.JobStatus) {
			if !s.Terminal() {
				statusCh <- s
			}
		})
		doneCh <- watchDoneMsg{status: terminal, err: err}
	}()

	model := newWatchModel(jobID, statusCh, doneCh, cancel)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("watch UI error: %w", err)
	}

	if m, ok := finalModel.(watchModel); ok {
		// If the user quit with Ctrl+C, the job continues in the
		// background. Not an error.
		if m.quitting {
			return nil
		}
		if m.err != nil {
			return m.err
		}
	}

	return nil
}
