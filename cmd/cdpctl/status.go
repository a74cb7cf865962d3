package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cdpforge/cdpd/internal/rpcserver"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a live view of the daemon's browser pool",
	RunE:  runStatus,
}

var (
	statusTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("205")).
				MarginBottom(1)

	statusBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Width(60)

	statusLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Width(16)

	statusValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("255"))

	statusErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("196")).
				Bold(true)
)

const statusPollInterval = 2 * time.Second

type statusModel struct {
	client   *rpcserver.Client
	browsers []string
	err      error
	quitting bool
}

type tickMsg struct{}

type pollResultMsg struct {
	browsers []string
	err      error
}

func (m statusModel) Init() tea.Cmd {
	return tea.Batch(m.poll(), tea.Tick(statusPollInterval, func(time.Time) tea.Msg { return tickMsg{} }))
}

func (m statusModel) poll() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		resp, err := m.client.ListBrowsers(ctx, &rpcserver.ListBrowsersRequest{})
		if err != nil {
			return pollResultMsg{err: err}
		}
		return pollResultMsg{browsers: resp.BrowserIDs}
	}
}

func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Quit
		}
	case tickMsg:
		return m, tea.Batch(m.poll(), tea.Tick(statusPollInterval, func(time.Time) tea.Msg { return tickMsg{} }))
	case pollResultMsg:
		m.err = msg.err
		if msg.err == nil {
			m.browsers = msg.browsers
		}
	}
	return m, nil
}

func (m statusModel) View() string {
	if m.quitting {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(statusTitleStyle.Render("cdpd status"))
	sb.WriteString("\n")

	if m.err != nil {
		sb.WriteString(statusErrorStyle.Render("connection error: " + m.err.Error()))
		sb.WriteString("\n")
	} else {
		sb.WriteString(renderRow("Browsers", fmt.Sprintf("%d", len(m.browsers))))
		for _, id := range m.browsers {
			sb.WriteString(renderRow("", id))
		}
	}
	sb.WriteString("\n")
	sb.WriteString(statusValueStyle.Render("press q to quit"))

	return statusBoxStyle.Render(sb.String())
}

func renderRow(label, value string) string {
	if label == "" {
		return fmt.Sprintf("  %s\n", statusValueStyle.Render(value))
	}
	return fmt.Sprintf("  %s %s\n", statusLabelStyle.Render(label+":"), statusValueStyle.Render(value))
}

func runStatus(cmd *cobra.Command, args []string) error {
	conn, err := grpc.NewClient(serverAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(rpcserver.ClientCallOption()),
	)
	if err != nil {
		return fmt.Errorf("cdpctl: dial %s: %w", serverAddr, err)
	}
	defer conn.Close()

	client := rpcserver.NewClient(conn)
	model := statusModel{client: client}

	_, err = tea.NewProgram(model).Run()
	return err
}
