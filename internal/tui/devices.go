// SPDX-License-Identifier: MIT
// Package tui implements the interactive device browser behind
// `spectra list --interactive`. It lists the host's audio devices, lets the
// user pick an input device and sample rate, and reports the selection back
// to the CLI.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"spectra/internal/audio"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1A1B26")).
			Background(lipgloss.Color("#7AA2F7")).
			Padding(0, 1).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#565F89"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7AA2F7")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#565F89"))
)

// Selection is what the browser hands back to the CLI when the user picks a
// device. Confirmed is false when the user quits without choosing.
type Selection struct {
	DeviceID   int
	DeviceName string
	SampleRate float64
	Confirmed  bool
}

type screen int

const (
	screenDevices screen = iota
	screenRate
)

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Back   key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k")),
	Down:   key.NewBinding(key.WithKeys("down", "j")),
	Select: key.NewBinding(key.WithKeys("enter")),
	Back:   key.NewBinding(key.WithKeys("esc")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c")),
}

// browserModel is the bubbletea model for the device browser.
type browserModel struct {
	devices  []audio.Device
	cursor   int
	viewport viewport.Model
	ready    bool
	err      error
	active   screen

	rates     []float64
	rateIndex int

	selection Selection
}

type devicesMsg struct{ devices []audio.Device }
type errMsg struct{ err error }

func newBrowserModel() browserModel {
	return browserModel{active: screenDevices}
}

func (m browserModel) Init() tea.Cmd {
	return func() tea.Msg {
		devices, err := audio.HostDevices()
		if err != nil {
			return errMsg{err}
		}
		return devicesMsg{devices}
	}
}

func (m browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
			m.refresh()
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}

	case devicesMsg:
		m.devices = msg.devices
		m.refresh()

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		switch m.active {
		case screenDevices:
			return m.updateDeviceScreen(msg)
		case screenRate:
			return m.updateRateScreen(msg)
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m browserModel) updateDeviceScreen(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.refresh()
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.devices)-1 {
			m.cursor++
			m.refresh()
		}
	case key.Matches(msg, keys.Select):
		if len(m.devices) == 0 {
			break
		}
		device := m.devices[m.cursor]
		if device.MaxInputChannels < 1 {
			break // only input devices can feed the pipeline
		}
		m.active = screenRate
		m.rates = rateChoices(device)
		m.rateIndex = 0
		for i, rate := range m.rates {
			if rate == device.DefaultSampleRate {
				m.rateIndex = i
				break
			}
		}
		m.refresh()
	}
	return m, nil
}

func (m browserModel) updateRateScreen(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		m.active = screenDevices
		m.refresh()
	case key.Matches(msg, keys.Up):
		if m.rateIndex > 0 {
			m.rateIndex--
			m.refresh()
		}
	case key.Matches(msg, keys.Down):
		if m.rateIndex < len(m.rates)-1 {
			m.rateIndex++
			m.refresh()
		}
	case key.Matches(msg, keys.Select):
		device := m.devices[m.cursor]
		m.selection = Selection{
			DeviceID:   device.ID,
			DeviceName: device.Name,
			SampleRate: m.rates[m.rateIndex],
			Confirmed:  true,
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m *browserModel) refresh() {
	if !m.ready {
		return
	}
	switch m.active {
	case screenDevices:
		m.viewport.SetContent(m.renderDevices())
	case screenRate:
		m.viewport.SetContent(m.renderRates())
	}
}

func (m browserModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}

	var title, help string
	if m.active == screenDevices {
		title = titleStyle.Render("Audio Devices")
		help = helpStyle.Render("↑/↓: navigate • enter: select input • q: quit")
	} else {
		title = titleStyle.Render("Sample Rate")
		help = helpStyle.Render("↑/↓: change • enter: confirm • esc: back • q: quit")
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m browserModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "No audio devices found."
	}

	var sb strings.Builder
	for i, device := range m.devices {
		deviceType := ""
		switch {
		case device.MaxInputChannels > 0 && device.MaxOutputChannels > 0:
			deviceType = "Input/Output"
		case device.MaxInputChannels > 0:
			deviceType = "Input"
		case device.MaxOutputChannels > 0:
			deviceType = "Output"
		}

		line := fmt.Sprintf("[%d] %s (%s)\n", device.ID, device.Name, deviceType)
		line += fmt.Sprintf("    In: %d  Out: %d  Rate: %.0f Hz\n",
			device.MaxInputChannels, device.MaxOutputChannels, device.DefaultSampleRate)

		switch {
		case i == m.cursor:
			line = selectedStyle.Render(line)
		case device.MaxInputChannels < 1:
			line = dimStyle.Render(line)
		}

		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m browserModel) renderRates() string {
	var sb strings.Builder
	device := m.devices[m.cursor]

	sb.WriteString(fmt.Sprintf("Device: %s\n\n", device.Name))
	sb.WriteString("Sample rate:\n")

	for i, rate := range m.rates {
		marker := "  "
		if i == m.rateIndex {
			marker = "▶ "
		}
		line := fmt.Sprintf("  %s%.0f Hz\n", marker, rate)
		if i == m.rateIndex {
			line = selectedStyle.Render(line)
		}
		sb.WriteString(line)
	}
	return sb.String()
}

// rateChoices puts the device's native rate first among the common rates.
func rateChoices(device audio.Device) []float64 {
	common := []float64{44100, 48000, 88200, 96000}
	for _, rate := range common {
		if rate == device.DefaultSampleRate {
			return common
		}
	}
	return append([]float64{device.DefaultSampleRate}, common...)
}

// BrowseDevices runs the interactive device browser and returns the user's
// selection. Selection.Confirmed is false when the user quit without picking.
func BrowseDevices() (Selection, error) {
	p := tea.NewProgram(newBrowserModel(), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return Selection{}, err
	}
	model, ok := final.(browserModel)
	if !ok {
		return Selection{}, fmt.Errorf("unexpected model type from device browser")
	}
	return model.selection, nil
}
