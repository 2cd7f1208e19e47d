package main

import "github.com/charmbracelet/lipgloss"

var (
	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("160")) // Red

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("40")) // Green

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")) // Gray
)
