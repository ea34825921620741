package utils

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/common-nighthawk/go-figure"
)

var bannerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

func DrawBanner() {
	banner := figure.NewFigure("aws-reaper", "", true)
	fmt.Println(bannerStyle.Render(banner.String()))
}
