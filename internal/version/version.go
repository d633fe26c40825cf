package version

import (
	"fmt"
	"log"
	"strings"

	"github.com/dushu/gateway/theme"
)

var (
	Name        = "dushu-gateway"
	Authors     = "Dushu Gateway Contributors"
	Description = "A runtime-registered HTTP reverse-proxy gateway"
	Version     = "v0.1.0"
	Commit      = "none"
	Date        = "nowish"
	User        = "local"
)

const (
	GithubHomeText  = "github.com/dushu/gateway"
	GithubHomeUri   = "https://github.com/dushu/gateway"
	GithubLatestUri = "https://github.com/dushu/gateway/releases/latest"
)

// PrintVersionInfo prints a startup banner. extendedInfo adds the build
// provenance lines, used for `--version`.
func PrintVersionInfo(extendedInfo bool, vlog *log.Logger) {
	githubUri := theme.Hyperlink(GithubHomeUri, GithubHomeText)
	latestUri := theme.Hyperlink(GithubLatestUri, Version)

	var b strings.Builder

	b.WriteString(theme.ColourSplash("╔────────────────────────────────────────────────────────╗\n"))
	b.WriteString(theme.ColourSplash("│  dushu-gateway — request-dispatch fabric                │\n"))
	b.WriteString(theme.ColourSplash("│ "))
	b.WriteString(theme.StyleUrl(githubUri))
	b.WriteString(fmt.Sprintf("%*s", 2, ""))
	b.WriteString(theme.ColourVersion(latestUri))
	b.WriteString(theme.ColourSplash("     │\n"))
	b.WriteString(theme.ColourSplash("╚────────────────────────────────────────────────────────╝"))

	if extendedInfo {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf(" Commit: %s\n", Commit))
		b.WriteString(fmt.Sprintf("  Built: %s\n", Date))
		b.WriteString(fmt.Sprintf("  Using: %s\n", User))
	}

	vlog.Println(b.String())
}
