package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// RenderMarkdown renders markdown text for terminal display. The preview
// command uses this to show composed issue bodies the way GitHub would lay
// them out. When colors are disabled, it returns the content unmodified.
func RenderMarkdown(content string) (string, error) {
	if content == "" {
		return "", nil
	}

	if !ColorsEnabled() {
		return content, nil
	}

	rendered, err := glamour.RenderWithEnvironmentConfig(content)
	if err != nil {
		return content, err
	}

	return strings.TrimSpace(rendered), nil
}
