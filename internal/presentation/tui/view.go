package tui

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/muesli/termenv"

	"github.com/aretw0/parley/pkg/domain"
)

var speakerPalette = []string{"#60a5fa", "#34d399", "#fbbf24", "#f472b6", "#a78bfa", "#fb923c"}

// FormatView renders a conversation view as markdown. Unsatisfied options are
// struck through; they only appear when the view was built from all options.
func FormatView(v *domain.View) string {
	var sb strings.Builder

	if v.Text != "" {
		if v.Speaker != "" {
			sb.WriteString(fmt.Sprintf("**%s**", v.Speaker))
			if v.SpeakerState != "" {
				sb.WriteString(fmt.Sprintf(" _(%s)_", v.SpeakerState))
			}
			sb.WriteString(": ")
		}
		sb.WriteString(v.Text)
		sb.WriteString("\n\n")
	}

	if v.Finished {
		sb.WriteString("_The conversation is over._\n")
		return sb.String()
	}

	for _, o := range v.Options {
		text := o.Text
		if text == "" {
			text = "..."
		}
		if !o.Satisfied {
			text = "~~" + text + "~~"
		}
		sb.WriteString(fmt.Sprintf("%d. %s\n", o.Index+1, text))
	}
	return sb.String()
}

// SpeakerColor returns a stable terminal colour for a speaker name.
func SpeakerColor(name string) termenv.Color {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return termenv.ColorProfile().Color(speakerPalette[h.Sum32()%uint32(len(speakerPalette))])
}

// Speaker styles a speaker name for plain (non-markdown) output.
func Speaker(name string) string {
	return termenv.String(name).Bold().Foreground(SpeakerColor(name)).String()
}
