package meme

import (
	"strings"

	"github.com/hupe1980/agentmux/internal/util"
)

const (
	svgWidth     = 600
	svgHeight    = 600
	lineHeight   = 44
	maxLineChars = 24
)

const svgTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}">
  <title>{{xml .Meme.Name}}</title>
  <rect width="100%" height="100%" fill="{{xml .Meme.Background}}"/>
  <text x="50%" y="{{.Center}}" text-anchor="middle" font-family="Impact, sans-serif" font-size="20" fill="{{xml .Meme.TextColor}}" opacity="0.6">{{xml .Meme.Name}}</text>
{{- range .Top}}
  <text x="50%" y="{{.Y}}" text-anchor="middle" font-family="Impact, sans-serif" font-size="40" fill="{{xml $.Meme.TextColor}}" stroke="#000000" stroke-width="1.5">{{xml .Text}}</text>
{{- end}}
{{- range .Bottom}}
  <text x="50%" y="{{.Y}}" text-anchor="middle" font-family="Impact, sans-serif" font-size="40" fill="{{xml $.Meme.TextColor}}" stroke="#000000" stroke-width="1.5">{{xml .Text}}</text>
{{- end}}
</svg>
`

type svgLine struct {
	Y    int
	Text string
}

// RenderSVG draws the captions on a flat background in the meme's colors.
func RenderSVG(m BaseMeme, c Captions) ([]byte, error) {
	top := wrap(strings.ToUpper(c.Top), maxLineChars)
	bottom := wrap(strings.ToUpper(c.Bottom), maxLineChars)

	data := map[string]any{
		"Width":  svgWidth,
		"Height": svgHeight,
		"Center": svgHeight / 2,
		"Meme":   m,
		"Top":    layout(top, 60),
		"Bottom": layout(bottom, svgHeight-30-(len(bottom)-1)*lineHeight),
	}

	out, err := util.RenderTemplate(svgTemplate, data)
	if err != nil {
		return nil, err
	}

	return []byte(out), nil
}

func layout(lines []string, startY int) []svgLine {
	out := make([]svgLine, 0, len(lines))
	for i, l := range lines {
		out = append(out, svgLine{Y: startY + i*lineHeight, Text: l})
	}

	return out
}

// wrap breaks text on spaces into lines of at most width runes. Longer words
// keep their own line.
func wrap(text string, width int) []string {
	var (
		lines []string
		cur   strings.Builder
	)

	for _, word := range strings.Fields(text) {
		if cur.Len() > 0 && len([]rune(cur.String()))+1+len([]rune(word)) > width {
			lines = append(lines, cur.String())
			cur.Reset()
		}

		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}

		cur.WriteString(word)
	}

	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}

	return lines
}
