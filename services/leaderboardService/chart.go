package leaderboardService

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// RenderChart produces a PNG bar chart of the given leaderboard page, used
// as the image attachment on the leaderboard commands.
func RenderChart(title string, entries []Entry) ([]byte, error) {
	if len(entries) == 0 {
		return nil, errors.New("leaderboardService: no entries to chart")
	}

	bars := make([]chart.Value, len(entries))
	for i, e := range entries {
		label := e.Username
		if label == "" {
			label = e.UserID
		}
		// Keep axis labels readable on crowded boards.
		if len(label) > 12 {
			label = label[:12]
		}
		bars[i] = chart.Value{
			Label: fmt.Sprintf("#%d %s", e.Rank, label),
			Value: float64(e.XP),
			Style: chart.Style{
				FillColor:   drawing.ColorFromHex("5865f2"),
				StrokeColor: drawing.ColorFromHex("5865f2"),
			},
		}
	}

	graph := chart.BarChart{
		Title:    title,
		Width:    100 + 120*len(bars),
		Height:   400,
		BarWidth: 80,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("rendering leaderboard chart: %w", err)
	}
	return buf.Bytes(), nil
}
