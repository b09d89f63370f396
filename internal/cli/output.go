package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mcoot/playersync/internal/factory"
	"github.com/mcoot/playersync/internal/model"
)

// Output handles formatting output based on the configured format
type Output struct {
	w      io.Writer
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(w io.Writer, format string) *Output {
	return &Output{w: w, format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSON(map[string]string{"message": msg})
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Status:
		o.printStatus(v)
	case HealthResult:
		fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	default:
		o.printJSON(data)
	}
}

// Status is the signed-in player and their progression
type Status struct {
	PlayerID    string            `json:"player_id"`
	PlayerName  string            `json:"player_name"`
	Outcome     string            `json:"outcome"`
	Progression model.Progression `json:"progression"`
}

func statusFromApp(app *factory.App) Status {
	session := app.Auth.Session()
	return Status{
		PlayerID:    string(session.PlayerID),
		PlayerName:  session.PlayerName,
		Outcome:     string(app.Progression.LoadOutcome()),
		Progression: app.Progression.Snapshot(),
	}
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printStatus(s Status) {
	p := s.Progression
	fmt.Fprintf(o.w, "Player: %s (%s)\n", s.PlayerName, s.PlayerID)
	if p.PlayerName != s.PlayerName {
		fmt.Fprintf(o.w, "Save name: %s\n", p.PlayerName)
	}
	fmt.Fprintf(o.w, "Level %d  %s %d/%d XP\n", p.Level, progressBar(p.Progress(), 20), p.Experience, p.RequiredXP())
	fmt.Fprintf(o.w, "Skill points: %d\n", p.AvailableSkillPoints)
	fmt.Fprintf(o.w, "  Strength: %d\n", p.Strength)
	fmt.Fprintf(o.w, "  Defense:  %d\n", p.Defense)
	fmt.Fprintf(o.w, "  Agility:  %d\n", p.Agility)
	fmt.Fprintf(o.w, "Clicks: %d\n", p.TotalClicks)
}

func progressBar(fraction float64, width int) string {
	filled := int(fraction * float64(width))
	filled = max(0, min(filled, width))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
