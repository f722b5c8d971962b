package game

import "fmt"

// View is what the host renders after each state change.
type View struct {
	Cards     []Card `json:"cards"`
	Score     int    `json:"score"`
	Timer     int    `json:"timer"`
	Countdown string `json:"countdown"`
	Running   bool   `json:"running"`
	Round     int    `json:"round"`
	Phase     Phase  `json:"phase"`
	Message   string `json:"message"`
	Version   uint64 `json:"version"`
}

// View builds the outbound view of s. Version is left for the host to stamp.
func (s State) View() View {
	return View{
		Cards:     append([]Card(nil), s.Cards...),
		Score:     s.Score,
		Timer:     s.Timer,
		Countdown: FormatCountdown(s.Timer),
		Running:   s.Running,
		Round:     s.Round,
		Phase:     s.Phase(),
		Message:   s.Message,
	}
}

// FormatCountdown renders seconds as zero-padded MM:SS.
func FormatCountdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
