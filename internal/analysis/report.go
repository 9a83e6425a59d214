package analysis

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/andresmejia3/moodgate/internal/liveness"
)

// WriteTable prints a one-shot result the way `moodgate check` shows it.
func (r Report) WriteTable(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)

	fmt.Fprintln(w, "FIELD\tVALUE")
	fmt.Fprintln(w, "-----\t-----")
	fmt.Fprintf(w, "Liveness\t%s\n", verdictText(r.State.Live))
	fmt.Fprintf(w, "Reason\t%s\n", r.Verdict.Reason)
	if r.Verdict.Reason != liveness.ReasonNoFace && r.Verdict.Err == nil {
		fmt.Fprintf(w, "Eye aspect ratio\t%.3f\n", r.Verdict.EAR)
	}
	if r.Verdict.Err != nil {
		fmt.Fprintf(w, "Liveness error\t%v\n", r.Verdict.Err)
	}
	fmt.Fprintf(w, "Emotion\t%s (%.1f%%)\n", r.State.Emotion.Label, r.State.Emotion.Score)
	if r.Emotion.Err != nil {
		fmt.Fprintf(w, "Classifier error\t%v\n", r.Emotion.Err)
	}

	if len(r.Emotion.Scores) > 0 {
		fmt.Fprintln(w, "\nEMOTION\tSCORE")
		fmt.Fprintln(w, "-------\t-----")
		for _, s := range sortedScores(r.Emotion.Scores) {
			fmt.Fprintf(w, "%s\t%.1f%%\n", s.label, s.score)
		}
	}
	return w.Flush()
}

func verdictText(live bool) string {
	if live {
		return "Real Face ✅"
	}
	return "Fake Face ❌"
}

type labelScore struct {
	label string
	score float64
}

// sortedScores orders by score, highest first, then by label.
func sortedScores(m map[string]float64) []labelScore {
	out := make([]labelScore, 0, len(m))
	for k, v := range m {
		out = append(out, labelScore{label: k, score: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].label < out[j].label
	})
	return out
}
