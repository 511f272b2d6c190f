package storage

// Summary aggregates a participant's trials for the results API.
type Summary struct {
	Trials          int     `json:"trials"`
	HotTrials       int     `json:"hot_trials"`
	MeanCardsTurned float64 `json:"mean_cards_turned"`
	LossRate        float64 `json:"loss_rate"`
	TotalPoints     int     `json:"total_points"`
}

// Summarize computes a Summary over records. An empty slice yields the zero Summary.
func Summarize(records []TrialRecord) Summary {
	var s Summary
	if len(records) == 0 {
		return s
	}
	turned, losses := 0, 0
	for _, r := range records {
		s.Trials++
		if r.Result.Hot {
			s.HotTrials++
		}
		turned += r.Result.CardsTurned
		losses += r.Result.Loss
		s.TotalPoints += r.Result.TotalPoints
	}
	s.MeanCardsTurned = float64(turned) / float64(s.Trials)
	s.LossRate = float64(losses) / float64(s.Trials)
	return s
}
