package session

import "cct-server/cct"

// TrialStartedMsg is sent once when the deck has been dealt.
type TrialStartedMsg struct {
	Type    string        `json:"type"`
	TrialID string        `json:"trialId"`
	View    cct.TrialView `json:"view"`
}

// TrialStateMsg is sent after every reveal or stop that changed the trial.
type TrialStateMsg struct {
	Type string        `json:"type"`
	View cct.TrialView `json:"view"`
}

// TrialFinishedMsg carries the result record handed to the experiment.
type TrialFinishedMsg struct {
	Type    string     `json:"type"`
	TrialID string     `json:"trialId"`
	Result  cct.Result `json:"result"`
}
