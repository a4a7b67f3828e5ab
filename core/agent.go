package core

type Policy interface {
	ResetEpisode(*EpisodeContext)
	UpdateEpisode(*EpisodeContext)
	PickAction(*StepContext, State, []Action) Action
	// UpdateStep learns from one transition. A non-nil error fails the episode.
	UpdateStep(*StepContext, State, Action, State) error
	Reset()
}

type PolicyConstructor interface {
	NewPolicy() Policy
}
