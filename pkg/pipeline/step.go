package pipeline

// Step kinds, in the order the builder emits them.
const (
	StepConfigUpdate   = "config-update"
	StepResource       = "resource"
	StepEngine         = "engine"
	StepGame           = "game"
	StepGames          = "games"
	StepMap            = "map"
	StepNextGen        = "nextgen"
	StepLauncherUpdate = "launcher-update"
	StepStart          = "start"
)

// Step is one discrete unit of pipeline work. Item is an opaque descriptor
// used only for progress reporting. Action performs the step's effect and is
// responsible for eventually causing the pipeline to advance, either by
// returning (the driver advances) or by calling Orchestrator.Advance from an
// async continuation. The step itself is passed in so the start step can
// re-enqueue itself.
type Step struct {
	Kind   string
	Item   string
	Action func(*Step)
}
