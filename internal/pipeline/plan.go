package pipeline

import (
	"prism-backend/internal/prism"
	"prism-backend/internal/research"
)

// step is the percent reported when a phase starts and when it completes.
type step struct {
	Start int
	Done  int
}

// plan assigns each phase of a run a slice of the progress bar. The research
// step of the agent mode dominates wall-clock time and gets most of the range.
type plan struct {
	Research research.Span
	Phase1   int
	Phase2   step
	Phase3   step
	Phase4a  step
	Phase4b  step
	Phase4c  step
}

var plans = map[prism.ResearchDepth]plan{
	prism.DepthStandard: {
		Research: research.Span{From: 5, To: 30},
		Phase1:   40,
		Phase2:   step{42, 55},
		Phase3:   step{57, 68},
		Phase4a:  step{70, 78},
		Phase4b:  step{80, 88},
		Phase4c:  step{90, 98},
	},
	prism.DepthDeep: {
		Research: research.Span{From: 5, To: 40},
		Phase1:   50,
		Phase2:   step{52, 62},
		Phase3:   step{64, 72},
		Phase4a:  step{74, 80},
		Phase4b:  step{82, 88},
		Phase4c:  step{90, 98},
	},
	prism.DepthManual: {
		Research: research.Span{From: 5, To: 20},
		Phase1:   30,
		Phase2:   step{32, 48},
		Phase3:   step{50, 62},
		Phase4a:  step{64, 74},
		Phase4b:  step{76, 86},
		Phase4c:  step{88, 98},
	},
	prism.DepthAgent: {
		Research: research.Span{From: 5, To: 70},
		Phase1:   75,
		Phase2:   step{76, 82},
		Phase3:   step{83, 87},
		Phase4a:  step{88, 91},
		Phase4b:  step{92, 95},
		Phase4c:  step{96, 98},
	},
}

// regenerationPlan covers phases 3 and 4 only.
var regenerationPlan = plan{
	Phase3:  step{10, 30},
	Phase4a: step{40, 60},
	Phase4b: step{65, 80},
	Phase4c: step{85, 100},
}

func planFor(depth prism.ResearchDepth) plan {
	if p, ok := plans[depth]; ok {
		return p
	}
	return plans[prism.DepthStandard]
}
