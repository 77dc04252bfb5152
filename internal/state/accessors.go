package state

import "fmt"

// DataResult returns the raw data value of a successful DATA StepResult.
// It fails loudly (returns an error) rather than silently returning the
// zero value when the shape doesn't match, so a downstream analysis step
// can never consume a failed or mistyped upstream result unnoticed.
func (r StepResult) DataResult() (any, error) {
	if r.StepType != StepData {
		return nil, fmt.Errorf("step %q is type %s, not %s", r.StepID, r.StepType, StepData)
	}
	if !r.Success {
		return nil, fmt.Errorf("step %q failed: %s", r.StepID, r.Error)
	}
	return r.Data, nil
}

// AnalysisResult returns the text of a successful ANALYSIS StepResult.
func (r StepResult) AnalysisResult() (string, error) {
	if r.StepType != StepAnalysis {
		return "", fmt.Errorf("step %q is type %s, not %s", r.StepID, r.StepType, StepAnalysis)
	}
	if !r.Success {
		return "", fmt.Errorf("step %q failed: %s", r.StepID, r.Error)
	}
	return r.AnalysisFull, nil
}

// Get looks up a dependency's StepResult by id, returning false if it
// hasn't been produced yet — callers building an ANALYSIS step's prompt
// use this to iterate DependsOn safely.
func (s *FinanceState) Get(stepID string) (StepResult, bool) {
	r, ok := s.StepResults[stepID]
	return r, ok
}

// AllAnalysisResults returns the AnalysisFull text of every successful
// ANALYSIS step in plan order, used by OutputFormatter's fallback
// content source when no final_synthesis result exists.
func (s *FinanceState) AllAnalysisResults() []string {
	var out []string
	for _, step := range s.Steps {
		if step.StepType != StepAnalysis {
			continue
		}
		r, ok := s.StepResults[step.StepID]
		if !ok || !r.Success {
			continue
		}
		out = append(out, r.AnalysisFull)
	}
	return out
}
