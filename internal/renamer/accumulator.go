package renamer

import "sync"

// accumulator is the only shared mutable state of a run. Reporting happens
// under the same lock so reporters see plans one at a time.
type accumulator struct {
	mu       sync.Mutex
	result   BatchResult
	reporter Reporter
}

func (a *accumulator) record(plan Plan) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case plan.Renamed():
		a.result.Renamed++
	case plan.Status == StatusFailed:
		a.result.Failed++
	case plan.Status == StatusSkipped:
		a.result.Skipped++
	}
	a.result.Plans = append(a.result.Plans, plan)
	if a.reporter != nil {
		a.reporter.Report(plan)
	}
}

func (a *accumulator) snapshot() BatchResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.result
	out.Plans = append([]Plan(nil), a.result.Plans...)
	return out
}
