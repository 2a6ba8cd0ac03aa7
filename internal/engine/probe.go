package engine

import "github.com/appunni/llm-ts-worker/pkg/types"

// Probe performs the one-shot acceleration capability check. It is
// idempotent and never returns an error to its caller; failures are
// captured in the result.
func (e *Engine) Probe() types.CheckResult {
	if e.rt == nil {
		return types.CheckResult{Available: false, Error: "no runtime adapter configured"}
	}
	ok, reason := e.rt.Available()
	res := types.CheckResult{Available: ok}
	if ok {
		res.Adapter = e.rt.Name()
	} else {
		res.Error = reason
	}
	return res
}
