// Package verdict reads the pass/fail outcome of a worker job result.
package verdict

import "github.com/openvdm/openvdm-web/internal/worker"

type PartVerdict struct {
	Name string `json:"name"`
	Pass bool   `json:"pass"`
}

type Verdict struct {
	OverallPass bool          `json:"overallPass"`
	Parts       []PartVerdict `json:"parts"`
}

// Interpret returns the verdict of a job result. The worker reports its
// own aggregate as the last part, so the overall outcome is that part's
// result; earlier parts are informational. An empty result fails.
func Interpret(result worker.JobResult) Verdict {
	v := Verdict{Parts: make([]PartVerdict, 0, len(result.Parts))}
	for _, p := range result.Parts {
		v.Parts = append(v.Parts, PartVerdict{Name: p.Name, Pass: p.Result == worker.PartPass})
	}
	if n := len(v.Parts); n > 0 {
		v.OverallPass = v.Parts[n-1].Pass
	}
	return v
}

// FailedParts lists the names of the parts that did not pass.
func (v Verdict) FailedParts() []string {
	var failed []string
	for _, p := range v.Parts {
		if !p.Pass {
			failed = append(failed, p.Name)
		}
	}
	return failed
}
