package verdict

import (
	"testing"

	"github.com/openvdm/openvdm-web/internal/worker"
	"github.com/stretchr/testify/assert"
)

func parts(pairs ...string) worker.JobResult {
	var r worker.JobResult
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Parts = append(r.Parts, worker.Part{Name: pairs[i], Result: worker.PartResult(pairs[i+1])})
	}
	return r
}

// The worker computes the aggregate itself and reports it last. An earlier
// failing part does not fail the verdict.
func TestInterpretUsesLastPartOnly(t *testing.T) {
	v := Interpret(parts("A", "Fail", "B", "Pass", "FinalVerdict", "Pass"))

	assert.True(t, v.OverallPass)
	assert.Equal(t, []PartVerdict{
		{Name: "A", Pass: false},
		{Name: "B", Pass: true},
		{Name: "FinalVerdict", Pass: true},
	}, v.Parts)
	assert.Equal(t, []string{"A"}, v.FailedParts())
}

func TestInterpret(t *testing.T) {
	tests := []struct {
		name   string
		result worker.JobResult
		want   bool
	}{
		{"all pass", parts("Mount", "Pass", "Final Verdict", "Pass"), true},
		{"last fails", parts("Mount", "Pass", "Final Verdict", "Fail"), false},
		{"single pass", parts("Final Verdict", "Pass"), true},
		{"empty", worker.JobResult{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Interpret(tt.result)
			assert.Equal(t, tt.want, v.OverallPass)
			assert.Len(t, v.Parts, len(tt.result.Parts))
		})
	}
}
