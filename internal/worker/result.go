package worker

import (
	"encoding/json"
	"fmt"
	"strings"
)

type PartResult string

const (
	PartPass PartResult = "Pass"
	PartFail PartResult = "Fail"
)

// Part is one reported step of a job. Test jobs name it testName, run
// jobs partName.
type Part struct {
	Name   string     `json:"partName"`
	Result PartResult `json:"result"`
}

func (p *Part) UnmarshalJSON(data []byte) error {
	var raw struct {
		TestName string `json:"testName"`
		PartName string `json:"partName"`
		Result   string `json:"result"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.Name = raw.TestName
	if p.Name == "" {
		p.Name = raw.PartName
	}
	if strings.EqualFold(strings.TrimSpace(raw.Result), string(PartPass)) {
		p.Result = PartPass
	} else {
		p.Result = PartFail
	}
	return nil
}

type JobResult struct {
	Parts []Part `json:"parts"`
}

// ParseJobResult decodes the result document of a job. An empty document
// is an empty result.
func ParseJobResult(raw []byte) (JobResult, error) {
	var result JobResult
	if len(raw) == 0 {
		return result, nil
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return JobResult{}, fmt.Errorf("ParseJobResult: malformed job result: %w", err)
	}
	return result, nil
}
