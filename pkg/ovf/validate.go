// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ovf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// jobDescriptionSchema validates the JSON job descriptions accepted by
// the example CLI tools (cmd/ovf-write) before they are turned into the
// protobuf-compatible Job/WorkPlane/VectorBlock messages this package
// writes to disk. The container format itself never sees JSON; this is
// purely a convenience for human-authored or script-generated job
// descriptions.
const jobDescriptionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["job_id", "work_planes"],
  "properties": {
    "job_id": { "type": "string" },
    "job_meta_data": {
      "type": "object",
      "additionalProperties": { "type": "string" }
    },
    "work_planes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["vector_blocks"],
        "properties": {
          "z_pos_in_mm": { "type": "number" },
          "meta_data": {
            "type": "object",
            "additionalProperties": { "type": "string" }
          },
          "vector_blocks": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "marking_params_key": { "type": "integer" },
                "repeats": { "type": "integer" },
                "meta_data": {
                  "type": "object",
                  "additionalProperties": { "type": "string" }
                },
                "points": {
                  "type": "array",
                  "items": { "type": "number" }
                }
              }
            }
          }
        }
      }
    }
  }
}`

const jobDescriptionSchemaURL = "mem://ovf/job-description.schema.json"

var compiledJobDescriptionSchema *jsonschema.Schema

func init() {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(jobDescriptionSchemaURL, bytes.NewReader([]byte(jobDescriptionSchema))); err != nil {
		panic(fmt.Sprintf("ovf: invalid embedded job-description schema: %v", err))
	}
	s, err := c.Compile(jobDescriptionSchemaURL)
	if err != nil {
		panic(fmt.Sprintf("ovf: invalid embedded job-description schema: %v", err))
	}
	compiledJobDescriptionSchema = s
}

// ValidateJobDescription checks r against the JSON schema for a human
// authored job description, without allocating the resulting Job.
func ValidateJobDescription(r io.Reader) error {
	var v interface{}
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return fmt.Errorf("ovf: decode job description: %w", err)
	}
	if err := compiledJobDescriptionSchema.Validate(v); err != nil {
		return fmt.Errorf("ovf: job description failed validation: %w", err)
	}
	return nil
}

// jobDescription mirrors the JSON schema above; it is the intermediate
// representation cmd/ovf-write decodes a job description into before
// building the wire-format Job.
type jobDescription struct {
	JobID       string            `json:"job_id"`
	JobMetaData map[string]string `json:"job_meta_data"`
	WorkPlanes  []struct {
		ZPosInMM     float32           `json:"z_pos_in_mm"`
		MetaData     map[string]string `json:"meta_data"`
		VectorBlocks []struct {
			MarkingParamsKey int32             `json:"marking_params_key"`
			Repeats          int32             `json:"repeats"`
			MetaData         map[string]string `json:"meta_data"`
			Points           []float32         `json:"points"`
		} `json:"vector_blocks"`
	} `json:"work_planes"`
}

// JobFromJSON validates and decodes a job description document into a
// Job ready to be passed to WriteFullJob or StartWritePartial.
func JobFromJSON(r io.Reader) (*Job, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := ValidateJobDescription(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	var desc jobDescription
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("ovf: decode job description: %w", err)
	}

	job := &Job{
		JobID:       desc.JobID,
		JobMetaData: desc.JobMetaData,
	}
	for _, wpDesc := range desc.WorkPlanes {
		wp := &WorkPlane{
			ZPosInMM: wpDesc.ZPosInMM,
			MetaData: wpDesc.MetaData,
		}
		for _, vbDesc := range wpDesc.VectorBlocks {
			wp.VectorBlocks = append(wp.VectorBlocks, &VectorBlock{
				MarkingParamsKey: vbDesc.MarkingParamsKey,
				Repeats:          vbDesc.Repeats,
				MetaData:         vbDesc.MetaData,
				Points:           vbDesc.Points,
			})
		}
		job.WorkPlanes = append(job.WorkPlanes, wp)
	}
	return job, nil
}
