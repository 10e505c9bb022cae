// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command ovf-read opens an OVF file and prints the job-shell, or a
// single work-plane / vector block selected by flag, demonstrating the
// reader's random-access queries.
package main

import (
	"flag"
	"fmt"

	"github.com/ClusterCockpit/ovf/pkg/log"
	"github.com/ClusterCockpit/ovf/pkg/ovf"
)

func main() {
	var path string
	var workPlane, vectorBlock int
	var shellOnly bool
	flag.StringVar(&path, "in", "", "path to an .ovf file")
	flag.IntVar(&workPlane, "work-plane", -1, "print work-plane at this index instead of the job-shell")
	flag.IntVar(&vectorBlock, "vector-block", -1, "with -work-plane, print only this vector-block index")
	flag.BoolVar(&shellOnly, "shell-only", false, "with -work-plane, omit vector blocks")
	flag.Parse()

	if path == "" {
		log.Fatal("-in is required")
	}

	r := ovf.NewReader()
	var job ovf.Job
	if err := r.OpenFile(path, &job); err != nil {
		log.Fatalf("OpenFile: %s", err)
	}
	defer r.CloseFile()

	if workPlane < 0 {
		fmt.Printf("job %q: %d work-plane(s), %d metadata key(s)\n", job.JobID, job.NumWorkPlanes, len(job.JobMetaData))
		return
	}

	if vectorBlock >= 0 {
		var vb ovf.VectorBlock
		if err := r.GetVectorBlock(workPlane, vectorBlock, &vb); err != nil {
			log.Fatalf("GetVectorBlock: %s", err)
		}
		fmt.Printf("work-plane %d vector-block %d: marking_params_key=%d points=%d\n",
			workPlane, vectorBlock, vb.MarkingParamsKey, len(vb.Points))
		return
	}

	var wp ovf.WorkPlane
	var err error
	if shellOnly {
		err = r.GetWorkPlaneShell(workPlane, &wp)
	} else {
		err = r.GetWorkPlane(workPlane, &wp)
	}
	if err != nil {
		log.Fatalf("GetWorkPlane: %s", err)
	}
	fmt.Printf("work-plane %d: z=%.3fmm, %d vector-block(s)\n", wp.WorkPlaneNumber, wp.ZPosInMM, len(wp.VectorBlocks))
}
