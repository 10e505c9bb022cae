// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command ovf-write turns a JSON job description into an OVF file,
// either in one shot (WriteFullJob) or incrementally, one work-plane at
// a time (StartWritePartial/AppendWorkPlane/AppendVectorBlock/
// FinishWrite), to demonstrate that both paths produce an equivalent
// file.
package main

import (
	"flag"
	"os"

	"github.com/ClusterCockpit/ovf/pkg/log"
	"github.com/ClusterCockpit/ovf/pkg/ovf"
)

func main() {
	var in, out string
	var incremental bool
	flag.StringVar(&in, "in", "", "path to a JSON job description")
	flag.StringVar(&out, "out", "", "path to write the resulting .ovf file to")
	flag.BoolVar(&incremental, "incremental", false, "write via StartWritePartial/AppendWorkPlane instead of WriteFullJob")
	flag.Parse()

	if in == "" || out == "" {
		log.Fatal("both -in and -out are required")
	}

	f, err := os.Open(in)
	if err != nil {
		log.Fatalf("open %s: %s", in, err)
	}
	job, err := ovf.JobFromJSON(f)
	f.Close()
	if err != nil {
		log.Fatalf("parse %s: %s", in, err)
	}

	w := ovf.NewWriter()
	if incremental {
		shell := &ovf.Job{JobID: job.JobID, JobMetaData: job.JobMetaData}
		if err := w.StartWritePartial(shell, out); err != nil {
			log.Fatalf("StartWritePartial: %s", err)
		}
		for _, wp := range job.WorkPlanes {
			shellOnly := &ovf.WorkPlane{ZPosInMM: wp.ZPosInMM, MetaData: wp.MetaData}
			if err := w.AppendWorkPlane(shellOnly); err != nil {
				log.Fatalf("AppendWorkPlane: %s", err)
			}
			for _, vb := range wp.VectorBlocks {
				if err := w.AppendVectorBlock(vb); err != nil {
					log.Fatalf("AppendVectorBlock: %s", err)
				}
			}
		}
		if err := w.FinishWrite(); err != nil {
			log.Fatalf("FinishWrite: %s", err)
		}
	} else {
		if err := w.WriteFullJob(job, out); err != nil {
			log.Fatalf("WriteFullJob: %s", err)
		}
	}

	log.Infof("wrote %d work-plane(s) to %s", len(job.WorkPlanes), out)
}
