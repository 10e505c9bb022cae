// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command ovf-info reports structural information about an OVF file,
// optionally warms up one of the reader's cache tiers (chosen with
// -cache), and prints how long that warm-up took.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ClusterCockpit/ovf/pkg/log"
	"github.com/ClusterCockpit/ovf/pkg/ovf"
)

func main() {
	var path, cache string
	flag.StringVar(&path, "in", "", "path to an .ovf file")
	flag.StringVar(&cache, "cache", "none", "cache tier to warm up before reporting: none, shells, full")
	flag.Parse()

	if path == "" {
		log.Fatal("-in is required")
	}

	info, err := os.Stat(path)
	if err != nil {
		log.Fatalf("stat %s: %s", path, err)
	}

	r := ovf.NewReader()
	var job ovf.Job
	if err := r.OpenFile(path, &job); err != nil {
		log.Fatalf("OpenFile: %s", err)
	}
	defer r.CloseFile()

	start := time.Now()
	switch cache {
	case "none":
		// nothing to do
	case "shells":
		if err := r.CacheWorkPlaneShells(); err != nil {
			log.Fatalf("CacheWorkPlaneShells: %s", err)
		}
	case "full":
		if err := r.CacheFullJob(); err != nil {
			log.Fatalf("CacheFullJob: %s", err)
		}
	default:
		log.Fatalf("unknown -cache value %q", cache)
	}
	warmup := time.Since(start)

	fmt.Printf("file:              %s\n", path)
	fmt.Printf("size:              %d bytes\n", info.Size())
	fmt.Printf("job id:            %s\n", job.JobID)
	fmt.Printf("work planes:       %d\n", job.NumWorkPlanes)
	fmt.Printf("shells cached:     %v\n", r.IsWorkPlaneShellsCached())
	fmt.Printf("full job cached:   %v\n", r.IsFullJobCached())
	fmt.Printf("cache warm-up:     %s\n", warmup)
}
