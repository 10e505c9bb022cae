// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command ovf-serve exposes a single open OVF file over a tiny read-only
// HTTP API (/job for the job-shell, /work-planes/{i} for a full work-plane
// or, with ?shell=1, its shell, and /cache?tier=none|shells|full to switch
// the reader's cache tier), demonstrating
// the reader's multi-reader/single-writer lock under real concurrent
// access.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/ClusterCockpit/ovf/internal/config"
	"github.com/ClusterCockpit/ovf/pkg/log"
	"github.com/ClusterCockpit/ovf/pkg/ovf"
	"github.com/google/gops/agent"
)

func main() {
	var flagConfigFile, flagFile string
	var flagGops bool
	flag.StringVar(&flagConfigFile, "config", "", "path to a config.json (optional)")
	flag.StringVar(&flagFile, "file", "", "path to the .ovf file to serve")
	flag.BoolVar(&flagGops, "gops", false, "listen via github.com/google/gops/agent (for debugging)")
	flag.Parse()

	if flagFile == "" {
		log.Fatal("-file is required")
	}

	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Fatalf("gops/agent.Listen failed: %s", err)
		}
	}

	keys, err := config.Load(flagConfigFile)
	if err != nil {
		log.Fatal(err)
	}
	log.SetLevel(keys.LogLevel)

	threshold := ovf.DefaultAutoCacheThreshold
	if keys.AutoCacheThresholdBytes != 0 {
		threshold = keys.AutoCacheThresholdBytes
	}
	reader := ovf.NewReaderWithThreshold(threshold)

	var job ovf.Job
	if err := reader.OpenFile(flagFile, &job); err != nil {
		log.Fatalf("OpenFile %s: %s", flagFile, err)
	}
	log.Infof("serving %s: %d work-plane(s)", flagFile, job.NumWorkPlanes)

	// The job-shell never changes after OpenFile; serve the copy captured
	// above instead of re-parsing it on every request.
	mux := http.NewServeMux()
	mux.HandleFunc("/job", func(rw http.ResponseWriter, r *http.Request) {
		json.NewEncoder(rw).Encode(&job)
	})
	mux.HandleFunc("/work-planes/", func(rw http.ResponseWriter, r *http.Request) {
		idx, err := strconv.Atoi(r.URL.Path[len("/work-planes/"):])
		if err != nil {
			http.Error(rw, "bad work-plane index", http.StatusBadRequest)
			return
		}
		var wp ovf.WorkPlane
		if r.URL.Query().Get("shell") == "1" {
			err = reader.GetWorkPlaneShell(idx, &wp)
		} else {
			err = reader.GetWorkPlane(idx, &wp)
		}
		if err != nil {
			writeOvfError(rw, err)
			return
		}
		json.NewEncoder(rw).Encode(&wp)
	})
	mux.HandleFunc("/cache", func(rw http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("tier") {
		case "none":
			_ = reader.ClearCache()
		case "shells":
			_ = reader.CacheWorkPlaneShells()
		case "full":
			_ = reader.CacheFullJob()
		}
		fmt.Fprintf(rw, "shells_cached=%v full_cached=%v\n", reader.IsWorkPlaneShellsCached(), reader.IsFullJobCached())
	})

	server := &http.Server{
		Addr:         keys.Addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("HTTP server listening at %s...", keys.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Print("shutting down...")
	server.Shutdown(context.Background())
	reader.CloseFile()
	wg.Wait()
	log.Print("graceful shutdown completed!")
}

func writeOvfError(rw http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ovf.ErrInvalidIndex):
		http.Error(rw, err.Error(), http.StatusNotFound)
	case errors.Is(err, ovf.ErrNotOpen):
		http.Error(rw, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(rw, err.Error(), http.StatusInternalServerError)
	}
}
