package main

// Process documents from the command line without running the API server:
//   go run ./cmd/batchproc statement.pdf holdings.csv

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"findoc-backend/internal/batch"
	"findoc-backend/internal/bootstrap"
	"findoc-backend/internal/shared/config"
)

func main() {
	tenant := flag.String("tenant", "cli", "tenant id recorded on the job")
	docType := flag.String("type", "", "document type hint recorded on the job")
	timeout := flag.Duration("timeout", 10*time.Minute, "maximum time to wait for the batch")
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: batchproc [flags] file...")
		os.Exit(2)
	}

	cfg := config.Load()
	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	files := make([]batch.FileRef, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			log.Fatalf("cannot read %s: %v", p, err)
		}
		files = append(files, batch.FileRef{Name: filepath.Base(p), Path: p})
	}

	done := make(chan batch.BatchJob, 1)
	job, err := app.BatchService.Submit(context.Background(), files, batch.SubmitOptions{
		TenantID:     *tenant,
		DocumentType: *docType,
		Callback:     func(j batch.BatchJob) { done <- j },
	})
	if err != nil {
		log.Fatalf("submit batch: %v", err)
	}
	log.Printf("submitted job %s with %d file(s)", job.ID, job.TotalFiles)

	var final batch.BatchJob
	select {
	case final = <-done:
	case <-time.After(*timeout):
		log.Fatalf("timed out waiting for job %s", job.ID)
	}

	out, err := json.MarshalIndent(final, "", "  ")
	if err != nil {
		log.Fatalf("encode result: %v", err)
	}
	fmt.Println(string(out))

	if final.Status == batch.StatusFailed {
		os.Exit(1)
	}
}
