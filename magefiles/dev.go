//go:build mage

package main

import (
	"fmt"

	"github.com/pdiddy/arxiv-scout/internal/container"
)

// devServices are the service containers the harvester needs locally.
// Milvus standalone runs with embedded etcd and local storage; the
// embedding server is a CPU build of text-embeddings-inference serving
// the default BGE-M3 model on the port the configuration expects.
var devServices = []container.Spec{
	{
		Name:  "scout-milvus",
		Image: "milvusdb/milvus:v2.4.13",
		Ports: []string{"19530:19530", "9091:9091"},
		Env: map[string]string{
			"ETCD_USE_EMBED":     "true",
			"ETCD_DATA_DIR":      "/var/lib/milvus/etcd",
			"COMMON_STORAGETYPE": "local",
		},
		Volumes: []string{"scout-milvus-data:/var/lib/milvus"},
		Cmd:     []string{"milvus", "run", "standalone"},
	},
	{
		Name:  "scout-embedder",
		Image: "ghcr.io/huggingface/text-embeddings-inference:cpu-1.8",
		Ports: []string{"9380:80"},
		Cmd:   []string{"--model-id", "BAAI/bge-m3"},
	},
}

// Up starts the local development services (Milvus and the embedding
// server), leaving containers that already exist alone.
func Up() error {
	rt, err := container.DetectRuntime()
	if err != nil {
		return err
	}
	fmt.Printf("Using %s\n", rt.Name())
	for _, svc := range devServices {
		if rt.ContainerExists(svc.Name) {
			fmt.Printf("  %s already exists, skipping\n", svc.Name)
			continue
		}
		if err := rt.StartDetached(svc); err != nil {
			return err
		}
		fmt.Printf("  %s started\n", svc.Name)
	}
	return nil
}

// Down removes the local development service containers. Named volumes
// survive, so Milvus data persists across Down/Up cycles.
func Down() error {
	rt, err := container.DetectRuntime()
	if err != nil {
		return err
	}
	for _, svc := range devServices {
		if !rt.ContainerExists(svc.Name) {
			continue
		}
		if err := rt.Remove(svc.Name); err != nil {
			return err
		}
		fmt.Printf("  %s removed\n", svc.Name)
	}
	return nil
}
