// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container implements container runtime detection and service
// management for the local development stack (Milvus standalone and the
// embedding server).
package container

import (
	"fmt"
	"os/exec"
	"sort"
)

const (
	binDocker = "docker"
	binPodman = "podman"
)

// Spec describes a detached service container.
type Spec struct {
	// Name identifies the container for existence checks and removal.
	Name string

	// Image is the container image, including the tag.
	Image string

	// Ports lists host:container port mappings.
	Ports []string

	// Env holds environment variables for the container.
	Env map[string]string

	// Volumes lists host:container or volume:container mounts.
	Volumes []string

	// Cmd is the command and arguments passed to the image, if any.
	Cmd []string
}

// Runtime provides container operations: checking availability, verifying
// images, and managing detached service containers.
type Runtime interface {
	// Name returns the runtime name ("docker" or "podman").
	Name() string

	// Available reports whether the runtime binary exists on PATH and
	// responds to an info command.
	Available() bool

	// ImageExists checks whether the named image exists locally.
	// Returns nil when the image is found, or an error describing the failure.
	ImageExists(image string) error

	// ContainerExists reports whether a container with the given name
	// exists, running or stopped.
	ContainerExists(name string) bool

	// StartDetached creates a container from the spec and starts it in the
	// background.
	StartDetached(spec Spec) error

	// Remove force-removes the named container.
	Remove(name string) error
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(name string, args ...string) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunSilent(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// runtime implements Runtime for a specific container binary. Both Docker
// and Podman share the same logic; they differ only in binary name and the
// subcommands used to check image and container existence.
type runtime struct {
	bin               string
	imageCheckCmd     []string // e.g. ["image", "inspect"] for docker
	containerCheckCmd []string // e.g. ["container", "inspect"] for docker
	exec              executor
}

func (r *runtime) Name() string { return r.bin }

func (r *runtime) Available() bool {
	if _, err := r.exec.LookPath(r.bin); err != nil {
		return false
	}
	return r.exec.RunSilent(r.bin, "info") == nil
}

func (r *runtime) ImageExists(image string) error {
	args := make([]string, 0, len(r.imageCheckCmd)+1)
	args = append(args, r.imageCheckCmd...)
	args = append(args, image)

	if err := r.exec.RunSilent(r.bin, args...); err != nil {
		return fmt.Errorf("image %s not found in %s: %w", image, r.bin, err)
	}
	return nil
}

func (r *runtime) ContainerExists(name string) bool {
	args := make([]string, 0, len(r.containerCheckCmd)+1)
	args = append(args, r.containerCheckCmd...)
	args = append(args, name)

	return r.exec.RunSilent(r.bin, args...) == nil
}

func (r *runtime) StartDetached(spec Spec) error {
	args := []string{"run", "-d", "--name", spec.Name}
	for _, p := range spec.Ports {
		args = append(args, "-p", p)
	}
	for _, k := range sortedKeys(spec.Env) {
		args = append(args, "-e", k+"="+spec.Env[k])
	}
	for _, v := range spec.Volumes {
		args = append(args, "-v", v)
	}
	args = append(args, spec.Image)
	args = append(args, spec.Cmd...)

	if err := r.exec.RunSilent(r.bin, args...); err != nil {
		return fmt.Errorf("starting %s container %s: %w", r.bin, spec.Name, err)
	}
	return nil
}

func (r *runtime) Remove(name string) error {
	if err := r.exec.RunSilent(r.bin, "rm", "-f", name); err != nil {
		return fmt.Errorf("removing %s container %s: %w", r.bin, name, err)
	}
	return nil
}

// sortedKeys returns the map keys in sorted order so generated command
// lines are deterministic.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func newDockerRuntime(exec executor) *runtime {
	return &runtime{
		bin:               binDocker,
		imageCheckCmd:     []string{"image", "inspect"},
		containerCheckCmd: []string{"container", "inspect"},
		exec:              exec,
	}
}

func newPodmanRuntime(exec executor) *runtime {
	return &runtime{
		bin:               binPodman,
		imageCheckCmd:     []string{"image", "exists"},
		containerCheckCmd: []string{"container", "exists"},
		exec:              exec,
	}
}

var defaultExec = &osExecutor{}

// DetectRuntime tries docker first, falls back to podman. Returns an error
// if neither runtime is available.
func DetectRuntime() (Runtime, error) {
	return detectRuntime(defaultExec)
}

func detectRuntime(exec executor) (Runtime, error) {
	docker := newDockerRuntime(exec)
	if docker.Available() {
		return docker, nil
	}

	podman := newPodmanRuntime(exec)
	if podman.Available() {
		return podman, nil
	}

	return nil, fmt.Errorf(
		"no container runtime available: neither %s nor %s found or operational",
		binDocker, binPodman,
	)
}
