package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"genfill/host"
	"genfill/imagegen"

	"gopkg.in/yaml.v3"
)

// taskFile is the YAML document written by capture and read by batch.
//
// Example:
//
//	tasks:
//	  - id: 1718000000000
//	    docName: photo.png
//	    prompt: add falling snow
//	    encodedImage: iVBORw0KGgo...
//	    selection: {left: 0, top: 0, right: 512, bottom: 512, width: 512, height: 512}
//	    settings: {size: 2K, count: 2, timeoutSeconds: 60}
type taskFile struct {
	Tasks []imagegen.BatchTaskInput `yaml:"tasks"`
}

// loadTaskFile reads path. A missing file is an empty task list.
func loadTaskFile(path string) (taskFile, error) {
	var tf taskFile
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return tf, nil
	}
	if err != nil {
		return tf, fmt.Errorf("failed to read task file: %w", err)
	}
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return tf, fmt.Errorf("failed to parse task file %s: %w", path, err)
	}
	return tf, nil
}

// saveTaskFile replaces path atomically.
func saveTaskFile(path string, tf taskFile) error {
	data, err := yaml.Marshal(tf)
	if err != nil {
		return fmt.Errorf("failed to encode task file: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create task file directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tasks-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write task file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write task file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write task file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write task file: %w", err)
	}
	return nil
}

// bindTasks points each task at the opened document with the same file name.
// Document ids are only meaningful inside one process, so the ids stored by an
// earlier capture are replaced. Tasks without an open document are returned
// separately and not run.
func bindTasks(tasks []imagegen.BatchTaskInput, docs []host.DocumentInfo) (bound, unmatched []imagegen.BatchTaskInput) {
	byName := make(map[string]host.DocumentInfo, len(docs))
	for _, doc := range docs {
		byName[strings.ToLower(doc.Name)] = doc
	}

	for _, task := range tasks {
		doc, ok := byName[strings.ToLower(filepath.Base(task.DocName))]
		if !ok {
			unmatched = append(unmatched, task)
			continue
		}
		task.DocID = float64(doc.ID)
		task.DocName = doc.Name
		bound = append(bound, task)
	}
	return bound, unmatched
}
