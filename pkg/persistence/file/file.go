// Package file provides JSON-file persistence for development and tests.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/veloflow/veloflow/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of a directory of
// JSON documents.
type Persistence struct {
	root          string
	workflowRepo  *WorkflowRepository
	agentRepo     *AgentRepository
	executionRepo *ExecutionRepository
	logRepo       *ExecutionLogRepository
}

// NewPersistence creates a file-backed persistence layer rooted at root.
func NewPersistence(root string) (*Persistence, error) {
	err := os.MkdirAll(root, 0750)
	if err != nil {
		return nil, fmt.Errorf("failed to create persistence root: %w", err)
	}

	executionRepo := NewExecutionRepository(root)

	return &Persistence{
		root:          root,
		workflowRepo:  NewWorkflowRepository(root),
		agentRepo:     NewAgentRepository(root),
		executionRepo: executionRepo,
		logRepo:       NewExecutionLogRepository(root),
	}, nil
}

func (p *Persistence) Workflows() persistence.WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) Agents() persistence.AgentRepository {
	return p.agentRepo
}

func (p *Persistence) Executions() persistence.ExecutionRepository {
	return p.executionRepo
}

func (p *Persistence) ExecutionLogs() persistence.ExecutionLogRepository {
	return p.logRepo
}

// HealthCheck verifies the root directory is accessible.
func (p *Persistence) HealthCheck(_ context.Context) error {
	info, err := os.Stat(p.root)
	if err != nil {
		return fmt.Errorf("persistence root inaccessible: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("persistence root %s is not a directory", p.root)
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// validateID rejects identifiers that could escape the storage root.
func validateID(id string) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}

	if strings.Contains(id, "..") || strings.Contains(id, "/") || strings.Contains(id, "\\") {
		return errors.New("id contains invalid characters")
	}

	return nil
}

// writeDoc marshals value into dir/<id>.json, creating dir as needed.
func writeDoc(root, dir, id string, value any) error {
	docDir := filepath.Join(root, dir)

	err := os.MkdirAll(docDir, 0750)
	if err != nil {
		return fmt.Errorf("failed to create %s directory: %w", dir, err)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s document %s: %w", dir, id, err)
	}

	err = os.WriteFile(filepath.Join(docDir, id+".json"), data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write %s document %s: %w", dir, id, err)
	}

	return nil
}

// readDoc unmarshals dir/<id>.json into out. Returns notFound when the
// document does not exist.
func readDoc(root, dir, id string, out any, notFound error) error {
	if err := validateID(id); err != nil {
		return fmt.Errorf("invalid id: %w", err)
	}

	data, err := os.ReadFile(filepath.Join(root, dir, id+".json")) // #nosec G304 -- id is validated above
	if err != nil {
		if os.IsNotExist(err) {
			return notFound
		}

		return fmt.Errorf("failed to read %s document %s: %w", dir, id, err)
	}

	err = json.Unmarshal(data, out)
	if err != nil {
		return fmt.Errorf("failed to unmarshal %s document %s: %w", dir, id, err)
	}

	return nil
}

// listDocs unmarshals every .json document under dir via decode.
func listDocs(root, dir string, decode func(data []byte) error) error {
	docDir := filepath.Join(root, dir)

	entries, err := os.ReadDir(docDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("failed to list %s directory: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(docDir, entry.Name())) // #nosec G304 -- paths come from ReadDir
		if err != nil {
			return fmt.Errorf("failed to read %s document %s: %w", dir, entry.Name(), err)
		}

		if err := decode(data); err != nil {
			return err
		}
	}

	return nil
}
