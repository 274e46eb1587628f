// Package config loads workflow definition files.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/dukex/crmflow/pkg/models"
	"gopkg.in/yaml.v3"
)

var ErrNoWorkflows = errors.New("definition file contains no workflows")

// WorkflowFile is the YAML layout of a definition file. TenantID and Owner apply
// to every workflow that does not set its own.
type WorkflowFile struct {
	TenantID  string       `yaml:"tenant_id"`
	Owner     string       `yaml:"owner"`
	Workflows []definition `yaml:"workflows"`
}

// definition defaults is_active to true when the key is omitted.
type definition models.Workflow

func (d *definition) UnmarshalYAML(node *yaml.Node) error {
	type plain models.Workflow

	workflow := plain{IsActive: true}

	err := node.Decode(&workflow)
	if err != nil {
		return err
	}

	*d = definition(workflow)

	return nil
}

// LoadWorkflows reads the workflows of a definition file.
func LoadWorkflows(path string) ([]*models.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition file %s: %w", path, err)
	}

	return ParseWorkflows(data)
}

func ParseWorkflows(data []byte) ([]*models.Workflow, error) {
	var file WorkflowFile

	err := yaml.Unmarshal(data, &file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML definitions: %w", err)
	}

	if len(file.Workflows) == 0 {
		return nil, ErrNoWorkflows
	}

	workflows := make([]*models.Workflow, len(file.Workflows))

	for i := range file.Workflows {
		workflow := models.Workflow(file.Workflows[i])

		if workflow.TenantID == "" {
			workflow.TenantID = file.TenantID
		}

		if workflow.Owner == "" {
			workflow.Owner = file.Owner
		}

		workflows[i] = &workflow
	}

	return workflows, nil
}
