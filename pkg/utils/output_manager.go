package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OutputManager lays out exported files as <base>/<workflowID>/<file>.
type OutputManager struct {
	BaseOutputDir string
}

// NewOutputManager creates a new output manager
func NewOutputManager(baseOutputDir string) *OutputManager {
	return &OutputManager{
		BaseOutputDir: baseOutputDir,
	}
}

// WorkflowDir creates the directory holding a workflow's exports.
func (om *OutputManager) WorkflowDir(workflowID string) (string, error) {
	if err := checkName(workflowID); err != nil {
		return "", err
	}
	dir := filepath.Join(om.BaseOutputDir, workflowID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create workflow output directory: %w", err)
	}
	return dir, nil
}

// FilePath returns the path for fileName in the workflow directory, creating the directory.
func (om *OutputManager) FilePath(workflowID, fileName string) (string, error) {
	dir, err := om.WorkflowDir(workflowID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filepath.Base(fileName)), nil
}

// Resolve locates an existing export. Names that would escape the output directory are rejected.
func (om *OutputManager) Resolve(workflowID, fileName string) (string, error) {
	if err := checkName(workflowID); err != nil {
		return "", err
	}
	if err := checkName(fileName); err != nil {
		return "", err
	}
	path := filepath.Join(om.BaseOutputDir, workflowID, fileName)
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", fileName)
	}
	return path, nil
}

// RemoveWorkflowDir deletes all exports of a workflow.
func (om *OutputManager) RemoveWorkflowDir(workflowID string) error {
	if err := checkName(workflowID); err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(om.BaseOutputDir, workflowID))
}

// DownloadURL is the API path serving an exported file.
func (om *OutputManager) DownloadURL(workflowID, fileName string) string {
	return fmt.Sprintf("/api/v1/download/%s/%s", workflowID, filepath.Base(fileName))
}

// FileType determines the file type based on extension
func (om *OutputManager) FileType(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return "csv"
	case ".json":
		return "json"
	default:
		return "unknown"
	}
}

// ContentType returns the MIME type served for an export.
func (om *OutputManager) ContentType(fileName string) string {
	switch om.FileType(fileName) {
	case "csv":
		return "text/csv"
	case "json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// EnsureOutputDirExists ensures the base output directory exists
func (om *OutputManager) EnsureOutputDirExists() error {
	return os.MkdirAll(om.BaseOutputDir, 0o755)
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid path element %q", name)
	}
	return nil
}
