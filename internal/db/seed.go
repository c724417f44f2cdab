package db

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/staffdesk/staffdesk/internal/models"
)

// seedFile is the layout of a staff seed file:
//
//	staff:
//	  - staff_id: DHG1234
//	    name: Ada Obi
//	    email: ada@example.com
type seedFile struct {
	Staff []models.StaffRecord `yaml:"staff"`
}

// LoadSeed reads the staff roster from a YAML file.
func LoadSeed(path string) ([]models.StaffRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	for i, s := range f.Staff {
		if s.StaffID == "" {
			return nil, fmt.Errorf("parse seed: entry %d has no staff_id", i)
		}
		if s.Role == "" {
			f.Staff[i].Role = "staff"
		}
	}
	return f.Staff, nil
}
