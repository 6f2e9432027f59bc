package importer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/evently/internal/domain/model"
	"gopkg.in/yaml.v3"
)

// Batch is the content of an import file.
type Batch struct {
	Events []EventRecord `yaml:"events"`
	Users  []UserRecord  `yaml:"users"`
}

// EventRecord is one event of an import file.
type EventRecord struct {
	Name           string    `yaml:"name"`
	Date           string    `yaml:"date"`
	Location       string    `yaml:"location"`
	Description    string    `yaml:"description"`
	RequiredSkills SkillList `yaml:"required_skills"`
}

// Input converts the record to the create-event body.
func (r EventRecord) Input() model.EventInput {
	return model.EventInput{
		Name:           strings.TrimSpace(r.Name),
		Date:           strings.TrimSpace(r.Date),
		Location:       strings.TrimSpace(r.Location),
		Description:    strings.TrimSpace(r.Description),
		RequiredSkills: string(r.RequiredSkills),
	}
}

// UserRecord is one participant of an import file.
type UserRecord struct {
	Name       string    `yaml:"name"`
	Email      string    `yaml:"email"`
	Skills     SkillList `yaml:"skills"`
	Experience string    `yaml:"experience"`
	GitHub     string    `yaml:"github"`
	Username   string    `yaml:"username"`
	Password   string    `yaml:"password"`
}

// Registration converts the record to the register body.
func (r UserRecord) Registration() model.Registration {
	return model.Registration{
		Name:       strings.TrimSpace(r.Name),
		Email:      strings.TrimSpace(r.Email),
		Skills:     string(r.Skills),
		Experience: r.Experience,
		GitHub:     strings.TrimSpace(r.GitHub),
		Username:   r.Username,
		Password:   r.Password,
	}
}

// SkillList is a comma-separated skill string. In a file it may be written
// either as that string or as a list.
type SkillList string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *SkillList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = SkillList(strings.TrimSpace(node.Value))
		return nil
	case yaml.SequenceNode:
		parts := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: skill must be a string", item.Line)
			}
			if v := strings.TrimSpace(item.Value); v != "" {
				parts = append(parts, v)
			}
		}
		*s = SkillList(strings.Join(parts, ", "))
		return nil
	default:
		return fmt.Errorf("line %d: skills must be a string or a list", node.Line)
	}
}

// Parse decodes a batch from YAML or JSON.
func Parse(data []byte) (Batch, error) {
	var b Batch
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil {
		if errors.Is(err, io.EOF) {
			return Batch{}, ErrEmptyBatch
		}
		return Batch{}, fmt.Errorf("%w: %w", ErrReadBatch, err)
	}
	if len(b.Events) == 0 && len(b.Users) == 0 {
		return Batch{}, ErrEmptyBatch
	}
	return b, nil
}

// LoadFile reads a .yaml, .yml or .json batch file.
func LoadFile(path string) (Batch, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
	default:
		return Batch{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Batch{}, fmt.Errorf("%w: %w", ErrReadBatch, err)
	}
	return Parse(data)
}
