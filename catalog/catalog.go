// Package catalog loads quest template definitions from YAML and syncs them
// into the quest_templates table.
package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fitquest/server/game/requirement"
	"github.com/fitquest/server/model"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed default.yaml
var defaultCatalog []byte

// Entry is one template as written in a catalog file.
type Entry struct {
	Key               string                 `yaml:"key"`
	Name              string                 `yaml:"name"`
	Category          string                 `yaml:"category"`
	Type              string                 `yaml:"type"`
	Core              bool                   `yaml:"core"`
	Rotating          bool                   `yaml:"rotating"`
	Inactive          bool                   `yaml:"inactive"`
	Stat              string                 `yaml:"stat"`
	StatBonus         int                    `yaml:"stat_bonus"`
	BaseXP            int                    `yaml:"base_xp"`
	AllowPartial      bool                   `yaml:"allow_partial"`
	MinPartialPercent int                    `yaml:"min_partial_percent"`
	Requirement       map[string]interface{} `yaml:"requirement"`
}

// Catalog is a parsed, validated catalog file.
type Catalog struct {
	Templates []Entry `yaml:"templates"`
}

var validStats = map[string]bool{"": true, "STR": true, "AGI": true, "VIT": true, "DISC": true}

var validTypes = map[string]bool{
	model.QuestTypeDaily:   true,
	model.QuestTypeWeekly:  true,
	model.QuestTypeDungeon: true,
	model.QuestTypeBoss:    true,
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) { return Parse(defaultCatalog) }

// LoadFile reads a catalog from path, or the embedded one when path is empty.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks keys are unique and every entry is well formed.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool, len(c.Templates))
	for i := range c.Templates {
		e := &c.Templates[i]
		if e.Key == "" {
			return fmt.Errorf("catalog: template %d has no key", i)
		}
		if seen[e.Key] {
			return fmt.Errorf("catalog: duplicate key %q", e.Key)
		}
		seen[e.Key] = true
		if e.Type == "" {
			e.Type = model.QuestTypeDaily
		}
		if !validTypes[e.Type] {
			return fmt.Errorf("catalog: %s: unknown type %q", e.Key, e.Type)
		}
		if !validStats[e.Stat] {
			return fmt.Errorf("catalog: %s: unknown stat %q", e.Key, e.Stat)
		}
		if e.BaseXP < 0 || e.StatBonus < 0 {
			return fmt.Errorf("catalog: %s: negative reward", e.Key)
		}
		if e.MinPartialPercent < 0 || e.MinPartialPercent > 100 {
			return fmt.Errorf("catalog: %s: min_partial_percent out of range", e.Key)
		}
		if e.Core && e.Rotating {
			return fmt.Errorf("catalog: %s: a template cannot be both core and rotating", e.Key)
		}
		if _, err := e.requirement(); err != nil {
			return fmt.Errorf("catalog: %s: %w", e.Key, err)
		}
	}
	return nil
}

// requirement round-trips the YAML map through the requirement codec.
func (e *Entry) requirement() (datatypes.JSON, error) {
	raw, err := json.Marshal(e.Requirement)
	if err != nil {
		return nil, err
	}
	req, err := requirement.Decode(raw)
	if err != nil {
		return nil, err
	}
	enc, err := requirement.Encode(req)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(enc), nil
}

// Model converts e into a template row.
func (e *Entry) Model() (*model.QuestTemplate, error) {
	req, err := e.requirement()
	if err != nil {
		return nil, err
	}
	return &model.QuestTemplate{
		Key:               e.Key,
		Name:              e.Name,
		Category:          e.Category,
		Type:              e.Type,
		Requirement:       req,
		BaseXP:            e.BaseXP,
		Stat:              e.Stat,
		StatBonus:         e.StatBonus,
		IsCore:            e.Core,
		IsRotating:        e.Rotating,
		IsActive:          !e.Inactive,
		AllowPartial:      e.AllowPartial,
		MinPartialPercent: e.MinPartialPercent,
	}, nil
}

var syncColumns = []string{
	"name", "category", "type", "requirement", "base_xp", "stat", "stat_bonus",
	"is_core", "is_rotating", "is_active", "allow_partial", "min_partial_percent", "updated_at",
}

// Sync upserts every entry by key. Templates missing from the catalog are left
// untouched so existing quest logs keep their template.
func Sync(ctx context.Context, db *gorm.DB, c *Catalog, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rows := make([]*model.QuestTemplate, 0, len(c.Templates))
	for i := range c.Templates {
		m, err := c.Templates[i].Model()
		if err != nil {
			return 0, fmt.Errorf("catalog: %s: %w", c.Templates[i].Key, err)
		}
		rows = append(rows, m)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns(syncColumns),
	}).Create(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("catalog: sync: %w", err)
	}
	logger.Info("quest catalog synced", zap.Int("templates", len(rows)))
	return len(rows), nil
}
