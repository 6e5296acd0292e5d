package seed

import (
	"context"
	_ "embed"
	"fmt"

	"yatube/internal/models"
	"yatube/internal/validation"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed fixtures/groups.yaml
var builtInGroupsYAML []byte

// GroupFixture is one entry of a groups fixture file.
type GroupFixture struct {
	Slug        string `yaml:"slug"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

type groupsFile struct {
	Groups []GroupFixture `yaml:"groups"`
}

// ParseGroups decodes and validates a groups fixture.
func ParseGroups(data []byte) ([]GroupFixture, error) {
	var file groupsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode groups fixture: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Groups))
	for i, g := range file.Groups {
		if err := validation.ValidateGroupSlug(g.Slug); err != nil {
			return nil, fmt.Errorf("group %d: %w", i, err)
		}
		if err := validation.ValidateGroupTitle(g.Title); err != nil {
			return nil, fmt.Errorf("group %q: %w", g.Slug, err)
		}
		if _, dup := seen[g.Slug]; dup {
			return nil, fmt.Errorf("group %q listed twice", g.Slug)
		}
		seen[g.Slug] = struct{}{}
	}
	return file.Groups, nil
}

// BuiltInGroups inserts the embedded groups that do not exist yet and returns how many were created.
// Existing groups are left untouched.
func BuiltInGroups(ctx context.Context, db *gorm.DB) (int, error) {
	fixtures, err := ParseGroups(builtInGroupsYAML)
	if err != nil {
		return 0, err
	}
	return EnsureGroups(ctx, db, fixtures)
}

// EnsureGroups inserts each fixture unless a group with its slug already exists.
func EnsureGroups(ctx context.Context, db *gorm.DB, fixtures []GroupFixture) (int, error) {
	created := 0
	for _, f := range fixtures {
		group := models.Group{Title: f.Title, Slug: f.Slug, Description: f.Description}
		res := db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slug"}}, DoNothing: true}).
			Create(&group)
		if res.Error != nil {
			return created, fmt.Errorf("seed group %s: %w", f.Slug, res.Error)
		}
		if res.RowsAffected > 0 {
			created++
		}
	}
	return created, nil
}
