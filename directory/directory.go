// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package directory resolves user groups to member user ids. Groups are
// owned by an external identity system; this package reads an exported
// YAML snapshot of them.
package directory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/danielhkuo/planning-poker/models"
)

var ErrUnknownGroup = errors.New("unknown group")

// Static is an immutable in-memory group directory
type Static struct {
	groups map[string]models.Group
}

type groupsFile struct {
	Groups []struct {
		ID      string   `yaml:"id"`
		Name    string   `yaml:"name"`
		Members []string `yaml:"members"`
	} `yaml:"groups"`
}

// Parse builds a directory from a YAML document of the form
//
//	groups:
//	  - id: team-a
//	    name: Team A
//	    members: [alice, bob]
func Parse(data []byte) (*Static, error) {
	var file groupsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse groups: %w", err)
	}

	d := &Static{groups: make(map[string]models.Group)}
	for _, g := range file.Groups {
		if g.ID == "" {
			return nil, errors.New("group requires id")
		}
		if _, dup := d.groups[g.ID]; dup {
			return nil, fmt.Errorf("duplicate group %s", g.ID)
		}
		name := g.Name
		if name == "" {
			name = g.ID
		}
		members := append([]string{}, g.Members...)
		d.groups[g.ID] = models.Group{ID: g.ID, Name: name, Members: members}
	}
	return d, nil
}

// Load reads the directory from path. An empty path yields an empty directory.
func Load(path string) (*Static, error) {
	if path == "" {
		return &Static{groups: map[string]models.Group{}}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read groups file: %w", err)
	}
	return Parse(data)
}

// Members returns the user ids in a group
func (d *Static) Members(_ context.Context, groupID string) ([]string, error) {
	g, ok := d.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
	}
	return append([]string{}, g.Members...), nil
}

// List returns all groups ordered by name
func (d *Static) List(_ context.Context) ([]models.Group, error) {
	groups := make([]models.Group, 0, len(d.groups))
	for _, g := range d.groups {
		g.Members = append([]string{}, g.Members...)
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Name != groups[j].Name {
			return groups[i].Name < groups[j].Name
		}
		return groups[i].ID < groups[j].ID
	})
	return groups, nil
}
