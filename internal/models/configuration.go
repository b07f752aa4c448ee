package models

import (
	"strings"
	"time"
)

// ConfigurationKind names a taxonomy list.
type ConfigurationKind string

const (
	ConfigurationKindTopic    ConfigurationKind = "topic"
	ConfigurationKindCategory ConfigurationKind = "category"
	ConfigurationKindRoadmap  ConfigurationKind = "roadmap"
	ConfigurationKindCourse   ConfigurationKind = "course"
)

// ConfigurationKinds lists every taxonomy in persisted order.
var ConfigurationKinds = []ConfigurationKind{
	ConfigurationKindTopic,
	ConfigurationKindCategory,
	ConfigurationKindRoadmap,
	ConfigurationKindCourse,
}

// Valid reports whether k is a known taxonomy.
func (k ConfigurationKind) Valid() bool {
	switch k {
	case ConfigurationKindTopic, ConfigurationKindCategory, ConfigurationKindRoadmap, ConfigurationKindCourse:
		return true
	}
	return false
}

// ConfigurationItem is a taxonomy entry (topic, category, roadmap stage or course).
type ConfigurationItem struct {
	ID          string            `json:"id"`
	Kind        ConfigurationKind `json:"kind"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	IsActive    bool              `json:"isActive"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   *time.Time        `json:"updatedAt,omitempty"`
}

// Key returns the item identity.
func (c ConfigurationItem) Key() string {
	return c.ID
}

// SameName compares names case-insensitively.
func (c ConfigurationItem) SameName(name string) bool {
	return strings.EqualFold(strings.TrimSpace(c.Name), strings.TrimSpace(name))
}

// Configuration is the persisted shape of the taxonomy collection.
type Configuration struct {
	Topics           []ConfigurationItem `json:"topics"`
	Categories       []ConfigurationItem `json:"categories"`
	Roadmaps         []ConfigurationItem `json:"roadmaps"`
	Courses          []ConfigurationItem `json:"courses"`
	AdminRecoveryPin string              `json:"adminRecoveryPin,omitempty"`
}

// DefaultConfiguration is the built-in taxonomy used when nothing has been persisted yet.
func DefaultConfiguration() Configuration {
	item := func(kind ConfigurationKind, slug, name, description string) ConfigurationItem {
		return ConfigurationItem{
			ID:          string(kind) + "-" + slug,
			Kind:        kind,
			Name:        name,
			Description: description,
			IsActive:    true,
		}
	}
	return Configuration{
		Topics: []ConfigurationItem{
			item(ConfigurationKindTopic, "general", "General", "General feedback"),
			item(ConfigurationKindTopic, "campus-life", "Campus Life", "Events, clubs and daily life"),
		},
		Categories: []ConfigurationItem{
			item(ConfigurationKindCategory, "resources", "Resources", "Learning resources and materials"),
			item(ConfigurationKindCategory, "facilities", "Facilities", "Buildings, equipment and grounds"),
			item(ConfigurationKindCategory, "academics", "Academics", "Curriculum and teaching"),
			item(ConfigurationKindCategory, "services", "Services", "Administrative and student services"),
		},
		Roadmaps: []ConfigurationItem{
			item(ConfigurationKindRoadmap, "received", "Received", "Acknowledged by staff"),
			item(ConfigurationKindRoadmap, "under-review", "Under Review", "Being evaluated"),
			item(ConfigurationKindRoadmap, "in-progress", "In Progress", "Work underway"),
			item(ConfigurationKindRoadmap, "resolved", "Resolved", "Addressed"),
		},
		Courses: []ConfigurationItem{},
	}
}
