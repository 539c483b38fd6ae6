package models

import "fmt"

// AssetRules is the parsed asset rules file.
type AssetRules struct {
	// Common patterns are included in every group.
	Common []string        `toml:"common"`
	Groups []AssetGroupDef `toml:"group"`
}

// AssetGroupDef declares one extension tag and any patterns only that tag gets.
type AssetGroupDef struct {
	Tag   string   `toml:"tag"`
	Extra []string `toml:"extra,omitempty"`
}

// Tags returns the group tags in declaration order.
func (r AssetRules) Tags() []string {
	tags := make([]string, 0, len(r.Groups))
	for _, g := range r.Groups {
		tags = append(tags, g.Tag)
	}
	return tags
}

// AssetGroup is the resolved set of patterns for one tag and where its files go.
type AssetGroup struct {
	Tag      string
	Patterns []string
	Dir      string   // destination directory
	Files    []string // copied files, relative to Dir; set by the classifier
}

// ArchiveJob is a single request to zip Source into Dest.
type ArchiveJob struct {
	Label  string
	Source string
	Dest   string
}

// AssetDirName returns the directory name for a tag's bundle: assets-<tag>-<bundle>.
func AssetDirName(tag, bundle string) string {
	return fmt.Sprintf("assets-%s-%s", tag, bundle)
}
