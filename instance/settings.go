/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package instance gives access to a live analytics installation: its settings file,
// its plugins and the state of its database.
package instance

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Settings sections and keys used by updates.
const (
	SectionGeneral = "general"
	SectionPlugins = "plugins"
	SectionMail    = "mail"

	KeySalt             = "salt"
	KeyActivatedPlugins = "activated"
	KeyInstalledPlugins = "installed"
	KeyMailType         = "type"
)

// Settings is the installation settings file (YAML), organized in sections of key/value pairs.
//
//	general:
//	  salt: 0a1b2c
//	plugins:
//	  activated: [CoreHome, CustomPiwikJs]
//	  installed: CoreHome, CustomPiwikJs, CustomDimensions
//	mail:
//	  type: Crammd5
//
// Plugin lists may be given either as YAML sequences or as comma-separated strings.
type Settings struct {
	path string
	vpr  *viper.Viper
}

// NewSettings creates empty settings that are not backed by a file.
func NewSettings() *Settings {
	vpr := viper.New()
	vpr.SetConfigType("yaml")
	return &Settings{vpr: vpr}
}

// LoadSettings reads settings from the YAML file. Save writes them back to the same file.
func LoadSettings(path string) (*Settings, error) {
	vpr := viper.New()
	vpr.SetConfigFile(path)
	vpr.SetConfigType("yaml")
	if err := vpr.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read settings file %s: %w", path, err)
	}
	return &Settings{path: path, vpr: vpr}, nil
}

// ReadSettings reads settings in YAML format. The result is not backed by a file.
func ReadSettings(r io.Reader) (*Settings, error) {
	s := NewSettings()
	if err := s.vpr.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	return s, nil
}

// Path returns the path of the backing file or an empty string.
func (s *Settings) Path() string {
	return s.path
}

// Get returns the value of section.key or an empty string if it is not set.
func (s *Settings) Get(section, key string) string {
	return s.vpr.GetString(settingsKey(section, key))
}

// Set sets section.key to value. The change is kept in memory until Save is called.
func (s *Settings) Set(section, key, value string) error {
	if section == "" || key == "" {
		return fmt.Errorf("set settings value: empty section or key")
	}
	if strings.Contains(section, ".") || strings.Contains(key, ".") {
		return fmt.Errorf("set settings value %s.%s: section and key must not contain dots", section, key)
	}
	s.vpr.Set(settingsKey(section, key), value)
	return nil
}

// Save writes the settings to the backing file. Settings without a file are kept in memory only.
func (s *Settings) Save() error {
	if s.path == "" {
		return nil
	}
	if err := s.vpr.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write settings file %s: %w", s.path, err)
	}
	return nil
}

// Sections returns the scalar values of all sections.
func (s *Settings) Sections() map[string]map[string]string {
	res := make(map[string]map[string]string)
	for section, values := range s.vpr.AllSettings() {
		keys, ok := values.(map[string]interface{})
		if !ok {
			continue
		}
		res[section] = make(map[string]string, len(keys))
		for key := range keys {
			res[section][key] = s.Get(section, key)
		}
	}
	return res
}

type pluginsSection struct {
	Activated []string `mapstructure:"activated"`
	Installed []string `mapstructure:"installed"`
}

func (s *Settings) plugins() (pluginsSection, error) {
	var p pluginsSection
	if !s.vpr.IsSet(SectionPlugins) {
		return p, nil
	}
	err := s.vpr.UnmarshalKey(SectionPlugins, &p, viper.DecodeHook(mapstructure.StringToSliceHookFunc(",")))
	if err != nil {
		return p, fmt.Errorf("decode %s section: %w", SectionPlugins, err)
	}
	p.Activated = cleanList(p.Activated)
	p.Installed = cleanList(p.Installed)
	return p, nil
}

// ActivatedPlugins returns the names of the activated plugins.
func (s *Settings) ActivatedPlugins() ([]string, error) {
	p, err := s.plugins()
	return p.Activated, err
}

// InstalledPlugins returns the names of the installed plugins.
func (s *Settings) InstalledPlugins() ([]string, error) {
	p, err := s.plugins()
	return p.Installed, err
}

func (s *Settings) setPluginList(key string, plugins []string) {
	s.vpr.Set(settingsKey(SectionPlugins, key), plugins)
}

func settingsKey(section, key string) string {
	return strings.ToLower(section) + "." + strings.ToLower(key)
}

// cleanList trims names and drops empty and duplicate ones, keeping the first occurrence.
func cleanList(list []string) []string {
	res := make([]string, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	for _, item := range list {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		res = append(res, item)
	}
	return res
}
