/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package instance

import (
	"context"
	"fmt"
	"strings"
)

// PluginManager changes the plugin lists kept in the settings.
// Changes are persisted by Settings.Save.
type PluginManager struct {
	settings *Settings
}

// NewPluginManager creates a new PluginManager on top of the settings.
func NewPluginManager(settings *Settings) *PluginManager {
	return &PluginManager{settings: settings}
}

// Activate installs the plugin if needed and activates it. Activating an active plugin is a no-op.
func (pm *PluginManager) Activate(_ context.Context, plugin string) error {
	return pm.update("activate", plugin, func(p *pluginsSection) {
		p.Installed = appendMissing(p.Installed, plugin)
		p.Activated = appendMissing(p.Activated, plugin)
	})
}

// Deactivate deactivates the plugin and keeps it installed. Deactivating an inactive plugin is a no-op.
func (pm *PluginManager) Deactivate(_ context.Context, plugin string) error {
	return pm.update("deactivate", plugin, func(p *pluginsSection) {
		p.Activated = remove(p.Activated, plugin)
	})
}

// Uninstall removes the plugin from both plugin lists. Uninstalling a missing plugin is a no-op.
func (pm *PluginManager) Uninstall(_ context.Context, plugin string) error {
	return pm.update("uninstall", plugin, func(p *pluginsSection) {
		p.Activated = remove(p.Activated, plugin)
		p.Installed = remove(p.Installed, plugin)
	})
}

// IsInstalled reports whether the plugin is installed.
func (pm *PluginManager) IsInstalled(plugin string) (bool, error) {
	installed, err := pm.settings.InstalledPlugins()
	if err != nil {
		return false, err
	}
	return indexOf(installed, plugin) != -1, nil
}

// IsActivated reports whether the plugin is activated.
func (pm *PluginManager) IsActivated(plugin string) (bool, error) {
	activated, err := pm.settings.ActivatedPlugins()
	if err != nil {
		return false, err
	}
	return indexOf(activated, plugin) != -1, nil
}

func (pm *PluginManager) update(action, plugin string, fn func(p *pluginsSection)) error {
	if strings.TrimSpace(plugin) == "" || strings.Contains(plugin, ",") {
		return fmt.Errorf("%s plugin: invalid plugin name %q", action, plugin)
	}
	p, err := pm.settings.plugins()
	if err != nil {
		return fmt.Errorf("%s plugin %s: %w", action, plugin, err)
	}
	fn(&p)
	pm.settings.setPluginList(KeyActivatedPlugins, p.Activated)
	pm.settings.setPluginList(KeyInstalledPlugins, p.Installed)
	return nil
}

func appendMissing(list []string, s string) []string {
	if indexOf(list, s) != -1 {
		return list
	}
	return append(list, s)
}

func remove(list []string, s string) []string {
	i := indexOf(list, s)
	if i == -1 {
		return list
	}
	return append(list[:i:i], list[i+1:]...)
}

func indexOf(list []string, s string) int {
	for i, item := range list {
		if item == s {
			return i
		}
	}
	return -1
}
