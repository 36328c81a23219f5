/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"fmt"
	"time"

	"github.com/acronis/go-appkit/config"
	"github.com/acronis/go-appkit/log"

	"github.com/acronis/go-analyticsdb/updater"
)

const (
	cfgKeySettingsPath       = "settingsPath"
	cfgKeyLockTTL            = "lockTTL"
	cfgKeyLockWait           = "lockWait"
	cfgKeyLogLevel           = "logLevel"
	cfgKeySlowQueryThreshold = "slowQueryThreshold"
	cfgKeyMetricsTextfile    = "metricsTextfile"
)

const defaultSlowQueryThreshold = 10 * time.Second

// updaterConfig is the "updater" section of the config file.
type updaterConfig struct {
	SettingsPath       string
	LockTTL            time.Duration
	LockWait           time.Duration
	LogLevel           log.Level
	SlowQueryThreshold time.Duration
	MetricsTextfile    string
}

var _ config.Config = (*updaterConfig)(nil)
var _ config.KeyPrefixProvider = (*updaterConfig)(nil)

func (c *updaterConfig) KeyPrefix() string {
	return "updater"
}

func (c *updaterConfig) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyLockTTL, updater.DefaultLockTTL)
	dp.SetDefault(cfgKeyLockWait, time.Duration(0))
	dp.SetDefault(cfgKeyLogLevel, string(log.LevelInfo))
	dp.SetDefault(cfgKeySlowQueryThreshold, defaultSlowQueryThreshold)
}

func (c *updaterConfig) Set(dp config.DataProvider) error {
	var err error

	if c.SettingsPath, err = dp.GetString(cfgKeySettingsPath); err != nil {
		return err
	}
	if c.SettingsPath == "" {
		return dp.WrapKeyErr(cfgKeySettingsPath, fmt.Errorf("must not be empty"))
	}

	if c.LockTTL, err = dp.GetDuration(cfgKeyLockTTL); err != nil {
		return err
	}
	if c.LockTTL <= 0 {
		return dp.WrapKeyErr(cfgKeyLockTTL, fmt.Errorf("must be positive"))
	}
	if c.LockWait, err = dp.GetDuration(cfgKeyLockWait); err != nil {
		return err
	}
	if c.LockWait < 0 {
		return dp.WrapKeyErr(cfgKeyLockWait, fmt.Errorf("must not be negative"))
	}

	var level string
	levels := []string{string(log.LevelError), string(log.LevelWarn), string(log.LevelInfo), string(log.LevelDebug)}
	if level, err = dp.GetStringFromSet(cfgKeyLogLevel, levels, false); err != nil {
		return err
	}
	c.LogLevel = log.Level(level)

	if c.SlowQueryThreshold, err = dp.GetDuration(cfgKeySlowQueryThreshold); err != nil {
		return err
	}

	if c.MetricsTextfile, err = dp.GetString(cfgKeyMetricsTextfile); err != nil {
		return err
	}

	return nil
}
