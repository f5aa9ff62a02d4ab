// Package config defines the packager settings and provides helpers to load,
// validate and save them in YAML format.
//
// Validate fills in the Mullvad VPN defaults, so an absent configuration file
// still produces a usable Config.
package config
