// Package release contains the core domain types of a packaging run.
//
// It defines the build target (platform, architecture, release mode), resource
// mappings with their platform scope, and the explicit environment bindings
// used to resolve "${env.NAME}" placeholders in resource source paths.
package release
