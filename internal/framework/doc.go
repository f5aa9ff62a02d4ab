// Package framework is the boundary between the packaging pipelines and the
// tool that assembles bundles and installers.
//
// A pipeline hands a Config (application identity, resource mappings, output
// locations and four hook chains) to a Framework. The Stager implementation
// lays out the unpacked bundle on disk, signs it when a Signer is configured
// and delegates the installer artifact to a Target. Hook chains are invoked in
// the fixed order beforeBuild, afterPack, afterSign, afterAllArtifactBuild.
package framework
