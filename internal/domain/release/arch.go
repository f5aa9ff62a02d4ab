package release

const (
	// TargetTripleVar selects the architecture-specific binary directory on macOS.
	TargetTripleVar = "TARGET_TRIPLE"
	// BuildModeVar selects the Release or Debug native library build on Windows.
	BuildModeVar = "CPP_BUILD_MODE"

	// BuildModeRelease is bound to BuildModeVar for release builds.
	BuildModeRelease = "Release"
	// BuildModeDebug is bound to BuildModeVar otherwise.
	BuildModeDebug = "Debug"
)

// macTriples maps single architectures to their Rust target triples.
//
//nolint:gochecknoglobals // Static lookup table.
var macTriples = map[Architecture]string{
	ArchX64:   "x86_64-apple-darwin",
	ArchArm64: "aarch64-apple-darwin",
}

// TargetTriple returns the macOS target triple for a single architecture.
// Host and universal builds have no triple.
func TargetTriple(arch Architecture) (string, bool) {
	triple, ok := macTriples[arch]

	return triple, ok
}

// FrameworkArchitecture returns the architecture handed to the packaging
// framework. Windows installers are always x64; macOS passes universal through
// so the framework builds a multi-architecture artifact; ArchHost lets the
// framework pick the machine it runs on.
func FrameworkArchitecture(t BuildTarget) Architecture {
	if t.Platform == Windows {
		return ArchX64
	}

	return t.Architecture
}

// ApplyArchitecture binds TargetTripleVar for x64 and arm64 and clears it for
// every other architecture. It returns the bound triple, if any.
func ApplyArchitecture(env *Environment, arch Architecture) (string, bool) {
	triple, ok := TargetTriple(arch)
	if !ok {
		env.Unset(TargetTripleVar)

		return "", false
	}

	env.Set(TargetTripleVar, triple)

	return triple, true
}

// BuildMode returns the native library build mode name.
func BuildMode(release bool) string {
	if release {
		return BuildModeRelease
	}

	return BuildModeDebug
}

// ApplyBuildMode binds BuildModeVar according to the release flag.
func ApplyBuildMode(env *Environment, release bool) string {
	mode := BuildMode(release)
	env.Set(BuildModeVar, mode)

	return mode
}
