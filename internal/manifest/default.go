package manifest

import (
	"path/filepath"

	"github.com/mullvad/desktop-packager/internal/domain/release"
)

// tripleDir is the path segment replaced by the macOS target triple.
const tripleDir = "${env." + release.TargetTripleVar + "}"

// Default returns the built-in manifest for a repository checked out at root
// with its prebuilt binaries in distAssets.
func Default(root, distAssets string) *Manifest {
	assets := func(parts ...string) string {
		return filepath.Join(append([]string{distAssets}, parts...)...)
	}

	fromRoot := func(parts ...string) string {
		return filepath.Join(append([]string{root}, parts...)...)
	}

	buildMode := "x64-${env." + release.BuildModeVar + "}"

	mappings := []release.ResourceMapping{
		shared(assets("ca.crt")),
		shared(assets("relays.json")),
		shared(fromRoot("CHANGELOG.md")),

		mac(assets(tripleDir, "mullvad"), "."),
		mac(assets(tripleDir, "mullvad-problem-report"), "."),
		mac(assets(tripleDir, "mullvad-daemon"), "."),
		mac(assets(tripleDir, "mullvad-setup"), "."),
		mac(assets(tripleDir, "libtalpid_openvpn_plugin.dylib"), "."),
		mac(assets("binaries", tripleDir, "openvpn"), "."),
		mac(assets("uninstall_macos.sh"), "./uninstall.sh"),
		mac(assets("shell-completions", "_mullvad"), "."),
		mac(assets("shell-completions", "mullvad.fish"), "."),

		win(assets("mullvad.exe")),
		win(assets("mullvad-problem-report.exe")),
		win(assets("mullvad-daemon.exe")),
		win(assets("talpid_openvpn_plugin.dll")),
		win(fromRoot("windows", "winfw", "bin", buildMode, "winfw.dll")),
		win(fromRoot("windows", "winnet", "bin", buildMode, "winnet.dll")),
		win(assets("binaries", "x86_64-pc-windows-msvc", "openvpn.exe")),
		win(fromRoot("build", "lib", "x86_64-pc-windows-msvc", "libwg.dll")),
		win(assets("binaries", "x86_64-pc-windows-msvc", "wintun", "wintun.dll")),
		win(assets("binaries", "x86_64-pc-windows-msvc", "wireguard-nt", "mullvad-wireguard.dll")),

		{Source: assets("linux", LauncherScript), Destination: ".", Scope: release.ScopeLinux, Kind: release.KindFile},
		linux(assets("mullvad-problem-report")),
		linux(assets("mullvad-daemon")),
		linux(assets("mullvad-setup")),
		linux(assets("libtalpid_openvpn_plugin.so")),
		linux(assets("binaries", "x86_64-unknown-linux-gnu", "openvpn")),
		linux(assets("linux", "mullvad-daemon.service")),
	}

	return &Manifest{resources: mappings}
}

func shared(source string) release.ResourceMapping {
	return release.ResourceMapping{Source: source, Destination: ".", Scope: release.ScopeShared, Kind: release.KindResource}
}

func mac(source, destination string) release.ResourceMapping {
	return release.ResourceMapping{Source: source, Destination: destination, Scope: release.ScopeMacOS, Kind: release.KindResource}
}

func win(source string) release.ResourceMapping {
	return release.ResourceMapping{Source: source, Destination: ".", Scope: release.ScopeWindows, Kind: release.KindResource}
}

func linux(source string) release.ResourceMapping {
	return release.ResourceMapping{Source: source, Destination: ".", Scope: release.ScopeLinux, Kind: release.KindResource}
}
