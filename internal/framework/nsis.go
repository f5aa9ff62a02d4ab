package framework

import (
	"github.com/mullvad/desktop-packager/internal/executor"
)

// NSISOptions configure the Windows installer.
type NSISOptions struct {
	GUID                  string
	OneClick              bool
	PerMachine            bool
	AllowElevation        bool
	AllowChangeInstallDir bool
	// Script is the NSIS installer script.
	Script string
	// Include is an optional script included by Script.
	Include string
	// Sidebar is an optional installer sidebar bitmap.
	Sidebar string
}

// NewNSISTarget creates a target that compiles the installer with makensis.
func NewNSISTarget(runner executor.Runner, opts NSISOptions) *CommandTarget {
	command := []string{
		"makensis", "-V2",
		"-DAPP_GUID=" + opts.GUID,
		"-DAPP_ID=${appId}",
		"-DPRODUCT_NAME=${productName}",
		"-DPRODUCT_FILENAME=${productFilename}",
		"-DVERSION=${version}",
		"-DAPP_DIR=${appOutDir}",
		"-DOUTPUT_FILE=${output}",
		"-DONE_CLICK=" + flag(opts.OneClick),
		"-DPER_MACHINE=" + flag(opts.PerMachine),
		"-DALLOW_ELEVATION=" + flag(opts.AllowElevation),
		"-DALLOW_CHANGE_INSTALL_DIR=" + flag(opts.AllowChangeInstallDir),
	}

	if opts.Include != "" {
		command = append(command, "-DINCLUDE_SCRIPT="+opts.Include)
	}

	if opts.Sidebar != "" {
		command = append(command, "-DSIDEBAR_BITMAP="+opts.Sidebar)
	}

	command = append(command, opts.Script)

	return NewCommandTarget(runner, "exe", command)
}

func flag(v bool) string {
	if v {
		return "1"
	}

	return "0"
}
