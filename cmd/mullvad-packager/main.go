package main

import "github.com/mullvad/desktop-packager/cmd/mullvad-packager/cmd"

func main() {
	cmd.Execute()
}
