package main

import "github.com/frahmantamala/hr-approval/cmd"

func main() {
	cmd.Execute()
}
