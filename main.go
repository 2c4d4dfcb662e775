package main

import "github.com/frahmantamala/approval-workflow/cmd"

func main() {
	cmd.Execute()
}
