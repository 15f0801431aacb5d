package main

import "github.com/cockroachdb/typecheck/cmd"

func main() {
	cmd.Execute()
}
