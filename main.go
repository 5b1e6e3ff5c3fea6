package main

import (
	"github.com/luma/iris/cmd"
)

func main() {
	cmd.Execute()
}
