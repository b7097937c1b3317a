package main

import (
	"jwassist-backend/cmd/jwwatcher/cmd"
)

func main() {
	cmd.Execute()
}
