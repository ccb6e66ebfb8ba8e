package main

import "symptom-checker/internal/cli"

func main() {
	cli.Execute()
}
