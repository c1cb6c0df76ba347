package main

import (
	"github.com/chaperon-run/chaperon/internal/cli"
	"github.com/chaperon-run/chaperon/internal/metrics"
)

func main() {
	metrics.EmitBuildInfo()
	cli.Execute()
}
