package main

import "github.com/pysugar/ads-account-gateway/internal/cli"

func main() {
	cli.Execute()
}
