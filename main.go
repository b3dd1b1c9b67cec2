package main

import "staffing-estimator/cli"

func main() {
	cli.Execute()
}
