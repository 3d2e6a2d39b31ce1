// @title agentdeck API
// @version 1.0
// @description Session, presence and activity endpoints of the agentdeck dashboard.
// @BasePath /api
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
