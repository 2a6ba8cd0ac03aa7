package main

import (
	"fmt"
	"os"

	"github.com/appunni/llm-ts-worker/internal/workerctl"
)

func main() {
	if err := workerctl.BuildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
