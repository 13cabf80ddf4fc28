package testing

import (
	"flag"
	"fmt"
	"io"
	"os"
	"testing"

	"pixelverk/internal/logger"
)

var verbose = flag.Bool("suite.verbose", false, "Show server logs during the end-to-end tests")

func TestMain(m *testing.M) {
	flag.Parse()

	// Server logs are noise unless asked for
	if !*verbose {
		logger.SetOutput(io.Discard)
	}

	fmt.Println("Starting Pixelverk end-to-end tests")
	exitCode := m.Run()
	logger.Close()

	os.Exit(exitCode)
}
