package utils

import (
	"time"

	"github.com/briandowns/spinner"
)

var sp *spinner.Spinner

func StartSpinner(suffix string) {
	sp = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	sp.Suffix = " " + suffix
	sp.Start()
}

func StopSpinner() {
	if sp != nil {
		sp.Stop()
		sp = nil
	}
}
