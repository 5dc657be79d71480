// Command confq queries and converts configuration files.
//
//	confq get myapp.yml db.host
//	confq keys myapp.yml db
//	confq convert myapp.yml --to json --interpolate
package main

import (
	"context"
	"os"

	log "github.com/sirupsen/logrus"
)

func main() {
	err := Run(context.Background(), os.Exit, os.Stdout, os.Args[1:]...)

	if err != nil {
		log.WithError(err).Error("confq failed")
		os.Exit(1)
	}
}
