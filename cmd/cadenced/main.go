// cadenced is the command-line front end for the behavioral biometric
// pipeline: enroll identities from captured samples, verify attempts,
// inspect enrollment progress, and manage stored profiles.
package main

import (
	"flag"
	"fmt"
	"os"

	"cadenced/internal/config"
)

var configPath = flag.String("config", "", "path to config file")

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	var err error
	switch cmd := flag.Arg(0); cmd {
	case "enroll":
		err = cmdEnroll(flag.Args()[1:])
	case "verify":
		err = cmdVerify(flag.Args()[1:])
	case "status":
		err = cmdStatus(flag.Args()[1:])
	case "wipe":
		err = cmdWipe(flag.Args()[1:])
	case "config-init":
		err = cmdConfigInit(flag.Args()[1:])
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `cadenced - on-device behavioral biometric authentication

Usage: cadenced [options] <command> [args]

Commands:
  enroll       Add a captured sample to an enrollment session
  verify       Verify a captured sample against a stored profile
  status       Show enrollment progress for an identity
  wipe         Delete stored profiles (identity, context, or everything)
  config-init  Write a default configuration file
  help         Show this help message

Options:
  -config <path>  Path to config file (default: ~/.cadenced/config.toml)`)
}

func loadConfig() (*config.Config, error) {
	return config.Load(*configPath)
}
