package main

import (
	"github.com/jessevdk/go-flags"
)

type configFlags struct {
	Transaction string `short:"t" long:"transaction" required:"true" description:"The unsigned transaction to sign, in hex"`
	PrivateKey  string `short:"p" long:"private-key" description:"The private key to sign with, in hex. Read from the terminal when omitted"`
}

func parseCommandLine() (*configFlags, error) {
	cfg := &configFlags{}
	parser := flags.NewParser(cfg, flags.PrintErrors|flags.HelpFlag)
	_, err := parser.Parse()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}
