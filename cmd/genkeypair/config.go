package main

import (
	"github.com/jessevdk/go-flags"
)

type configFlags struct {
	Mnemonic string `long:"mnemonic" description:"Recover the key pair from an existing mnemonic instead of generating a new one"`
}

func parseConfig() (*configFlags, error) {
	cfg := &configFlags{}
	parser := flags.NewParser(cfg, flags.PrintErrors|flags.HelpFlag)
	_, err := parser.Parse()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}
