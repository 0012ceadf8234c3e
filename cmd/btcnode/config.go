package main

import "github.com/chainward/btcp2p/pkg/config"

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
