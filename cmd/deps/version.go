package main

import "github.com/example/deps/internal/version"

func versionString() string {
	return version.Get().String()
}
