//go:build !linux

package main

func bindHint() string {
	return "run with sudo, or drop --src-port to use an ephemeral port"
}
