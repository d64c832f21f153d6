//go:build linux

package main

func bindHint() string {
	return "run as root, or: sudo setcap cap_net_bind_service=+ep $(command -v timeroast)"
}
