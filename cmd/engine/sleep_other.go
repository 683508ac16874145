//go:build !darwin

package main

// sleeper is only wired up on darwin.
func sleeper(onSleep func()) {}
