// Package tui renders the interactive branch browser. It owns a branches.Workspace on the Bubble Tea
// event loop, so every background fetch and deletion update is applied by the program goroutine.
package tui
