//go:build tools
// +build tools

// Package plural_chat tracks the code generators run by `go generate` (mockgen)
// as module dependencies, so go.mod and go.sum stay in sync with them.
package plural_chat

import (
	_ "go.uber.org/mock/mockgen"
)
