package logging

import (
	"context"

	"go.viam.com/utils"
)

type debugTagKey struct{}

// EnableDebugMode marks ctx so that C-prefixed debug calls made with it are always written,
// tagged with tag. An empty tag is replaced with a random one.
func EnableDebugMode(ctx context.Context, tag string) context.Context {
	if tag == "" {
		tag = utils.RandomAlphaString(6)
	}
	return context.WithValue(ctx, debugTagKey{}, tag)
}

// IsDebugMode reports whether ctx was marked by EnableDebugMode.
func IsDebugMode(ctx context.Context) bool {
	return DebugTag(ctx) != ""
}

// DebugTag returns the tag ctx was marked with, or "".
func DebugTag(ctx context.Context) string {
	tag, _ := ctx.Value(debugTagKey{}).(string)
	return tag
}
