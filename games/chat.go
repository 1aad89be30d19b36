package games

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var chatPolicy = bluemonday.UGCPolicy()

// RenderMessage turns untrusted markdown chat content into a restricted
// HTML subset safe to distribute to the other player. Rendering failures
// are internal errors, not the sender's fault.
func RenderMessage(content string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("%w: render chat message: %v", ErrInternal, err)
	}

	return strings.TrimSpace(chatPolicy.Sanitize(buf.String())), nil
}
