package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPlaceholder(t *testing.T) {
	for _, u := range []string{"", "about:blank", "chrome://newtab/", "chrome://new-tab-page/", "EDGE://NEWTAB/"} {
		assert.True(t, IsPlaceholder(u), u)
	}
	for _, u := range []string{"https://github.com", "chrome://settings/", "about:config"} {
		assert.False(t, IsPlaceholder(u), u)
	}
}
