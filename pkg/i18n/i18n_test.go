package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalizer(t *testing.T) {
	l, err := NewLocalizer("en-US")
	require.NoError(t, err)

	assert.Equal(t, "Created TCP monitor successfully.", l.T("MonitorCreated", map[string]any{"Type": "TCP"}))
	assert.Equal(t, "Error updating HTTP Monitor.", l.T("MonitorUpdateFailed", map[string]any{"Type": "HTTP"}))
	assert.Equal(t, "NoSuchMessage", l.T("NoSuchMessage"))

	l.SetLanguage("zh-CN")
	assert.Equal(t, "zh-CN", l.Language())
	assert.Equal(t, "没有启用的监控。", l.T("NoActiveMonitors"))

	l.SetLanguage("xx-YY")
	assert.Equal(t, DefaultLanguage, l.Language())
	assert.Equal(t, "There are no active monitors to refresh.", l.T("NoActiveMonitors"))
}
