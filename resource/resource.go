package resource

import (
	"embed"
)

//go:embed l10n
var I18nFS embed.FS
