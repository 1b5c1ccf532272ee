// Package appfs embeds the files shipped inside the binaries: SQL migrations and message templates.
package appfs

import "embed"

//go:embed migrations/*.sql templates/email/* templates/sms/*
var FS embed.FS
